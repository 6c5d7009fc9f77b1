//go:build linux

package container

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/szdytom/ssandbox/mount"
	"github.com/szdytom/ssandbox/security"
)

// runEntry is the child-entry logic (C6). It runs post-re-exec, already
// inside the new UTS/IPC/PID/mount/user namespaces. Fds 3, 4, 5 (the
// ExtraFiles the supervisor attached) are, in order, the config pipe, the
// ready pipe, and the report pipe.
func runEntry() {
	configFile := os.NewFile(3, "config")
	ready := os.NewFile(4, "ready")
	report := os.NewFile(5, "report")

	cfg, err := readConfig(configFile)
	configFile.Close()
	if err != nil {
		failEntry(report, err)
	}

	if cfg.StackSize > 0 {
		debug.SetMaxStack(cfg.StackSize)
	}

	if err := exceptableMain(cfg, ready, report); err != nil {
		failEntry(report, err)
	}

	panic("unreachable: exceptableMain only returns on error")
}

func readConfig(f *os.File) (*Config, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read config from parent")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}

// failEntry implements the child's failure path: write status 1 and the
// message to the report pipe, print a diagnostic, and exit -1 (255 on
// POSIX, per spec.md §4.6's final paragraph).
func failEntry(report *os.File, err error) {
	fmt.Fprintf(os.Stderr, "entry error:\n%v\nend.\n", err)
	_ = writeFailure(report, err.Error())
	os.Exit(255)
}

// exceptableMain runs spec.md §4.6's eight ordered steps. It only returns
// on error; on success it execs the target and never returns at all.
func exceptableMain(cfg *Config, ready, report *os.File) error {
	if err := unix.Sethostname([]byte(cfg.Hostname)); err != nil {
		return errors.Wrap(err, "set hostname")
	}

	if err := redirectStdio(cfg); err != nil {
		return errors.Wrap(err, "redirect stdio")
	}

	if err := mountFilesystem(cfg); err != nil {
		return errors.Wrap(err, "mount filesystem")
	}

	if err := security.ApplyAll(cfg.SecurityPolicies); err != nil {
		return errors.Wrap(err, "apply security policies")
	}

	if err := checkTarget(cfg.TargetExecutable); err != nil {
		return errors.Wrapf(err, "check target executable %s", cfg.TargetExecutable)
	}

	if err := blockUntilReady(ready); err != nil {
		return errors.Wrap(err, "wait for parent setup")
	}

	if err := writeSuccess(report); err != nil {
		return errors.Wrap(err, "write success report")
	}

	return runInit(cfg)
}

func containerWorkPath(base string, uid uint64) string {
	return filepath.Join(base, strconv.FormatUint(uid, 10))
}

func mountFilesystem(cfg *Config) error {
	work := containerWorkPath(cfg.WorkingPath, cfg.UID)
	root := filepath.Join(work, "target")

	if err := mount.RecreateRoot(root); err != nil {
		return err
	}
	if err := mount.MarkPrivate(); err != nil {
		return err
	}
	if err := mount.RunLoading(cfg.FS, root, work); err != nil {
		return err
	}
	if err := changeRoot(root); err != nil {
		return err
	}
	return mount.RunLoaded(cfg.FS)
}

// changeRoot replaces the process root with root via pivot_root, per
// SPEC_FULL.md §12's adopted redesign (stronger than bare chroot: the old
// root is unmounted, not merely hidden). pivot_root requires new_root to
// be a mount point distinct from its parent, so root is first bind-mounted
// onto itself. pivot_root(".", ".") stacks the old root on top of the new
// one, so no scratch directory has to be created inside root (which may be
// a read-only bind).
func changeRoot(root string) error {
	if err := unix.Mount(root, root, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return errors.Wrap(err, "bind-mount root onto itself")
	}

	if err := unix.Chdir(root); err != nil {
		return errors.Wrap(err, "chdir to new root")
	}

	if err := unix.PivotRoot(".", "."); err != nil {
		return errors.Wrap(err, "pivot_root")
	}

	if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
		return errors.Wrap(err, "detach old root")
	}

	if err := unix.Chdir("/"); err != nil {
		return errors.Wrap(err, "chdir to new root")
	}
	return nil
}

func runInit(cfg *Config) error {
	if err := unix.Exec(cfg.TargetExecutable, []string{cfg.TargetExecutable}, []string{}); err != nil {
		return errors.Wrapf(err, "execve %s", cfg.TargetExecutable)
	}
	return nil // unreachable on success
}

func checkTarget(target string) error {
	return unix.Access(target, unix.X_OK)
}

func redirectStdio(cfg *Config) error {
	if cfg.Stdin != "" {
		fd, err := unix.Open(cfg.Stdin, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return errors.Wrapf(err, "open stdin %s", cfg.Stdin)
		}
		if err := redirectFd(fd, unix.Stdin); err != nil {
			return err
		}
	}
	if cfg.Stdout != "" {
		fd, err := unix.Open(cfg.Stdout, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open stdout %s", cfg.Stdout)
		}
		if err := redirectFd(fd, unix.Stdout); err != nil {
			return err
		}
	}
	if cfg.Stderr != "" {
		fd, err := unix.Open(cfg.Stderr, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open stderr %s", cfg.Stderr)
		}
		if err := redirectFd(fd, unix.Stderr); err != nil {
			return err
		}
	}
	return nil
}

func redirectFd(source, target int) error {
	if err := unix.Dup2(source, target); err != nil {
		return errors.Wrap(err, "dup2")
	}
	return unix.Close(source)
}
