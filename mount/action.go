// Package mount implements the sandbox's two-phase filesystem pipeline:
// an ordered list of actions run once before the root change (loading) and
// once after it (loaded).
package mount

import (
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Kind discriminates the built-in mount actions. Modeled as a tagged
// struct rather than an interface per-kind: the action list must survive a
// JSON round trip across the re-exec boundary, and there's a fixed, small
// set of variants, so heap-indirection buys nothing.
type Kind int

const (
	KindTmpFs Kind = iota
	KindProcFs
	KindBindFs
	KindReadOnlyBindFs
	KindExtraFs
	KindSizedTmpFs
)

// Action is one step of the filesystem stage.
type Action struct {
	Kind Kind `json:"kind"`

	// Source is the host path to bind (BindFs, ReadOnlyBindFs) or, for
	// ExtraFs, an optional explicit source; when empty ExtraFs creates
	// and binds the container's own work/extra scratch directory.
	Source string `json:"source,omitempty"`

	// Inner is ExtraFs's mount point under root, default "mnt".
	Inner string `json:"inner,omitempty"`

	// Target is SizedTmpFs's mount point.
	Target string `json:"target,omitempty"`

	// Size is SizedTmpFs's optional human-readable size (e.g. "64m");
	// empty means no size= option is passed to the kernel.
	Size string `json:"size,omitempty"`
}

// TmpFs mounts an ephemeral tmpfs at /tmp once inside the container.
func TmpFs() Action { return Action{Kind: KindTmpFs} }

// ProcFs mounts procfs at /proc once inside the container.
func ProcFs() Action { return Action{Kind: KindProcFs} }

// BindFs recursively bind-mounts src onto the future root, before chroot.
func BindFs(src string) Action { return Action{Kind: KindBindFs, Source: src} }

// ReadOnlyBindFs is BindFs followed by a read-only remount.
func ReadOnlyBindFs(src string) Action { return Action{Kind: KindReadOnlyBindFs, Source: src} }

// ExtraFs recursively bind-mounts src (or a freshly created work/extra
// directory, when src is empty) at root/inner, default inner "mnt".
func ExtraFs(src, inner string) Action {
	if inner == "" {
		inner = "mnt"
	}
	return Action{Kind: KindExtraFs, Source: src, Inner: inner}
}

// SizedTmpFs mounts a tmpfs at target (interpreted inside the container,
// after chroot), capped to size when non-empty.
func SizedTmpFs(size, target string) Action {
	return Action{Kind: KindSizedTmpFs, Size: size, Target: target}
}

// Loading runs the pre-chroot half of the action. root is the future
// container root (working_path/<uid>/target); work is its parent
// (working_path/<uid>).
func (a Action) Loading(root, work string) error {
	switch a.Kind {
	case KindBindFs:
		return bindRecursive(a.Source, root)

	case KindReadOnlyBindFs:
		if err := bindRecursive(a.Source, root); err != nil {
			return err
		}
		return remountReadOnly(root)

	case KindExtraFs:
		src := a.Source
		if src == "" {
			src = filepath.Join(work, "extra")
			if err := os.MkdirAll(src, 0o755); err != nil {
				return errors.Wrapf(err, "create extra scratch dir %s", src)
			}
		}
		dst, err := securejoin.SecureJoin(root, a.Inner)
		if err != nil {
			return errors.Wrapf(err, "resolve extrafs inner path %s", a.Inner)
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return errors.Wrapf(err, "create extrafs mountpoint %s", dst)
		}
		return bindRecursive(src, dst)

	default:
		return nil
	}
}

// Loaded runs the post-chroot half of the action; paths are interpreted
// inside the container.
func (a Action) Loaded() error {
	switch a.Kind {
	case KindTmpFs:
		return unix.Mount("tmpfs", "/tmp", "tmpfs", 0, "")

	case KindProcFs:
		return unix.Mount("proc", "/proc", "proc", 0, "")

	case KindSizedTmpFs:
		data, err := tmpfsMountData(a.Size)
		if err != nil {
			return err
		}
		return unix.Mount("tmpfs", a.Target, "tmpfs", 0, data)

	default:
		return nil
	}
}

// tmpfsMountData builds the mount(2) data string for a (possibly size-
// bounded) tmpfs. The kernel's tmpfs option parser wants a bare byte count
// or a numeric prefix plus a single k/m/g suffix; it rejects human-readable
// strings like "64MiB", so a parsed size is re-emitted as a plain integer.
func tmpfsMountData(size string) (string, error) {
	if size == "" {
		return "", nil
	}
	bytes, err := units.RAMInBytes(size)
	if err != nil {
		return "", errors.Wrapf(err, "parse tmpfs size %q", size)
	}
	return fmt.Sprintf("size=%d", bytes), nil
}

func bindRecursive(src, dst string) error {
	if err := unix.Mount(src, dst, "", unix.MS_REC|unix.MS_BIND, ""); err != nil {
		return errors.Wrapf(err, "bind mount %s -> %s", src, dst)
	}
	return nil
}

func remountReadOnly(path string) error {
	flags := uintptr(unix.MS_RDONLY | unix.MS_REMOUNT | unix.MS_BIND | unix.MS_REC)
	if err := unix.Mount("", path, "", flags, ""); err != nil {
		return errors.Wrapf(err, "remount read-only %s", path)
	}
	return nil
}

// MarkPrivate marks the whole mount tree rooted at "/" MS_REC|MS_PRIVATE so
// host mounts made afterwards never propagate into the container, and vice
// versa. Must run before any Loading hook.
func MarkPrivate() error {
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return errors.Wrap(err, "mark mount namespace private")
	}
	return nil
}

// RecreateRoot ensures root exists and is empty: if it already exists it is
// recursively removed first. Callers must not pre-populate it.
func RecreateRoot(root string) error {
	if _, err := os.Lstat(root); err == nil {
		if err := os.RemoveAll(root); err != nil {
			return errors.Wrapf(err, "remove existing root %s", root)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat root %s", root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.Wrapf(err, "create root %s", root)
	}
	return nil
}

// RunLoading runs Loading on every action in insertion order.
func RunLoading(actions []Action, root, work string) error {
	for i, a := range actions {
		if err := a.Loading(root, work); err != nil {
			return errors.Wrapf(err, "loading mount action #%d", i)
		}
	}
	return nil
}

// RunLoaded runs Loaded on every action in insertion order.
func RunLoaded(actions []Action) error {
	for i, a := range actions {
		if err := a.Loaded(); err != nil {
			return errors.Wrapf(err, "loaded mount action #%d", i)
		}
	}
	return nil
}
