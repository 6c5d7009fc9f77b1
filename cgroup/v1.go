package cgroup

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
)

// v1Controllers lists the legacy-hierarchy controllers the sandbox cares
// about; a container only needs the subset its config actually limits, but
// the group directory is created under each controller mount discovered.
var v1Controllers = []string{"pids", "cpu", "memory", "freezer"}

type v1Driver struct {
	name        string
	mountpoints map[string]string // controller -> mountpoint
}

func findV1Mountpoint(controller string) (string, error) {
	infos, err := mountinfo.GetMounts(func(i *mountinfo.Info) (skip, stop bool) {
		if i.FSType != "cgroup" {
			return true, false
		}
		for _, opt := range strings.Split(i.VFSOptions, ",") {
			if opt == controller {
				return false, true
			}
		}
		return true, false
	})
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.Errorf("no mounted cgroup v1 hierarchy for controller %q", controller)
	}
	return infos[0].Mountpoint, nil
}

func newV1Driver(name string) (*v1Driver, error) {
	mps := make(map[string]string, len(v1Controllers))
	for _, c := range v1Controllers {
		mp, err := findV1Mountpoint(c)
		if err != nil {
			// Not every controller is guaranteed to be mounted (e.g. a
			// distro without the freezer controller compiled in); the
			// group simply can't use that controller, which apply()
			// surfaces only if the config actually needs it.
			continue
		}
		mps[c] = mp
	}
	return &v1Driver{name: name, mountpoints: mps}, nil
}

func (d *v1Driver) groupPath(controller string) (string, error) {
	mp, ok := d.mountpoints[controller]
	if !ok {
		return "", errors.Errorf("cgroup v1 controller %q not mounted", controller)
	}
	return filepath.Join(mp, d.name), nil
}

func (d *v1Driver) create() error {
	for _, mp := range d.mountpoints {
		if err := os.MkdirAll(filepath.Join(mp, d.name), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (d *v1Driver) attach(pid int) error {
	for _, mp := range d.mountpoints {
		path := filepath.Join(mp, d.name, "cgroup.procs")
		if err := writeFile(path, strconv.Itoa(pid)); err != nil {
			return errors.Wrapf(err, "attach to %s", path)
		}
	}
	return nil
}

func (d *v1Driver) apply(limits Limits) error {
	if limits.ForkLimit != 0 {
		path, err := d.groupPath("pids")
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(path, "pids.max"), strconv.FormatUint(limits.ForkLimit, 10)); err != nil {
			return errors.Wrap(err, "set pids.max")
		}
	}

	if limits.CPULimit != 0 {
		path, err := d.groupPath("cpu")
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(path, "cpu.cfs_period_us"), strconv.Itoa(cfsPeriodUs)); err != nil {
			return errors.Wrap(err, "set cpu.cfs_period_us")
		}
		if err := writeFile(filepath.Join(path, "cpu.cfs_quota_us"), strconv.FormatInt(limits.CFSQuota(), 10)); err != nil {
			return errors.Wrap(err, "set cpu.cfs_quota_us")
		}
	}

	if limits.MemoryLimit != 0 {
		path, err := d.groupPath("memory")
		if err != nil {
			return err
		}
		v := strconv.FormatUint(limits.MemoryLimit, 10)
		for _, file := range []string{"memory.limit_in_bytes", "memory.kmem.limit_in_bytes", "memory.memsw.limit_in_bytes"} {
			if err := writeFile(filepath.Join(path, file), v); err != nil {
				return errors.Wrapf(err, "set %s", file)
			}
		}
	}

	return nil
}

func (d *v1Driver) freeze() error {
	path, err := d.groupPath("freezer")
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(path, "freezer.state"), "FROZEN")
}

func (d *v1Driver) thaw() error {
	path, err := d.groupPath("freezer")
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(path, "freezer.state"), "THAWED")
}

func (d *v1Driver) delete() error {
	var firstErr error
	for _, mp := range d.mountpoints {
		path := filepath.Join(mp, d.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = errors.Wrapf(err, "remove %s", path)
		}
	}
	return firstErr
}
