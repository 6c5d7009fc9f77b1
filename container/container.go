//go:build linux

package container

import (
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/szdytom/ssandbox/cgroup"
	"github.com/szdytom/ssandbox/idmap"
)

// cloneFlags is spec.md §4.1 step 3's exact namespace set.
const cloneFlags = syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC | syscall.CLONE_NEWPID |
	syscall.CLONE_NEWNS | syscall.CLONE_NEWUSER

// Container is the supervisor handle (C7): the parent-side half of the
// clone/sync/exec protocol, plus the wait/terminate/freeze/thaw/delete
// lifecycle.
type Container struct {
	mu sync.Mutex

	cfg   *Config
	cmd   *exec.Cmd
	group *cgroup.Group

	started bool
	ended   bool
	waitErr error
}

// New builds a supervisor for cfg. cfg must not be mutated afterwards.
func New(cfg *Config) *Container {
	return &Container{cfg: cfg}
}

// HasStarted reports whether Start has returned successfully.
func (c *Container) HasStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// HasEnded reports whether the container has been waited on or
// terminated.
func (c *Container) HasEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

func (c *Container) workPath() string {
	return containerWorkPath(c.cfg.WorkingPath, c.cfg.UID)
}

// Start performs spec.md §4.1's seven ordered steps: pipe creation, clone
// via self-reexec, the parent-unused-end close, out-of-band id-map and
// cgroup setup, releasing the child, and reading its report.
func (c *Container) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	configPipe, err := newPipePair()
	if err != nil {
		return errors.Wrap(err, "create config pipe")
	}
	ready, err := newPipePair()
	if err != nil {
		return errors.Wrap(err, "create ready pipe")
	}
	report, err := newPipePair()
	if err != nil {
		return errors.Wrap(err, "create report pipe")
	}

	cmd := reexecCommand()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: cloneFlags,
		Pdeathsig:  syscall.SIGKILL,
	}
	cmd.ExtraFiles = []*os.File{configPipe.read, ready.read, report.write}

	if err := cmd.Start(); err != nil {
		configPipe.read.Close()
		configPipe.write.Close()
		ready.read.Close()
		ready.write.Close()
		report.read.Close()
		report.write.Close()
		return &ForkFailedError{Cause: err}
	}

	// Parent-unused ends, closed exactly once per spec.md §4.1 step 4.
	configPipe.read.Close()
	ready.read.Close()
	report.write.Close()

	pid := cmd.Process.Pid
	logrus.WithField("pid", pid).Debug("sandbox child cloned")

	data, err := json.Marshal(c.cfg)
	if err == nil {
		_, err = configPipe.write.Write(data)
	}
	configPipe.write.Close()
	if err != nil {
		c.killAndCleanup(pid, ready.write, report.read)
		return errors.Wrap(err, "send config to child")
	}

	// Out-of-band parent setup (§4.1 step 5): must complete before the
	// child is released, so it observes its id-maps and cgroup membership.
	if err := c.setupOutOfBand(pid); err != nil {
		c.killAndCleanup(pid, ready.write, report.read)
		return err
	}

	// Release the child.
	if err := ready.write.Close(); err != nil {
		c.killAndCleanup(pid, nil, report.read)
		return errors.Wrap(err, "release child")
	}

	if err := readReport(report.read); err != nil {
		report.read.Close()
		// The child already reported failure and is exiting on its own;
		// reap it so it doesn't linger as a zombie.
		_, _ = cmd.Process.Wait()
		return err
	}
	report.read.Close()

	c.cmd = cmd
	c.started = true
	runtime.SetFinalizer(c, finalizeDelete)
	return nil
}

func (c *Container) killAndCleanup(pid int, readyWrite, reportRead *os.File) {
	_ = syscall.Kill(pid, syscall.SIGKILL)
	if readyWrite != nil {
		readyWrite.Close()
	}
	if reportRead != nil {
		reportRead.Close()
	}
}

func (c *Container) setupOutOfBand(pid int) error {
	if err := idmap.WriteIdentity(pid, c.cfg.InnerUID, c.cfg.InnerGID); err != nil {
		return errors.Wrap(err, "write id maps")
	}

	group, err := cgroup.ForUID(c.cfg.UID)
	if err != nil {
		return errors.Wrap(err, "resolve cgroup")
	}
	limits := cgroup.Limits{
		CPULimit:    c.cfg.CGroupLimits.CPULimit,
		MemoryLimit: c.cfg.CGroupLimits.MemoryLimit,
		ForkLimit:   c.cfg.CGroupLimits.ForkLimit,
	}
	if err := group.Apply(pid, limits); err != nil {
		return errors.Wrap(err, "apply cgroup limits")
	}
	c.group = group
	return nil
}

// Wait blocks until the container's child process exits. Idempotent.
func (c *Container) Wait() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitLocked()
}

func (c *Container) waitLocked() error {
	if c.ended {
		return c.waitErr
	}
	_, err := c.cmd.Process.Wait()
	c.waitErr = err
	c.ended = true
	return err
}

// Terminate sends SIGKILL to the child, then waits for it. Idempotent.
func (c *Container) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return nil
	}
	if err := c.cmd.Process.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "signal child")
	}
	return c.waitLocked()
}

// Freeze drives the container's cgroup freezer controller.
func (c *Container) Freeze() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		return errors.New("container not started")
	}
	return c.group.Freeze()
}

// Thaw resumes a frozen container.
func (c *Container) Thaw() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		return errors.New("container not started")
	}
	return c.group.Thaw()
}

// Delete terminates the container if still running, then removes its
// cgroup and working directory. Idempotent and safe to call from the
// finalizer.
func (c *Container) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked()
}

func (c *Container) deleteLocked() error {
	if c.started {
		if !c.ended {
			if err := c.cmd.Process.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logrus.WithError(err).Warn("signal child during delete")
			}
			_ = c.waitLocked()
		}
		runtime.SetFinalizer(c, nil)
	}

	var firstErr error
	if c.group != nil {
		if err := c.group.Delete(); err != nil {
			firstErr = err
		}
	}
	if err := os.RemoveAll(c.workPath()); err != nil && firstErr == nil {
		firstErr = errors.Wrapf(err, "remove working dir %s", c.workPath())
	}
	return firstErr
}

// finalizeDelete backs the destructor contract: a started container that
// is garbage-collected without an explicit Delete gets a best-effort
// cleanup attempt, swallowing any error.
func finalizeDelete(c *Container) {
	if err := c.Delete(); err != nil {
		logrus.WithError(err).Debug("finalizer cleanup failed")
	}
}
