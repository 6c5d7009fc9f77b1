//go:build linux

package container

import (
	"os"
	"os/exec"
)

// entryArg0 is the argv[0] self-exec binaries report to trigger Init.
// Analogous to docker's pkg/reexec and podman's pkg/unshare self-reexec
// convention — the same binary re-runs itself post-clone(namespaces),
// recognizing the request by argv[0] instead of by a raw clone() callback,
// which Go's runtime cannot safely support past the point of namespace
// creation (see SPEC_FULL.md §2).
const entryArg0 = "ssandbox-init"

// Init must be the first call in main() of any binary that constructs a
// Container. When the current process is a re-exec'd child it runs the
// child entry and does not return: the entry either execs the target or
// exits the process. Otherwise it is a no-op returning false, so callers
// write `if container.Init() { return }`.
func Init() bool {
	if len(os.Args) == 0 || os.Args[0] != entryArg0 {
		return false
	}
	runEntry()
	panic("unreachable: runEntry always calls os.Exit")
}

// reexecCommand builds the *exec.Cmd that will re-launch the current
// binary with argv[0] set to entryArg0, using /proc/self/exe so the
// running binary is found even if argv[0] of the *original* process was
// relative or has since been replaced on disk.
func reexecCommand() *exec.Cmd {
	cmd := &exec.Cmd{
		Path: "/proc/self/exe",
		Args: []string{entryArg0},
	}
	return cmd
}
