// Package container implements the sandbox's container supervisor (C7),
// child entry (C6), and error channel (C8): the clone/sync/exec
// choreography spec.md §4.1/§4.6 describes.
package container

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/szdytom/ssandbox/mount"
	"github.com/szdytom/ssandbox/security"
)

// Config is the immutable sandbox configuration, spec.md §3. It must not
// be mutated after Start; it crosses the re-exec boundary as JSON and is
// treated as shared-immutable by the child.
type Config struct {
	// UID names the cgroup (ssandbox.<uid>) and the working directory
	// subtree (working_path/<uid>).
	UID uint64 `json:"uid"`

	// WorkingPath is the host directory under which this container's
	// scratch tree (target/, extra/) lives.
	WorkingPath string `json:"working_path"`

	// StackSize is carried for fidelity with the source config surface;
	// the Go child entry runs as a normal goroutine on the runtime's own
	// stack, so the child only passes a positive value to
	// debug.SetMaxStack.
	StackSize int `json:"stack_size"`

	// Hostname is set in the new UTS namespace.
	Hostname string `json:"hostname"`

	// TargetExecutable is the absolute path, inside the container, to
	// exec once setup completes.
	TargetExecutable string `json:"target_executable"`

	// FS is the ordered filesystem stage (C2).
	FS []mount.Action `json:"fs"`

	// SecurityPolicies is the ordered list of policies applied just
	// before exec (C3/C4).
	SecurityPolicies []security.Policy `json:"security_policies"`

	// CGroupLimits is the resource policy (C5).
	CGroupLimits CGroupLimits `json:"cgroup_limits"`

	// InnerUID/InnerGID are the identities the container root maps to.
	InnerUID uint32 `json:"inner_uid"`
	InnerGID uint32 `json:"inner_gid"`

	// Stdin/Stdout/Stderr are optional host paths redirected into the
	// child before exec.
	Stdin  string `json:"stdin,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// TimeLimit is advisory only — see spec.md §9; nothing in this
	// package enforces it. Callers that want a wall-clock cap arm their
	// own timer and call Terminate.
	TimeLimit time.Duration `json:"time_limit,omitempty"`
}

// CGroupLimits mirrors cgroup.Limits at the config layer so the container
// package doesn't force every caller to import cgroup just to build a
// Config.
type CGroupLimits struct {
	CPULimit    uint64 `json:"cpu_limit,omitempty"`
	MemoryLimit uint64 `json:"memory_limit,omitempty"`
	ForkLimit   uint64 `json:"fork_limit,omitempty"`
}

// DefaultConfig returns a Config with spec.md §3's defaults: a random UID,
// inner identity 0/0, capability-then-seccomp security policies, and a
// /bin/sh target.
func DefaultConfig() *Config {
	return &Config{
		UID:              randomUID(),
		WorkingPath:      "/var/lib/ssandbox",
		StackSize:        8 * 1024 * 1024,
		Hostname:         "sandbox",
		TargetExecutable: "/bin/sh",
		SecurityPolicies: security.DefaultPolicies(),
		InnerUID:         0,
		InnerGID:         0,
	}
}

// randomUID is a 64-bit random default; per spec.md §9 this has no
// cross-process uniqueness guarantee and callers needing one must supply
// their own UID.
func randomUID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is unusual enough that a deterministic
		// fallback (vs. a half-initialized Config) is the safer choice.
		return 1
	}
	return binary.BigEndian.Uint64(b[:])
}
