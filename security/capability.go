// Package security applies the capability and seccomp policies inside the
// sandboxed child, just before exec.
package security

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/syndtr/gocapability/capability"
)

// defaultAllowNames is spec.md §4.3's fixed default allow list.
var defaultAllowNames = []string{
	"CHOWN", "DAC_OVERRIDE", "FSETID", "FOWNER", "MKNOD", "NET_RAW",
	"SETGID", "SETUID", "SETFCAP", "SETPCAP", "SYS_CHROOT", "KILL",
	"AUDIT_WRITE",
}

var nameToCap = buildNameToCap()

func buildNameToCap() map[string]capability.Cap {
	m := make(map[string]capability.Cap, len(capability.List()))
	for _, c := range capability.List() {
		// Cap.String() is lowercase ("chown"); policies use "CHOWN".
		m[strings.ToUpper(c.String())] = c
	}
	return m
}

// CapabilityPolicy narrows the process's inheritable and effective
// capability sets to (allow \ deny) ∩ permitted. Capabilities absent from
// the default lists are named by their bare CAP_* suffix, e.g. "CHOWN".
type CapabilityPolicy struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// DefaultCapabilityPolicy returns spec.md §4.3's default: the fixed allow
// list, no deny.
func DefaultCapabilityPolicy() *CapabilityPolicy {
	return &CapabilityPolicy{Allow: append([]string(nil), defaultAllowNames...)}
}

func namesToCapSet(names []string) mapset.Set[capability.Cap] {
	s := mapset.NewThreadUnsafeSet[capability.Cap]()
	for _, n := range names {
		if c, ok := nameToCap[n]; ok {
			s.Add(c)
		}
	}
	return s
}

// wanted computes allow \ deny.
func (p *CapabilityPolicy) wanted() mapset.Set[capability.Cap] {
	return namesToCapSet(p.Allow).Difference(namesToCapSet(p.Deny))
}

// Apply narrows the current process's inheritable and effective capability
// sets to wanted() ∩ permitted, silently dropping anything not currently
// permitted. The bounding and ambient sets are left untouched — see
// DESIGN.md Open Question #2.
func (p *CapabilityPolicy) Apply() error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return errors.Wrap(err, "load process capabilities")
	}
	if err := caps.Load(); err != nil {
		return errors.Wrap(err, "load process capabilities")
	}

	want := p.wanted()
	caps.Clear(capability.INHERITABLE)
	caps.Clear(capability.EFFECTIVE)

	for _, c := range want.ToSlice() {
		if caps.Get(capability.PERMITTED, c) {
			caps.Set(capability.INHERITABLE|capability.EFFECTIVE, c)
		}
	}

	if err := caps.Apply(capability.CAPS); err != nil {
		return errors.Wrap(err, "apply capabilities")
	}
	return nil
}
