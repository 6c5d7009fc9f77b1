package security

import "github.com/pkg/errors"

// PolicyKind discriminates the two built-in security policies, mirroring
// mount.Kind's tagged-struct shape so Config.SecurityPolicies survives the
// JSON round trip across the re-exec boundary.
type PolicyKind int

const (
	PolicyCapability PolicyKind = iota
	PolicySeccomp
)

// Policy is one entry of Config.SecurityPolicies.
type Policy struct {
	Kind       PolicyKind        `json:"kind"`
	Capability *CapabilityPolicy `json:"capability,omitempty"`
	Seccomp    *SeccompPolicy    `json:"seccomp,omitempty"`
}

// Apply dispatches to the held policy.
func (p Policy) Apply() error {
	switch p.Kind {
	case PolicyCapability:
		return p.Capability.Apply()
	case PolicySeccomp:
		return p.Seccomp.Apply()
	default:
		return errors.Errorf("unknown security policy kind %d", p.Kind)
	}
}

// DefaultPolicies returns capability-then-seccomp, spec.md §4.6 step 4's
// required default ordering (capabilities narrowed before the syscall
// filter goes on, since installing the filter first could itself deny the
// capability syscalls).
func DefaultPolicies() []Policy {
	return []Policy{
		{Kind: PolicyCapability, Capability: DefaultCapabilityPolicy()},
		{Kind: PolicySeccomp, Seccomp: DefaultSeccompPolicy()},
	}
}

// ApplyAll runs every policy in order.
func ApplyAll(policies []Policy) error {
	for i, p := range policies {
		if err := p.Apply(); err != nil {
			return errors.Wrapf(err, "security policy #%d", i)
		}
	}
	return nil
}
