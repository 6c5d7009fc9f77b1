package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSeccompPolicy(t *testing.T) {
	p := DefaultSeccompPolicy()
	require.Empty(t, p.Allow)
	require.Equal(t, defaultDenyNames, p.Deny)
	require.Contains(t, p.Deny, "pivot_root")
}

func TestDefaultPoliciesOrderIsCapabilityThenSeccomp(t *testing.T) {
	ps := DefaultPolicies()
	require.Len(t, ps, 2)
	require.Equal(t, PolicyCapability, ps[0].Kind)
	require.Equal(t, PolicySeccomp, ps[1].Kind)
}
