package security

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/gocapability/capability"
)

func TestWantedIsAllowMinusDeny(t *testing.T) {
	p := &CapabilityPolicy{
		Allow: []string{"CHOWN", "KILL", "SETUID"},
		Deny:  []string{"KILL"},
	}
	got := p.wanted()

	require.True(t, got.Contains(capability.CAP_CHOWN))
	require.True(t, got.Contains(capability.CAP_SETUID))
	require.False(t, got.Contains(capability.CAP_KILL))
	require.Equal(t, 2, got.Cardinality())
}

func TestWantedSkipsUnknownNames(t *testing.T) {
	p := &CapabilityPolicy{Allow: []string{"CHOWN", "NOT_A_REAL_CAP"}}
	got := p.wanted()
	require.Equal(t, 1, got.Cardinality())
	require.True(t, got.Contains(capability.CAP_CHOWN))
}

func TestDefaultCapabilityPolicyMatchesSpecList(t *testing.T) {
	want := []string{
		"CHOWN", "DAC_OVERRIDE", "FSETID", "FOWNER", "MKNOD", "NET_RAW",
		"SETGID", "SETUID", "SETFCAP", "SETPCAP", "SYS_CHROOT", "KILL",
		"AUDIT_WRITE",
	}
	got := DefaultCapabilityPolicy()
	require.Equal(t, want, got.Allow)
	require.Empty(t, got.Deny)
}
