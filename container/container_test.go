//go:build linux

package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/szdytom/ssandbox/security"
)

func unprivileged() bool {
	return os.Geteuid() != 0
}

func TestDefaultConfigHasCapabilityThenSeccomp(t *testing.T) {
	cfg := DefaultConfig()
	require.Len(t, cfg.SecurityPolicies, 2)
	require.Equal(t, security.PolicyCapability, cfg.SecurityPolicies[0].Kind)
	require.Equal(t, security.PolicySeccomp, cfg.SecurityPolicies[1].Kind)
	require.Equal(t, "/bin/sh", cfg.TargetExecutable)
}

func TestNewContainerStartsUnstarted(t *testing.T) {
	c := New(DefaultConfig())
	require.False(t, c.HasStarted())
	require.False(t, c.HasEnded())
}

func TestContainerWorkPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkingPath = "/var/lib/ssandbox"
	cfg.UID = 42
	c := New(cfg)
	require.Equal(t, filepath.Join("/var/lib/ssandbox", "42"), c.workPath())
}

// TestStartTwiceReturnsAlreadyStarted drives spec.md §8 scenario 5: a
// second Start on an already-started container fails with ErrAlreadyStarted
// and the first container remains healthy.
func TestStartTwiceReturnsAlreadyStarted(t *testing.T) {
	if unprivileged() {
		t.Skip("skipping test: sandbox clone/mount requires root")
	}

	cfg := DefaultConfig()
	cfg.WorkingPath = t.TempDir()

	c := New(cfg)
	require.NoError(t, c.Start())
	defer c.Delete()

	require.ErrorIs(t, c.Start(), ErrAlreadyStarted)
	require.True(t, c.HasStarted())
	require.False(t, c.HasEnded())

	require.NoError(t, c.Terminate())
}

// TestStartBadTargetReturnsEntryError drives spec.md §8 scenario 4: a
// nonexistent target executable surfaces as an EntryError whose message
// contains the offending path.
func TestStartBadTargetReturnsEntryError(t *testing.T) {
	if unprivileged() {
		t.Skip("skipping test: sandbox clone/mount requires root")
	}

	cfg := DefaultConfig()
	cfg.WorkingPath = t.TempDir()
	cfg.TargetExecutable = "/does/not/exist"

	c := New(cfg)
	err := c.Start()
	require.Error(t, err)

	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	require.Contains(t, entryErr.Message, cfg.TargetExecutable)
	require.False(t, c.HasStarted())
}
