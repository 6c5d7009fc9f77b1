package idmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleEntryFormat(t *testing.T) {
	got := string(singleEntry(Mapping{ContainerID: 0, HostID: 1000, Size: 1}))
	require.Equal(t, "0 1000 1\n", got)
}

func TestSingleEntryFormatNonZeroInner(t *testing.T) {
	got := string(singleEntry(Mapping{ContainerID: 1001, HostID: 0, Size: 1}))
	require.Equal(t, "1001 0 1\n", got)
}
