package cgroup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCFSQuotaFormula(t *testing.T) {
	cases := []struct {
		cpuLimit uint64
		want     int64
	}{
		{cpuLimit: 1_000_000, want: 50_000}, // quota == period at full core
		{cpuLimit: 500_000, want: 25_000},
		{cpuLimit: 2_000_000, want: 100_000},
		{cpuLimit: 0, want: 0},
	}
	for _, c := range cases {
		got := Limits{CPULimit: c.cpuLimit}.CFSQuota()
		require.Equalf(t, c.want, got, "CFSQuota(%d)", c.cpuLimit)
	}
}
