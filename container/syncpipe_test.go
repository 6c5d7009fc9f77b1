package container

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportRoundTripSuccess(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, writeSuccess(w))
	w.Close()

	require.NoError(t, readReport(r))
}

func TestReportRoundTripFailure(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	const msg = "exec: /does/not/exist: no such file or directory"
	require.NoError(t, writeFailure(w, msg))
	w.Close()

	err = readReport(r)
	require.Error(t, err)

	var ee *EntryError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, msg, ee.Message)
	require.EqualValues(t, 1, ee.Code)
}

func TestBlockUntilReadyReturnsOnClose(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	w.Close()
	require.NoError(t, blockUntilReady(r))
	r.Close()
}
