package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtraFsDefaultInner(t *testing.T) {
	a := ExtraFs("", "")
	require.Equal(t, "mnt", a.Inner)
	require.Equal(t, KindExtraFs, a.Kind)
}

func TestRecreateRootRemovesExisting(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "target")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "stale"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stale", "file"), []byte("x"), 0o644))

	require.NoError(t, RecreateRoot(root))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRecreateRootCreatesFresh(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "nested", "target")

	require.NoError(t, RecreateRoot(root))
	_, err := os.Stat(root)
	require.NoError(t, err)
}

func TestRunLoadingOrderAndErrorWrap(t *testing.T) {
	// Unknown bind source must fail during Loading, identifying its index.
	actions := []Action{TmpFs(), BindFs("/does/not/exist-ssandbox-test")}
	err := RunLoading(actions, t.TempDir(), t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading mount action #1")
}

func TestSizedTmpFsDefaults(t *testing.T) {
	a := SizedTmpFs("64m", "/scratch")
	require.Equal(t, KindSizedTmpFs, a.Kind)
	require.Equal(t, "64m", a.Size)
	require.Equal(t, "/scratch", a.Target)
}

func TestTmpfsMountDataEmptySize(t *testing.T) {
	data, err := tmpfsMountData("")
	require.NoError(t, err)
	require.Equal(t, "", data)
}

func TestTmpfsMountDataRendersByteCount(t *testing.T) {
	data, err := tmpfsMountData("64m")
	require.NoError(t, err)
	require.Equal(t, "size=67108864", data)
}

func TestTmpfsMountDataRejectsGarbage(t *testing.T) {
	_, err := tmpfsMountData("not-a-size")
	require.Error(t, err)
}
