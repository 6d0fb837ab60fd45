package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestInstall creates a fake CapCut tree with the given version dirs and
// returns the paths resolver.
func newTestInstall(t *testing.T, versions ...string) *Paths {
	t.Helper()
	root := t.TempDir()
	for _, v := range versions {
		dir := filepath.Join(root, "Apps", v)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "CapCut.exe"), []byte("binary"), 0755))
	}
	return NewPathsWithRoot(root)
}

func TestScanVersions_ReturnsAllVersionDirs(t *testing.T) {
	paths := newTestInstall(t, "5.9.0", "6.4.0", "3.1.0.100")
	scanner := NewVersionScanner(paths, zap.NewNop())

	versions, err := scanner.ScanVersions()
	require.NoError(t, err)
	require.Len(t, versions, 3)

	// Newest first.
	assert.Equal(t, "6.4.0", versions[0].Name)
	assert.Equal(t, "5.9.0", versions[1].Name)
	assert.Equal(t, "3.1.0.100", versions[2].Name)

	for _, v := range versions {
		assert.Greater(t, v.SizeMB, 0.0)
		assert.DirExists(t, v.Path)
	}
}

func TestScanVersions_IgnoresNonVersionEntries(t *testing.T) {
	paths := newTestInstall(t, "6.4.0")
	appsDir := paths.AppsDir()

	// Non-version directory and a plain file must not be reported.
	require.NoError(t, os.MkdirAll(filepath.Join(appsDir, "cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appsDir, "configure.ini"), []byte("x"), 0644))

	scanner := NewVersionScanner(paths, zap.NewNop())
	versions, err := scanner.ScanVersions()
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "6.4.0", versions[0].Name)
}

func TestScanVersions_EmptyRootIsNotAnError(t *testing.T) {
	paths := NewPathsWithRoot(t.TempDir())
	scanner := NewVersionScanner(paths, zap.NewNop())

	versions, err := scanner.ScanVersions()
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestScanVersions_UnreadableSiblingIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	paths := newTestInstall(t, "5.9.0", "6.4.0")
	locked := filepath.Join(paths.AppsDir(), "5.9.0")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	scanner := NewVersionScanner(paths, zap.NewNop())
	versions, err := scanner.ScanVersions()
	require.NoError(t, err)

	// The unreadable sibling must not abort the scan; the readable entry
	// is still returned. Size of the unreadable one degrades to zero.
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "6.4.0")
}

func TestCalculateCacheSize_MissingDirsContributeZero(t *testing.T) {
	paths := NewPathsWithRoot(t.TempDir())
	scanner := NewVersionScanner(paths, zap.NewNop())

	size, err := scanner.CalculateCacheSize()
	require.NoError(t, err)
	assert.Equal(t, 0.0, size)
}

func TestCalculateCacheSize_SumsCacheDirs(t *testing.T) {
	paths := NewPathsWithRoot(t.TempDir())
	cacheDir := paths.CacheDirs()[0]
	require.NoError(t, os.MkdirAll(cacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "render.tmp"), make([]byte, 2*bytesPerMB), 0644))

	scanner := NewVersionScanner(paths, zap.NewNop())
	size, err := scanner.CalculateCacheSize()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, size, 0.01)
}

func TestInstallRoots(t *testing.T) {
	paths := NewPathsWithRoot(t.TempDir())
	scanner := NewVersionScanner(paths, zap.NewNop())

	roots, err := scanner.InstallRoots()
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, paths.Root, roots[0])
	assert.Equal(t, paths.AppsDir(), roots[1])
}

func TestParseVersionName(t *testing.T) {
	assert.NotNil(t, parseVersionName("6.4.0"))
	assert.NotNil(t, parseVersionName("3.1.0.100"))
	assert.NotNil(t, parseVersionName("5.9"))
	assert.Nil(t, parseVersionName("cache"))
	assert.Nil(t, parseVersionName("v6.4.0"))
	assert.Nil(t, parseVersionName("6.4.0-beta"))
	assert.Nil(t, parseVersionName("6"))
	assert.Nil(t, parseVersionName("6..0"))
}

func TestNewPaths_EnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv(RootEnvVar, root)

	paths, err := NewPaths()
	require.NoError(t, err)
	assert.Equal(t, root, paths.Root)
	assert.Equal(t, filepath.Join(root, "Apps"), paths.AppsDir())
	assert.Equal(t, filepath.Join(root, "User Data", "Download"), paths.DownloadDir())
}
