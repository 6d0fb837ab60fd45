// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"os"
	"path/filepath"
)

// FakeInstall creates a directory structure mimicking a CapCut installation
// with multiple versions and populated caches.
type FakeInstall struct {
	Root string
}

// NewFakeInstall creates a fake install generator rooted at root.
func NewFakeInstall(root string) *FakeInstall {
	return &FakeInstall{Root: root}
}

// Create builds the fake install tree with the given version directories.
func (f *FakeInstall) Create(versions ...string) error {
	for _, v := range versions {
		dir := filepath.Join(f.Root, "Apps", v)
		if err := os.MkdirAll(filepath.Join(dir, "Resources"), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "CapCut.exe"), []byte("fake binary "+v), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "Resources", "effects.pak"), make([]byte, 4096), 0644); err != nil {
			return err
		}
	}

	// Populated caches to exercise cleanup.
	caches := []string{
		filepath.Join(f.Root, "User Data", "Cache", "renders"),
		filepath.Join(f.Root, "User Data", "Temp"),
	}
	for _, c := range caches {
		if err := os.MkdirAll(c, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(c, "artifact.bin"), make([]byte, 1024*1024), 0644); err != nil {
			return err
		}
	}

	return nil
}

// VersionPath returns the directory of one version.
func (f *FakeInstall) VersionPath(version string) string {
	return filepath.Join(f.Root, "Apps", version)
}

// VersionExists checks whether a version directory still exists.
func (f *FakeInstall) VersionExists(version string) bool {
	_, err := os.Stat(f.VersionPath(version))
	return err == nil
}
