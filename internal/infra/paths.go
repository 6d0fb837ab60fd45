// Package infra implements infrastructure concerns (scanning, process
// detection, locking, state persistence).
package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// RootEnvVar overrides the resolved install root. Used by tests and by
// installs relocated off the default drive.
const RootEnvVar = "CCGUARD_ROOT"

// Paths resolves the well-known locations inside a CapCut installation.
// All other components take their locations from here instead of probing
// the environment themselves.
type Paths struct {
	// Root is the top-level CapCut directory (contains Apps and User Data).
	Root string
}

// NewPaths resolves the install root for the current platform.
// Fails only when no candidate root directory exists.
func NewPaths() (*Paths, error) {
	if override := os.Getenv(RootEnvVar); override != "" {
		return &Paths{Root: override}, nil
	}

	candidates := defaultRootCandidates()
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return &Paths{Root: c}, nil
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no install root candidates for platform %s", runtime.GOOS)
	}
	return nil, fmt.Errorf("install root not found (looked in %v)", candidates)
}

// NewPathsWithRoot creates a resolver anchored at a specific root (for testing).
func NewPathsWithRoot(root string) *Paths {
	return &Paths{Root: root}
}

// defaultRootCandidates returns platform candidates in probe order.
func defaultRootCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return []string{filepath.Join(localAppData, "CapCut")}
		}
		return nil
	case "darwin":
		home, _ := os.UserHomeDir()
		return []string{
			filepath.Join(home, "Movies", "CapCut"),
			filepath.Join(home, "Library", "Application Support", "CapCut"),
		}
	default:
		home, _ := os.UserHomeDir()
		return []string{
			filepath.Join(home, ".local", "share", "CapCut"),
		}
	}
}

// AppsDir is the install root holding one subdirectory per installed version.
func (p *Paths) AppsDir() string {
	return filepath.Join(p.Root, "Apps")
}

// UserDataDir holds user projects, caches, and the updater staging area.
func (p *Paths) UserDataDir() string {
	return filepath.Join(p.Root, "User Data")
}

// DownloadDir is the updater staging directory under User Data.
func (p *Paths) DownloadDir() string {
	return filepath.Join(p.UserDataDir(), "Download")
}

// ConfigFile is the launcher configuration holding the last_version pointer.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppsDir(), "configure.ini")
}

// ProductInfoFile tells the launcher which executable to run.
func (p *Paths) ProductInfoFile() string {
	return filepath.Join(p.AppsDir(), "ProductInfo.xml")
}

// UpdateStagingFile is where the updater drops the downloaded installer.
func (p *Paths) UpdateStagingFile() string {
	return filepath.Join(p.DownloadDir(), "update.exe")
}

// CacheDirs are the transient directories the cleaner may purge. Scoped to
// render artifacts and temp data, never version directories or projects.
func (p *Paths) CacheDirs() []string {
	return []string{
		filepath.Join(p.UserDataDir(), "Cache"),
		filepath.Join(p.UserDataDir(), "Temp"),
		filepath.Join(p.AppsDir(), "cache"),
	}
}

// BlockerTargets are the updater staging paths protection plants sentinels
// at. Strictly scoped to staging locations so normal product functionality
// is unaffected.
func (p *Paths) BlockerTargets() []string {
	return []string{
		p.ProductInfoFile(),
		p.UpdateStagingFile(),
	}
}
