package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

// VersionScannerImpl implements domain.VersionScanner over a resolved
// install root.
type VersionScannerImpl struct {
	paths  *Paths
	logger *zap.Logger
}

// NewVersionScanner creates a scanner for the given paths.
func NewVersionScanner(paths *Paths, logger *zap.Logger) domain.VersionScanner {
	return &VersionScannerImpl{paths: paths, logger: logger}
}

// ScanVersions lists version subdirectories of the install root with sizes.
// Entries are ordered newest version first. Per-subdirectory failures are
// logged and skipped; only an unreadable root is an error.
func (s *VersionScannerImpl) ScanVersions() ([]domain.InstalledVersion, error) {
	appsDir := s.paths.AppsDir()

	entries, err := os.ReadDir(appsDir)
	if err != nil {
		if os.IsNotExist(err) {
			// Absent root means nothing installed, not an I/O failure.
			return []domain.InstalledVersion{}, nil
		}
		return nil, fmt.Errorf("failed to read install root %s: %w", appsDir, err)
	}

	versions := make([]domain.InstalledVersion, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if parseVersionName(name) == nil {
			continue
		}

		path := filepath.Join(appsDir, name)
		if _, err := os.Stat(path); err != nil {
			s.logger.Warn("skipping unreadable version directory",
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		versions = append(versions, domain.InstalledVersion{
			Name:   name,
			Path:   path,
			SizeMB: dirSizeMB(path),
		})
	}

	// Newest first. Display order only; the persisted protection state is
	// the sole authority on which version is active.
	sort.SliceStable(versions, func(i, j int) bool {
		vi := parseVersionName(versions[i].Name)
		vj := parseVersionName(versions[j].Name)
		return vi.GreaterThan(vj)
	})

	return versions, nil
}

// CalculateCacheSize sums the sizes of known cache directories in MB.
// Missing directories contribute zero.
func (s *VersionScannerImpl) CalculateCacheSize() (float64, error) {
	var total float64
	for _, dir := range s.paths.CacheDirs() {
		total += dirSizeMB(dir)
	}
	return total, nil
}

// InstallRoots returns the resolved install locations.
func (s *VersionScannerImpl) InstallRoots() ([]string, error) {
	roots := []string{s.paths.Root, s.paths.AppsDir()}
	for _, r := range roots {
		if r == "" {
			return nil, fmt.Errorf("install root could not be resolved")
		}
	}
	return roots, nil
}

// parseVersionName parses a version directory name such as "6.4.0" or
// "3.1.0.100". Returns nil when the name is not a version. The optional
// fourth segment (build number) is folded away before semver parsing.
func parseVersionName(name string) *semver.Version {
	parts := strings.Split(name, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return nil
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return nil
		}
	}
	v, err := semver.NewVersion(strings.Join(parts[:min(len(parts), 3)], "."))
	if err != nil {
		return nil
	}
	return v
}

// Ensure VersionScannerImpl implements domain.VersionScanner.
var _ domain.VersionScanner = (*VersionScannerImpl)(nil)
