package infra

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

// CacheCleanerImpl implements domain.CacheCleaner. It only ever touches the
// designated cache directories from Paths.CacheDirs, never version
// directories or user project files.
type CacheCleanerImpl struct {
	paths  *Paths
	logger *zap.Logger
}

// NewCacheCleaner creates a cleaner for the given paths.
func NewCacheCleaner(paths *Paths, logger *zap.Logger) domain.CacheCleaner {
	return &CacheCleanerImpl{paths: paths, logger: logger}
}

// Clean deletes the contents of each cache directory. Per-entry failures
// are logged and skipped; the rest of the cleanup still runs. The cache
// directories themselves are kept so the app can repopulate them.
func (c *CacheCleanerImpl) Clean(ctx context.Context) (*domain.CleanResult, error) {
	var log domain.ResultLog
	var freed float64

	for _, dir := range c.paths.CacheDirs() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Warn("Could not read cache directory %s: %v", dir, err)
			continue
		}

		var dirFreed float64
		var failures int
		for _, entry := range entries {
			p := filepath.Join(dir, entry.Name())
			size := dirSizeMB(p)
			if err := RemoveTree(p); err != nil {
				failures++
				log.Warn("Could not remove %s: %v", p, err)
				c.logger.Warn("cache entry removal failed",
					zap.String("path", p),
					zap.Error(err))
				continue
			}
			dirFreed += size
		}

		freed += dirFreed
		if len(entries) > 0 {
			log.OK("Cleaned %s (%.1f MB, %d entries, %d failed)",
				dir, dirFreed, len(entries)-failures, failures)
		}
	}

	log.OK("Cache cleanup freed %.1f MB", freed)
	c.logger.Info("cache cleaned", zap.Float64("freed_mb", freed))

	return &domain.CleanResult{FreedMB: freed, Logs: log.Lines()}, nil
}

// Ensure CacheCleanerImpl implements domain.CacheCleaner.
var _ domain.CacheCleaner = (*CacheCleanerImpl)(nil)
