// Package usecase contains application business logic.
package usecase

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
	"github.com/eliteGoblin/ccguard/internal/infra"
)

// ProtectorImpl implements domain.Protector. Apply runs an ordered pipeline
// of independently idempotent steps; per-item failures in the middle steps
// are reported as warnings, fatal preconditions abort before any mutation.
type ProtectorImpl struct {
	paths   *infra.Paths
	monitor domain.ProcessMonitor
	store   domain.StateStore
	locker  domain.ConfigLocker
	cleaner domain.CacheCleaner
	journal domain.AuditJournal
	logger  *zap.Logger
}

// NewProtector creates the protection controller.
func NewProtector(
	paths *infra.Paths,
	monitor domain.ProcessMonitor,
	store domain.StateStore,
	locker domain.ConfigLocker,
	cleaner domain.CacheCleaner,
	logger *zap.Logger,
) domain.Protector {
	return &ProtectorImpl{
		paths:   paths,
		monitor: monitor,
		store:   store,
		locker:  locker,
		cleaner: cleaner,
		journal: nil, // Set via WithJournal
		logger:  logger,
	}
}

// NewProtectorWithJournal creates a controller that also records each
// operation in the audit journal.
func NewProtectorWithJournal(
	paths *infra.Paths,
	monitor domain.ProcessMonitor,
	store domain.StateStore,
	locker domain.ConfigLocker,
	cleaner domain.CacheCleaner,
	journal domain.AuditJournal,
	logger *zap.Logger,
) domain.Protector {
	return &ProtectorImpl{
		paths:   paths,
		monitor: monitor,
		store:   store,
		locker:  locker,
		cleaner: cleaner,
		journal: journal,
		logger:  logger,
	}
}

// Apply runs the protection pipeline for keepVersionPath.
//
// Ordered steps: precondition gate (fatal), delete superseded versions
// (best-effort), lock configuration, plant blockers, clean cache, persist
// state. Later steps run even when earlier non-fatal steps logged failures.
func (p *ProtectorImpl) Apply(ctx context.Context, req *domain.ProtectionRequest, keepVersionPath string) *domain.OperationResult {
	res := &domain.OperationResult{Success: true}
	var log domain.ResultLog
	defer func() {
		res.Logs = log.Lines()
		p.record("apply", keepVersionPath, res)
	}()

	// Step 1: precondition gate. Zero side effects on failure.
	log.Info("Checking system state...")
	if err := req.Validate(); err != nil {
		return res.Fail("%v", err)
	}
	if p.monitor.IsRunning() {
		return res.Fail("CapCut is still running. Please close it.")
	}
	if !infra.Exists(keepVersionPath) {
		return res.Fail("keep version path does not exist: %s", keepVersionPath)
	}
	for _, victim := range req.VersionsToDelete {
		if samePath(victim, keepVersionPath) {
			return res.Fail("refusing to delete the protected version: %s", victim)
		}
	}
	log.OK("No running instances")

	keepName := filepath.Base(keepVersionPath)

	// Step 2: delete superseded versions, best-effort, no rollback.
	p.deleteVersions(ctx, req.VersionsToDelete, &log)

	var lockedPaths []string
	var blockerPaths []string

	// Step 3: lock configuration to the keep version.
	if req.LockConfig {
		log.Info("Locking configuration...")
		if err := p.lockConfig(keepName); err != nil {
			// A failed lock on the keep version fails the whole operation.
			log.Warn("Failed to lock configuration: %v", err)
			res.Success = false
			res.Err = err.Error()
		} else {
			lockedPaths = append(lockedPaths, p.paths.ConfigFile())
			log.OK("Configuration locked")
		}
	} else {
		log.Info("Skipping config lock (disabled)")
	}

	// Step 4: plant update blockers at staging paths only.
	if req.CreateBlockers {
		log.Info("Creating blockers...")
		planted := 0
		for _, target := range p.paths.BlockerTargets() {
			if isUnder(target, keepVersionPath) {
				continue
			}
			if err := p.locker.PlantBlocker(target); err != nil {
				log.Warn("Could not create blocker at %s: %v", target, err)
				p.logger.Warn("blocker creation failed",
					zap.String("path", target),
					zap.Error(err))
				continue
			}
			blockerPaths = append(blockerPaths, target)
			planted++
		}
		log.OK("Update blockers created (%d)", planted)
	} else {
		log.Info("Skipping blocker creation (disabled)")
	}

	// Step 5: clean cache.
	if req.CleanCache {
		log.Info("Cleaning cache directories...")
		cleanRes, err := p.cleaner.Clean(ctx)
		if err != nil {
			log.Warn("Cache cleanup failed: %v", err)
		} else {
			log.Extend(cleanRes.Logs)
		}
	} else {
		log.Info("Skipping cache cleaning (disabled)")
	}

	// Step 6: persist protection state as the last step.
	if res.Success {
		err := p.store.Mutate(func(state *domain.ProtectionState) error {
			state.IsProtected = true
			state.ProtectedVersion = keepVersionPath
			state.LockedPaths = lockedPaths
			state.BlockerPaths = blockerPaths
			return nil
		})
		if err != nil {
			log.Warn("Failed to persist protection state: %v", err)
			res.Success = false
			res.Err = err.Error()
		} else {
			log.OK("Protection state saved")
		}
	}

	return res
}

// deleteVersions removes each directory, catching per-item failures.
func (p *ProtectorImpl) deleteVersions(ctx context.Context, paths []string, log *domain.ResultLog) {
	if len(paths) == 0 {
		log.OK("No versions to delete")
		return
	}

	deleted := 0
	for _, path := range paths {
		select {
		case <-ctx.Done():
			log.Warn("Deletion interrupted: %v", ctx.Err())
			return
		default:
		}

		name := filepath.Base(path)
		if !infra.Exists(path) {
			log.Info("Version %s already absent, skipping", name)
			continue
		}

		log.Info("Deleting: %s", name)
		if err := infra.RemoveTree(path); err != nil {
			log.Warn("Failed to delete %s: %v", name, err)
			p.logger.Warn("version deletion failed",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		deleted++
		p.logger.Info("deleted version", zap.String("path", path))
	}
	log.OK("Deleted %d version(s)", deleted)
}

// lockConfig pins the launcher to version and makes the config file
// read-only. Idempotent: a previously locked config is unlocked, re-pinned,
// and locked again.
func (p *ProtectorImpl) lockConfig(version string) error {
	configPath := p.paths.ConfigFile()

	if err := p.locker.Unlock(configPath); err != nil {
		return err
	}
	if err := infra.PinLauncherVersion(configPath, version); err != nil {
		return err
	}
	return p.locker.Lock(configPath)
}

// Status reads the persisted protection state. Missing or corrupt state
// reads as unprotected, never as an error.
func (p *ProtectorImpl) Status() (*domain.ProtectionState, error) {
	return p.store.Load()
}

// Remove reverses locks and blockers and clears the persisted state.
// Idempotent: removing when already unprotected succeeds with no side
// effects.
func (p *ProtectorImpl) Remove(ctx context.Context) *domain.OperationResult {
	res := &domain.OperationResult{Success: true}
	var log domain.ResultLog
	defer func() {
		res.Logs = log.Lines()
		p.record("remove", "", res)
	}()

	state, _ := p.store.Load()
	if !state.IsProtected && len(state.LockedPaths) == 0 && len(state.BlockerPaths) == 0 {
		log.OK("Already unprotected")
		return res
	}

	for _, path := range state.LockedPaths {
		if err := p.locker.Unlock(path); err != nil {
			log.Warn("Could not unlock %s: %v", path, err)
			continue
		}
		log.OK("Unlocked %s", path)
	}

	// Drop the version pin so the launcher resumes normal behavior.
	if err := infra.StripVersionPin(p.paths.ConfigFile()); err != nil {
		log.Warn("Could not reset %s: %v", p.paths.ConfigFile(), err)
	} else {
		log.OK("Configuration reset")
	}

	for _, path := range state.BlockerPaths {
		if err := p.locker.RemoveBlocker(path); err != nil {
			log.Warn("Could not remove blocker %s: %v", path, err)
			continue
		}
		log.OK("Removed blocker %s", path)
	}

	if err := p.store.Clear(); err != nil {
		log.Warn("Failed to clear protection state: %v", err)
		res.Success = false
		res.Err = err.Error()
		return res
	}

	log.OK("Protection removed - CapCut can now auto-update")
	return res
}

// record appends the operation to the audit journal, best-effort.
func (p *ProtectorImpl) record(op, target string, res *domain.OperationResult) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(op, target, res.Success, res.Err); err != nil {
		p.logger.Debug("audit record skipped", zap.Error(err))
	}
}

// samePath compares two paths after cleaning.
func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// isUnder reports whether path is root or inside it.
func isUnder(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// Ensure ProtectorImpl implements domain.Protector.
var _ domain.Protector = (*ProtectorImpl)(nil)
