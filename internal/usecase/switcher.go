package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
	"github.com/eliteGoblin/ccguard/internal/infra"
)

// SwitcherImpl implements domain.Switcher. Switching changes which installed
// copy the launcher starts without deleting the others. When protection is
// active the lock and blocker steps are re-run against the new target so the
// protection invariants keep holding.
type SwitcherImpl struct {
	paths   *infra.Paths
	store   domain.StateStore
	locker  domain.ConfigLocker
	journal domain.AuditJournal
	logger  *zap.Logger
}

// NewSwitcher creates a version switcher.
func NewSwitcher(
	paths *infra.Paths,
	store domain.StateStore,
	locker domain.ConfigLocker,
	logger *zap.Logger,
) domain.Switcher {
	return &SwitcherImpl{paths: paths, store: store, locker: locker, logger: logger}
}

// NewSwitcherWithJournal creates a switcher that records operations in the
// audit journal.
func NewSwitcherWithJournal(
	paths *infra.Paths,
	store domain.StateStore,
	locker domain.ConfigLocker,
	journal domain.AuditJournal,
	logger *zap.Logger,
) domain.Switcher {
	return &SwitcherImpl{paths: paths, store: store, locker: locker, journal: journal, logger: logger}
}

// Switch points the launcher at targetPath. The persisted state is written
// last, so callers observe either the prior state or the fully switched one.
// A missing target fails before any mutation.
func (s *SwitcherImpl) Switch(ctx context.Context, targetPath string) *domain.SwitchResult {
	res := &domain.SwitchResult{}
	var log domain.ResultLog
	defer func() {
		res.Logs = log.Lines()
		if s.journal != nil {
			if err := s.journal.Record("switch", targetPath, res.Success, res.Message); err != nil {
				s.logger.Debug("audit record skipped", zap.Error(err))
			}
		}
	}()

	log.Info("Initiating switch to version at: %s", targetPath)

	if !infra.Exists(targetPath) {
		log.Warn("Target directory does not exist")
		res.Message = "Target version not found"
		return res
	}

	versionName := filepath.Base(targetPath)
	log.Info("Detected version: %s", versionName)

	state, _ := s.store.Load()
	protected := state.Protected()

	// The product info file may currently be a locked blocker sentinel.
	// Clear write protection before rewriting launcher files.
	productInfo := s.paths.ProductInfoFile()
	configFile := s.paths.ConfigFile()
	for _, p := range []string{productInfo, configFile} {
		if err := s.locker.Unlock(p); err != nil {
			log.Warn("Could not unlock %s: %v", p, err)
		}
	}

	if err := infra.WriteProductInfo(productInfo, targetPath, versionName); err != nil {
		log.Warn("Failed to write ProductInfo.xml: %v", err)
		res.Message = fmt.Sprintf("could not update launcher pointer: %v", err)
		return res
	}
	log.OK("Updated ProductInfo.xml")

	if err := infra.PinLauncherVersion(configFile, versionName); err != nil {
		log.Warn("Failed to update configure.ini: %v", err)
		res.Message = fmt.Sprintf("could not update launcher config: %v", err)
		return res
	}
	log.OK("Updated configure.ini")

	var lockedPaths []string
	var blockerPaths []string

	if protected {
		// Re-establish protection against the new target. The previous
		// target's lock lives in the same launcher files, so re-locking
		// releases and replaces it in one motion.
		if err := s.locker.Lock(configFile); err != nil {
			log.Warn("Failed to re-lock configuration: %v", err)
			res.Message = fmt.Sprintf("could not re-lock configuration: %v", err)
			return res
		}
		lockedPaths = append(lockedPaths, configFile)
		log.OK("Configuration re-locked for %s", versionName)

		for _, target := range s.paths.BlockerTargets() {
			if target == productInfo {
				// Keep the freshly written launcher pointer; lock it in
				// place instead of replacing it with an empty sentinel.
				if err := s.locker.Lock(target); err != nil {
					log.Warn("Could not lock %s: %v", target, err)
					continue
				}
			} else if err := s.locker.PlantBlocker(target); err != nil {
				log.Warn("Could not re-create blocker at %s: %v", target, err)
				continue
			}
			blockerPaths = append(blockerPaths, target)
		}
		log.OK("Update blockers re-created (%d)", len(blockerPaths))
	}

	if protected {
		err := s.store.Mutate(func(st *domain.ProtectionState) error {
			if !st.IsProtected {
				// Protection was removed underneath us; do not resurrect it.
				return nil
			}
			st.ProtectedVersion = targetPath
			st.LockedPaths = lockedPaths
			st.BlockerPaths = blockerPaths
			return nil
		})
		if err != nil {
			log.Warn("Failed to persist switched state: %v", err)
			res.Message = fmt.Sprintf("could not persist state: %v", err)
			return res
		}
		log.OK("Protection state updated")
	}

	res.Success = true
	res.Message = fmt.Sprintf("Successfully switched to v%s", versionName)
	s.logger.Info("switched version",
		zap.String("target", targetPath),
		zap.Bool("protected", protected))
	return res
}

// Ensure SwitcherImpl implements domain.Switcher.
var _ domain.Switcher = (*SwitcherImpl)(nil)
