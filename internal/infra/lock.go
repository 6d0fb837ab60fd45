package infra

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

// ConfigLockerImpl implements domain.ConfigLocker with chmod plus
// best-effort platform attributes (attrib +r on Windows, chflags uchg on
// darwin). The chmod is the real lock; the attributes just deter manual
// unlocking by the updater.
type ConfigLockerImpl struct {
	logger *zap.Logger
}

// NewConfigLocker creates a locker.
func NewConfigLocker(logger *zap.Logger) domain.ConfigLocker {
	return &ConfigLockerImpl{logger: logger}
}

// Lock strips write permission and sets the platform immutable attribute.
// Locking an already-locked file succeeds silently.
func (l *ConfigLockerImpl) Lock(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.Mode().Perm()&0222 != 0 {
		if err := os.Chmod(path, info.Mode().Perm()&^0222); err != nil {
			return fmt.Errorf("failed to make %s read-only: %w", path, err)
		}
	}

	l.setPlatformAttr(path, true)
	return nil
}

// Unlock restores write permission. Unlocking a missing file succeeds.
func (l *ConfigLockerImpl) Unlock(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	l.setPlatformAttr(path, false)

	if info.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(path, info.Mode().Perm()|0200); err != nil {
			return fmt.Errorf("failed to restore write permission on %s: %w", path, err)
		}
	}
	return nil
}

// PlantBlocker writes a read-only empty sentinel at path, replacing
// whatever the updater left there. Re-planting an existing sentinel is a
// no-op success.
func (l *ConfigLockerImpl) PlantBlocker(path string) error {
	if info, err := os.Stat(path); err == nil {
		if info.Mode().IsRegular() && info.Size() == 0 && info.Mode().Perm()&0222 == 0 {
			// Already a sentinel.
			return nil
		}
		if err := RemoveTree(path); err != nil {
			return fmt.Errorf("failed to clear %s for blocker: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blocker directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("failed to write blocker %s: %w", path, err)
	}
	return l.Lock(path)
}

// RemoveBlocker deletes a sentinel. Removing an absent one succeeds.
func (l *ConfigLockerImpl) RemoveBlocker(path string) error {
	if !Exists(path) {
		return nil
	}
	if err := l.Unlock(path); err != nil {
		l.logger.Warn("could not unlock blocker before removal",
			zap.String("path", path),
			zap.Error(err))
	}
	if err := RemoveTree(path); err != nil {
		return fmt.Errorf("failed to remove blocker %s: %w", path, err)
	}
	return nil
}

// setPlatformAttr toggles the platform immutable/read-only attribute.
// Best-effort: the attribute tools may be unavailable or the flag
// unsupported on the filesystem.
func (l *ConfigLockerImpl) setPlatformAttr(path string, lock bool) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		flag := "+r"
		if !lock {
			flag = "-r"
		}
		cmd = exec.Command("attrib", flag, path)
	case "darwin":
		flag := "uchg"
		if !lock {
			flag = "nouchg"
		}
		cmd = exec.Command("chflags", flag, path)
	default:
		return
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		l.logger.Debug("platform attribute not applied",
			zap.String("path", path),
			zap.String("output", string(out)),
			zap.Error(err))
	}
}

// Ensure ConfigLockerImpl implements domain.ConfigLocker.
var _ domain.ConfigLocker = (*ConfigLockerImpl)(nil)
