package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

const stateFileName = ".ccguard_state.json"

// FileStateStore implements domain.StateStore using a JSON file next to the
// install root. Writes are atomic (temp file + rename) and read-modify-write
// cycles are serialized with a file lock so concurrent engine invocations
// cannot interleave. Plain reads take no lock.
type FileStateStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStateStore creates the store for the given install paths.
func NewFileStateStore(paths *Paths, logger *zap.Logger) domain.StateStore {
	return &FileStateStore{
		path:   filepath.Join(paths.Root, stateFileName),
		logger: logger,
	}
}

// NewFileStateStoreWithPath creates a store at a specific path (for testing).
func NewFileStateStoreWithPath(path string, logger *zap.Logger) domain.StateStore {
	return &FileStateStore{path: path, logger: logger}
}

// Path returns the state file path.
func (s *FileStateStore) Path() string {
	return s.path
}

// Load reads the persisted state. A missing or corrupt file yields the zero
// (unprotected) state rather than an error, so status checks never crash
// the caller.
func (s *FileStateStore) Load() (*domain.ProtectionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state file unreadable, treating as unprotected",
				zap.String("path", s.path),
				zap.Error(err))
		}
		return &domain.ProtectionState{}, nil
	}

	var state domain.ProtectionState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file corrupt, treating as unprotected",
			zap.String("path", s.path),
			zap.Error(err))
		return &domain.ProtectionState{}, nil
	}
	return &state, nil
}

// Save persists the state atomically under the file lock.
func (s *FileStateStore) Save(state *domain.ProtectionState) error {
	return s.withLock(func() error {
		return s.atomicWrite(state)
	})
}

// Mutate runs fn under the file lock with the freshly loaded state and
// persists the result. fn returning an error aborts without writing.
func (s *FileStateStore) Mutate(fn func(state *domain.ProtectionState) error) error {
	return s.withLock(func() error {
		state, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		return s.atomicWrite(state)
	})
}

// Clear removes the state file. Clearing an absent file succeeds.
func (s *FileStateStore) Clear() error {
	return s.withLock(func() error {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return &domain.OpError{
				Kind: domain.ErrKindPersistence,
				Msg:  fmt.Sprintf("failed to remove state file: %v", err),
			}
		}
		return nil
	})
}

// withLock holds an exclusive flock on a sidecar lock file for the duration
// of fn.
func (s *FileStateStore) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to create state directory: %v", err),
		}
	}

	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to open lock file: %v", err),
		}
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to acquire state lock: %v", err),
		}
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// atomicWrite writes the state via temp file + rename (unique per process
// to avoid racing another instance's temp file).
func (s *FileStateStore) atomicWrite(state *domain.ProtectionState) error {
	state.UpdatedAt = time.Now().Unix()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to encode state: %v", err),
		}
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to write state: %v", err),
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return &domain.OpError{
			Kind: domain.ErrKindPersistence,
			Msg:  fmt.Sprintf("failed to commit state: %v", err),
		}
	}
	return nil
}

// Ensure FileStateStore implements domain.StateStore.
var _ domain.StateStore = (*FileStateStore)(nil)
