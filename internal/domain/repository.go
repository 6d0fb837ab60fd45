package domain

import "context"

// VersionScanner enumerates installed copies of the target application.
// Implementation: filesystem walk rooted at the resolved install root.
type VersionScanner interface {
	// ScanVersions lists version subdirectories of the install root with
	// their sizes. An empty result is a valid "not found" outcome; an error
	// means the root itself was unreadable. Per-subdirectory failures are
	// skipped, not fatal.
	ScanVersions() ([]InstalledVersion, error)

	// CalculateCacheSize sums the sizes of known cache directories in MB.
	// Missing directories contribute zero.
	CalculateCacheSize() (float64, error)

	// InstallRoots resolves the platform well-known install locations.
	// Fails only when no root can be resolved at all.
	InstallRoots() ([]string, error)
}

// ProcessMonitor detects whether the protected application is active.
// Implementation: uses gopsutil for cross-platform process enumeration.
type ProcessMonitor interface {
	// IsRunning is a point-in-time check, not a guarantee. Callers re-check
	// immediately before any destructive step.
	IsRunning() bool

	// Precheck reports whether the app is installed and running.
	Precheck() PrecheckResult
}

// CacheCleaner measures and purges transient cache directories.
type CacheCleaner interface {
	// Clean deletes contents of designated cache directories only, never
	// version directories or user project files. Best-effort aggregate.
	Clean(ctx context.Context) (*CleanResult, error)
}

// StateStore is the durable record of protection status.
// Implementation: flock-guarded JSON file with atomic writes.
type StateStore interface {
	// Load reads the persisted state. A missing or corrupt file yields the
	// zero (unprotected) state, never an error.
	Load() (*ProtectionState, error)

	// Save persists the state atomically under the file lock.
	Save(state *ProtectionState) error

	// Mutate runs fn under the file lock with the freshly loaded state and
	// persists the result. fn returning an error aborts without writing.
	Mutate(fn func(state *ProtectionState) error) error

	// Clear removes the state file. Clearing an absent file succeeds.
	Clear() error

	// Path returns the state file path (for tests and status output).
	Path() string
}

// ConfigLocker strips and restores write permission on configuration files
// and plants sentinel blocker files at updater staging paths.
type ConfigLocker interface {
	// Lock makes the file read-only and sets any available platform
	// immutable attribute. Locking an already-locked file succeeds.
	Lock(path string) error

	// Unlock restores write permission. Unlocking a writable or missing
	// file succeeds.
	Unlock(path string) error

	// PlantBlocker writes a read-only empty sentinel at path, replacing
	// whatever the updater left there.
	PlantBlocker(path string) error

	// RemoveBlocker deletes a sentinel. Removing an absent one succeeds.
	RemoveBlocker(path string) error
}

// Protector is the core protection state machine.
type Protector interface {
	// Apply runs the protection pipeline for keepVersionPath.
	Apply(ctx context.Context, req *ProtectionRequest, keepVersionPath string) *OperationResult

	// Status reads the persisted protection state. Missing or corrupt
	// state reads as unprotected, never as an error.
	Status() (*ProtectionState, error)

	// Remove reverses locks and blockers and clears the persisted state.
	// Idempotent: removing when already unprotected succeeds.
	Remove(ctx context.Context) *OperationResult
}

// Switcher changes which installed copy is active.
type Switcher interface {
	// Switch points the launcher at targetPath. Atomic from the caller's
	// view: either the persisted state reflects the new target or the
	// prior state is unchanged.
	Switch(ctx context.Context, targetPath string) *SwitchResult
}

// ArchiveCatalog serves the static list of downloadable legacy releases.
type ArchiveCatalog interface {
	// Entries returns all catalog entries in catalog order.
	Entries() []ArchiveEntry
}

// AuditJournal records protection operations for later inspection.
// Implementation: SQLCipher-encrypted SQLite database. Journal failures
// never fail the operation being recorded.
type AuditJournal interface {
	// Record appends one operation record.
	Record(op string, target string, success bool, detail string) error

	// Recent returns up to limit records, newest first.
	Recent(limit int) ([]AuditRecord, error)

	// Close releases the database connection.
	Close() error
}

// AuditRecord is one journaled operation.
type AuditRecord struct {
	ID       int64
	Op       string
	Target   string
	Success  bool
	Detail   string
	LoggedAt int64
}
