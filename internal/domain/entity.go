// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "fmt"

// InstalledVersion describes one installed copy of the target application.
// Produced fresh by every scan, never persisted.
type InstalledVersion struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// RiskLevel classifies an archive catalog entry.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Valid reports whether the risk level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ArchiveEntry describes a downloadable legacy release.
// Immutable static data; not part of the protection state machine.
type ArchiveEntry struct {
	Persona     string    `json:"persona" yaml:"persona"`
	Version     string    `json:"version" yaml:"version"`
	Description string    `json:"description" yaml:"description"`
	DownloadURL string    `json:"download_url" yaml:"download_url"`
	Risk        RiskLevel `json:"risk_level" yaml:"risk_level"`
}

// ProtectionState is the durable record of protection status.
// Single process-wide instance on disk; the only source of truth for
// "is this machine protected".
type ProtectionState struct {
	IsProtected      bool     `json:"is_protected"`
	ProtectedVersion string   `json:"protected_version,omitempty"`
	LockedPaths      []string `json:"locked_paths"`
	BlockerPaths     []string `json:"blocker_paths"`
	UpdatedAt        int64    `json:"updated_at"`
}

// Protected reports whether the state marks an active protection with a target.
func (s *ProtectionState) Protected() bool {
	return s != nil && s.IsProtected && s.ProtectedVersion != ""
}

// ProtectionRequest is the transient input to a protection run.
// The keep version is implied by exclusion and must never appear in
// VersionsToDelete.
type ProtectionRequest struct {
	VersionsToDelete []string `json:"versions_to_delete"`
	CleanCache       bool     `json:"clean_cache"`
	LockConfig       bool     `json:"lock_config"`
	CreateBlockers   bool     `json:"create_blockers"`
}

// Validate rejects malformed requests before they reach the pipeline.
func (r *ProtectionRequest) Validate() error {
	if r == nil {
		return &OpError{Kind: ErrKindPrecondition, Msg: "protection request is nil"}
	}
	for _, p := range r.VersionsToDelete {
		if p == "" {
			return &OpError{Kind: ErrKindPrecondition, Msg: "versions_to_delete contains an empty path"}
		}
	}
	return nil
}

// PrecheckResult reports point-in-time system facts gathered before a
// protection run. It is a snapshot, not a guarantee.
type PrecheckResult struct {
	AppFound   bool   `json:"capcut_found"`
	AppRunning bool   `json:"capcut_running"`
	AppsPath   string `json:"apps_path,omitempty"`
}

// SwitchResult captures the outcome of a version switch.
type SwitchResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Logs    []string `json:"logs"`
}

// CleanResult captures what a cache cleanup run did.
type CleanResult struct {
	FreedMB float64  `json:"freed_mb"`
	Logs    []string `json:"logs"`
}

// OperationResult is the outcome of a protection pipeline run.
// Logs preserve execution order; each line carries its severity prefix.
type OperationResult struct {
	Success bool     `json:"success"`
	Err     string   `json:"error,omitempty"`
	Logs    []string `json:"logs"`
}

// Fail marks the result as failed with the given error message.
func (r *OperationResult) Fail(format string, args ...any) *OperationResult {
	r.Success = false
	r.Err = fmt.Sprintf(format, args...)
	return r
}
