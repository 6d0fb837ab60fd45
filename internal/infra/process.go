package infra

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

// processNames are the executable names the protected application runs
// under across platforms.
var processNames = []string{"CapCut", "CapCut.exe"}

// ProcessMonitorImpl implements domain.ProcessMonitor using gopsutil.
type ProcessMonitorImpl struct {
	paths    *Paths
	patterns []string
}

// NewProcessMonitor creates a process monitor for the default app names.
func NewProcessMonitor(paths *Paths) domain.ProcessMonitor {
	return &ProcessMonitorImpl{paths: paths, patterns: processNames}
}

// NewProcessMonitorWithPatterns creates a monitor matching custom process
// names (for testing).
func NewProcessMonitorWithPatterns(paths *Paths, patterns []string) domain.ProcessMonitor {
	return &ProcessMonitorImpl{paths: paths, patterns: patterns}
}

// IsRunning reports whether any matching process exists right now.
// Point-in-time snapshot; callers re-check before destructive steps.
func (m *ProcessMonitorImpl) IsRunning() bool {
	procs, err := process.Processes()
	if err != nil {
		return false
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		for _, pattern := range m.patterns {
			if strings.EqualFold(name, pattern) {
				return true
			}
		}
	}
	return false
}

// Precheck reports whether the app is installed and currently running.
func (m *ProcessMonitorImpl) Precheck() domain.PrecheckResult {
	appsDir := m.paths.AppsDir()
	return domain.PrecheckResult{
		AppFound:   Exists(appsDir),
		AppRunning: m.IsRunning(),
		AppsPath:   appsDir,
	}
}

// Ensure ProcessMonitorImpl implements domain.ProcessMonitor.
var _ domain.ProcessMonitor = (*ProcessMonitorImpl)(nil)
