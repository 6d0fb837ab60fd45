// Package main is the CLI entry point for ccguard.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/ccguard/internal/archive"
	"github.com/eliteGoblin/ccguard/internal/domain"
	"github.com/eliteGoblin/ccguard/internal/infra"
	"github.com/eliteGoblin/ccguard/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ccguard",
	Short: "Lock your CapCut version and prevent auto-updates",
	Long: `ccguard keeps the CapCut version you chose. It deletes superseded
installs, locks the launcher configuration to one version, and plants
blockers at the updater's staging paths so silent updates fail.

Protection state is persisted on disk and survives restarts. Run
'ccguard unprotect' at any time to undo everything.`,
	Version: Version,
}

var (
	jsonOutput     bool
	deleteVersions []string
	keepVersion    string
	cleanCache     bool
	lockConfig     bool
	createBlockers bool
	historyLimit   int
	showRoots      bool
	runningOnly    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List installed CapCut versions and their sizes",
	RunE:  runScan,
}

var precheckCmd = &cobra.Command{
	Use:   "precheck",
	Short: "Check whether CapCut is installed and running",
	RunE:  runPrecheck,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show protection status",
	Long:  `Reads the persisted protection state. A missing or corrupt state file reads as unprotected.`,
	RunE:  runStatus,
}

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Apply protection for one version",
	Long: `Runs the full protection pipeline: deletes the listed superseded
versions, locks the launcher configuration to the kept version, plants
update blockers at the staging paths, optionally cleans caches, and
persists the protection state.

CapCut must not be running. The kept version is never deleted, even if
it is listed with --delete.`,
	RunE: runProtect,
}

var unprotectCmd = &cobra.Command{
	Use:   "unprotect",
	Short: "Remove protection and restore normal updating",
	RunE:  runUnprotect,
}

var switchCmd = &cobra.Command{
	Use:   "switch <version-path>",
	Short: "Switch the active version without deleting others",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwitch,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Purge CapCut cache directories",
	RunE:  runClean,
}

var cacheSizeCmd = &cobra.Command{
	Use:   "cache-size",
	Short: "Report total cache size in MB",
	RunE:  runCacheSize,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List downloadable legacy versions",
	RunE:  runArchive,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent protection operations",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Machine-readable JSON output")

	protectCmd.Flags().StringArrayVar(&deleteVersions, "delete", nil, "Version directory to delete (repeatable)")
	protectCmd.Flags().StringVar(&keepVersion, "keep", "", "Path of the version directory to keep (required)")
	protectCmd.Flags().BoolVar(&cleanCache, "clean-cache", false, "Also purge cache directories")
	protectCmd.Flags().BoolVar(&lockConfig, "lock-config", true, "Lock the launcher configuration")
	protectCmd.Flags().BoolVar(&createBlockers, "blockers", true, "Plant update blockers at staging paths")
	_ = protectCmd.MarkFlagRequired("keep")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to show")
	scanCmd.Flags().BoolVar(&showRoots, "roots", false, "Print resolved install roots instead of versions")
	precheckCmd.Flags().BoolVar(&runningOnly, "running", false, "Report only whether CapCut is running")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(precheckCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(protectCmd)
	rootCmd.AddCommand(unprotectCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(cacheSizeCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// engine bundles the wired components for one CLI invocation.
type engine struct {
	paths     *infra.Paths
	scanner   domain.VersionScanner
	monitor   domain.ProcessMonitor
	cleaner   domain.CacheCleaner
	store     domain.StateStore
	protector domain.Protector
	switcher  domain.Switcher
	journal   domain.AuditJournal
	logger    *zap.Logger
}

func newEngine() (*engine, error) {
	logger := createLogger()

	paths, err := infra.NewPaths()
	if err != nil {
		return nil, fmt.Errorf("CapCut installation not found: %w", err)
	}

	store := infra.NewFileStateStore(paths, logger)
	locker := infra.NewConfigLocker(logger)
	monitor := infra.NewProcessMonitor(paths)
	cleaner := infra.NewCacheCleaner(paths, logger)
	scanner := infra.NewVersionScanner(paths, logger)

	// The audit journal is best-effort; a failure to open it never blocks
	// the engine.
	var journal domain.AuditJournal
	keys := infra.NewFileKeyProvider(paths.Root)
	if key, err := keys.EnsureKey(); err == nil {
		if j, err := infra.NewSQLAuditJournal(paths.Root, key); err == nil {
			journal = j
		} else {
			logger.Debug("audit journal unavailable", zap.Error(err))
		}
	} else {
		logger.Debug("audit key unavailable", zap.Error(err))
	}

	return &engine{
		paths:     paths,
		scanner:   scanner,
		monitor:   monitor,
		cleaner:   cleaner,
		store:     store,
		protector: usecase.NewProtectorWithJournal(paths, monitor, store, locker, cleaner, journal, logger),
		switcher:  usecase.NewSwitcherWithJournal(paths, store, locker, journal, logger),
		journal:   journal,
		logger:    logger,
	}, nil
}

func (e *engine) close() {
	if e.journal != nil {
		_ = e.journal.Close()
	}
	_ = e.logger.Sync()
}

func runScan(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	if showRoots {
		roots, err := e.scanner.InstallRoots()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(roots)
		}
		for _, r := range roots {
			fmt.Println(r)
		}
		return nil
	}

	versions, err := e.scanner.ScanVersions()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(versions)
	}

	if len(versions) == 0 {
		fmt.Println("No installed versions found.")
		return nil
	}

	fmt.Println("\n=== Installed Versions ===")
	for _, v := range versions {
		fmt.Printf("  %-12s %8.1f MB  %s\n", v.Name, v.SizeMB, v.Path)
	}
	fmt.Println("==========================")
	return nil
}

func runPrecheck(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		// A missing install is a valid precheck answer, not a failure.
		res := domain.PrecheckResult{}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Println("CapCut installation: not found")
		return nil
	}
	defer e.close()

	res := e.monitor.Precheck()
	if runningOnly {
		if jsonOutput {
			return printJSON(map[string]bool{"running": res.AppRunning})
		}
		fmt.Println(res.AppRunning)
		return nil
	}
	if jsonOutput {
		return printJSON(res)
	}

	fmt.Printf("CapCut installation: %s\n", foundStr(res.AppFound, res.AppsPath))
	fmt.Printf("CapCut running:      %v\n", res.AppRunning)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	state, err := e.protector.Status()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(state)
	}

	fmt.Println("\n=== ccguard Status ===")
	if state.Protected() {
		fmt.Println("Status: PROTECTED")
		fmt.Printf("Version: %s\n", state.ProtectedVersion)
		fmt.Printf("Locked paths: %d\n", len(state.LockedPaths))
		fmt.Printf("Blockers: %d\n", len(state.BlockerPaths))
		if state.UpdatedAt > 0 {
			fmt.Printf("Since: %s\n", time.Unix(state.UpdatedAt, 0).Format(time.RFC1123))
		}
	} else {
		fmt.Println("Status: NOT PROTECTED")
		fmt.Println("\nRun 'ccguard protect --keep <version-path>' to enable protection.")
	}
	fmt.Println("======================")
	return nil
}

func runProtect(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	req := &domain.ProtectionRequest{
		VersionsToDelete: deleteVersions,
		CleanCache:       cleanCache,
		LockConfig:       lockConfig,
		CreateBlockers:   createBlockers,
	}

	res := e.protector.Apply(context.Background(), req, keepVersion)
	return reportResult(res)
}

func runUnprotect(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	res := e.protector.Remove(context.Background())
	return reportResult(res)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	res := e.switcher.Switch(context.Background(), args[0])
	if jsonOutput {
		return printJSON(res)
	}

	for _, line := range res.Logs {
		fmt.Println(line)
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Println(res.Message)
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.cleaner.Clean(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}
	for _, line := range res.Logs {
		fmt.Println(line)
	}
	return nil
}

func runCacheSize(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	size, err := e.scanner.CalculateCacheSize()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]float64{"cache_mb": size})
	}
	fmt.Printf("Cache size: %.1f MB\n", size)
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	catalog, err := archive.Load()
	if err != nil {
		return err
	}

	entries := catalog.Entries()
	if jsonOutput {
		return printJSON(entries)
	}

	fmt.Println("\n=== Legacy Versions ===")
	for _, entry := range entries {
		fmt.Printf("\n[%s] %s - %s\n", entry.Risk, entry.Version, entry.Persona)
		fmt.Printf("  %s\n", entry.Description)
		fmt.Printf("  %s\n", entry.DownloadURL)
	}
	fmt.Println("\n=======================")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	if e.journal == nil {
		return fmt.Errorf("audit journal unavailable")
	}

	records, err := e.journal.Recent(historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No recorded operations.")
		return nil
	}
	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		line := fmt.Sprintf("%s  %-8s %-7s %s",
			time.Unix(r.LoggedAt, 0).Format("2006-01-02 15:04:05"), r.Op, status, r.Target)
		if r.Detail != "" {
			line += "  (" + r.Detail + ")"
		}
		fmt.Println(strings.TrimRight(line, " "))
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("ccguard %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	}
}

// reportResult prints an OperationResult and maps failure to a non-zero exit.
func reportResult(res *domain.OperationResult) error {
	if jsonOutput {
		return printJSON(res)
	}

	for _, line := range res.Logs {
		fmt.Println(line)
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Err)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func foundStr(found bool, path string) string {
	if found {
		return "found (" + path + ")"
	}
	return "not found"
}

func createLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"/var/tmp/ccguard.log"}
	config.ErrorOutputPaths = []string{"/var/tmp/ccguard.error.log"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
