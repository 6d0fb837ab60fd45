//go:build integration

package integration

import (
	"context"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
	"github.com/eliteGoblin/ccguard/internal/infra"
	"github.com/eliteGoblin/ccguard/internal/usecase"
	"github.com/eliteGoblin/ccguard/test/fixtures"
)

// stubMonitor lets scenarios control the "app is running" fact.
type stubMonitor struct {
	running bool
}

func (m *stubMonitor) IsRunning() bool { return m.running }
func (m *stubMonitor) Precheck() domain.PrecheckResult {
	return domain.PrecheckResult{AppFound: true, AppRunning: m.running}
}

var _ = Describe("Protection Engine", func() {
	var (
		install   *fixtures.FakeInstall
		paths     *infra.Paths
		store     domain.StateStore
		scanner   domain.VersionScanner
		cleaner   domain.CacheCleaner
		monitor   *stubMonitor
		protector domain.Protector
		switcher  domain.Switcher
	)

	BeforeEach(func() {
		root, err := os.MkdirTemp("", "ccguard-integration-*")
		Expect(err).NotTo(HaveOccurred())

		install = fixtures.NewFakeInstall(root)
		Expect(install.Create("5.9.0", "6.4.0")).To(Succeed())

		logger := zap.NewNop()
		paths = infra.NewPathsWithRoot(root)
		store = infra.NewFileStateStore(paths, logger)
		scanner = infra.NewVersionScanner(paths, logger)
		cleaner = infra.NewCacheCleaner(paths, logger)
		monitor = &stubMonitor{}
		locker := infra.NewConfigLocker(logger)
		protector = usecase.NewProtector(paths, monitor, store, locker, cleaner, logger)
		switcher = usecase.NewSwitcher(paths, store, locker, logger)
	})

	AfterEach(func() {
		// Restore permissions so the temp dir can be removed.
		_ = protector.Remove(context.Background())
		os.RemoveAll(install.Root)
	})

	Describe("full protection run", func() {
		It("keeps 6.4.0, removes 5.9.0, blocks the updater, and persists state", func() {
			sizeBefore, err := scanner.CalculateCacheSize()
			Expect(err).NotTo(HaveOccurred())
			Expect(sizeBefore).To(BeNumerically(">", 0))

			req := &domain.ProtectionRequest{
				VersionsToDelete: []string{install.VersionPath("5.9.0")},
				CleanCache:       true,
				LockConfig:       true,
				CreateBlockers:   true,
			}
			res := protector.Apply(context.Background(), req, install.VersionPath("6.4.0"))
			Expect(res.Success).To(BeTrue(), "logs: %v", res.Logs)

			// 5.9.0 no longer exists, 6.4.0 survives.
			Expect(install.VersionExists("5.9.0")).To(BeFalse())
			Expect(install.VersionExists("6.4.0")).To(BeTrue())

			// The kept version's config is read-only.
			info, err := os.Stat(paths.ConfigFile())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm() & 0222).To(BeZero())

			// A blocker sits at the updater staging path.
			blocker, err := os.Stat(paths.UpdateStagingFile())
			Expect(err).NotTo(HaveOccurred())
			Expect(blocker.Size()).To(BeZero())

			// Cache size afterward is zero or reduced.
			sizeAfter, err := scanner.CalculateCacheSize()
			Expect(err).NotTo(HaveOccurred())
			Expect(sizeAfter).To(BeNumerically("<=", sizeBefore))

			// status reports protected.
			state, err := protector.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.IsProtected).To(BeTrue())
			Expect(state.ProtectedVersion).To(Equal(install.VersionPath("6.4.0")))
		})

		It("aborts without side effects while the app is running", func() {
			monitor.running = true

			req := &domain.ProtectionRequest{
				VersionsToDelete: []string{install.VersionPath("5.9.0")},
				LockConfig:       true,
				CreateBlockers:   true,
			}
			res := protector.Apply(context.Background(), req, install.VersionPath("6.4.0"))

			Expect(res.Success).To(BeFalse())
			Expect(res.Err).To(ContainSubstring("still running"))
			Expect(install.VersionExists("5.9.0")).To(BeTrue())

			state, err := protector.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.IsProtected).To(BeFalse())
		})
	})

	Describe("scan after partial state", func() {
		It("tolerates a state file torn by a crashed run", func() {
			Expect(os.WriteFile(store.Path(), []byte(`{"is_protected": tr`), 0600)).To(Succeed())

			versions, err := scanner.ScanVersions()
			Expect(err).NotTo(HaveOccurred())
			Expect(versions).To(HaveLen(2))

			state, err := protector.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.IsProtected).To(BeFalse())

			// A subsequent apply converges the partial state.
			req := &domain.ProtectionRequest{LockConfig: true, CreateBlockers: true}
			res := protector.Apply(context.Background(), req, install.VersionPath("6.4.0"))
			Expect(res.Success).To(BeTrue(), "logs: %v", res.Logs)
		})
	})

	Describe("protect, switch, unprotect lifecycle", func() {
		It("moves protection to the switched version and then undoes everything", func() {
			req := &domain.ProtectionRequest{LockConfig: true, CreateBlockers: true}
			res := protector.Apply(context.Background(), req, install.VersionPath("6.4.0"))
			Expect(res.Success).To(BeTrue())

			swRes := switcher.Switch(context.Background(), install.VersionPath("5.9.0"))
			Expect(swRes.Success).To(BeTrue(), "logs: %v", swRes.Logs)

			state, err := protector.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.ProtectedVersion).To(Equal(install.VersionPath("5.9.0")))

			config, err := os.ReadFile(paths.ConfigFile())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(config)).To(ContainSubstring("last_version=5.9.0"))

			rmRes := protector.Remove(context.Background())
			Expect(rmRes.Success).To(BeTrue(), "logs: %v", rmRes.Logs)

			info, err := os.Stat(paths.ConfigFile())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm() & 0200).NotTo(BeZero())

			_, err = os.Stat(paths.UpdateStagingFile())
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("log contract", func() {
		It("prefixes every non-informational line with [OK] or [!]", func() {
			req := &domain.ProtectionRequest{
				VersionsToDelete: []string{install.VersionPath("5.9.0")},
				CleanCache:       true,
				LockConfig:       true,
				CreateBlockers:   true,
			}
			res := protector.Apply(context.Background(), req, install.VersionPath("6.4.0"))
			Expect(res.Success).To(BeTrue())

			var okCount int
			for _, line := range res.Logs {
				if strings.HasPrefix(line, "[") {
					isTagged := strings.HasPrefix(line, domain.LogPrefixOK) ||
						strings.HasPrefix(line, domain.LogPrefixWarn)
					Expect(isTagged).To(BeTrue(), "untagged bracket line: %q", line)
				}
				if strings.HasPrefix(line, domain.LogPrefixOK) {
					okCount++
				}
			}
			Expect(okCount).To(BeNumerically(">", 0))
		})
	})
})
