//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/config"
	"github.com/eliteGoblin/focusd/mailslot/internal/daemon"
	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/infra"
	"github.com/eliteGoblin/focusd/mailslot/internal/roles"
	"github.com/eliteGoblin/focusd/mailslot/internal/usecase"
	"github.com/eliteGoblin/focusd/mailslot/test/fixtures"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// cancelAt cancels the returned context once clock reaches t0+d.
func cancelAt(clock *fixtures.FakeClock, d time.Duration) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	clock.OnWake(func(now time.Time) {
		if !now.Before(t0.Add(d)) {
			cancel()
		}
	})
	DeferCleanup(cancel)
	return ctx
}

var _ = Describe("Signal files", func() {
	var (
		signalDir string
		store     *infra.FileSignalStore
		registry  *infra.FileRegistry
		cfg       config.Config
	)

	BeforeEach(func() {
		var err error
		signalDir, err = os.MkdirTemp("", "mailslot-integration-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, signalDir)

		store = infra.NewFileSignalStore(signalDir, zap.NewNop())
		registry = infra.NewFileRegistry(signalDir)
		Expect(store.Prepare()).To(Succeed())

		cfg = config.Default()
		cfg.SignalDir = signalDir
		cfg.Stop.Pointer = false
		cfg.Color.Positions = []domain.Position{{X: 400, Y: 300}}
		cfg.Motion.Center = domain.Position{X: 1693, Y: 1073}
	})

	deps := func(sampler domain.FrameSampler, exec domain.ActionExecutor, clock domain.Clock) daemon.Deps {
		return daemon.Deps{
			Store:    store,
			Sampler:  sampler,
			Executor: exec,
			Registry: registry,
			Clock:    clock,
			PID:      os.Getpid(),
		}
	}

	Describe("Prepare", func() {
		It("creates empty world-writable channel files", func() {
			for _, ch := range []domain.Channel{domain.ChannelMotion, domain.ChannelClickTargets} {
				info, err := os.Stat(store.Path(ch))
				Expect(err).NotTo(HaveOccurred())
				Expect(info.Size()).To(BeZero())
				Expect(info.Mode().Perm()).To(Equal(os.FileMode(0666)))
			}
		})

		It("clears a stale stop flag", func() {
			Expect(store.Publish(domain.ChannelStop, nil)).To(Succeed())
			Expect(store.Prepare()).To(Succeed())
			Expect(store.Exists(domain.ChannelStop)).To(BeFalse())
		})
	})

	Describe("Publish and consume", func() {
		It("delivers a payload exactly once", func() {
			Expect(store.Publish(domain.ChannelClickTargets, []byte("1,2\n"))).To(Succeed())

			data, ok := store.Consume(domain.ChannelClickTargets)
			Expect(ok).To(BeTrue())
			Expect(string(data)).To(Equal("1,2\n"))

			_, ok = store.Consume(domain.ChannelClickTargets)
			Expect(ok).To(BeFalse())
		})

		It("leaves no temp or claim files behind", func() {
			Expect(store.Publish(domain.ChannelMotion, domain.EncodeTimestamp(t0))).To(Succeed())
			_, _ = store.Consume(domain.ChannelMotion)

			leftovers, err := filepath.Glob(filepath.Join(signalDir, "*.tmp"))
			Expect(err).NotTo(HaveOccurred())
			Expect(leftovers).To(BeEmpty())
			leftovers, err = filepath.Glob(filepath.Join(signalDir, "*.claim"))
			Expect(err).NotTo(HaveOccurred())
			Expect(leftovers).To(BeEmpty())
		})
	})

	Describe("Color watcher to actor", func() {
		It("clicks the detected position once per published signal", func() {
			watchClock := fixtures.NewFakeClock(t0)
			blue := fixtures.BluePatchFrame(61, 61, 30, 30)
			color, err := daemon.Build(domain.RoleColor, cfg, deps(fixtures.NewScriptedSampler(blue), nil, watchClock), zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			Expect(color.Run(cancelAt(watchClock, time.Second))).To(MatchError(context.Canceled))

			data, ok := store.Peek(domain.ChannelClickTargets)
			Expect(ok).To(BeTrue())
			Expect(string(data)).To(Equal("400,300\n"))

			actClock := fixtures.NewFakeClock(t0)
			exec := fixtures.NewRecordingExecutor(actClock)
			actor, err := daemon.Build(domain.RoleActor, cfg, deps(nil, exec, actClock), zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			Expect(actor.Run(cancelAt(actClock, time.Second))).To(MatchError(context.Canceled))

			Expect(exec.Actions()).To(HaveLen(1))
			Expect(exec.Actions()[0].Position).To(Equal(domain.Position{X: 400, Y: 300}))
			Expect(store.Exists(domain.ChannelClickTargets)).To(BeFalse())
		})

		It("registers each role in the session record", func() {
			clock := fixtures.NewFakeClock(t0)
			Expect(registry.Create(domain.ProcessGroup{Session: cfg.Session, ID: "it"})).To(Succeed())

			actor, err := daemon.Build(domain.RoleActor, cfg, deps(nil, fixtures.NewRecordingExecutor(clock), clock), zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Publish(domain.ChannelStop, nil)).To(Succeed())
			Expect(actor.Run(context.Background())).To(Succeed())

			group, err := registry.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(group.Processes).To(HaveKey(domain.RoleActor))
			Expect(group.Processes[domain.RoleActor].PID).To(Equal(os.Getpid()))
		})
	})

	Describe("Stop flag", func() {
		It("stops a running role written by another store instance", func() {
			clock := fixtures.NewFakeClock(t0)
			operator := infra.NewFileSignalStore(signalDir, zap.NewNop())
			clock.OnWake(func(now time.Time) {
				if !now.Before(t0.Add(500 * time.Millisecond)) {
					_ = operator.Publish(domain.ChannelStop, nil)
				}
			})

			motion, err := daemon.Build(domain.RoleMotion, cfg, deps(fixtures.NewScriptedSampler(fixtures.GrayFrame(61, 61, 90)), nil, clock), zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(motion.Run(context.Background())).To(Succeed())
			Expect(clock.Now().Sub(t0)).To(BeNumerically("<", time.Second))
		})
	})

	Describe("Teardown with nothing running", func() {
		It("succeeds repeatedly and raises the stop flag", func() {
			c := usecase.NewCoordinator(usecase.CoordinatorConfig{
				Session:     fmt.Sprintf("mailslot-it-%d", os.Getpid()),
				SignalDir:   signalDir,
				Binary:      "/nonexistent/mailslot",
				GracePeriod: 100 * time.Millisecond,
			}, roles.NewRegistry(), store, infra.NewTmuxHost(), registry, infra.NewProcessManager(), infra.RealClock{}, zap.NewNop())

			for i := 0; i < 2; i++ {
				result, err := c.Teardown(context.Background(), false)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.KilledPIDs).To(BeEmpty())
				Expect(result.SessionRemoved).To(BeFalse())
			}
			Expect(store.Exists(domain.ChannelStop)).To(BeTrue())

			group, err := registry.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(group).To(BeNil())
		})
	})
})
