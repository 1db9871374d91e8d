// Package main is the CLI entry point for mailslot.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/mailslot/internal/config"
	"github.com/eliteGoblin/focusd/mailslot/internal/daemon"
	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/infra"
	"github.com/eliteGoblin/focusd/mailslot/internal/metrics"
	"github.com/eliteGoblin/focusd/mailslot/internal/roles"
	"github.com/eliteGoblin/focusd/mailslot/internal/usecase"
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
	Use:   "mailslot",
	Short: "Screen-watching automation roles coordinated through signal files",
	Long: `mailslot runs a small group of cooperating processes in one tmux session.
Watchers sample the screen and drop signals into a shared directory; the actor
and the injector pick them up and drive the UI.

Stop everything with 'mailslot stop', by creating the stop flag in the signal
directory, or by parking the pointer in the top-left corner.`,
	Version:      Version,
	SilenceUsage: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session (one tmux pane per role)",
	Long: `Prepares the signal directory, then launches every role in its own pane of
a tmux session. An existing session with the same name is replaced.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every role of the session",
	Long: `Raises the stop flag, terminates every role process and its children,
kills survivors after the grace period and removes the tmux session.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show running roles and pending signals",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden role command - launched inside the tmux panes
var roleCmd = &cobra.Command{
	Use:    "role <motion|color|actor|injector>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runRole,
}

var (
	configPath  string
	attach      bool
	force       bool
	grace       time.Duration
	roleSession string
	jsonOutput  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	startCmd.Flags().BoolVar(&attach, "attach", false, "Attach to the session after starting it")
	stopCmd.Flags().BoolVar(&force, "force", false, "Kill at once instead of terminating gracefully")
	stopCmd.Flags().DurationVar(&grace, "grace", 0, "Grace period before escalating to SIGKILL (default from config)")
	roleCmd.Flags().StringVar(&roleSession, "session", "", "Session the role belongs to")
	_ = roleCmd.MarkFlagRequired("session")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(roleCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	for _, r := range roles.NewRegistry().List() {
		if err := cfg.ValidateRole(r); err != nil {
			return fmt.Errorf("role %s: %w", r, err)
		}
	}

	coordinator, host, err := newCoordinator(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, err := coordinator.Start(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session %q started (%s)\n", group.Session, group.ID)
	fmt.Printf("Signal dir: %s\n", cfg.SignalDir)
	fmt.Println("Roles:")
	rr := roles.NewRegistry()
	for _, r := range group.Roles {
		if spec, ok := rr.Get(r); ok {
			fmt.Printf("  - %s\n", spec)
		}
	}

	if attach {
		return host.Attach(cfg.Session)
	}
	fmt.Printf("\nAttach with: tmux attach -t %s\n", cfg.Session)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if grace > 0 {
		cfg.Teardown.GracePeriod = grace
	}
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	coordinator, _, err := newCoordinator(cfg, logger)
	if err != nil {
		return err
	}

	result, err := coordinator.Teardown(context.Background(), force)
	if result != nil {
		fmt.Printf("%d processes killed\n", len(result.KilledPIDs))
		if len(result.ExitedPIDs) > 0 {
			fmt.Printf("  %d had already exited\n", len(result.ExitedPIDs))
		}
		if len(result.EscalatedPIDs) > 0 {
			fmt.Printf("  %d ignored SIGTERM and were killed\n", len(result.EscalatedPIDs))
		}
		if result.SessionRemoved {
			fmt.Printf("Session %q removed\n", result.Session)
		}
	}
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	coordinator, _, err := newCoordinator(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	st, err := coordinator.Status()
	if err != nil {
		return err
	}

	fmt.Println("\n=== mailslot Status ===")
	switch {
	case st.SessionActive && len(st.Running) > 0:
		fmt.Printf("Session: %s (RUNNING)\n", st.Session)
	case st.SessionActive:
		fmt.Printf("Session: %s (no roles running)\n", st.Session)
	default:
		fmt.Printf("Session: %s (NOT RUNNING)\n", st.Session)
	}
	if st.Group != nil {
		fmt.Printf("Instance: %s, started %s ago\n", st.Group.ID, time.Since(st.Group.StartedAt).Round(time.Second))
	}

	fmt.Println("\nRoles:")
	for _, r := range roles.NewRegistry().List() {
		pids := st.Running[r]
		if len(pids) == 0 {
			fmt.Printf("  %-9s stopped\n", r)
			continue
		}
		sort.Ints(pids)
		fmt.Printf("  %-9s running (pid %v)\n", r, pids)
	}

	fmt.Println("\nSignals:")
	fmt.Printf("  pending clicks: %d\n", st.PendingClicks)
	if !st.LastMotion.IsZero() {
		fmt.Printf("  last motion:    %s ago\n", time.Since(st.LastMotion).Round(time.Second))
	}
	fmt.Printf("  stop flag:      %v\n", st.StopFlag)
	return nil
}

func runRole(cmd *cobra.Command, args []string) error {
	role := domain.Role(args[0])
	if _, err := roles.NewRegistry().Lookup(args[0]); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Session = roleSession

	logger := createLogger(role, cfg.LogDir)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.New(reg, role)
	if err != nil {
		return err
	}
	if addr := cfg.Metrics[string(role)]; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, reg, logger); err != nil {
				logger.Warn("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	executor := infra.NewAppleScriptExecutor(cfg.Actor.App)
	d, err := daemon.Build(role, cfg, daemon.Deps{
		Store:    infra.NewFileSignalStore(cfg.SignalDir, logger),
		Sampler:  infra.NewScreenCaptureSampler(),
		Executor: executor,
		Pointer:  executor,
		Registry: infra.NewFileRegistry(cfg.SignalDir),
		Clock:    infra.RealClock{},
		Recorder: recorder,
		PID:      os.Getpid(),
	}, logger)
	if err != nil {
		logger.Error("failed to build role", zap.Error(err))
		return err
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newCoordinator(cfg config.Config, logger *zap.Logger) (*usecase.Coordinator, *infra.TmuxHost, error) {
	binary := cfg.Binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		binary = exe
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}

	host := infra.NewTmuxHost()
	c := usecase.NewCoordinator(usecase.CoordinatorConfig{
		Session:     cfg.Session,
		SignalDir:   cfg.SignalDir,
		WorkDir:     workDir,
		Binary:      binary,
		ConfigPath:  configPath,
		GracePeriod: cfg.Teardown.GracePeriod,
	},
		roles.NewRegistry(),
		infra.NewFileSignalStore(cfg.SignalDir, logger),
		host,
		infra.NewFileRegistry(cfg.SignalDir),
		infra.NewProcessManager(),
		infra.RealClock{},
		logger,
	)
	return c, host, nil
}

// createLogger writes JSON logs to <logDir>/<role>_<timestamp>.log and to the
// pane's stderr.
func createLogger(role domain.Role, logDir string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}

	if err := os.MkdirAll(logDir, 0755); err == nil {
		name := fmt.Sprintf("%s_%s.log", role, time.Now().Format("20060102_150405"))
		config.OutputPaths = append(config.OutputPaths, filepath.Join(logDir, name))
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr only if the log file cannot be opened
		logger, _ = zap.NewProduction()
	}
	return logger.With(zap.String("session", roleSession))
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("mailslot %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
