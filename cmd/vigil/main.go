package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/meridian-autonomy/vigil/pkg/api"
	"github.com/meridian-autonomy/vigil/pkg/config"
	"github.com/meridian-autonomy/vigil/pkg/engine"
	"github.com/meridian-autonomy/vigil/pkg/observability"
	"github.com/meridian-autonomy/vigil/pkg/path"
	"github.com/meridian-autonomy/vigil/pkg/replay"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable to allow mocking in tests
var startServer = runServer

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		// Default to server
		return startServer(stderr)
	}

	switch args[1] {
	case "server", "serve":
		return startServer(stderr)
	case "run":
		return runMissionCmd(args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(args[2:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "vigil %s\n", config.EngineVersion)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if args[1][0] == '-' {
			return startServer(stderr)
		}
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Vigil Mission Engine v%s\n", config.EngineVersion)
	fmt.Fprintln(w, "Deterministic mission scenario orchestration with an auditable ledger.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  vigil <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintf(w, "  %-10s %s\n", "serve", "Run the demo API server (default)")
	fmt.Fprintf(w, "  %-10s %s\n", "run", "Play a mission headless (--scenario, --step-ms, --json)")
	fmt.Fprintf(w, "  %-10s %s\n", "replay", "Verify an exported ledger (--ledger, --json)")
	fmt.Fprintf(w, "  %-10s %s\n", "version", "Show version information")
	fmt.Fprintf(w, "  %-10s %s\n", "help", "Show this help")
	fmt.Fprintln(w, "")
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// loadProfile resolves the mission profile from config, with env pacing
// overrides layered on top.
func loadProfile(cfg *config.Config) (*config.Profile, error) {
	profile := config.DefaultProfile()
	if cfg.ProfilePath != "" {
		loaded, err := config.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	profile.ApplyEnvOverrides()
	return profile, nil
}

func loadRoute(cfg *config.Config) (*path.Route, error) {
	if cfg.RoutePath == "" {
		return path.Default(), nil
	}
	return path.Load(cfg.RoutePath)
}

func runServer(stderr io.Writer) int {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	profile, err := loadProfile(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "profile: %v\n", err)
		return 1
	}
	route, err := loadRoute(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "route: %v\n", err)
		return 1
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTelEnabled
	provider, err := observability.NewProvider(obsCfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "telemetry: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown", "err", err)
		}
	}()

	metrics, err := observability.NewMissionMetrics(provider.Meter("vigil"))
	if err != nil {
		fmt.Fprintf(stderr, "metrics: %v\n", err)
		return 1
	}

	eng := engine.New(engine.Options{
		Log:     logger,
		Profile: profile,
		Route:   route,
		Metrics: metrics,
	})
	if profile.Autoplay {
		eng.Start()
	}
	defer eng.Stop()

	mux := http.NewServeMux()
	api.NewServer(eng, logger).Routes(mux, api.NewRateLimiter(50, 100))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("vigil ready",
			"addr", "http://localhost:"+cfg.Port,
			"scenario", profile.Scenario,
			"autoplay", profile.Autoplay,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[vigil] server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	return 0
}

// runMissionCmd plays a mission to its terminal phase with a synthetic
// clock and prints the sealed summary. No server, no real time.
func runMissionCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		scenario   string
		stepMs     int
		maxTicks   int
		jsonOutput bool
	)
	cmd.StringVar(&scenario, "scenario", "", "Scenario name (standard, denied-environment)")
	cmd.IntVar(&stepMs, "step-ms", 100, "Synthetic clock step per tick in milliseconds")
	cmd.IntVar(&maxTicks, "max-ticks", 10000, "Tick budget before giving up")
	cmd.BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	logger := newLogger(cfg.LogLevel, stderr)

	profile, err := loadProfile(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "profile: %v\n", err)
		return 1
	}
	if scenario != "" {
		profile.Scenario = scenario
	}
	profile.Autoplay = true // headless playback always self-drives wait gates

	route, err := loadRoute(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "route: %v\n", err)
		return 1
	}

	eng := engine.New(engine.Options{Log: logger, Profile: profile, Route: route})

	lastPhase := ""
	ticks := eng.RunScripted(time.Duration(stepMs)*time.Millisecond, maxTicks, func(s engine.Snapshot) {
		if string(s.Phase) != lastPhase && !jsonOutput {
			fmt.Fprintf(stdout, "[%s] %s\n", s.ElapsedClock, s.Phase)
			lastPhase = string(s.Phase)
		}
	})

	snap := eng.Snapshot()
	if !snap.Terminal || snap.Summary == nil {
		fmt.Fprintf(stderr, "mission did not complete within %d ticks\n", maxTicks)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(snap.Summary, "", "  ")
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	s := snap.Summary
	fmt.Fprintln(stdout, "")
	fmt.Fprintf(stdout, "Mission complete in %d ticks (%s)\n", ticks+1, s.SealedAt)
	fmt.Fprintf(stdout, "  Scenario:    %s\n", s.Scenario)
	fmt.Fprintf(stdout, "  Waypoints:   %d\n", s.WaypointsCompleted)
	fmt.Fprintf(stdout, "  Anomalies:   %d detected, %d resolved\n", s.AnomaliesDetected, s.AnomaliesResolved)
	fmt.Fprintf(stdout, "  Handoffs:    %d\n", s.Handoffs)
	fmt.Fprintf(stdout, "  Ledger:      %d records, %d receipts (%d verified)\n",
		s.TotalRecords, s.TotalReceipts, s.VerifiedReceipts)
	fmt.Fprintf(stdout, "  Chain head:  %s\n", s.ChainHead)
	fmt.Fprintf(stdout, "  Governance:  %s at %.2f confidence\n", s.AccountableRole, s.FinalConfidence)
	fmt.Fprintf(stdout, "  Fingerprint: %s\n", s.Fingerprint)
	return 0
}

// runReplayCmd verifies an exported JSONL ledger.
func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		ledgerPath string
		jsonOutput bool
	)
	cmd.StringVar(&ledgerPath, "ledger", "", "Path to a JSONL ledger export (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if ledgerPath == "" {
		fmt.Fprintln(stderr, "Error: --ledger is required")
		cmd.Usage()
		return 2
	}

	result, err := replay.FromFile(ledgerPath)
	if err != nil {
		fmt.Fprintf(stderr, "Replay failed: %v\n", err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else {
		check := func(ok bool) string {
			if ok {
				return "ok"
			}
			return "FAIL"
		}
		fmt.Fprintf(stdout, "Records:   %d (%d receipts)\n", result.TotalRecords, result.TotalReceipts)
		fmt.Fprintf(stdout, "Sequence:  %s\n", check(result.SeqValid))
		fmt.Fprintf(stdout, "Chain:     %s\n", check(result.ChainValid))
		fmt.Fprintf(stdout, "Ordering:  %s\n", check(result.OrderValid))
		fmt.Fprintf(stdout, "Lifecycle: %s\n", check(result.LifecycleValid))
		for _, b := range result.SeqBreaks {
			fmt.Fprintf(stdout, "  seq: %s\n", b)
		}
		for _, b := range result.ChainBreaks {
			fmt.Fprintf(stdout, "  chain: %s\n", b)
		}
		for _, f := range result.LifecycleFaults {
			fmt.Fprintf(stdout, "  lifecycle: %s\n", f)
		}
	}

	if !result.Valid() {
		return 1
	}
	return 0
}
