// Command master is the scraper's entrypoint (SPEC_FULL.md §4.14): it loads
// configuration, builds the logger and event bus, and runs the Orchestrator's phase
// sequence to completion. Flag parsing, config-then-flags layering, and the signal
// handling shape are grounded on the reference's cmd/quaero/main.go; the HTTP server
// lifecycle it wraps there has no analogue here, since this tool runs one batch job to
// completion rather than serving requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/logging"
	"github.com/ternarybob/siteharvest/internal/orchestrator"
	"github.com/ternarybob/siteharvest/internal/phases"
)

func main() {
	defer common.RecoverWithCrashFile()
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "Path to a TOML configuration file")
		rootURL    = flag.String("url", "", "Root URL to mirror (overrides config)")
		outputDir  = flag.String("output", "", "Output directory (overrides config)")
		maxDepth   = flag.Int("max-depth", 0, "Maximum link-following depth, 0 = unlimited (overrides config)")
		dryRun     = flag.Bool("dry-run", false, "Discover and resolve conflicts without downloading")
		showHelp   = flag.Bool("help", false, "Print usage and exit")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return 0
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siteharvest: %v\n", err)
		return 1
	}

	config.ApplyFlagOverrides(cfg, config.FlagOverrides{
		RootURL:   *rootURL,
		OutputDir: *outputDir,
		MaxDepth:  *maxDepth,
		DryRun:    *dryRun,
		HasDryRun: isFlagSet("dry-run"),
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "siteharvest: %v\n", err)
		return 1
	}

	logger := logging.Setup(cfg.Logging, "master")
	defer logging.Stop()

	workerBinary, err := resolveWorkerBinary()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to locate worker binary")
		return 1
	}

	bus := eventbus.New(logger)
	logging.NewDashboard(bus, logger)
	orch := orchestrator.New(cfg, logger, bus, workerBinary)

	logging.PrintStartupBanner(cfg, cfg.WorkerPool.MaxWorkers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	type outcome struct {
		stats phases.Stats
		err   error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		defer common.RecoverWithCrashFile()
		stats, runErr := orch.Run(ctx)
		resultCh <- outcome{stats: stats, err: runErr}
	}()

	select {
	case res := <-resultCh:
		return report(logger, res.stats, res.err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("interrupt received, requesting graceful shutdown")
		cancel()

		select {
		case res := <-resultCh:
			logging.PrintShutdownBanner(logger)
			report(logger, res.stats, res.err)
			return 130
		case <-sigCh:
			logger.Warn().Msg("second interrupt received, forcing exit")
			return 130
		case <-time.After(cfg.WorkerPool.TerminateGrace + 5*time.Second):
			logger.Warn().Msg("graceful shutdown timed out, forcing exit")
			return 130
		}
	}
}

// report logs the final tallies and maps the orchestrator's result to a process exit
// code: 0 on a clean run, 1 if any phase returned a fatal error.
func report(logger arbor.ILogger, stats phases.Stats, err error) int {
	logger.Info().
		Int("discovered", stats.Discovered).
		Int("downloaded", stats.Downloaded).
		Int("failed", stats.Failed).
		Bool("aborted", stats.Aborted).
		Msg("run complete")

	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return 1
	}
	return 0
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// resolveWorkerBinary finds the worker subprocess executable alongside the master
// binary, falling back to a $PATH lookup for development runs where the two binaries
// were built into different directories.
func resolveWorkerBinary() (string, error) {
	name := workerBinaryName()

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("worker binary %q not found next to the master executable or on PATH", name)
}

func workerBinaryName() string {
	if os.PathSeparator == '\\' {
		return "worker.exe"
	}
	return "worker"
}
