// Package orchestrator implements the top-level Orchestrator (SPEC_FULL.md §4.14): it
// owns the phase sequence, the worker pool, and the queues, and is the single place a
// fatal error anywhere in the pipeline propagates to before shutdown. No teacher analogue
// exists (the reference crawler has no phase-sequenced state machine); grounded on the
// teacher's top-level `Service` struct shape (internal/services/crawler/service.go, since
// deleted from the workspace — see DESIGN.md's final adaptation note) for "one struct owns
// every long-lived subsystem and is constructed once at startup."
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/phases"
	"github.com/ternarybob/siteharvest/internal/workerpool"
)

// Orchestrator drives one complete run from Bootstrap through Complete.
type Orchestrator struct {
	cfg    *config.Config
	logger arbor.ILogger
	bus    *eventbus.Bus
	pool   *workerpool.Pool
	rt     *phases.Runtime
}

// New constructs an Orchestrator. workerBinary is the path to the worker subprocess
// executable (cmd/worker's built output).
func New(cfg *config.Config, logger arbor.ILogger, bus *eventbus.Bus, workerBinary string) *Orchestrator {
	pool := workerpool.New(cfg.WorkerPool, logger, bus)
	rt := phases.NewRuntime(cfg, logger, bus, pool, workerBinary)

	return &Orchestrator{cfg: cfg, logger: logger, bus: bus, pool: pool, rt: rt}
}

// Run executes the full phase sequence, going from Confirm straight to Complete (skipping
// ConflictResolution and Download) on DryRun, and
// always running shutdown on the way out — on success, on a fatal error, or on ctx
// cancellation (SIGINT/SIGTERM).
func (o *Orchestrator) Run(ctx context.Context) (phases.Stats, error) {
	sequence := []phases.Strategy{
		phases.Bootstrap{},
		phases.Discovery{},
		phases.Confirm{},
	}

	if !o.cfg.Crawl.DryRun {
		sequence = append(sequence,
			phases.ConflictResolution{},
			phases.Download{},
		)
	}
	sequence = append(sequence, phases.Complete{})

	var runErr error
	for _, strategy := range sequence {
		if err := strategy.Run(ctx, o.rt); err != nil {
			o.rt.Stats.Aborted = true
			runErr = fmt.Errorf("phase %s: %w", strategy.Name(), err)
			break
		}
	}

	o.shutdown()

	return o.rt.Stats, runErr
}

// shutdown cooperatively terminates every worker, per §5's "send SHUTDOWN to each worker,
// await a grace window, then force-terminate."
func (o *Orchestrator) shutdown() {
	if o.logger != nil {
		o.logger.Info().Msg("shutting down worker pool")
	}
	o.pool.Shutdown()
}

// IsFatal reports whether err represents a §7 fatal error that should set the process
// exit code to 1 rather than being absorbed.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ipcErr *ipc.Error
	if errors.As(err, &ipcErr) {
		return ipcErr.Fatal()
	}
	return true // an unclassified error (e.g. context cancellation from a real signal) is treated as fatal
}

// AllocationTimeout exposes the configured worker allocation timeout for callers that
// need to size their own outer context (cmd/master).
func (o *Orchestrator) AllocationTimeout() time.Duration {
	return o.cfg.WorkerPool.AllocationTimeout
}
