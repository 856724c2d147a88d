package logging

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/eventbus"
)

// Dashboard subscribes to PHASE:CHANGED, DISCOVERY:PROGRESS, EXECUTION:PROGRESS, the four
// WORKER:* topics and TASK:FAILED (not BOOTSTRAP:COMPLETE, DISCOVERY:ALL_IDLE or
// TASK:COMPLETE) and renders single-line progress updates through the same arbor.ILogger used everywhere else — deliberately not a
// curses-style TUI, since the spec treats the console as an external collaborator rather
// than an owned UI surface. Grounded on the reference's own habit of logging progress
// through structured Info() calls rather than a dedicated rendering library; no example
// repo in the pack ships a terminal dashboard widget worth adopting here.
type Dashboard struct {
	logger arbor.ILogger

	mu    sync.Mutex
	phase string
}

// NewDashboard subscribes a Dashboard to bus and returns it. Subscriptions live for the
// lifetime of the run; there is no Close because the bus itself is torn down with the
// process.
func NewDashboard(bus *eventbus.Bus, logger arbor.ILogger) *Dashboard {
	d := &Dashboard{logger: logger}

	bus.Subscribe(eventbus.TopicPhaseChanged, d.onPhaseChanged)
	bus.Subscribe(eventbus.TopicDiscoveryProgress, d.onDiscoveryProgress)
	bus.Subscribe(eventbus.TopicExecutionProgress, d.onExecutionProgress)
	bus.Subscribe(eventbus.TopicWorkerReady, d.onWorkerEvent("worker ready"))
	bus.Subscribe(eventbus.TopicWorkerBusy, d.onWorkerEvent("worker busy"))
	bus.Subscribe(eventbus.TopicWorkerIdle, d.onWorkerEvent("worker idle"))
	bus.Subscribe(eventbus.TopicWorkerCrashed, d.onWorkerEvent("worker crashed"))
	bus.Subscribe(eventbus.TopicTaskFailed, d.onTaskFailed)

	return d
}

func (d *Dashboard) onPhaseChanged(payload interface{}) error {
	p, ok := payload.(eventbus.PhaseChangedPayload)
	if !ok {
		return nil
	}
	d.mu.Lock()
	d.phase = p.Phase
	d.mu.Unlock()

	if d.logger == nil {
		return nil
	}
	d.logger.Info().Str("phase", p.Phase).Msg("phase changed")
	return nil
}

func (d *Dashboard) onDiscoveryProgress(payload interface{}) error {
	p, ok := payload.(eventbus.DiscoveryProgressPayload)
	if !ok || d.logger == nil {
		return nil
	}
	d.logger.Info().
		Str("phase", d.currentPhase()).
		Int("discovered", p.Discovered).
		Int("queue_length", p.QueueLength).
		Int("pending", p.PendingCount).
		Msg("discovery progress")
	return nil
}

func (d *Dashboard) onExecutionProgress(payload interface{}) error {
	p, ok := payload.(eventbus.ExecutionProgressPayload)
	if !ok || d.logger == nil {
		return nil
	}
	d.logger.Info().
		Str("phase", d.currentPhase()).
		Int("completed", p.Completed).
		Int("failed", p.Failed).
		Int("remaining", p.Remaining).
		Msg("download progress")
	return nil
}

func (d *Dashboard) onWorkerEvent(label string) eventbus.Handler {
	return func(payload interface{}) error {
		p, ok := payload.(eventbus.WorkerEventPayload)
		if !ok || d.logger == nil {
			return nil
		}
		d.logger.Debug().Str("worker", p.WorkerID).Int("pid", p.PID).Msg(label)
		return nil
	}
}

func (d *Dashboard) onTaskFailed(payload interface{}) error {
	p, ok := payload.(eventbus.TaskEventPayload)
	if !ok || d.logger == nil {
		return nil
	}
	if p.Err != nil {
		d.logger.Warn().Str("task", p.TaskID).Str("type", p.TaskType).Err(p.Err).Msg("task failed")
		return nil
	}
	d.logger.Warn().Str("task", p.TaskID).Str("type", p.TaskType).Msg("task failed")
	return nil
}

func (d *Dashboard) currentPhase() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}
