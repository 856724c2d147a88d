// Package phases implements the six Phase Strategies of SPEC_FULL.md §4.13 as a closed
// variant set: Bootstrap, Discovery, Confirm, Conflict, Download, Complete. Each owns its
// own termination condition and emits PHASE:CHANGED on entry, per the spec's design note
// that phases are not a generic plugin system. No teacher analogue exists for phase
// sequencing (the reference crawler runs one flat job loop); the Strategy shape is this
// module's own, built to carry the ambient stack (arbor logging, the event bus) the way
// every other package in this tree does.
package phases

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/conflict"
	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/discovery"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/execqueue"
	"github.com/ternarybob/siteharvest/internal/hiddenfiles"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/pagegraph"
	"github.com/ternarybob/siteharvest/internal/titles"
	"github.com/ternarybob/siteharvest/internal/workerpool"
)

// Phase names the active phase for PHASE:CHANGED events and logging.
type Phase string

const (
	PhaseBootstrap Phase = "BOOTSTRAP"
	PhaseDiscovery Phase = "DISCOVERY"
	PhaseConfirm   Phase = "CONFIRM"
	PhaseConflict  Phase = "CONFLICT"
	PhaseDownload  Phase = "DOWNLOAD"
	PhaseComplete  Phase = "COMPLETE"
)

// Strategy is one phase of the run.
type Strategy interface {
	Name() Phase
	Run(ctx context.Context, rt *Runtime) error
}

// Stats accumulates the final discovered/downloaded/failed counts rendered by Complete.
type Stats struct {
	Discovered int
	Downloaded int
	Failed     int
	Aborted    bool
}

// Runtime bundles every piece of shared, master-owned state a phase strategy needs. It is
// constructed once by the orchestrator and threaded through the phase sequence — there is
// no global/singleton access to any of this from within internal/phases.
type Runtime struct {
	Config *config.Config
	Logger arbor.ILogger
	Bus    *eventbus.Bus
	Pool   *workerpool.Pool

	DiscoveryQueue *discovery.Queue
	ExecQueue      *execqueue.Queue
	Titles         *titles.Registry
	Graph          *pagegraph.Graph
	HiddenFiles    *hiddenfiles.Registry

	mu             sync.Mutex
	contexts       map[string]*pagectx.PageContext
	discoveryOrder []*pagectx.PageContext

	Cookies []ipc.Cookie

	ConflictResult conflict.Result

	// ResultCh receives every worker RESULT envelope, fed by the onResult callback each
	// workerpool.Pool.Spawn call is given. Exactly one phase consumes it at a time.
	ResultCh chan workerResult

	Stats Stats

	WorkerBinary string
	RootURL      string
}

type workerResult struct {
	WorkerID string
	Payload  ipc.ResultPayload
}

// NewRuntime constructs an empty Runtime. RootURL seeds the bootstrap's single initial
// context.
func NewRuntime(cfg *config.Config, logger arbor.ILogger, bus *eventbus.Bus, pool *workerpool.Pool, workerBinary string) *Runtime {
	return &Runtime{
		Config:         cfg,
		Logger:         logger,
		Bus:            bus,
		Pool:           pool,
		DiscoveryQueue: discovery.New(bus),
		ExecQueue:      execqueue.New(bus),
		Titles:         titles.New(),
		Graph:          pagegraph.New(),
		HiddenFiles:    hiddenfiles.New(),
		contexts:       make(map[string]*pagectx.PageContext),
		ResultCh:       make(chan workerResult, 64),
		WorkerBinary:   workerBinary,
		RootURL:        cfg.Crawl.RootURL,
	}
}

// OnResult is the callback registered with every spawned worker's Proxy; it is the single
// funnel point mentioned in §4.14 ("top-level handlers on TASK:COMPLETE/TASK:FAILED route
// into the active phase's result-processing hooks").
func (rt *Runtime) OnResult(workerID string, payload ipc.ResultPayload) {
	rt.ResultCh <- workerResult{WorkerID: workerID, Payload: payload}
}

// OnAssetQuery answers a worker's ASSET_QUERY against the single master-owned Hidden File
// Registry, regardless of which phase is active — asset coordination is not phase-scoped.
func (rt *Runtime) OnAssetQuery(q ipc.AssetQueryPayload) ipc.AssetClaimResultPayload {
	if saved, ok := rt.HiddenFiles.GetSavedPath(q.URL); ok {
		return ipc.AssetClaimResultPayload{RequestID: q.RequestID, URL: q.URL, Claimed: true, SavedPath: saved}
	}
	claimed := rt.HiddenFiles.MarkPending(q.URL, q.PageID)
	return ipc.AssetClaimResultPayload{RequestID: q.RequestID, URL: q.URL, Claimed: !claimed}
}

// RegisterContext records a newly discovered context and appends it to discovery order.
func (rt *Runtime) RegisterContext(ctx *pagectx.PageContext) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.contexts[ctx.ID] = ctx
	rt.discoveryOrder = append(rt.discoveryOrder, ctx)
}

// Context looks up a previously registered context by id.
func (rt *Runtime) Context(id string) (*pagectx.PageContext, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ctx, ok := rt.contexts[id]
	return ctx, ok
}

// DiscoveryOrder returns a copy of every discovered context, in first-seen order, for the
// Conflict Resolver.
func (rt *Runtime) DiscoveryOrder() []*pagectx.PageContext {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*pagectx.PageContext, len(rt.discoveryOrder))
	copy(out, rt.discoveryOrder)
	return out
}

// emitPhaseChanged is the one line every Strategy.Run calls on entry.
func emitPhaseChanged(rt *Runtime, phase Phase) {
	if rt.Logger != nil {
		rt.Logger.Info().Str("phase", string(phase)).Msg("phase changed")
	}
	if rt.Bus != nil {
		rt.Bus.Emit(eventbus.TopicPhaseChanged, eventbus.PhaseChangedPayload{Phase: string(phase)})
	}
}

// waitOnce subscribes a one-shot handler to topic and returns a channel that closes the
// first time it fires.
func waitOnce(bus *eventbus.Bus, topic eventbus.Topic) (<-chan struct{}, func()) {
	done := make(chan struct{})
	var once sync.Once
	tok := bus.Subscribe(topic, func(interface{}) error {
		once.Do(func() { close(done) })
		return nil
	})
	return done, func() { bus.Unsubscribe(tok) }
}

// newTimer is a small helper so every phase's timeout select reads the same way.
func newTimer(d time.Duration) (*time.Timer, func()) {
	t := time.NewTimer(d)
	return t, func() { t.Stop() }
}
