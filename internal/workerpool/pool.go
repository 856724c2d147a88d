// Package workerpool implements the Worker Pool Manager (SPEC_FULL.md §4.11): capacity
// planning, an idle/busy LIFO stack of workerproxy.Proxy instances, blocking allocation
// with a fatal timeout, and crash recovery. Capacity planning and the exec-allocator-flag
// shape of the workers it spawns are grounded on the teacher's
// internal/services/crawler/chromedp_pool.go pool-sizing and lifecycle pattern, adapted
// from in-process browser contexts to out-of-process worker subprocesses.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/workerproxy"
)

// PlanCapacity implements the §4.11 sizing formula:
// clamp(min, max, min(cpus-1, floor(0.7 * freeMemMB / 1024))).
func PlanCapacity(min, max int, cpus int, freeMemMB uint64) int {
	byCPU := cpus - 1
	byMem := int(float64(freeMemMB) * 0.7 / 1024)

	n := byCPU
	if byMem < n {
		n = byMem
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

// DetectCapacity reads live CPU/memory figures and applies PlanCapacity. Falls back to
// min workers if memory stats are unavailable (e.g. a sandboxed CI runner).
func DetectCapacity(cfg config.WorkerPoolConfig) int {
	cpus := runtime.NumCPU()

	vm, err := mem.VirtualMemory()
	if err != nil {
		return cfg.MinWorkers
	}
	freeMemMB := vm.Available / (1024 * 1024)

	return PlanCapacity(cfg.MinWorkers, cfg.MaxWorkers, cpus, freeMemMB)
}

// ErrAllocationTimeout is the fatal error raised when no worker becomes available within
// the configured allocation timeout (§7: ALLOCATION_TIMEOUT is fatal).
var ErrAllocationTimeout = ipc.NewError(ipc.KindAllocationTimeout, "no worker available within allocation timeout", nil)

// Pool owns a fixed-size set of worker subprocesses and hands them out to callers one
// task at a time.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	workers map[string]*workerproxy.Proxy
	idle    []string // LIFO stack of idle worker ids

	cfg    config.WorkerPoolConfig
	logger arbor.ILogger
	bus    *eventbus.Bus
}

// New constructs an empty pool. Spawn must be called once per desired worker before use.
func New(cfg config.WorkerPoolConfig, logger arbor.ILogger, bus *eventbus.Bus) *Pool {
	p := &Pool{
		workers: make(map[string]*workerproxy.Proxy),
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Spawn launches one worker subprocess and registers it with the pool once READY.
func (p *Pool) Spawn(ctx context.Context, id, workerBinary string, args []string, onResult workerproxy.ResultHandler, onAssetQuery workerproxy.AssetQueryHandler) error {
	ready := make(chan struct{})
	onReady := func(string) { close(ready) }

	proxy := workerproxy.New(id, p.logger, onResult, onAssetQuery, onReady, p.onWorkerCrash)

	spawnCtx, cancel := context.WithTimeout(ctx, p.cfg.SpawnTimeout)
	defer cancel()

	if err := proxy.Launch(spawnCtx, workerBinary, args...); err != nil {
		return fmt.Errorf("workerpool: spawn %s: %w", id, err)
	}

	p.mu.Lock()
	p.workers[id] = proxy
	p.mu.Unlock()

	select {
	case <-ready:
	case <-spawnCtx.Done():
		return fmt.Errorf("workerpool: worker %s did not report READY within spawn timeout", id)
	}

	p.mu.Lock()
	p.idle = append(p.idle, id)
	p.mu.Unlock()
	p.cond.Broadcast()

	if p.bus != nil {
		p.bus.Emit(eventbus.TopicWorkerReady, eventbus.WorkerEventPayload{WorkerID: id, PID: proxy.PID()})
	}
	return nil
}

// Release returns a worker to the idle stack once its task's RESULT has been processed.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	proxy, ok := p.workers[id]
	if ok && proxy.State() == workerproxy.StateIdle {
		p.idle = append(p.idle, id)
		p.cond.Signal()
	}
	p.mu.Unlock()

	if ok && p.bus != nil {
		p.bus.Emit(eventbus.TopicWorkerIdle, eventbus.WorkerEventPayload{WorkerID: id, PID: proxy.PID()})
	}
}

// Acquire blocks until an idle worker is available or timeout elapses, popping
// LIFO (most-recently-idle first, matching the teacher's round-robin-but-reuse-hot
// pattern from ChromeDPPool, adapted to a stack since only one task runs per worker at a
// time). Returns ErrAllocationTimeout — a fatal error per §7 — on timeout.
func (p *Pool) Acquire(timeout time.Duration) (*workerproxy.Proxy, error) {
	deadline := time.Now().Add(timeout)

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.idle) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrAllocationTimeout
		}
		waitOnTimer(p.cond, remaining)
		if time.Now().After(deadline) && len(p.idle) == 0 {
			return nil, ErrAllocationTimeout
		}
	}

	id := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	proxy := p.workers[id]
	p.emitBusyLocked(proxy)
	return proxy, nil
}

// TryAcquire pops an idle worker without blocking. Used by the event-driven phase loops
// (Discovery, Download) to drain as much of the frontier as current idle capacity allows
// without suspending the whole phase on an Acquire call that the allocation-timeout clock
// is not meant to cover.
func (p *Pool) TryAcquire() (*workerproxy.Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil, false
	}
	id := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	proxy := p.workers[id]
	p.emitBusyLocked(proxy)
	return proxy, true
}

// emitBusyLocked announces WORKER:BUSY for a just-acquired proxy. Called with p.mu held;
// eventbus.Bus has its own independent mutex and no handler calls back into the pool, so
// emitting here is safe.
func (p *Pool) emitBusyLocked(proxy *workerproxy.Proxy) {
	if p.bus != nil && proxy != nil {
		p.bus.Emit(eventbus.TopicWorkerBusy, eventbus.WorkerEventPayload{WorkerID: proxy.ID, PID: proxy.PID()})
	}
}

// waitOnTimer wraps cond.Wait with a timeout by releasing the lock on a timer goroutine.
// sync.Cond has no native timed wait; this mirrors the common Go idiom for bounding it.
func waitOnTimer(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}

func (p *Pool) onWorkerCrash(id string, err error) {
	p.mu.Lock()
	for i, wid := range p.idle {
		if wid == id {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
	delete(p.workers, id)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Warn().Str("worker", id).Err(err).Msg("removed crashed worker from pool")
	}
	if p.bus != nil {
		p.bus.Emit(eventbus.TopicWorkerCrashed, eventbus.WorkerEventPayload{WorkerID: id})
	}
	p.cond.Broadcast()
}

// Size returns the number of workers currently registered (idle + busy), excluding
// crashed/removed ones.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// All returns every currently registered worker proxy, used for broadcast-style commands
// (SET_COOKIES) that must reach every worker regardless of idle/busy state.
func (p *Pool) All() []*workerproxy.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*workerproxy.Proxy, 0, len(p.workers))
	for _, w := range p.workers {
		out = append(out, w)
	}
	return out
}

// Shutdown terminates every registered worker, waiting up to the configured grace
// window for each.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	workers := make([]*workerproxy.Proxy, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		_ = w.Terminate(p.cfg.TerminateGrace)
	}
}
