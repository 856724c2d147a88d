// Package execqueue implements the leaf-first Execution Queue (SPEC_FULL.md §4.8): after
// conflict resolution, canonical contexts are downloaded deepest-first so the Hidden File
// Registry can dedupe shared assets before any shallower page references them. The
// ordering itself is grounded on the same heap shape as internal/discovery, with the
// depth comparison inverted and the one-shot Build replacing the incremental
// push-driven frontier (there is nothing to block on: every canonical context is known up
// front once the Conflict Resolver has run).
package execqueue

import (
	"container/heap"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/pagectx"
)

// Task is one canonical page awaiting download.
type Task struct {
	Context *pagectx.PageContext

	childrenCount    int
	completedChildren int
	seq              int
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

// Less orders deeper pages first (descending depth), ties broken by discovery order —
// the inverse of the Discovery Queue's shallowest-first comparator.
func (h taskHeap) Less(i, j int) bool {
	if h[i].Context.Depth != h[j].Context.Depth {
		return h[i].Context.Depth > h[j].Context.Depth
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*Task)) }

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the leaf-first download queue with per-context dependency counters kept for
// observability only — per §4.8, leaf-first order is the sole scheduling gate.
type Queue struct {
	mu        sync.Mutex
	items     *taskHeap
	pending   map[string]bool
	tasksByID map[string]*Task
	completed int
	failed    int
	total     int
	bus       *eventbus.Bus
}

// New constructs an empty Execution Queue wired to bus for EXECUTION:PROGRESS events.
func New(bus *eventbus.Bus) *Queue {
	h := &taskHeap{}
	heap.Init(h)
	return &Queue{
		items:     h,
		pending:   make(map[string]bool),
		tasksByID: make(map[string]*Task),
		bus:       bus,
	}
}

// Build seeds the queue with all canonical contexts in descending depth order, ties
// broken by discovery order (the order contexts appear in the slice).
func (q *Queue) Build(contexts []*pagectx.PageContext) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, ctx := range contexts {
		task := &Task{Context: ctx, seq: i}
		heap.Push(q.items, task)
		q.tasksByID[ctx.ID] = task
	}
	q.total = len(contexts)

	for _, ctx := range contexts {
		if ctx.ParentID != "" {
			if parent, ok := q.tasksByID[ctx.ParentID]; ok {
				parent.childrenCount++
			}
		}
	}
}

// Next pops the deepest remaining task and resolves its absolute save path. absoluteSavePath
// is always absolute — downstream components must reject relative paths as a fatal
// programmer error.
func (q *Queue) Next(outputDir string) (*Task, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil, "", false
	}

	task := heap.Pop(q.items).(*Task)
	q.pending[task.Context.ID] = true

	abs, err := filepath.Abs(filepath.Join(outputDir, task.Context.TargetFilePath))
	if err != nil {
		// filepath.Abs only fails if os.Getwd fails; treat as the fatal programmer error
		// the spec calls for rather than silently returning a relative path.
		panic(fmt.Sprintf("execqueue: cannot resolve absolute save path: %v", err))
	}

	return task, abs, true
}

// MarkComplete and MarkFailed are idempotent.
func (q *Queue) MarkComplete(id string) { q.markDone(id, true) }
func (q *Queue) MarkFailed(id string)   { q.markDone(id, false) }

func (q *Queue) markDone(id string, success bool) {
	q.mu.Lock()
	if !q.pending[id] {
		q.mu.Unlock()
		return
	}
	delete(q.pending, id)
	if success {
		q.completed++
	} else {
		q.failed++
	}

	if task, ok := q.tasksByID[id]; ok && task.Context.ParentID != "" {
		if parent, ok := q.tasksByID[task.Context.ParentID]; ok {
			parent.completedChildren++
		}
	}

	remaining := q.total - q.completed - q.failed
	completed, failed := q.completed, q.failed
	q.mu.Unlock()

	if q.bus != nil {
		q.bus.Emit(eventbus.TopicExecutionProgress, eventbus.ExecutionProgressPayload{
			Completed: completed,
			Failed:    failed,
			Remaining: remaining,
		})
	}
}

// IsComplete reports whether every seeded task has reached a terminal state.
func (q *Queue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len() == 0 && len(q.pending) == 0
}

// Stats returns completed/failed/total counts for the final report.
func (q *Queue) Stats() (completed, failed, total int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completed, q.failed, q.total
}
