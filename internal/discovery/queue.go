// Package discovery implements the Discovery Queue (SPEC_FULL.md §4.4): the BFS
// frontier, its visited-set, pending-task tracking by id, and quiescence detection over
// the event bus. The heap shape is grounded on the reference crawler's URLQueue, with
// the dedup/ordering rule kept (shallowest depth first) and `seen` renamed `visited` to
// match this spec's vocabulary.
package discovery

import (
	"container/heap"
	"sync"

	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/pagectx"
)

// Task is one frontier entry awaiting dispatch to a worker.
type Task struct {
	Context     *pagectx.PageContext
	IsFirstPage bool

	addedSeq int
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Context.Depth != h[j].Context.Depth {
		return h[i].Context.Depth < h[j].Context.Depth
	}
	return h[i].addedSeq < h[j].addedSeq
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

// Queue holds the BFS frontier.
type Queue struct {
	mu       sync.Mutex
	items    *taskHeap
	visited  map[string]bool
	pending  map[string]bool
	seq      int
	maxDepth int
	bus      *eventbus.Bus
}

// New constructs an empty Discovery Queue wired to bus for quiescence/progress events.
func New(bus *eventbus.Bus) *Queue {
	h := &taskHeap{}
	heap.Init(h)
	return &Queue{
		items:   h,
		visited: make(map[string]bool),
		pending: make(map[string]bool),
		bus:     bus,
	}
}

// Enqueue rejects ctx if its id is already in the visited-set; otherwise it records the
// id, pushes the task, updates MaxDepth(), and emits DISCOVERY:QUEUE_READY on the
// transition from empty to non-empty. Returns false if rejected as a duplicate.
func (q *Queue) Enqueue(ctx *pagectx.PageContext, isFirstPage bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.visited[ctx.ID] {
		return false
	}
	q.visited[ctx.ID] = true

	wasEmpty := q.items.Len() == 0

	q.seq++
	heap.Push(q.items, &Task{Context: ctx, IsFirstPage: isFirstPage, addedSeq: q.seq})

	if ctx.Depth > q.maxDepth {
		q.maxDepth = ctx.Depth
	}

	if wasEmpty && q.bus != nil {
		q.bus.Emit(eventbus.TopicDiscoveryQueueReady, nil)
	}

	return true
}

// Next pops the shallowest-depth, earliest-enqueued task and tags it pending (tracked by
// id). Returns false if the queue is empty.
func (q *Queue) Next() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil, false
	}

	task := heap.Pop(q.items).(*Task)
	q.pending[task.Context.ID] = true
	return task, true
}

// MarkComplete and MarkFailed are idempotent: removing an id not in pending is a no-op.
// Both emit DISCOVERY:TASK_COMPLETED and, when both the queue and the pending set are
// empty, DISCOVERY:ALL_IDLE.
func (q *Queue) MarkComplete(id string) { q.markDone(id) }
func (q *Queue) MarkFailed(id string)   { q.markDone(id) }

func (q *Queue) markDone(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	pendingCount := len(q.pending)
	queueLength := q.items.Len()
	q.mu.Unlock()

	if q.bus != nil {
		q.bus.Emit(eventbus.TopicDiscoveryTaskDone, eventbus.DiscoveryTaskCompletedPayload{
			PendingCount: pendingCount,
			QueueLength:  queueLength,
		})
		if pendingCount == 0 && queueLength == 0 {
			q.bus.Emit(eventbus.TopicDiscoveryAllIdle, nil)
		}
	}
}

// IsComplete reports queue empty AND pending empty.
func (q *Queue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len() == 0 && len(q.pending) == 0
}

// MaxDepth returns the deepest depth enqueued so far.
func (q *Queue) MaxDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxDepth
}

// PendingCount and QueueLength support observability/progress events.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) QueueLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Visited reports whether id has already been enqueued once (duplicate detection used by
// callers deciding whether a discovered link is new).
func (q *Queue) Visited(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.visited[id]
}
