package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/pagectx"
)

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	q := New(nil)
	ctx := pagectx.NewRoot("https://wiki.example.com/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4")

	assert.True(t, q.Enqueue(ctx, true))
	assert.False(t, q.Enqueue(ctx, true))
}

func TestNextPopsShallowestDepthFirst(t *testing.T) {
	q := New(nil)
	root := pagectx.NewRoot("https://wiki.example.com/root")
	root.ID = "root"
	q.Enqueue(root, true)

	deep := &pagectx.PageContext{ID: "deep", Depth: 2}
	shallow := &pagectx.PageContext{ID: "shallow", Depth: 1}
	q.Enqueue(deep, false)
	q.Enqueue(shallow, false)

	first, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "root", first.Context.ID)

	second, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "shallow", second.Context.ID)

	third, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "deep", third.Context.ID)
}

func TestQuiescenceEmitsAllIdleWhenBothEmpty(t *testing.T) {
	bus := eventbus.New(nil)
	q := New(bus)

	var allIdle int
	bus.Subscribe(eventbus.TopicDiscoveryAllIdle, func(payload interface{}) error {
		allIdle++
		return nil
	})

	ctx := &pagectx.PageContext{ID: "a", Depth: 0}
	q.Enqueue(ctx, true)
	task, ok := q.Next()
	require.True(t, ok)

	assert.False(t, q.IsComplete())
	q.MarkComplete(task.Context.ID)

	assert.True(t, q.IsComplete())
	assert.Equal(t, 1, allIdle)
}

func TestMarkCompleteIsIdempotent(t *testing.T) {
	q := New(nil)
	ctx := &pagectx.PageContext{ID: "a", Depth: 0}
	q.Enqueue(ctx, true)
	q.Next()

	assert.NotPanics(t, func() {
		q.MarkComplete("a")
		q.MarkComplete("a")
	})
}

// TestCycleScenario mirrors SPEC_FULL.md §8 scenario 3: A -> B -> A. The back edge from
// B to A must not be re-enqueued, and quiescence is reached after exactly two tasks.
func TestCycleScenario(t *testing.T) {
	q := New(nil)

	a := &pagectx.PageContext{ID: "a", Depth: 0}
	require.True(t, q.Enqueue(a, true))

	taskA, ok := q.Next()
	require.True(t, ok)

	b := &pagectx.PageContext{ID: "b", Depth: 1, ParentID: "a"}
	require.True(t, q.Enqueue(b, false))
	q.MarkComplete(taskA.Context.ID)

	taskB, ok := q.Next()
	require.True(t, ok)

	// B's discovery finds a link back to A; A is already visited, so it is rejected
	// rather than re-enqueued.
	assert.False(t, q.Enqueue(a, false))
	q.MarkComplete(taskB.Context.ID)

	assert.True(t, q.IsComplete())
}
