package execqueue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/siteharvest/internal/pagectx"
)

// TestLinearTreeLeafFirstOrder mirrors SPEC_FULL.md §8 scenario 1: linear tree A->B->C,
// the execution queue order is C, B, A.
func TestLinearTreeLeafFirstOrder(t *testing.T) {
	a := &pagectx.PageContext{ID: "a", Depth: 0, TargetFilePath: "index.html"}
	b := &pagectx.PageContext{ID: "b", Depth: 1, ParentID: "a", TargetFilePath: filepath.Join("B", "index.html")}
	c := &pagectx.PageContext{ID: "c", Depth: 2, ParentID: "b", TargetFilePath: filepath.Join("B", "C", "index.html")}

	q := New(nil)
	q.Build([]*pagectx.PageContext{a, b, c})

	first, _, ok := q.Next("/out")
	require.True(t, ok)
	assert.Equal(t, "c", first.Context.ID)

	second, _, ok := q.Next("/out")
	require.True(t, ok)
	assert.Equal(t, "b", second.Context.ID)

	third, _, ok := q.Next("/out")
	require.True(t, ok)
	assert.Equal(t, "a", third.Context.ID)

	_, _, ok = q.Next("/out")
	assert.False(t, ok)
}

func TestNextReturnsAbsoluteSavePath(t *testing.T) {
	ctx := &pagectx.PageContext{ID: "a", Depth: 0, TargetFilePath: "index.html"}
	q := New(nil)
	q.Build([]*pagectx.PageContext{ctx})

	_, savePath, ok := q.Next("relative/out")
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(savePath))
}

func TestMarkCompleteIsIdempotentAndTracksStats(t *testing.T) {
	ctx := &pagectx.PageContext{ID: "a", Depth: 0, TargetFilePath: "index.html"}
	q := New(nil)
	q.Build([]*pagectx.PageContext{ctx})

	task, _, ok := q.Next("/out")
	require.True(t, ok)

	q.MarkComplete(task.Context.ID)
	q.MarkComplete(task.Context.ID) // idempotent

	completed, failed, total := q.Stats()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, total)
	assert.True(t, q.IsComplete())
}
