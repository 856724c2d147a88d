package pagegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstDiscoveryIsTreeEdge(t *testing.T) {
	g := New()
	g.EnsureRoot("root")

	kind := g.Classify("root", "a", 0)
	assert.Equal(t, EdgeTree, kind)
}

func TestSelfLoopIsBack(t *testing.T) {
	g := New()
	g.EnsureRoot("root")

	kind := g.Classify("root", "root", 0)
	assert.Equal(t, EdgeBack, kind)
}

func TestCycleIsBackEdge(t *testing.T) {
	g := New()
	g.EnsureRoot("a")
	assert.Equal(t, EdgeTree, g.Classify("a", "b", 0))

	// b -> a: a is an ancestor of b, so this is a back edge, not re-enqueued.
	assert.Equal(t, EdgeBack, g.Classify("b", "a", 1))
}

func TestDiamondIsCrossEdge(t *testing.T) {
	g := New()
	g.EnsureRoot("root")
	assert.Equal(t, EdgeTree, g.Classify("root", "a", 0))
	assert.Equal(t, EdgeTree, g.Classify("root", "b", 0))
	assert.Equal(t, EdgeTree, g.Classify("a", "c", 1))

	// b -> c: c already exists (discovered via a), c is not b's descendant nor ancestor.
	assert.Equal(t, EdgeCross, g.Classify("b", "c", 1))
}

func TestForwardEdge(t *testing.T) {
	g := New()
	g.EnsureRoot("root")
	assert.Equal(t, EdgeTree, g.Classify("root", "a", 0))
	assert.Equal(t, EdgeTree, g.Classify("a", "b", 1))

	// root -> b directly: b is a tree-descendant of root at greater depth.
	assert.Equal(t, EdgeForward, g.Classify("root", "b", 0))
}

func TestEdgesRecordedInDiscoveryOrder(t *testing.T) {
	g := New()
	g.EnsureRoot("root")
	g.Classify("root", "a", 0)
	g.Classify("root", "b", 0)

	edges := g.Edges()
	assert.Len(t, edges, 2)
	assert.Equal(t, "a", edges[0].TargetID)
	assert.Equal(t, "b", edges[1].TargetID)
}
