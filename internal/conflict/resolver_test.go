package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/titles"
)

func resolved(id string, depth int, parent string, title string, segments ...string) *pagectx.PageContext {
	return &pagectx.PageContext{
		ID:            id,
		Depth:         depth,
		ParentID:      parent,
		ResolvedTitle: title,
		PathSegments:  segments,
	}
}

func TestResolveSingleGroupPicksOneCanonical(t *testing.T) {
	registry := titles.New()
	ctx := resolved("p1", 1, "root", "Intro", "Intro")

	result := Resolve([]*pagectx.PageContext{ctx}, registry)

	require.Len(t, result.Canonical, 1)
	assert.Equal(t, "p1", result.Canonical[0].ID)
	assert.Equal(t, "Intro/index.html", result.RewriteMap["p1"])
}

// TestDiamondScenario mirrors SPEC_FULL.md §8 scenario 2: root -> A, root -> B, A -> C,
// B -> C. The two discovered Cs share a canonical id; the resolver picks one canonical C,
// and the rewrite map, keyed by id, has one key per id-group (root, a, b, c) mapping to as
// many distinct paths (the duplicate C collapses onto the canonical C's key and path).
func TestDiamondScenario(t *testing.T) {
	registry := titles.New()

	root := resolved("root", 0, "", "Home")
	a := resolved("a", 1, "root", "A", "A")
	b := resolved("b", 1, "root", "B", "B")
	cViaA := resolved("c", 2, "a", "C", "A", "C")
	cViaB := resolved("c-dup", 2, "b", "C", "B", "C")
	cViaB.ID = "c" // same canonical id as cViaA, discovered via a different path

	order := []*pagectx.PageContext{root, a, b, cViaA, cViaB}
	result := Resolve(order, registry)

	assert.Len(t, result.Canonical, 4) // root, a, b, c (c-dup collapses)
	assert.Len(t, result.RewriteMap, 4) // rewrite is keyed by canonical id: root, a, b, c

	distinctPaths := make(map[string]bool)
	for _, p := range result.RewriteMap {
		distinctPaths[p] = true
	}
	assert.Len(t, distinctPaths, 4)

	// The canonical C is the shallower-discovered one (both are depth 2 here; since both
	// are equal depth, first-discovered wins, which is cViaA's path A/C).
	assert.Equal(t, "A/C/index.html", result.RewriteMap["c"])
}

func TestRootAlwaysWinsRegardlessOfOtherMetadata(t *testing.T) {
	registry := titles.New()
	root := resolved("shared", 0, "", "Home")
	dup := resolved("shared", 3, "other", "Home Again", "deep", "path")
	dup.Section = "Some Section"

	result := Resolve([]*pagectx.PageContext{root, dup}, registry)

	require.Len(t, result.Canonical, 1)
	assert.Equal(t, "index.html", result.Canonical[0].TargetFilePath)
}

func TestResolveIsIdempotentOnCanonicalOutput(t *testing.T) {
	registry := titles.New()
	ctx := resolved("p1", 1, "root", "Intro", "Intro")

	first := Resolve([]*pagectx.PageContext{ctx}, registry)
	second := Resolve(first.Canonical, registry)

	assert.Equal(t, first.RewriteMap, second.RewriteMap)
}
