// Package conflict implements the Conflict Resolver (SPEC_FULL.md §4.7): it groups
// discovered contexts by canonical id, picks one canonical context per group, assigns
// each canonical context its on-disk target path, and emits a LinkRewriteMap sending
// every id in every group to its canonical path. The resolver is pure and idempotent when
// applied to its own canonical output.
package conflict

import (
	"path"
	"strings"

	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/titles"
)

// LinkRewriteMap maps every id in every id-group (canonical and duplicates alike) to the
// canonical context's TargetFilePath.
type LinkRewriteMap map[string]string

// Result is the resolver's output: the canonical contexts (one per id-group) and the
// rewrite map covering every discovered id.
type Result struct {
	Canonical  []*pagectx.PageContext
	RewriteMap LinkRewriteMap
}

// Resolve applies resolved titles to every context, groups by canonical id, selects a
// canonical context per group, assigns target file paths, and builds the rewrite map.
// discoveryOrder must list contexts in the order they were first discovered — it is the
// tie-break for both canonical selection and determinism.
func Resolve(discoveryOrder []*pagectx.PageContext, registry *titles.Registry) Result {
	// Step 1: apply resolved titles (updates SanitizedTitle/PathSegments).
	for _, ctx := range discoveryOrder {
		if ctx.ResolvedTitle != "" {
			continue // already resolved (e.g. root resolved during Bootstrap)
		}
		if title, ok := registry.Get(ctx.ID); ok {
			ctx.ResolveTitle(title)
		}
	}

	// Step 2: group by canonical id, preserving first-seen order within each group.
	groups := make(map[string][]*pagectx.PageContext)
	var groupOrder []string
	for _, ctx := range discoveryOrder {
		if _, seen := groups[ctx.ID]; !seen {
			groupOrder = append(groupOrder, ctx.ID)
		}
		groups[ctx.ID] = append(groups[ctx.ID], ctx)
	}

	rewrite := make(LinkRewriteMap)
	canonical := make([]*pagectx.PageContext, 0, len(groupOrder))

	for _, id := range groupOrder {
		members := groups[id]
		winner := pickCanonical(members)
		winner.TargetFilePath = targetFilePath(winner)

		for _, m := range members {
			rewrite[m.ID] = winner.TargetFilePath
		}
		canonical = append(canonical, winner)
	}

	return Result{Canonical: canonical, RewriteMap: rewrite}
}

// pickCanonical applies the tie-break rules in order: depth == 0 wins; else a context
// carrying section/subsection metadata beats one without; else smaller depth wins; else
// first-discovered (members is already in discovery order, so the first remaining
// candidate after the above filters is the answer).
func pickCanonical(members []*pagectx.PageContext) *pagectx.PageContext {
	for _, m := range members {
		if m.Depth == 0 {
			return m
		}
	}

	withMetadata := make([]*pagectx.PageContext, 0, len(members))
	for _, m := range members {
		if m.Section != "" || m.Subsection != "" {
			withMetadata = append(withMetadata, m)
		}
	}
	candidates := members
	if len(withMetadata) > 0 {
		candidates = withMetadata
	}

	best := candidates[0]
	for _, m := range candidates[1:] {
		if m.Depth < best.Depth {
			best = m
		}
	}
	return best
}

// targetFilePath joins PathSegments with "index.html"; the root's path is "index.html".
func targetFilePath(ctx *pagectx.PageContext) string {
	if len(ctx.PathSegments) == 0 {
		return "index.html"
	}
	return path.Join(strings.Join(ctx.PathSegments, "/"), "index.html")
}
