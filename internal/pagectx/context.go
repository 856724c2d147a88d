// Package pagectx defines PageContext, the master-side entity for one discovered URL
// (SPEC_FULL.md §3), and the snapshot conversion used to ship a cycle-free view of it
// across IPC.
package pagectx

import (
	"github.com/ternarybob/siteharvest/internal/identity"
	"github.com/ternarybob/siteharvest/internal/ipc"
)

// PageContext is one entity per discovered URL. Invariants (enforced by NewRoot/NewChild and by the
// components that mutate pathSegments/resolvedTitle):
//
//	(i)   ID is stable and unique per canonical page.
//	(ii)  Depth == len(PathSegments) except at the root.
//	(iii) ParentID == "" iff Depth == 0.
//	(iv)  PathSegments survive serialization exactly.
//	(v)   A context is discovered once it exists in the registry; resolved once
//	      ResolvedTitle is set; canonical once the Conflict Resolver has chosen it.
type PageContext struct {
	ID             string
	URL            string
	Depth          int
	ParentID       string
	RawTitle       string
	ResolvedTitle  string
	SanitizedTitle string
	PathSegments   []string
	Section        string
	Subsection     string
	Children       []*PageContext
	TargetFilePath string
}

// NewRoot constructs the root context (Depth 0, no parent, empty PathSegments).
func NewRoot(url string) *PageContext {
	id := identity.ExtractCanonicalID(url)
	return &PageContext{
		ID:           id,
		URL:          url,
		Depth:        0,
		PathSegments: []string{},
	}
}

// NewChild constructs a context discovered via a link from parent. PathSegments starts
// here as a copy of parent's segments and is completed by ResolveTitle, which appends this
// page's own segment; it is never recomputed from a parent pointer chain, because workers
// only ever receive the serialized form and no parent pointer chain survives IPC.
func NewChild(parent *PageContext, url string, link ipc.Link) *PageContext {
	id := identity.ExtractCanonicalID(url)
	segments := make([]string, len(parent.PathSegments), len(parent.PathSegments)+1)
	copy(segments, parent.PathSegments)

	return &PageContext{
		ID:           id,
		URL:          url,
		Depth:        parent.Depth + 1,
		ParentID:     parent.ID,
		PathSegments: segments, // finalized once ResolveTitle fills SanitizedTitle
		Section:      link.Section,
		Subsection:   link.Subsection,
	}
}

// ResolveTitle sets ResolvedTitle/SanitizedTitle and — for non-root contexts — appends
// the new sanitized segment to PathSegments. This is the only mutation PathSegments
// receives after construction, and it happens exactly once per context (the Title
// Registry is first-writer-wins, so a context's ResolveTitle call site guarantees this
// runs at most once in practice).
func (c *PageContext) ResolveTitle(title string) {
	c.ResolvedTitle = title
	c.SanitizedTitle = identity.Sanitize(title)
	if c.Depth > 0 {
		c.PathSegments = append(c.PathSegments, c.SanitizedTitle)
	}
}

// Snapshot converts to the flat, IPC-safe wire representation.
func (c *PageContext) Snapshot() ipc.PageSnapshot {
	segments := make([]string, len(c.PathSegments))
	copy(segments, c.PathSegments)
	return ipc.PageSnapshot{
		ID:             c.ID,
		URL:            c.URL,
		Depth:          c.Depth,
		ParentID:       c.ParentID,
		PathSegments:   segments,
		SanitizedTitle: c.SanitizedTitle,
	}
}

// FromSnapshot reconstructs a worker-side PageContext from a wire snapshot. Round-tripping
// through Snapshot/FromSnapshot preserves ID, URL, Depth, PathSegments, ParentID; the
// Children pointer graph is allowed to be nil/empty after round-trip, and path
// computations (pathresolver) still work because they only ever consult PathSegments.
func FromSnapshot(s ipc.PageSnapshot) *PageContext {
	segments := make([]string, len(s.PathSegments))
	copy(segments, s.PathSegments)
	return &PageContext{
		ID:             s.ID,
		URL:            s.URL,
		Depth:          s.Depth,
		ParentID:       s.ParentID,
		PathSegments:   segments,
		SanitizedTitle: s.SanitizedTitle,
	}
}
