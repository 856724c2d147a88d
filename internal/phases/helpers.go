package phases

import (
	"github.com/ternarybob/siteharvest/internal/identity"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/pagegraph"
)

// recordChildren walks a DISCOVER result's links, classifying each edge against the Page
// Graph and enqueuing the ones that turn out to be tree edges — the only edges that
// extend the frontier, per §4.6: "a tree edge is the only kind that extends the
// frontier; forward/back/cross edges are recorded for the graph but never re-enqueue
// their target."
func recordChildren(rt *Runtime, source *pagectx.PageContext, links []ipc.Link) {
	for _, link := range links {
		targetID := identity.ExtractCanonicalID(link.URL)
		kind := rt.Graph.Classify(source.ID, targetID, source.Depth)

		if kind != pagegraph.EdgeTree {
			continue
		}

		child := pagectx.NewChild(source, link.URL, link)
		rt.RegisterContext(child)
		rt.DiscoveryQueue.Enqueue(child, false)
	}
}
