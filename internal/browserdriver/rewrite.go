package browserdriver

import (
	"strings"

	"github.com/ternarybob/siteharvest/internal/identity"
	"github.com/ternarybob/siteharvest/internal/pathresolver"
)

// splitFragment separates a raw href into its path+query portion and its fragment
// (without the leading "#"), so the 32-hex block-anchor convention some documentation
// platforms embed as a fragment is never confused with the page's own canonical id.
func splitFragment(href string) (base, fragment string) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i], href[i+1:]
	}
	return href, ""
}

// segmentsFromTargetPath recovers the PathSegments pathresolver.ResolveHref needs from a
// LinkRewriteMap entry, which only carries the flattened "a/b/index.html" form. The root
// page's target path is the bare "index.html", which yields zero segments.
func segmentsFromTargetPath(targetPath string) []string {
	trimmed := strings.TrimSuffix(targetPath, "/index.html")
	if trimmed == targetPath || trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// rewriteTarget resolves one href discovered on the page identified by pageID against
// the run's LinkRewriteMap, implementing the Intra/Inter/External selection described in
// SPEC_FULL.md's Path Resolver component.
func rewriteTarget(pageID string, rewriteMap map[string]string, href string) string {
	base, fragment := splitFragment(href)
	targetID := identity.ExtractCanonicalID(base)

	targetPath, known := rewriteMap[targetID]
	sourcePath := rewriteMap[pageID]

	sameID := targetID == pageID
	return pathresolver.ResolveHref(sameID, known, segmentsFromTargetPath(sourcePath), segmentsFromTargetPath(targetPath), fragment, href)
}
