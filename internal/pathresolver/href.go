// Package pathresolver implements the Path Resolver's two halves (SPEC_FULL.md §4.12 and
// component #15): computing a relative href for a source->target link, and mapping a
// page to its on-disk index.html. Both are pure functions over PathSegments — no teacher
// analogue exists (the reference crawler writes absolute URLs into a single flat output
// directory); the relative-walk algorithm is new to this domain, grounded directly on the
// spec's own algebraic description.
package pathresolver

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// ResolveHref computes the href to write back into source's HTML for a link to target,
// trying Intra-page, Inter-page, then External in order.
//
//   - sourceSegments/targetSegments are the respective pages' PathSegments.
//   - sameID reports whether source and target are the same canonical page
//     (Intra-page strategy).
//   - targetKnown reports whether target resolves to a page this run downloaded at all
//     (false selects External — the href is returned unchanged).
//   - blockID, if non-empty, is the raw 32-hex block id to append as a fragment.
func ResolveHref(sameID, targetKnown bool, sourceSegments, targetSegments []string, blockID, originalHref string) string {
	if sameID {
		if blockID == "" {
			return ""
		}
		return "#" + formatBlockID(blockID)
	}

	if !targetKnown {
		return originalHref
	}

	rel := relativeWalk(sourceSegments, targetSegments)
	if blockID != "" {
		return rel + "#" + formatBlockID(blockID)
	}
	return rel
}

// relativeWalk computes the directory walk from source's segments to target's: drop the
// shared prefix, emit ".." for each remaining source segment, then the target's
// remainder, then "index.html".
func relativeWalk(sourceSegments, targetSegments []string) string {
	shared := 0
	for shared < len(sourceSegments) && shared < len(targetSegments) && sourceSegments[shared] == targetSegments[shared] {
		shared++
	}

	var parts []string
	for i := shared; i < len(sourceSegments); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, targetSegments[shared:]...)
	parts = append(parts, "index.html")

	return path.Join(parts...)
}

// formatBlockID canonicalizes a 32-hex run to the 8-4-4-4-12 UUID form. Already-formatted
// input (containing hyphens) is returned unchanged, which is what makes ResolveHref
// idempotent when run against its own rewritten output.
func formatBlockID(blockID string) string {
	if strings.Contains(blockID, "-") {
		return blockID
	}
	if len(blockID) != 32 {
		return blockID
	}

	id, err := uuid.Parse(blockID)
	if err != nil {
		return blockID
	}
	return id.String()
}

// TargetFilePath maps a page's PathSegments to its on-disk index.html, the filesystem
// half of the Path Resolver (component #15). Root (empty segments) resolves to
// "index.html" directly.
func TargetFilePath(segments []string) string {
	if len(segments) == 0 {
		return "index.html"
	}
	return path.Join(append(append([]string{}, segments...), "index.html")...)
}
