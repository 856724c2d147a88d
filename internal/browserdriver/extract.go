package browserdriver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// extractedPage is everything Discover needs to pull out of one rendered page's HTML.
type extractedPage struct {
	Title string
	Links []ipc.Link
}

// extractPage walks the rendered HTML with goquery, collecting every anchor's href, link
// text, and nearest heading ancestor (used as section/subsection hints), plus the page
// title. Grounded on the reference's link_extractor.go `extractLinksFromDocument`, kept
// to <a href> only: this spec's link graph is page-to-page navigation, not the
// reference's broader "images/canonical/alternate are content too" net.
func extractPage(html string) (extractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return extractedPage{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var links []ipc.Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || shouldSkipHref(href) {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		section, subsection := nearestHeadings(s)
		links = append(links, ipc.Link{
			URL:        href,
			LinkText:   strings.TrimSpace(s.Text()),
			Section:    section,
			Subsection: subsection,
		})
	})

	return extractedPage{Title: title, Links: links}, nil
}

// shouldSkipHref mirrors the reference's shouldSkipLink: javascript:/mailto:/tel:/
// fragment-only/data: links are never page navigation.
func shouldSkipHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" || strings.HasPrefix(h, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

// nearestHeadings walks backwards through preceding siblings and ancestors looking for
// the closest h1/h2 (section) and h3/h4 (subsection), giving the Conflict Resolver a
// tie-break hint per §4.10.
func nearestHeadings(s *goquery.Selection) (section, subsection string) {
	node := s
	for node.Length() > 0 {
		if h := closestPrecedingHeading(node, "h1, h2"); h != "" && section == "" {
			section = h
		}
		if h := closestPrecedingHeading(node, "h3, h4"); h != "" && subsection == "" {
			subsection = h
		}
		if section != "" && subsection != "" {
			break
		}
		node = node.Parent()
	}
	return section, subsection
}

func closestPrecedingHeading(s *goquery.Selection, selector string) string {
	heading := s.PrevAllFiltered(selector).First()
	return strings.TrimSpace(heading.Text())
}

// expandToggleSelector targets the common "collapsed section" affordance used by
// documentation sites rendered with client-side JS, per §4.15's "expand collapsed
// content" requirement.
const expandToggleSelector = `button[aria-expanded="false"]`

// maxExpandPasses bounds how many rounds of toggle-clicking Discover performs before
// giving up, so a page with an unbounded accordion cannot hang a worker indefinitely.
const maxExpandPasses = 5
