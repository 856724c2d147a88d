package browserdriver

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// DiscoverResult is what Discover hands back to the worker's dispatch loop for encoding
// into a RESULT envelope.
type DiscoverResult struct {
	Title   string
	Links   []ipc.Link
	Cookies []ipc.Cookie // only populated when isFirstPage
}

// Discover navigates to url, waits for the page to settle, expands any collapsed
// content, and extracts links/title. When isFirstPage is true it also captures the
// cookie jar for the master to broadcast, per §4.15.
func (d *Driver) Discover(ctx context.Context, url string, cookies []ipc.Cookie, isFirstPage bool) (DiscoverResult, error) {
	if err := d.wait(ctx); err != nil {
		return DiscoverResult{}, err
	}

	navCtx, cancel := context.WithTimeout(d.browserCtx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := d.applyCookies(navCtx, cookies); err != nil {
		return DiscoverResult{}, fmt.Errorf("browserdriver: apply cookies: %w", err)
	}

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if d.cfg.PostCookieWait > 0 && len(cookies) > 0 {
		actions = append(actions, chromedp.Sleep(d.cfg.PostCookieWait))
	}
	actions = append(actions, expandCollapsedContent(), chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return DiscoverResult{}, fmt.Errorf("browserdriver: navigate %s: %w", url, err)
	}

	page, err := extractPage(html)
	if err != nil {
		return DiscoverResult{}, fmt.Errorf("browserdriver: extract %s: %w", url, err)
	}

	result := DiscoverResult{Title: page.Title, Links: page.Links}

	if isFirstPage {
		jar, err := readCookies(navCtx)
		if err != nil {
			return DiscoverResult{}, fmt.Errorf("browserdriver: read cookies: %w", err)
		}
		result.Cookies = jar
	}

	return result, nil
}

// expandCollapsedContent repeatedly clicks any visible collapsed-content toggle, up to
// maxExpandPasses rounds, then stops — whether or not any toggles remain. A page with
// nothing to expand simply no-ops every pass.
func expandCollapsedContent() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 0; i < maxExpandPasses; i++ {
			var count int
			if err := chromedp.Run(ctx,
				chromedp.Evaluate(fmt.Sprintf(`
					(() => {
						const toggles = document.querySelectorAll(%q);
						toggles.forEach(el => el.click());
						return toggles.length;
					})()
				`, expandToggleSelector), &count),
			); err != nil {
				return err
			}
			if count == 0 {
				return nil
			}
		}
		return nil
	})
}
