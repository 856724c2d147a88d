package browserdriver

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// setCookiesAction builds a chromedp.Action that installs every wire Cookie via the
// Network domain's SetCookies command.
func setCookiesAction(cookies []ipc.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			params = append(params, &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return network.SetCookies(params).Do(ctx)
	})
}

// readCookies captures the current cookie jar via the Network domain, used on the first
// page load so the master can broadcast it to every other worker.
func readCookies(ctx context.Context) ([]ipc.Cookie, error) {
	var wire []*network.Cookie
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		wire = cookies
		return nil
	})); err != nil {
		return nil, err
	}

	out := make([]ipc.Cookie, 0, len(wire))
	for _, c := range wire {
		out = append(out, ipc.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return out, nil
}
