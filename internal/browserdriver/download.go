package browserdriver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// AssetClaimFunc round-trips an ASSET_QUERY/ASSET_CLAIM_RESULT exchange with the master
// over the worker's single IPC channel, per §4.15's IPC protocol extension. It blocks
// the calling goroutine until the master answers.
type AssetClaimFunc func(assetURL string) (claimed bool, savedPath string, err error)

// DownloadOutput is what Download hands back for encoding into a DOWNLOAD RESULT.
type DownloadOutput struct {
	AssetsDownloaded int
	LinksRewritten   int
	Assets           []ipc.AssetOutcome
}

// Download navigates to url with cookies applied, rewrites every internal href/src it
// recognizes against rewriteMap, downloads any not-yet-claimed asset, and writes the
// final HTML to savePath via the file-writer primitive.
func (d *Driver) Download(ctx context.Context, pageID, rawURL string, cookies []ipc.Cookie, savePath string, rewriteMap map[string]string, claimAsset AssetClaimFunc) (DownloadOutput, error) {
	if err := d.wait(ctx); err != nil {
		return DownloadOutput{}, err
	}

	navCtx, cancel := context.WithTimeout(d.browserCtx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := d.applyCookies(navCtx, cookies); err != nil {
		return DownloadOutput{}, fmt.Errorf("browserdriver: apply cookies: %w", err)
	}

	var html string
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		expandCollapsedContent(),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return DownloadOutput{}, fmt.Errorf("browserdriver: navigate %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DownloadOutput{}, fmt.Errorf("browserdriver: parse %s: %w", rawURL, err)
	}

	out := DownloadOutput{}
	saveDir := filepath.Dir(savePath)

	rewriteAttr := func(sel *goquery.Selection, attr string) {
		val, exists := sel.Attr(attr)
		if !exists || val == "" {
			return
		}
		rewritten := rewriteTarget(pageID, rewriteMap, val)
		if rewritten != val {
			sel.SetAttr(attr, rewritten)
			out.LinksRewritten++
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) { rewriteAttr(s, "href") })

	downloadAsset := func(s *goquery.Selection, attr string) {
		assetURL, exists := s.Attr(attr)
		if !exists || assetURL == "" || isExternalAsset(assetURL, rawURL) {
			return
		}

		claimed, existingPath, err := claimAsset(assetURL)
		if err != nil {
			out.Assets = append(out.Assets, ipc.AssetOutcome{URL: assetURL, Failed: true})
			return
		}
		if claimed {
			if existingPath != "" {
				s.SetAttr(attr, relativeAssetPath(saveDir, existingPath))
			}
			return
		}

		localPath, err := downloadToDisk(navCtx, assetURL, saveDir)
		if err != nil {
			out.Assets = append(out.Assets, ipc.AssetOutcome{URL: assetURL, Failed: true})
			return
		}
		out.AssetsDownloaded++
		out.Assets = append(out.Assets, ipc.AssetOutcome{URL: assetURL, SavedPath: localPath})
		s.SetAttr(attr, relativeAssetPath(saveDir, localPath))
	}

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) { downloadAsset(s, "src") })
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) { downloadAsset(s, "href") })

	finalHTML, err := doc.Html()
	if err != nil {
		return DownloadOutput{}, fmt.Errorf("browserdriver: serialize %s: %w", rawURL, err)
	}

	if err := WriteFile(savePath, []byte(finalHTML)); err != nil {
		return DownloadOutput{}, err
	}

	return out, nil
}

// isExternalAsset reports whether assetURL points off-host from pageURL — external
// assets are left untouched rather than mirrored locally.
func isExternalAsset(assetURL, pageURL string) bool {
	a, err1 := url.Parse(assetURL)
	p, err2 := url.Parse(pageURL)
	if err1 != nil || err2 != nil || a.Host == "" {
		return false
	}
	return err2 == nil && p.Host != "" && !strings.EqualFold(a.Host, p.Host)
}

// downloadToDisk fetches assetURL over plain HTTP (assets are static resources, not
// JS-rendered pages, so a browser round-trip is unnecessary) and writes it under
// saveDir/assets/<basename>.
func downloadToDisk(ctx context.Context, assetURL, saveDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("browserdriver: asset %s returned status %d", assetURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(assetURL)
	if err != nil {
		return "", err
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		name = "asset"
	}

	localPath := filepath.Join(saveDir, "assets", name)
	if err := WriteFile(localPath, body); err != nil {
		return "", err
	}
	return localPath, nil
}

// relativeAssetPath computes the href a page at saveDir should use to reference an asset
// already written to savedPath.
func relativeAssetPath(saveDir, savedPath string) string {
	rel, err := filepath.Rel(saveDir, savedPath)
	if err != nil {
		return savedPath
	}
	return filepath.ToSlash(rel)
}
