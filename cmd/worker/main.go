// Command worker is the subprocess binary spawned once per pool slot by the master
// (internal/workerpool.Pool.Spawn via os/exec). It owns exactly one browser instance
// (internal/browserdriver) for its entire lifetime and drives it from IPC commands read
// off stdin, writing RESULT/READY/ASSET_QUERY envelopes back on stdout. Nothing but the
// internal/ipc wire protocol may ever touch stdout — all logging goes to a per-worker
// file, per DESIGN.md's note on keeping the IPC channel uncontaminated.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/browserdriver"
	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/logging"
)

func main() {
	defer common.RecoverWithCrashFile()

	pid := os.Getpid()
	logger := logging.Setup(config.LoggingConfig{Output: []string{"file"}, Level: "info"}, fmt.Sprintf("worker-%d", pid))

	w := &worker{
		reader: ipc.NewReader(os.Stdin),
		writer: ipc.NewWriter(os.Stdout),
		logger: logger,
		pid:    pid,
	}
	w.run()
}

// worker holds the process-lifetime state: one browser driver, the IPC codec pair, and
// the most recently broadcast cookie jar (used as a fallback when a dispatched task's
// own payload omits cookies — every DISCOVER/DOWNLOAD after the first carries them
// explicitly, per internal/phases' dispatch loops).
type worker struct {
	reader *ipc.Reader
	writer *ipc.Writer
	logger arbor.ILogger
	pid    int

	driver  *browserdriver.Driver
	cookies []ipc.Cookie
}

func (w *worker) run() {
	driver, err := browserdriver.New(browserdriver.Config{
		PageLoadTimeout:   30 * time.Second,
		NavigationTimeout: 30 * time.Second,
		PostCookieWait:    500 * time.Millisecond,
		AssetRateLimit:    4,
	}, w.logger)
	if err != nil {
		w.logger.Fatal().Err(err).Msg("failed to launch browser")
		return
	}
	w.driver = driver
	defer driver.Close()

	if err := w.writer.Send(ipc.TypeReady, ipc.ReadyPayload{PID: w.pid}); err != nil {
		w.logger.Fatal().Err(err).Msg("failed to send READY")
		return
	}

	for {
		env, err := w.reader.Next()
		if err != nil {
			w.logger.Info().Err(err).Msg("ipc channel closed, exiting")
			return
		}

		switch env.Type {
		case ipc.TypeInit:
			w.handleInit(env)
		case ipc.TypeSetCookies:
			w.handleSetCookies(env)
		case ipc.TypeDiscover:
			w.handleDiscover(env)
		case ipc.TypeDownload:
			w.handleDownload(env)
		case ipc.TypeShutdown:
			w.logger.Info().Msg("received SHUTDOWN, exiting")
			return
		default:
			w.logger.Warn().Str("type", string(env.Type)).Msg("dropped unexpected envelope")
		}
	}
}

func (w *worker) handleInit(env *ipc.Envelope) {
	var payload ipc.InitPayload
	if err := ipc.Decode(env, &payload); err != nil {
		w.logger.Warn().Err(err).Msg("dropped malformed INIT envelope")
		return
	}
	w.driver.ApplyConfig(browserdriver.Config{
		PageLoadTimeout:   time.Duration(payload.Config.PageLoadTimeoutMS) * time.Millisecond,
		NavigationTimeout: time.Duration(payload.Config.NavigationTimeoutMS) * time.Millisecond,
		PostCookieWait:    time.Duration(payload.Config.PostCookieWaitMS) * time.Millisecond,
		AssetRateLimit:    payload.Config.AssetRateLimit,
	})
}

func (w *worker) handleSetCookies(env *ipc.Envelope) {
	var payload ipc.SetCookiesPayload
	if err := ipc.Decode(env, &payload); err != nil {
		w.logger.Warn().Err(err).Msg("dropped malformed SET_COOKIES envelope")
		return
	}
	w.cookies = payload.Cookies
}

func (w *worker) effectiveCookies(payloadCookies []ipc.Cookie) []ipc.Cookie {
	if len(payloadCookies) > 0 {
		return payloadCookies
	}
	return w.cookies
}

func (w *worker) handleDiscover(env *ipc.Envelope) {
	var payload ipc.DiscoverPayload
	if err := ipc.Decode(env, &payload); err != nil {
		w.logger.Warn().Err(err).Msg("dropped malformed DISCOVER envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := w.driver.Discover(ctx, payload.URL, w.effectiveCookies(payload.Cookies), payload.IsFirstPage)
	if err != nil {
		w.sendResult(payload.TaskID, ipc.TaskDiscover, ipc.DiscoveryResult{PageID: payload.PageID, URL: payload.URL}, classifyError(err))
		return
	}

	w.sendResult(payload.TaskID, ipc.TaskDiscover, ipc.DiscoveryResult{
		PageID:        payload.PageID,
		URL:           payload.URL,
		ResolvedTitle: result.Title,
		Links:         result.Links,
		Cookies:       result.Cookies,
	}, nil)
}

func (w *worker) handleDownload(env *ipc.Envelope) {
	var payload ipc.DownloadPayload
	if err := ipc.Decode(env, &payload); err != nil {
		w.logger.Warn().Err(err).Msg("dropped malformed DOWNLOAD envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	claim := func(assetURL string) (bool, string, error) {
		return w.queryAssetClaim(assetURL, payload.PageID)
	}

	out, err := w.driver.Download(ctx, payload.PageID, payload.URL, w.effectiveCookies(payload.Cookies), payload.SavePath, payload.LinkRewriteMap, claim)
	if err != nil {
		w.sendResult(payload.TaskID, ipc.TaskDownload, ipc.DownloadResult{PageID: payload.PageID}, classifyError(err))
		return
	}

	w.sendResult(payload.TaskID, ipc.TaskDownload, ipc.DownloadResult{
		PageID:           payload.PageID,
		SavedPath:        payload.SavePath,
		AssetsDownloaded: out.AssetsDownloaded,
		LinksRewritten:   out.LinksRewritten,
		Assets:           out.Assets,
	}, nil)
}

// queryAssetClaim sends ASSET_QUERY and blocks this worker's single-threaded task loop
// until the matching ASSET_CLAIM_RESULT arrives, per §4.15's IPC protocol extension. A
// SHUTDOWN seen while waiting takes priority and aborts the in-flight task.
func (w *worker) queryAssetClaim(assetURL, pageID string) (bool, string, error) {
	requestID := common.NewPrefixedID("assetreq")
	if err := w.writer.Send(ipc.TypeAssetQuery, ipc.AssetQueryPayload{RequestID: requestID, URL: assetURL, PageID: pageID}); err != nil {
		return false, "", err
	}

	for {
		env, err := w.reader.Next()
		if err != nil {
			return false, "", err
		}
		switch env.Type {
		case ipc.TypeAssetClaimResult:
			var payload ipc.AssetClaimResultPayload
			if decodeErr := ipc.Decode(env, &payload); decodeErr != nil || payload.RequestID != requestID {
				continue
			}
			return payload.Claimed, payload.SavedPath, nil
		case ipc.TypeShutdown:
			return false, "", context.Canceled
		default:
			w.logger.Debug().Str("type", string(env.Type)).Msg("dropped envelope while awaiting asset claim result")
		}
	}
}

func (w *worker) sendResult(taskID string, taskType ipc.TaskType, data interface{}, wireErr *ipc.WireError) {
	raw, err := json.Marshal(data)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to marshal result data")
		return
	}
	if err := w.writer.Send(ipc.TypeResult, ipc.ResultPayload{TaskID: taskID, TaskType: taskType, Data: raw, Error: wireErr}); err != nil {
		w.logger.Error().Err(err).Msg("failed to send RESULT")
	}
}

func classifyError(err error) *ipc.WireError {
	var ipcErr *ipc.Error
	if e, ok := err.(*ipc.Error); ok {
		ipcErr = e
	} else {
		ipcErr = ipc.NewError(ipc.KindNavigationTimeout, err.Error(), err)
	}
	return ipcErr.ToWire()
}
