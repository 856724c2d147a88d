// Package ipc implements the typed envelope protocol used on every master<->worker
// channel: newline-delimited JSON over the worker subprocess's stdin/stdout, per the
// "worker as a subprocess" design note — the protocol itself is language-agnostic, so a
// conforming worker binary could be rewritten in any language without touching the
// master.
package ipc

import "encoding/json"

// Type identifies the kind of envelope carried on the wire.
type Type string

const (
	// Master -> Worker
	TypeInit       Type = "INIT"
	TypeSetCookies Type = "SET_COOKIES"
	TypeDiscover   Type = "DISCOVER"
	TypeDownload   Type = "DOWNLOAD"
	TypeShutdown   Type = "SHUTDOWN"

	// Master -> Worker (asset coordination, SPEC_FULL.md §4.15 extension)
	TypeAssetClaimResult Type = "ASSET_CLAIM_RESULT"

	// Worker -> Master
	TypeReady  Type = "READY"
	TypeResult Type = "RESULT"

	// Worker -> Master (asset coordination)
	TypeAssetQuery Type = "ASSET_QUERY"
)

// TaskType distinguishes the two RESULT payload shapes.
type TaskType string

const (
	TaskDiscover TaskType = "DISCOVER"
	TaskDownload TaskType = "DOWNLOAD"
)

// Envelope is the wire-level message. Payload is re-decoded by the receiver once Type
// tells it which concrete struct to expect — this mirrors encoding/json's standard
// two-pass pattern for heterogeneous message buses.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Cookie mirrors a single cookie record captured from the first page load.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// PageSnapshot is the flat, cycle-free wire representation of a PageContext. It
// deliberately has no Children field: workers never receive a pointer graph, only
// parentId plus the pre-computed pathSegments, per the "cyclic parent references" design
// note.
type PageSnapshot struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Depth          int      `json:"depth"`
	ParentID       string   `json:"parentId,omitempty"`
	PathSegments   []string `json:"pathSegments"`
	SanitizedTitle string   `json:"sanitizedTitle,omitempty"`
}

// InitPayload is sent once to a freshly spawned worker.
type InitPayload struct {
	Config         InitConfig        `json:"config"`
	TitleRegistry  map[string]string `json:"titleRegistry"`
}

// InitConfig is the subset of configuration a worker needs to operate.
type InitConfig struct {
	PageLoadTimeoutMS   int64   `json:"pageLoadTimeoutMs"`
	NavigationTimeoutMS int64   `json:"navigationTimeoutMs"`
	PostCookieWaitMS    int64   `json:"postCookieWaitMs"`
	AssetRateLimit      float64 `json:"assetRateLimit"`
}

// SetCookiesPayload broadcasts the captured cookie jar to every worker.
type SetCookiesPayload struct {
	Cookies []Cookie `json:"cookies"`
}

// DiscoverPayload dispatches a discovery task.
type DiscoverPayload struct {
	TaskID       string   `json:"taskId"`
	URL          string   `json:"url"`
	PageID       string   `json:"pageId"`
	ParentID     string   `json:"parentId,omitempty"`
	Depth        int      `json:"depth"`
	IsFirstPage  bool     `json:"isFirstPage"`
	Cookies      []Cookie `json:"cookies,omitempty"`
}

// DownloadPayload dispatches a download task. SavePath is always absolute: the Execution
// Queue resolves it with filepath.Abs (and panics if that fails) before this is ever sent.
type DownloadPayload struct {
	TaskID         string            `json:"taskId"`
	URL            string            `json:"url"`
	PageID         string            `json:"pageId"`
	Depth          int               `json:"depth"`
	SavePath       string            `json:"savePath"`
	Cookies        []Cookie          `json:"cookies"`
	LinkRewriteMap map[string]string `json:"linkRewriteMap"`
}

// Link is a discovery result item.
type Link struct {
	URL        string `json:"url"`
	LinkText   string `json:"linkText"`
	Section    string `json:"section,omitempty"`
	Subsection string `json:"subsection,omitempty"`
}

// DiscoveryResult is the RESULT payload data for a DISCOVER task.
type DiscoveryResult struct {
	PageID        string   `json:"pageId"`
	URL           string   `json:"url"`
	ResolvedTitle string   `json:"resolvedTitle"`
	Links         []Link   `json:"links"`
	Cookies       []Cookie `json:"cookies,omitempty"`
}

// AssetOutcome reports what happened to one asset a worker claimed via ASSET_QUERY
// during a DOWNLOAD task, so the master can transition its Hidden File Registry entry
// from pending to its terminal state — the registry is master-owned (§9), so only the
// master's own RecordDownload/RecordFailure calls may perform that transition.
type AssetOutcome struct {
	URL       string `json:"url"`
	SavedPath string `json:"savedPath,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}

// DownloadResult is the RESULT payload data for a DOWNLOAD task. Counts are real,
// worker-measured values (closing the spec's stub-result open question).
type DownloadResult struct {
	PageID           string         `json:"pageId"`
	SavedPath        string         `json:"savedPath"`
	AssetsDownloaded int            `json:"assetsDownloaded"`
	LinksRewritten   int            `json:"linksRewritten"`
	Assets           []AssetOutcome `json:"assets,omitempty"`
}

// ResultPayload carries either a DiscoveryResult or a DownloadResult, or an error.
type ResultPayload struct {
	TaskID   string          `json:"taskId"`
	TaskType TaskType        `json:"taskType"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    *WireError      `json:"error,omitempty"`
}

// ReadyPayload announces a worker process is alive and able to accept commands.
type ReadyPayload struct {
	PID int `json:"pid"`
}

// AssetQueryPayload asks the master whether an asset URL has already been claimed.
type AssetQueryPayload struct {
	RequestID string `json:"requestId"`
	URL       string `json:"url"`
	PageID    string `json:"pageId"`
}

// AssetClaimResultPayload answers an AssetQueryPayload.
type AssetClaimResultPayload struct {
	RequestID string `json:"requestId"`
	URL       string `json:"url"`
	Claimed   bool   `json:"claimed"`
	SavedPath string `json:"savedPath,omitempty"`
}
