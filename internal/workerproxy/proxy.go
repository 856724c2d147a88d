// Package workerproxy implements the master-side Worker Proxy (SPEC_FULL.md §4.10): one
// instance per worker subprocess, owning its os/exec.Cmd, stdio-backed IPC channel, and
// state machine. The pool manager (internal/workerpool) talks to workers exclusively
// through this type — nothing else dials os/exec directly.
package workerproxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/ipc"
)

// State is the worker's master-observed lifecycle state.
type State string

const (
	StateInitializing State = "INITIALIZING"
	StateIdle         State = "IDLE"
	StateBusy         State = "BUSY"
	StateCrashed      State = "CRASHED"
	StateTerminated   State = "TERMINATED"
)

// ErrNotAcceptingCommands is returned when sendCommand is attempted against a worker
// that is not IDLE (INITIALIZING, BUSY, CRASHED or TERMINATED).
var ErrNotAcceptingCommands = fmt.Errorf("workerproxy: worker not accepting commands")

// ResultHandler is invoked on the proxy's read pump for every RESULT envelope.
type ResultHandler func(ipc.ResultPayload)

// AssetQueryHandler answers a worker's ASSET_QUERY.
type AssetQueryHandler func(ipc.AssetQueryPayload) ipc.AssetClaimResultPayload

// Proxy owns one worker subprocess.
type Proxy struct {
	ID string

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	stdin io.WriteCloser
	pid   int

	writer *ipc.Writer

	logger arbor.ILogger

	onResult     ResultHandler
	onAssetQuery AssetQueryHandler
	onReady      func(id string)
	onCrash      func(id string, err error)

	exited chan struct{}
}

// New constructs a Proxy in the INITIALIZING state. Launch must be called before any
// command can be sent. onReady fires exactly once, the first time the worker transitions
// INITIALIZING -> IDLE (on its READY envelope) — the pool uses it to push the worker onto
// the idle stack for the first time.
func New(id string, logger arbor.ILogger, onResult ResultHandler, onAssetQuery AssetQueryHandler, onReady func(string), onCrash func(string, error)) *Proxy {
	return &Proxy{
		ID:           id,
		state:        StateInitializing,
		logger:       logger,
		onResult:     onResult,
		onAssetQuery: onAssetQuery,
		onReady:      onReady,
		onCrash:      onCrash,
		exited:       make(chan struct{}),
	}
}

// Launch starts the worker binary and wires its stdin/stdout through the IPC codec. The
// read pump runs on a SafeGo goroutine: a panic there is logged, not fatal to the master.
func (p *Proxy) Launch(ctx context.Context, workerBinary string, args ...string) error {
	cmd := exec.CommandContext(ctx, workerBinary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("workerproxy: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("workerproxy: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("workerproxy: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("workerproxy: start: %w", err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.stdin = stdin
	p.pid = cmd.Process.Pid
	p.writer = ipc.NewWriter(stdin)
	p.mu.Unlock()

	common.SafeGo(p.logger, "workerproxy-stderr-"+p.ID, func() { p.pumpStderr(stderr) })
	common.SafeGo(p.logger, "workerproxy-stdout-"+p.ID, func() { p.pumpStdout(stdout) })
	common.SafeGo(p.logger, "workerproxy-wait-"+p.ID, func() { p.waitForExit() })

	return nil
}

func (p *Proxy) pumpStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if p.logger != nil {
			p.logger.Warn().Str("worker", p.ID).Str("stderr", scanner.Text()).Msg("worker stderr")
		}
	}
}

func (p *Proxy) pumpStdout(stdout io.Reader) {
	reader := ipc.NewReader(stdout)
	for {
		env, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			p.markCrashed(err)
			return
		}

		switch env.Type {
		case ipc.TypeReady:
			var payload ipc.ReadyPayload
			_ = ipc.Decode(env, &payload)
			p.setState(StateIdle)
			if p.logger != nil {
				p.logger.Info().Str("worker", p.ID).Int("pid", payload.PID).Msg("worker ready")
			}
			if p.onReady != nil {
				p.onReady(p.ID)
			}

		case ipc.TypeResult:
			var payload ipc.ResultPayload
			if err := ipc.Decode(env, &payload); err != nil {
				if p.logger != nil {
					p.logger.Warn().Str("worker", p.ID).Err(err).Msg("dropped malformed RESULT envelope")
				}
				continue
			}
			p.setState(StateIdle)
			if p.onResult != nil {
				p.onResult(payload)
			}

		case ipc.TypeAssetQuery:
			var payload ipc.AssetQueryPayload
			if err := ipc.Decode(env, &payload); err != nil {
				continue
			}
			if p.onAssetQuery != nil {
				result := p.onAssetQuery(payload)
				if err := p.writer.Send(ipc.TypeAssetClaimResult, result); err != nil && p.logger != nil {
					p.logger.Warn().Str("worker", p.ID).Err(err).Msg("failed to answer asset query")
				}
			}

		default:
			if p.logger != nil {
				p.logger.Warn().Str("worker", p.ID).Str("type", string(env.Type)).Msg("dropped envelope of unexpected type")
			}
		}
	}
}

func (p *Proxy) waitForExit() {
	err := p.cmd.Wait()
	close(p.exited)

	p.mu.Lock()
	already := p.state == StateTerminated
	p.mu.Unlock()
	if already {
		return
	}

	p.markCrashed(fmt.Errorf("worker process exited: %w", err))
}

func (p *Proxy) markCrashed(err error) {
	p.mu.Lock()
	if p.state == StateCrashed || p.state == StateTerminated {
		p.mu.Unlock()
		return
	}
	p.state = StateCrashed
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Error().Str("worker", p.ID).Err(err).Msg("worker crashed")
	}
	if p.onCrash != nil {
		p.onCrash(p.ID, err)
	}
}

func (p *Proxy) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCrashed || p.state == StateTerminated {
		return
	}
	p.state = s
}

// State returns the current lifecycle state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PID returns the worker's OS process id, valid after Launch.
func (p *Proxy) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// sendCommand transitions IDLE -> BUSY and writes the envelope. Rejected outright in any
// other state (§4.10: "no command is dispatched to a worker in BUSY or CRASHED state").
func (p *Proxy) sendCommand(t ipc.Type, payload interface{}) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrNotAcceptingCommands
	}
	p.state = StateBusy
	writer := p.writer
	p.mu.Unlock()

	if err := writer.Send(t, payload); err != nil {
		p.markCrashed(err)
		return err
	}
	return nil
}

// Init sends the one-time INIT envelope. It is called once per worker, after Spawn has
// seen the worker's READY; unlike sendCommand it produces no RESULT, so it bypasses the
// IDLE->BUSY gate.
func (p *Proxy) Init(payload ipc.InitPayload) error {
	p.mu.Lock()
	writer := p.writer
	p.mu.Unlock()
	return writer.Send(ipc.TypeInit, payload)
}

// SetCookies broadcasts the captured cookie jar. Unlike Discover/Download this produces
// no RESULT, so it bypasses sendCommand's IDLE->BUSY gate entirely — it is not a task,
// just an update to the worker's cookie jar, and must be deliverable while a task is
// in flight too. Rejected while the worker is INITIALIZING and once it is CRASHED or
// TERMINATED.
func (p *Proxy) SetCookies(payload ipc.SetCookiesPayload) error {
	p.mu.Lock()
	if p.state == StateCrashed || p.state == StateTerminated || p.state == StateInitializing {
		state := p.state
		p.mu.Unlock()
		return fmt.Errorf("workerproxy: cannot set cookies in state %s: %w", state, ErrNotAcceptingCommands)
	}
	writer := p.writer
	p.mu.Unlock()

	return writer.Send(ipc.TypeSetCookies, payload)
}

// Discover dispatches a DISCOVER task.
func (p *Proxy) Discover(payload ipc.DiscoverPayload) error {
	return p.sendCommand(ipc.TypeDiscover, payload)
}

// Download dispatches a DOWNLOAD task.
func (p *Proxy) Download(payload ipc.DownloadPayload) error {
	return p.sendCommand(ipc.TypeDownload, payload)
}

// Terminate sends SHUTDOWN and waits up to grace for the process to exit on its own
// before force-killing it.
func (p *Proxy) Terminate(grace time.Duration) error {
	p.mu.Lock()
	if p.state == StateTerminated {
		p.mu.Unlock()
		return nil
	}
	if p.state == StateCrashed {
		p.state = StateTerminated
		p.mu.Unlock()
		return nil
	}
	writer := p.writer
	cmd := p.cmd
	p.state = StateTerminated
	p.mu.Unlock()

	_ = writer.Send(ipc.TypeShutdown, nil)

	select {
	case <-p.exited:
		return nil
	case <-time.After(grace):
		if p.logger != nil {
			p.logger.Warn().Str("worker", p.ID).Msg("worker did not exit within grace window, killing")
		}
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-p.exited
		return nil
	}
}
