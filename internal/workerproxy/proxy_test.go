package workerproxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// newUnlaunched builds a Proxy without calling Launch, for exercising the state machine
// gating logic in isolation from a real subprocess.
func newUnlaunched(state State) *Proxy {
	p := New("w1", nil, nil, nil, nil, nil)
	p.state = state
	p.writer = ipc.NewWriter(discard{})
	return p
}

type discard struct{}

func (discard) Write(b []byte) (int, error) { return len(b), nil }

func TestSendCommandRejectedWhenCrashed(t *testing.T) {
	p := newUnlaunched(StateCrashed)
	err := p.Discover(ipc.DiscoverPayload{TaskID: "t1"})
	assert.ErrorIs(t, err, ErrNotAcceptingCommands)
}

func TestSendCommandRejectedWhenBusy(t *testing.T) {
	p := newUnlaunched(StateBusy)
	err := p.Download(ipc.DownloadPayload{TaskID: "t1"})
	assert.ErrorIs(t, err, ErrNotAcceptingCommands)
}

func TestSendCommandRejectedWhenInitializing(t *testing.T) {
	p := newUnlaunched(StateInitializing)
	err := p.Discover(ipc.DiscoverPayload{TaskID: "t1"})
	assert.ErrorIs(t, err, ErrNotAcceptingCommands)
}

func TestSendCommandTransitionsIdleToBusy(t *testing.T) {
	p := newUnlaunched(StateIdle)
	err := p.Discover(ipc.DiscoverPayload{TaskID: "t1"})
	assert.NoError(t, err)
	assert.Equal(t, StateBusy, p.State())
}

func TestMarkCrashedIsTerminalAndIdempotent(t *testing.T) {
	p := newUnlaunched(StateBusy)
	p.exited = make(chan struct{})
	crashes := 0
	p.onCrash = func(string, error) { crashes++ }
	p.markCrashed(assert.AnError)
	p.markCrashed(assert.AnError)
	assert.Equal(t, StateCrashed, p.State())
	assert.Equal(t, 1, crashes)

	// A later READY/RESULT observation must not resurrect a crashed worker.
	p.setState(StateIdle)
	assert.Equal(t, StateCrashed, p.State())
}

func TestTerminateOnAlreadyCrashedWorkerIsANoop(t *testing.T) {
	p := newUnlaunched(StateCrashed)
	err := p.Terminate(10 * time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, StateTerminated, p.State())
}
