package phases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/siteharvest/internal/config"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/workerpool"
)

func testRuntime() *Runtime {
	cfg := config.NewDefaultConfig()
	cfg.Crawl.RootURL = "https://wiki.example.com/abcdef0123456789abcdef0123456789"
	bus := eventbus.New(nil)
	pool := workerpool.New(cfg.WorkerPool, nil, bus)
	return NewRuntime(cfg, nil, bus, pool, "")
}

func TestConflictResolutionPopulatesRewriteMapAndStats(t *testing.T) {
	rt := testRuntime()

	root := pagectx.NewRoot("https://wiki.example.com/abcdef0123456789abcdef0123456789")
	root.ResolveTitle("Home")
	rt.RegisterContext(root)

	child := pagectx.NewChild(root, "https://wiki.example.com/11111111111111111111111111111111", ipc.Link{})
	child.ResolveTitle("Intro")
	rt.RegisterContext(child)

	var strategy ConflictResolution
	err := strategy.Run(context.Background(), rt)
	require.NoError(t, err)

	assert.Equal(t, PhaseConflict, strategy.Name())
	assert.Len(t, rt.ConflictResult.Canonical, 2)
	assert.Equal(t, 2, rt.Stats.Discovered)
}

func TestCompletePhaseFinalizesStatsFromRuntime(t *testing.T) {
	rt := testRuntime()
	rt.Stats.Downloaded = 3
	rt.Stats.Failed = 1

	var strategy Complete
	err := strategy.Run(context.Background(), rt)
	require.NoError(t, err)
	assert.Equal(t, 3, rt.Stats.Downloaded)
	assert.Equal(t, 1, rt.Stats.Failed)
}

func TestConfirmPhaseIsANoopAndEmitsPhaseChanged(t *testing.T) {
	rt := testRuntime()
	received := make(chan eventbus.PhaseChangedPayload, 1)
	rt.Bus.Subscribe(eventbus.TopicPhaseChanged, func(p interface{}) error {
		received <- p.(eventbus.PhaseChangedPayload)
		return nil
	})

	var strategy Confirm
	err := strategy.Run(context.Background(), rt)
	require.NoError(t, err)

	select {
	case p := <-received:
		assert.Equal(t, string(PhaseConfirm), p.Phase)
	default:
		t.Fatal("expected PHASE:CHANGED to be emitted")
	}
}
