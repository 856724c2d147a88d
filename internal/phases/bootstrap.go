package phases

import (
	"context"
	"fmt"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
	"github.com/ternarybob/siteharvest/internal/pagectx"
	"github.com/ternarybob/siteharvest/internal/workerpool"
)

// Bootstrap implements §4.13's Bootstrap phase: capacity plan, spawn one worker, enqueue
// the root, dispatch its DISCOVER task with isFirstPage=true, wait for captured cookies,
// spawn the remaining workers, broadcast cookies and the (empty) initial title-registry
// snapshot.
type Bootstrap struct{}

func (Bootstrap) Name() Phase { return PhaseBootstrap }

func (Bootstrap) Run(ctx context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseBootstrap)

	capacity := workerpool.DetectCapacity(rt.Config.WorkerPool)

	firstID := "worker-0"
	onResult := func(payload ipc.ResultPayload) { rt.OnResult(firstID, payload) }
	if err := rt.Pool.Spawn(ctx, firstID, rt.WorkerBinary, nil, onResult, rt.OnAssetQuery); err != nil {
		return fmt.Errorf("bootstrap: spawn first worker: %w", err)
	}

	root := pagectx.NewRoot(rt.RootURL)
	rt.Graph.EnsureRoot(root.ID)
	rt.RegisterContext(root)
	rt.DiscoveryQueue.Enqueue(root, true)

	proxy, err := rt.Pool.Acquire(rt.Config.WorkerPool.AllocationTimeout)
	if err != nil {
		return err
	}
	task, _ := rt.DiscoveryQueue.Next()

	initPayload := ipc.InitPayload{
		Config: ipc.InitConfig{
			PageLoadTimeoutMS:   rt.Config.Crawl.PageLoadTimeout.Milliseconds(),
			NavigationTimeoutMS: rt.Config.Crawl.NavigationTimeout.Milliseconds(),
			PostCookieWaitMS:    rt.Config.Crawl.PostCookieWait.Milliseconds(),
			AssetRateLimit:      rt.Config.Crawl.AssetRateLimit,
		},
		TitleRegistry: rt.Titles.Serialize(),
	}
	if err := proxy.Init(initPayload); err != nil {
		return fmt.Errorf("bootstrap: init first worker: %w", err)
	}

	taskID := common.NewPrefixedID("task")
	if err := proxy.Discover(ipc.DiscoverPayload{
		TaskID:      taskID,
		URL:         task.Context.URL,
		PageID:      task.Context.ID,
		Depth:       task.Context.Depth,
		IsFirstPage: true,
	}); err != nil {
		return fmt.Errorf("bootstrap: dispatch first discover: %w", err)
	}

	select {
	case res := <-rt.ResultCh:
		rt.Pool.Release(res.WorkerID)
		if res.Payload.Error != nil {
			rt.DiscoveryQueue.MarkFailed(task.Context.ID)
		} else {
			var data ipc.DiscoveryResult
			_ = ipc.Decode(&ipc.Envelope{Payload: res.Payload.Data}, &data)
			rt.Cookies = data.Cookies
			if rt.Titles.Register(task.Context.ID, data.ResolvedTitle) {
				task.Context.ResolveTitle(data.ResolvedTitle)
			}
			recordChildren(rt, task.Context, data.Links)
			rt.DiscoveryQueue.MarkComplete(task.Context.ID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	for i := 1; i < capacity; i++ {
		id := fmt.Sprintf("worker-%d", i)
		onResult := func(payload ipc.ResultPayload) { rt.OnResult(id, payload) }
		if err := rt.Pool.Spawn(ctx, id, rt.WorkerBinary, nil, onResult, rt.OnAssetQuery); err != nil {
			rt.Logger.Warn().Str("worker", id).Err(err).Msg("failed to spawn worker during bootstrap")
			continue
		}
		if p, err := rt.Pool.Acquire(rt.Config.WorkerPool.AllocationTimeout); err == nil {
			_ = p.Init(initPayload)
			rt.Pool.Release(id)
		}
	}

	if len(rt.Cookies) > 0 {
		broadcastCookies(rt)
	}

	if rt.Bus != nil {
		rt.Bus.Emit(eventbus.TopicBootstrapComplete, nil)
	}
	return nil
}

// broadcastCookies pushes the captured cookie jar to every registered worker, idle or
// busy, via SET_COOKIES. Workers spawned or busy later still receive the jar because every
// subsequent Discover/Download payload also carries rt.Cookies explicitly.
func broadcastCookies(rt *Runtime) {
	for _, p := range rt.Pool.All() {
		if err := p.SetCookies(ipc.SetCookiesPayload{Cookies: rt.Cookies}); err != nil && rt.Logger != nil {
			rt.Logger.Debug().Str("worker", p.ID).Err(err).Msg("SET_COOKIES skipped")
		}
	}
}
