package phases

import (
	"context"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
)

// Discovery implements §4.13's Discovery phase: an event-driven loop that pumps the
// frontier into the worker pool and, on every RESULT, feeds the Title Registry and Page
// Graph, until the Discovery Queue reaches quiescence (DISCOVERY:ALL_IDLE) or the 30
// minute no-progress phase timeout fires.
type Discovery struct{}

func (Discovery) Name() Phase { return PhaseDiscovery }

func (Discovery) Run(ctx context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseDiscovery)

	allIdle, cancelSub := waitOnce(rt.Bus, eventbus.TopicDiscoveryAllIdle)
	defer cancelSub()

	timeout, stopTimeout := newTimer(rt.Config.Crawl.DiscoveryTimeout)
	defer stopTimeout()

	// Dispatch runs once here and again after every RESULT (once its worker has been
	// released), so the loop below never busy-polls for idle workers.
	if err := dispatchPending(ctx, rt); err != nil {
		return err
	}

	for {
		select {
		case res := <-rt.ResultCh:
			rt.Pool.Release(res.WorkerID)
			handleDiscoveryResult(rt, res.Payload)

			if !timeout.Stop() {
				<-timeout.C
			}
			timeout.Reset(rt.Config.Crawl.DiscoveryTimeout)

			if err := dispatchPending(ctx, rt); err != nil {
				return err
			}

		case <-allIdle:
			if rt.DiscoveryQueue.IsComplete() {
				return nil
			}

		case <-timeout.C:
			return ipc.NewError(ipc.KindPhaseTimeout, "discovery phase: no task completion within timeout", nil)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatchPending drains as much of the frontier as there are idle workers, absorbing
// DEPTH_LIMIT tasks without consuming a worker.
func dispatchPending(ctx context.Context, rt *Runtime) error {
	for {
		proxy, ok := rt.Pool.TryAcquire()
		if !ok {
			return nil
		}

		task, ok := rt.DiscoveryQueue.Next()
		if !ok {
			rt.Pool.Release(proxy.ID)
			return nil
		}

		if rt.Config.Crawl.MaxDepth > 0 && task.Context.Depth >= rt.Config.Crawl.MaxDepth {
			rt.Pool.Release(proxy.ID)
			rt.DiscoveryQueue.MarkFailed(task.Context.ID) // DEPTH_LIMIT: absorbed, not a worker-consuming failure
			continue
		}

		taskID := common.NewPrefixedID("task")
		if err := proxy.Discover(ipc.DiscoverPayload{
			TaskID:   taskID,
			URL:      task.Context.URL,
			PageID:   task.Context.ID,
			ParentID: task.Context.ParentID,
			Depth:    task.Context.Depth,
			Cookies:  rt.Cookies,
		}); err != nil {
			rt.DiscoveryQueue.MarkFailed(task.Context.ID)
			continue
		}
	}
}

// handleDiscoveryResult decodes a DISCOVER RESULT and updates the Title Registry, Page
// Graph, and Discovery Queue accordingly. Workers echo the original pageId inside
// DiscoveryResult.Data even on failure, so this is the sole correlation key needed.
func handleDiscoveryResult(rt *Runtime, payload ipc.ResultPayload) {
	var data ipc.DiscoveryResult
	if err := ipc.Decode(&ipc.Envelope{Payload: payload.Data}, &data); err != nil || data.PageID == "" {
		return
	}

	source, found := rt.Context(data.PageID)
	if !found {
		return
	}

	if payload.Error != nil {
		rt.DiscoveryQueue.MarkFailed(data.PageID)
		if rt.Logger != nil {
			rt.Logger.Warn().Str("page", data.PageID).Str("kind", string(payload.Error.Kind)).Msg("discovery task failed")
		}
		if rt.Bus != nil {
			rt.Bus.Emit(eventbus.TopicTaskFailed, eventbus.TaskEventPayload{TaskID: payload.TaskID, TaskType: string(payload.TaskType), Err: ipc.FromWire(payload.Error)})
		}
		return
	}

	if rt.Titles.Register(data.PageID, data.ResolvedTitle) {
		source.ResolveTitle(data.ResolvedTitle)
	}
	if len(data.Cookies) > 0 && len(rt.Cookies) == 0 {
		rt.Cookies = data.Cookies
	}

	recordChildren(rt, source, data.Links)
	rt.DiscoveryQueue.MarkComplete(data.PageID)

	if rt.Bus != nil {
		rt.Bus.Emit(eventbus.TopicDiscoveryProgress, eventbus.DiscoveryProgressPayload{
			Discovered:   len(rt.DiscoveryOrder()),
			QueueLength:  rt.DiscoveryQueue.QueueLength(),
			PendingCount: rt.DiscoveryQueue.PendingCount(),
		})
		rt.Bus.Emit(eventbus.TopicTaskComplete, eventbus.TaskEventPayload{TaskID: payload.TaskID, TaskType: string(payload.TaskType)})
	}
}
