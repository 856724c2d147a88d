package phases

import (
	"context"
	"fmt"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/eventbus"
	"github.com/ternarybob/siteharvest/internal/ipc"
)

// Download implements §4.13's Download phase: build the Execution Queue from the
// Conflict Resolver's canonical contexts, pump it into the worker pool leaf-first, and
// finish once the queue reports complete.
type Download struct{}

func (Download) Name() Phase { return PhaseDownload }

func (Download) Run(ctx context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseDownload)

	rt.ExecQueue.Build(rt.ConflictResult.Canonical)

	if err := dispatchDownloads(rt); err != nil {
		return err
	}

	for !rt.ExecQueue.IsComplete() {
		select {
		case res := <-rt.ResultCh:
			rt.Pool.Release(res.WorkerID)
			handleDownloadResult(rt, res.Payload)
			if err := dispatchDownloads(rt); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func dispatchDownloads(rt *Runtime) error {
	for {
		proxy, ok := rt.Pool.TryAcquire()
		if !ok {
			return nil
		}

		task, savePath, ok := rt.ExecQueue.Next(rt.Config.Crawl.OutputDir)
		if !ok {
			rt.Pool.Release(proxy.ID)
			return nil
		}

		taskID := common.NewPrefixedID("task")
		if err := proxy.Download(ipc.DownloadPayload{
			TaskID:         taskID,
			URL:            task.Context.URL,
			PageID:         task.Context.ID,
			Depth:          task.Context.Depth,
			SavePath:       savePath,
			Cookies:        rt.Cookies,
			LinkRewriteMap: rt.ConflictResult.RewriteMap,
		}); err != nil {
			rt.ExecQueue.MarkFailed(task.Context.ID)
			continue
		}
	}
}

func handleDownloadResult(rt *Runtime, payload ipc.ResultPayload) {
	var data ipc.DownloadResult
	if err := ipc.Decode(&ipc.Envelope{Payload: payload.Data}, &data); err != nil || data.PageID == "" {
		return
	}

	if payload.Error != nil {
		rt.ExecQueue.MarkFailed(data.PageID)
		rt.Stats.Failed++
		if rt.Logger != nil {
			rt.Logger.Warn().Str("page", data.PageID).Str("kind", string(payload.Error.Kind)).Msg("download task failed")
		}
		if rt.Bus != nil {
			rt.Bus.Emit(eventbus.TopicTaskFailed, eventbus.TaskEventPayload{TaskID: payload.TaskID, TaskType: string(payload.TaskType), Err: ipc.FromWire(payload.Error)})
		}
		return
	}

	for _, asset := range data.Assets {
		if asset.Failed {
			rt.HiddenFiles.RecordFailure(asset.URL, fmt.Errorf("worker reported asset download failure"))
			continue
		}
		rt.HiddenFiles.RecordDownload(asset.URL, asset.SavedPath, 0)
	}

	rt.ExecQueue.MarkComplete(data.PageID) // emits EXECUTION:PROGRESS itself
	rt.Stats.Downloaded++

	if rt.Bus != nil {
		rt.Bus.Emit(eventbus.TopicTaskComplete, eventbus.TaskEventPayload{TaskID: payload.TaskID, TaskType: string(payload.TaskType)})
	}
}
