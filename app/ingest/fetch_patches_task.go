package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// FetchPatchesTask walks one project's upstream patch feed page by page,
// up to the pipeline's max pages per run. Remaining pages are picked up on
// the next scheduled run. When discussion fetching is enabled, a
// FetchDiscussionsTask is fanned out for every stored patch that carries a
// message id.
type FetchPatchesTask struct {
	Task
	pipeline  *Pipeline
	scheduler TaskSchedulerInterface
}

func NewFetchPatchesTask(pipeline *Pipeline, scheduler TaskSchedulerInterface) *FetchPatchesTask {
	return &FetchPatchesTask{
		Task:      NewTask(TaskTypeFetchPatches, pipeline.Name),
		pipeline:  pipeline,
		scheduler: scheduler,
	}
}

func (t *FetchPatchesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	processed := 0
	failed := 0
	pages := 0

	page := 1
	for {
		result, err := t.pipeline.Ingestor.RunPageFetch(ctx, page, t.pipeline.PerPage)
		if err != nil {
			return fmt.Errorf("failed to ingest page %d: %w", page, err)
		}

		processed += result.Processed
		failed += result.Failed
		pages++

		if t.pipeline.FetchDiscussions {
			t.fanOutDiscussions(result)
		}

		if result.NextPage == nil {
			break
		}
		if pages >= t.pipeline.MaxPages {
			slog.Info("Page ceiling reached, remaining pages deferred to next run",
				"project", t.pipeline.Name, "pages", pages, "next_page", *result.NextPage)
			break
		}
		page = *result.NextPage
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"project", t.pipeline.Name,
		"duration", t.GetDuration(),
		"pages", pages,
		"processed", processed,
		"failed", failed)

	return nil
}

func (t *FetchPatchesTask) fanOutDiscussions(result *PageFetchResult) {
	for _, patch := range result.Patches {
		if patch.MessageID == "" {
			slog.Debug("Patch has no message id, skipping thread correlation", "patch_id", patch.ID)
			continue
		}

		task := NewFetchDiscussionsTask(t.pipeline.Ingestor, patch.ID, patch.MessageID)
		if err := t.scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue FetchDiscussionsTask", "patch_id", patch.ID, "error", err)
		}
	}
}
