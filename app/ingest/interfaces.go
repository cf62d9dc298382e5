package ingest

import (
	"context"

	"github.com/patchlore/patchlore/app/lore"
	"github.com/patchlore/patchlore/app/patchwork"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application uses it to start and stop the worker
// pool; tasks use it to fan out follow-up work.
// Example usage:
//
//	scheduler := NewScheduler(pipelines, patchRepo)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewFetchPatchesTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// PatchSource is the paginated upstream patch feed.
type PatchSource interface {
	FetchPage(ctx context.Context, page, perPage int) (*patchwork.PatchList, error)
}

// ThreadSource resolves a root message id into the full review thread.
type ThreadSource interface {
	DiscoverThread(ctx context.Context, rootMessageID string) ([]*lore.Email, error)
}
