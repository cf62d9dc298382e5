package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/patchlore/patchlore/app/database"
)

// refreshStatuses are the patch states still expected to attract review
// traffic.
var refreshStatuses = []string{
	database.StatusNew,
	database.StatusUnderReview,
	database.StatusAccepted,
}

// RefreshDiscussionsTask re-crawls review threads for recently submitted
// patches of one project that are still in an active state, capped at
// limit per run. Patches ingested under other projects are left to their
// own pipelines so each thread is crawled against the right archive list.
type RefreshDiscussionsTask struct {
	Task
	pipeline     *Pipeline
	scheduler    TaskSchedulerInterface
	patchRepo    database.PatchRepository
	lookbackDays int
	limit        int
}

func NewRefreshDiscussionsTask(pipeline *Pipeline, scheduler TaskSchedulerInterface,
	patchRepo database.PatchRepository, lookbackDays, limit int) *RefreshDiscussionsTask {
	return &RefreshDiscussionsTask{
		Task:         NewTask(TaskTypeRefreshDiscussions, pipeline.Name),
		pipeline:     pipeline,
		scheduler:    scheduler,
		patchRepo:    patchRepo,
		lookbackDays: lookbackDays,
		limit:        limit,
	}
}

func (t *RefreshDiscussionsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := database.ISOTime(time.Now().UTC().AddDate(0, 0, -t.lookbackDays))

	enqueued := 0
	for _, status := range refreshStatuses {
		if enqueued >= t.limit {
			break
		}

		patches, err := t.activePatches(ctx, status, cutoff, t.limit-enqueued)
		if err != nil {
			slog.Warn("Failed to query patches for refresh, skipping status", "status", status, "error", err)
			continue
		}

		for _, patch := range patches {
			if patch.MessageID == "" {
				continue
			}

			task := NewFetchDiscussionsTask(t.pipeline.Ingestor, patch.ID, patch.MessageID)
			if err := t.scheduler.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue FetchDiscussionsTask", "patch_id", patch.ID, "error", err)
				continue
			}
			enqueued++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"project", t.pipeline.Name,
		"duration", t.GetDuration(),
		"enqueued", enqueued,
		"cutoff", cutoff)

	return nil
}

// activePatches pages through one status partition newest-first and stops
// at the lookback cutoff, which the descending date order makes safe.
// Patches belonging to other projects are skipped, not counted.
func (t *RefreshDiscussionsTask) activePatches(ctx context.Context, status, cutoff string, limit int) ([]database.Patch, error) {
	var matched []database.Patch

	opts := database.QueryOptions{Limit: database.DefaultQueryLimit}
	for {
		if ctx.Err() != nil {
			return matched, ctx.Err()
		}

		patches, cursor, err := t.patchRepo.QueryPatches(database.PatchesByStatus, database.StatusPartition(status), opts)
		if err != nil {
			return nil, err
		}

		for _, patch := range patches {
			if patch.SubmittedAt < cutoff {
				return matched, nil
			}
			if patch.Project != t.pipeline.Name {
				continue
			}
			matched = append(matched, patch)
			if len(matched) >= limit {
				return matched, nil
			}
		}

		if cursor == "" {
			return matched, nil
		}
		opts.Cursor = cursor
	}
}
