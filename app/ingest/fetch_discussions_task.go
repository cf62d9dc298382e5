package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// FetchDiscussionsTask correlates the review thread of a single patch.
type FetchDiscussionsTask struct {
	Task
	ingestor      *Ingestor
	patchID       string
	rootMessageID string
}

func NewFetchDiscussionsTask(ingestor *Ingestor, patchID, rootMessageID string) *FetchDiscussionsTask {
	return &FetchDiscussionsTask{
		Task:          NewTask(TaskTypeFetchDiscussions, patchID),
		ingestor:      ingestor,
		patchID:       patchID,
		rootMessageID: rootMessageID,
	}
}

func (t *FetchDiscussionsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.ingestor.RunThreadCorrelation(ctx, t.patchID, t.rootMessageID)
	if err != nil {
		return fmt.Errorf("failed to correlate thread: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"patch_id", t.patchID,
		"duration", t.GetDuration(),
		"discovered", result.Discovered,
		"saved", result.Saved)

	return nil
}
