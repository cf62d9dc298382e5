package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patchlore/patchlore/app/database"
	"github.com/patchlore/patchlore/app/lore"
	"github.com/patchlore/patchlore/app/patchwork"
)

// Ingestor drives the two ingestion flows for one tracked project:
// pulling patch pages from the upstream feed and correlating review
// threads from the mailing list archive.
type Ingestor struct {
	project        string
	patches        PatchSource
	threads        ThreadSource
	patchRepo      database.PatchRepository
	discussionRepo database.DiscussionRepository
}

func NewIngestor(project string, patches PatchSource, threads ThreadSource,
	patchRepo database.PatchRepository, discussionRepo database.DiscussionRepository) *Ingestor {
	return &Ingestor{
		project:        project,
		patches:        patches,
		threads:        threads,
		patchRepo:      patchRepo,
		discussionRepo: discussionRepo,
	}
}

// Pipeline binds one tracked project's ingestor to its fetch settings.
type Pipeline struct {
	Name             string
	Ingestor         *Ingestor
	PerPage          int
	MaxPages         int
	FetchDiscussions bool
}

// PageFetchResult reports one ingested feed page. NextPage is nil on the
// last page.
type PageFetchResult struct {
	Processed int
	Failed    int
	Patches   []database.Patch
	NextPage  *int
}

// RunPageFetch ingests one page of the upstream patch feed. Single-record
// save failures are counted, not raised, so one bad record never loses the
// page; the page fetch itself failing is an error.
func (n *Ingestor) RunPageFetch(ctx context.Context, page, perPage int) (*PageFetchResult, error) {
	list, err := n.patches.FetchPage(ctx, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patch page %d: %w", page, err)
	}

	result := &PageFetchResult{}
	now := time.Now().UTC()

	for _, ext := range list.Results {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		record := patchwork.ToPatchRecord(ext, now)
		record.Project = n.project
		if err := n.patchRepo.SavePatch(record); err != nil {
			slog.Error("Failed to save patch", "patch_id", record.ID, "error", err)
			result.Failed++
			continue
		}

		result.Patches = append(result.Patches, record)
		result.Processed++
	}

	if list.Next != nil {
		next := page + 1
		result.NextPage = &next
	}

	slog.Info("Patch page ingested",
		"project", n.project,
		"page", page,
		"total", list.Count,
		"processed", result.Processed,
		"failed", result.Failed,
		"has_next", result.NextPage != nil)

	return result, nil
}

// ThreadResult reports one correlated review thread.
type ThreadResult struct {
	Discovered int
	Saved      int
}

// RunThreadCorrelation crawls the review thread rooted at rootMessageID,
// stores every parseable message against the patch, and reconciles the
// patch's discussion count from what is actually stored.
func (n *Ingestor) RunThreadCorrelation(ctx context.Context, patchID, rootMessageID string) (*ThreadResult, error) {
	emails, err := n.threads.DiscoverThread(ctx, rootMessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to discover thread for patch %s: %w", patchID, err)
	}

	result := &ThreadResult{Discovered: len(emails)}
	now := time.Now().UTC()

	for _, email := range emails {
		record := lore.ToDiscussionRecord(email, patchID, now)
		if err := n.discussionRepo.SaveDiscussion(record); err != nil {
			slog.Error("Failed to save discussion", "discussion_id", record.ID, "patch_id", patchID, "error", err)
			continue
		}
		result.Saved++
	}

	count, err := n.discussionRepo.CountByPatch(patchID)
	if err != nil {
		return result, fmt.Errorf("failed to count discussions for patch %s: %w", patchID, err)
	}

	if err := n.patchRepo.UpdateDiscussionCount(patchID, count); err != nil {
		return result, fmt.Errorf("failed to update discussion count for patch %s: %w", patchID, err)
	}

	slog.Info("Thread correlated",
		"patch_id", patchID,
		"root", rootMessageID,
		"discovered", result.Discovered,
		"saved", result.Saved,
		"discussion_count", count)

	return result, nil
}
