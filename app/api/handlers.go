package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patchlore/patchlore/app/database"
	"github.com/patchlore/patchlore/app/ingest"
)

const maxQueryLimit = 100

func NewHandler(patchRepo database.PatchRepository, discussionRepo database.DiscussionRepository,
	ingestors map[string]*ingest.Ingestor, scheduler ingest.TaskSchedulerInterface) *Handler {
	return &Handler{
		patchRepo:      patchRepo,
		discussionRepo: discussionRepo,
		ingestors:      ingestors,
		scheduler:      scheduler,
	}
}

func queryOptions(c *gin.Context) database.QueryOptions {
	opts := database.QueryOptions{
		Limit:  database.DefaultQueryLimit,
		Cursor: c.Query("cursor"),
	}

	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if opts.Limit > maxQueryLimit {
		opts.Limit = maxQueryLimit
	}

	opts.SortAscending = c.Query("order") == "asc"

	return opts
}

func patchJSON(p database.Patch) gin.H {
	out := gin.H{
		"id":               p.ID,
		"project":          p.Project,
		"name":             p.Name,
		"submitter_id":     p.SubmitterID,
		"submitter_name":   p.SubmitterName,
		"submitter_email":  p.SubmitterEmail,
		"submitted_at":     p.SubmittedAt,
		"status":           p.Status,
		"url":              p.URL,
		"web_url":          p.WebURL,
		"mbox_url":         p.MboxURL,
		"message_id":       p.MessageID,
		"discussion_count": p.DiscussionCount,
		"last_updated_at":  p.LastUpdatedAt,
	}

	if p.SeriesID != "" {
		out["series"] = gin.H{
			"id":      p.SeriesID,
			"name":    p.SeriesName,
			"version": p.SeriesVersion,
		}
	}
	if p.Summary != "" {
		out["summary"] = p.Summary
	}

	return out
}

func discussionJSON(d database.Discussion) gin.H {
	out := gin.H{
		"id":           d.ID,
		"timestamp":    d.Timestamp,
		"patch_id":     d.PatchID,
		"author_name":  d.AuthorName,
		"author_email": d.AuthorEmail,
		"subject":      d.Subject,
		"message_id":   d.MessageID,
		"in_reply_to":  d.InReplyTo,
		"thread_id":    d.ThreadID,
		"is_review":    d.IsReview,
	}

	if d.Summary != "" {
		out["summary"] = d.Summary
	}
	if d.Sentiment != "" {
		out["sentiment"] = d.Sentiment
	}

	return out
}

func respondQueryError(c *gin.Context, err error, operation string) {
	var fatal *database.FatalStoreError
	if c.Query("cursor") != "" && errors.As(err, &fatal) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	slog.Error("Database error", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func (h *Handler) ListPatches(c *gin.Context) {
	var index database.PatchIndex
	var partition string

	filters := 0
	if status := c.Query("status"); status != "" {
		index = database.PatchesByStatus
		partition = database.StatusPartition(status)
		filters++
	}
	if submitter := c.Query("submitter"); submitter != "" {
		index = database.PatchesBySubmitter
		partition = database.SubmitterPartition(submitter)
		filters++
	}
	if series := c.Query("series"); series != "" {
		index = database.PatchesBySeries
		partition = database.SeriesPartition(series)
		filters++
	}

	if filters != 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Exactly one of status, submitter or series is required",
		})
		return
	}

	patches, cursor, err := h.patchRepo.QueryPatches(index, partition, queryOptions(c))
	if err != nil {
		respondQueryError(c, err, "list_patches")
		return
	}

	results := make([]gin.H, 0, len(patches))
	for _, patch := range patches {
		results = append(results, patchJSON(patch))
	}

	c.JSON(http.StatusOK, gin.H{
		"patches":     results,
		"total":       len(results),
		"next_cursor": cursor,
	})
}

func (h *Handler) GetPatchByID(c *gin.Context) {
	id := c.Param("id")

	patch, err := h.patchRepo.GetPatch(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Patch not found"})
			return
		}
		slog.Error("Database error", "operation", "get_patch", "patch_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := patchJSON(*patch)
	out["content"] = patch.Content

	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetPatchDiscussions(c *gin.Context) {
	id := c.Param("id")

	discussions, cursor, err := h.discussionRepo.QueryDiscussions(
		database.DiscussionsByPatch, database.PatchPartition(id), queryOptions(c))
	if err != nil {
		respondQueryError(c, err, "get_patch_discussions")
		return
	}

	results := make([]gin.H, 0, len(discussions))
	for _, discussion := range discussions {
		results = append(results, discussionJSON(discussion))
	}

	c.JSON(http.StatusOK, gin.H{
		"patch_id":    id,
		"discussions": results,
		"total":       len(results),
		"next_cursor": cursor,
	})
}

func (h *Handler) GetThread(c *gin.Context) {
	id := c.Param("id")

	opts := queryOptions(c)
	// Threads read naturally oldest first
	if c.Query("order") == "" {
		opts.SortAscending = true
	}

	discussions, cursor, err := h.discussionRepo.QueryDiscussions(
		database.DiscussionsByThread, database.ThreadPartition(id), opts)
	if err != nil {
		respondQueryError(c, err, "get_thread")
		return
	}

	results := make([]gin.H, 0, len(discussions))
	for _, discussion := range discussions {
		out := discussionJSON(discussion)
		out["content"] = discussion.Content
		results = append(results, out)
	}

	c.JSON(http.StatusOK, gin.H{
		"thread_id":   id,
		"messages":    results,
		"total":       len(results),
		"next_cursor": cursor,
	})
}

func (h *Handler) GetLatestDiscussions(c *gin.Context) {
	limit := database.DefaultQueryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	discussions, err := h.discussionRepo.LatestDiscussions(limit)
	if err != nil {
		slog.Error("Database error", "operation", "latest_discussions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(discussions))
	for _, discussion := range discussions {
		results = append(results, discussionJSON(discussion))
	}

	c.JSON(http.StatusOK, gin.H{
		"discussions": results,
		"total":       len(results),
	})
}

func (h *Handler) GetAuthorDiscussions(c *gin.Context) {
	email := c.Param("email")

	discussions, cursor, err := h.discussionRepo.QueryDiscussions(
		database.DiscussionsByAuthor, database.AuthorPartition(email), queryOptions(c))
	if err != nil {
		respondQueryError(c, err, "get_author_discussions")
		return
	}

	results := make([]gin.H, 0, len(discussions))
	for _, discussion := range discussions {
		results = append(results, discussionJSON(discussion))
	}

	c.JSON(http.StatusOK, gin.H{
		"author":      email,
		"discussions": results,
		"total":       len(results),
		"next_cursor": cursor,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if patchCount, err := h.patchRepo.GetPatchCount(); err == nil {
		health["patches"] = patchCount
	}
	if discussionCount, err := h.discussionRepo.GetDiscussionCount(); err == nil {
		health["discussions"] = discussionCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	patchCount, err := h.patchRepo.GetPatchCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	stats["patches"] = patchCount

	discussionCount, err := h.discussionRepo.GetDiscussionCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	stats["discussions"] = discussionCount
	stats["timestamp"] = time.Now().In(time.Local).Format(time.RFC3339)

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) RefreshPatchDiscussions(c *gin.Context) {
	id := c.Param("id")

	patch, err := h.patchRepo.GetPatch(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Patch not found"})
			return
		}
		slog.Error("Database error", "operation", "refresh_patch", "patch_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if patch.MessageID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Patch has no message id, thread cannot be located",
		})
		return
	}

	ingestor, ok := h.ingestors[patch.Project]
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Patch belongs to a project that is no longer tracked",
		})
		return
	}

	task := ingest.NewFetchDiscussionsTask(ingestor, patch.ID, patch.MessageID)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "patch_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thread refresh enqueued",
		"patch": gin.H{
			"id":         patch.ID,
			"message_id": patch.MessageID,
		},
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}
