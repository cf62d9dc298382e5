package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

var _ DiscussionRepository = (*DiscussionRepo)(nil)

// DiscussionRepo handles database operations for discussion messages
type DiscussionRepo struct {
	db *DB
}

// NewDiscussionRepo creates a new discussion repository
func NewDiscussionRepo(db *DB) *DiscussionRepo {
	return &DiscussionRepo{db: db}
}

const discussionColumns = `id, timestamp, patch_id, author_name, author_email,
	subject, message_id, COALESCE(in_reply_to, ''), thread_id, reference_ids, content,
	is_review, COALESCE(summary, ''), COALESCE(sentiment, ''), last_updated_at, created_at,
	gsi1pk, gsi1sk, gsi2pk, gsi2sk, gsi3pk, gsi3sk`

func scanDiscussion(row rowScanner) (Discussion, error) {
	var d Discussion
	err := row.Scan(
		&d.ID, &d.Timestamp, &d.PatchID, &d.AuthorName, &d.AuthorEmail,
		&d.Subject, &d.MessageID, &d.InReplyTo, &d.ThreadID, pq.Array(&d.References), &d.Content,
		&d.IsReview, &d.Summary, &d.Sentiment, &d.LastUpdatedAt, &d.CreatedAt,
		&d.GSI1PK, &d.GSI1SK, &d.GSI2PK, &d.GSI2SK, &d.GSI3PK, &d.GSI3SK,
	)
	return d, err
}

// GetDiscussion returns a discussion by its composite primary key.
func (r *DiscussionRepo) GetDiscussion(id, timestamp string) (*Discussion, error) {
	row := r.db.QueryRow(`SELECT `+discussionColumns+` FROM discussions WHERE id = $1 AND timestamp = $2`,
		id, timestamp)

	discussion, err := scanDiscussion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("discussion %s@%s: %w", id, timestamp, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discussion: %w", classifyError(err))
	}

	return &discussion, nil
}

// SaveDiscussion upserts one crawled message. Summary and sentiment are
// preserved on conflict: they are written by out-of-band analysis, never by
// the crawl.
func (r *DiscussionRepo) SaveDiscussion(discussion Discussion) error {
	references := discussion.References
	if references == nil {
		references = []string{}
	}

	_, err := r.db.Exec(`
		INSERT INTO discussions (
			id, timestamp, patch_id, author_name, author_email,
			subject, message_id, in_reply_to, thread_id, reference_ids, content,
			is_review, last_updated_at,
			gsi1pk, gsi1sk, gsi2pk, gsi2sk, gsi3pk, gsi3sk
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id, timestamp) DO UPDATE SET
			patch_id = EXCLUDED.patch_id,
			author_name = EXCLUDED.author_name,
			author_email = EXCLUDED.author_email,
			subject = EXCLUDED.subject,
			message_id = EXCLUDED.message_id,
			in_reply_to = EXCLUDED.in_reply_to,
			thread_id = EXCLUDED.thread_id,
			reference_ids = EXCLUDED.reference_ids,
			content = EXCLUDED.content,
			is_review = EXCLUDED.is_review,
			last_updated_at = EXCLUDED.last_updated_at,
			gsi1pk = EXCLUDED.gsi1pk,
			gsi1sk = EXCLUDED.gsi1sk,
			gsi2pk = EXCLUDED.gsi2pk,
			gsi2sk = EXCLUDED.gsi2sk,
			gsi3pk = EXCLUDED.gsi3pk,
			gsi3sk = EXCLUDED.gsi3sk
	`, discussion.ID, discussion.Timestamp, discussion.PatchID, discussion.AuthorName, discussion.AuthorEmail,
		discussion.Subject, discussion.MessageID, nullIfEmpty(discussion.InReplyTo), discussion.ThreadID,
		pq.Array(references), discussion.Content,
		discussion.IsReview, discussion.LastUpdatedAt,
		discussion.GSI1PK, discussion.GSI1SK, discussion.GSI2PK, discussion.GSI2SK,
		discussion.GSI3PK, discussion.GSI3SK)

	if err != nil {
		return fmt.Errorf("failed to save discussion: %w", classifyError(err))
	}

	return nil
}

// UpdateDiscussionSummary attaches an out-of-band generated summary.
func (r *DiscussionRepo) UpdateDiscussionSummary(id, timestamp, summary string) error {
	return r.updateField(id, timestamp, "summary", summary)
}

// UpdateDiscussionSentiment attaches an out-of-band sentiment label.
func (r *DiscussionRepo) UpdateDiscussionSentiment(id, timestamp, sentiment string) error {
	return r.updateField(id, timestamp, "sentiment", sentiment)
}

func (r *DiscussionRepo) updateField(id, timestamp, column, value string) error {
	query := fmt.Sprintf(`
		UPDATE discussions
		SET %s = $3, last_updated_at = $4
		WHERE id = $1 AND timestamp = $2
	`, column)

	result, err := r.db.Exec(query, id, timestamp, value, ISOTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to update discussion %s: %w", column, classifyError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", classifyError(err))
	}
	if affected == 0 {
		return fmt.Errorf("discussion %s@%s: %w", id, timestamp, ErrNotFound)
	}

	return nil
}

var discussionIndexColumns = map[DiscussionIndex]struct{ pk, sk string }{
	DiscussionsByPatch:  {"gsi1pk", "gsi1sk"},
	DiscussionsByThread: {"gsi2pk", "gsi2sk"},
	DiscussionsByAuthor: {"gsi3pk", "gsi3sk"},
}

// QueryDiscussions runs a secondary-index query over discussions. Cursor
// semantics match QueryPatches; ties on the sort key break on (id, timestamp).
func (r *DiscussionRepo) QueryDiscussions(index DiscussionIndex, partition string, opts QueryOptions) ([]Discussion, string, error) {
	cols, ok := discussionIndexColumns[index]
	if !ok {
		return nil, "", &FatalStoreError{Err: fmt.Errorf("unknown discussion index: %s", index)}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	direction, comparator := "DESC", "<"
	if opts.SortAscending {
		direction, comparator = "ASC", ">"
	}

	query := fmt.Sprintf(`SELECT %s FROM discussions WHERE %s = $1`, discussionColumns, cols.pk)
	args := []any{partition}

	if opts.Cursor != "" {
		c, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, "", err
		}
		query += fmt.Sprintf(` AND (%s, id, timestamp) %s ($2, $3, $4)`, cols.sk, comparator)
		args = append(args, c.SortKey, c.ID, c.Timestamp)
	}

	query += fmt.Sprintf(` ORDER BY %s %s, id %s, timestamp %s LIMIT %d`,
		cols.sk, direction, direction, direction, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query discussions: %w", classifyError(err))
	}
	defer rows.Close()

	var discussions []Discussion
	for rows.Next() {
		discussion, err := scanDiscussion(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan discussion row: %w", classifyError(err))
		}
		discussions = append(discussions, discussion)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating discussion rows: %w", classifyError(err))
	}

	nextCursor := ""
	if len(discussions) == limit {
		last := discussions[len(discussions)-1]
		nextCursor = encodeCursor(cursor{
			SortKey:   discussionSortKey(last, index),
			ID:        last.ID,
			Timestamp: last.Timestamp,
		})
	}

	return discussions, nextCursor, nil
}

func discussionSortKey(d Discussion, index DiscussionIndex) string {
	switch index {
	case DiscussionsByPatch:
		return d.GSI1SK
	case DiscussionsByThread:
		return d.GSI2SK
	default:
		return d.GSI3SK
	}
}

// CountByPatch returns the number of stored discussions for a patch without
// materializing the rows.
func (r *DiscussionRepo) CountByPatch(patchID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM discussions WHERE gsi1pk = $1`,
		PatchPartition(patchID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count discussions: %w", classifyError(err))
	}
	return count, nil
}

// BatchGetDiscussions fetches discussions in chunks of at most 100 keys. A
// failed chunk is logged and skipped; sibling chunks still return.
func (r *DiscussionRepo) BatchGetDiscussions(keys []DiscussionKey) ([]Discussion, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	const batchSize = 100
	var discussions []Discussion

	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		chunk, err := r.getDiscussionChunk(keys[start:end])
		if err != nil {
			slog.Warn("Batch get chunk failed, skipping", "from", start, "to", end, "error", err)
			continue
		}
		discussions = append(discussions, chunk...)
	}

	return discussions, nil
}

func (r *DiscussionRepo) getDiscussionChunk(keys []DiscussionKey) ([]Discussion, error) {
	ids := make([]string, 0, len(keys))
	timestamps := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.ID)
		timestamps = append(timestamps, key.Timestamp)
	}

	rows, err := r.db.Query(`
		SELECT `+discussionColumns+`
		FROM discussions
		WHERE (id, timestamp) IN (
			SELECT UNNEST($1::TEXT[]), UNNEST($2::TEXT[])
		)
	`, pq.Array(ids), pq.Array(timestamps))
	if err != nil {
		return nil, fmt.Errorf("failed to batch get discussions: %w", classifyError(err))
	}
	defer rows.Close()

	var discussions []Discussion
	for rows.Next() {
		discussion, err := scanDiscussion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discussion row: %w", classifyError(err))
		}
		discussions = append(discussions, discussion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discussion rows: %w", classifyError(err))
	}

	return discussions, nil
}

// LatestDiscussions returns the most recently ingested discussions across
// all patches.
func (r *DiscussionRepo) LatestDiscussions(limit int) ([]Discussion, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	rows, err := r.db.Query(`
		SELECT `+discussionColumns+`
		FROM discussions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest discussions: %w", classifyError(err))
	}
	defer rows.Close()

	var discussions []Discussion
	for rows.Next() {
		discussion, err := scanDiscussion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discussion row: %w", classifyError(err))
		}
		discussions = append(discussions, discussion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discussion rows: %w", classifyError(err))
	}

	return discussions, nil
}

// GetDiscussionCount returns the total number of stored discussions.
func (r *DiscussionRepo) GetDiscussionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM discussions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get discussion count: %w", classifyError(err))
	}
	return count, nil
}
