package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

var _ PatchRepository = (*PatchRepo)(nil)

// PatchRepo handles database operations for patches
type PatchRepo struct {
	db *DB
}

// NewPatchRepo creates a new patch repository
func NewPatchRepo(db *DB) *PatchRepo {
	return &PatchRepo{db: db}
}

// ISOTime formats a timestamp the way every stored date field expects it.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

const patchColumns = `id, project, name, submitter_id, submitter_name, submitter_email,
	submitted_at, status, url, web_url, mbox_url, message_id, content,
	COALESCE(series_id, ''), COALESCE(series_name, ''), COALESCE(series_version, ''),
	discussion_count, COALESCE(summary, ''), last_updated_at, created_at,
	gsi1pk, gsi1sk, COALESCE(gsi2pk, ''), COALESCE(gsi2sk, ''), gsi3pk, gsi3sk`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatch(row rowScanner) (Patch, error) {
	var p Patch
	err := row.Scan(
		&p.ID, &p.Project, &p.Name, &p.SubmitterID, &p.SubmitterName, &p.SubmitterEmail,
		&p.SubmittedAt, &p.Status, &p.URL, &p.WebURL, &p.MboxURL, &p.MessageID, &p.Content,
		&p.SeriesID, &p.SeriesName, &p.SeriesVersion,
		&p.DiscussionCount, &p.Summary, &p.LastUpdatedAt, &p.CreatedAt,
		&p.GSI1PK, &p.GSI1SK, &p.GSI2PK, &p.GSI2SK, &p.GSI3PK, &p.GSI3SK,
	)
	return p, err
}

// nullIfEmpty stores empty strings as NULL so partial indexes and COALESCE
// scans treat them as absent.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetPatch returns a patch by its primary key.
func (r *PatchRepo) GetPatch(id string) (*Patch, error) {
	row := r.db.QueryRow(`SELECT `+patchColumns+` FROM patches WHERE id = $1`, id)

	patch, err := scanPatch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("patch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patch: %w", classifyError(err))
	}

	return &patch, nil
}

// SavePatch performs an idempotent upsert: all metadata is overwritten,
// discussion_count and created_at are preserved on conflict so a re-fetch
// of the same id never resets the tracked count.
func (r *PatchRepo) SavePatch(patch Patch) error {
	_, err := r.db.Exec(`
		INSERT INTO patches (
			id, project, name, submitter_id, submitter_name, submitter_email,
			submitted_at, status, url, web_url, mbox_url, message_id, content,
			series_id, series_name, series_version,
			discussion_count, last_updated_at,
			gsi1pk, gsi1sk, gsi2pk, gsi2sk, gsi3pk, gsi3sk
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO UPDATE SET
			project = EXCLUDED.project,
			name = EXCLUDED.name,
			submitter_id = EXCLUDED.submitter_id,
			submitter_name = EXCLUDED.submitter_name,
			submitter_email = EXCLUDED.submitter_email,
			submitted_at = EXCLUDED.submitted_at,
			status = EXCLUDED.status,
			url = EXCLUDED.url,
			web_url = EXCLUDED.web_url,
			mbox_url = EXCLUDED.mbox_url,
			message_id = EXCLUDED.message_id,
			content = EXCLUDED.content,
			series_id = EXCLUDED.series_id,
			series_name = EXCLUDED.series_name,
			series_version = EXCLUDED.series_version,
			last_updated_at = EXCLUDED.last_updated_at,
			gsi1pk = EXCLUDED.gsi1pk,
			gsi1sk = EXCLUDED.gsi1sk,
			gsi2pk = EXCLUDED.gsi2pk,
			gsi2sk = EXCLUDED.gsi2sk,
			gsi3pk = EXCLUDED.gsi3pk,
			gsi3sk = EXCLUDED.gsi3sk
	`, patch.ID, patch.Project, patch.Name, patch.SubmitterID, patch.SubmitterName, patch.SubmitterEmail,
		patch.SubmittedAt, patch.Status, patch.URL, patch.WebURL, patch.MboxURL,
		patch.MessageID, patch.Content,
		nullIfEmpty(patch.SeriesID), nullIfEmpty(patch.SeriesName), nullIfEmpty(patch.SeriesVersion),
		patch.DiscussionCount, patch.LastUpdatedAt,
		patch.GSI1PK, patch.GSI1SK, nullIfEmpty(patch.GSI2PK), nullIfEmpty(patch.GSI2SK),
		patch.GSI3PK, patch.GSI3SK)

	if err != nil {
		return fmt.Errorf("failed to save patch: %w", classifyError(err))
	}

	return nil
}

// UpdatePatchStatus sets the status together with its index partition key
// so the status index never goes stale.
func (r *PatchRepo) UpdatePatchStatus(id, status string) error {
	result, err := r.db.Exec(`
		UPDATE patches
		SET status = $2, gsi3pk = $3, last_updated_at = $4
		WHERE id = $1
	`, id, status, StatusPartition(status), ISOTime(time.Now()))

	if err != nil {
		return fmt.Errorf("failed to update patch status: %w", classifyError(err))
	}

	return r.requireRow(result, id)
}

// UpdateDiscussionCount writes the reconciled discussion count for a patch.
func (r *PatchRepo) UpdateDiscussionCount(id string, count int) error {
	result, err := r.db.Exec(`
		UPDATE patches
		SET discussion_count = $2, last_updated_at = $3
		WHERE id = $1
	`, id, count, ISOTime(time.Now()))

	if err != nil {
		return fmt.Errorf("failed to update discussion count: %w", classifyError(err))
	}

	return r.requireRow(result, id)
}

// UpdatePatchSummary attaches an out-of-band generated summary.
func (r *PatchRepo) UpdatePatchSummary(id, summary string) error {
	result, err := r.db.Exec(`
		UPDATE patches
		SET summary = $2, last_updated_at = $3
		WHERE id = $1
	`, id, summary, ISOTime(time.Now()))

	if err != nil {
		return fmt.Errorf("failed to update patch summary: %w", classifyError(err))
	}

	return r.requireRow(result, id)
}

func (r *PatchRepo) requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", classifyError(err))
	}
	if affected == 0 {
		return fmt.Errorf("patch %s: %w", id, ErrNotFound)
	}
	return nil
}

var patchIndexColumns = map[PatchIndex]struct{ pk, sk string }{
	PatchesBySubmitter: {"gsi1pk", "gsi1sk"},
	PatchesBySeries:    {"gsi2pk", "gsi2sk"},
	PatchesByStatus:    {"gsi3pk", "gsi3sk"},
}

// QueryPatches runs a secondary-index query: exact match on the partition
// value, range scan over the sort key. The returned cursor continues the
// scan; empty means the result set is exhausted.
func (r *PatchRepo) QueryPatches(index PatchIndex, partition string, opts QueryOptions) ([]Patch, string, error) {
	cols, ok := patchIndexColumns[index]
	if !ok {
		return nil, "", &FatalStoreError{Err: fmt.Errorf("unknown patch index: %s", index)}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	direction, comparator := "DESC", "<"
	if opts.SortAscending {
		direction, comparator = "ASC", ">"
	}

	query := fmt.Sprintf(`SELECT %s FROM patches WHERE %s = $1`, patchColumns, cols.pk)
	args := []any{partition}

	if opts.Cursor != "" {
		c, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, "", err
		}
		query += fmt.Sprintf(` AND (%s, id) %s ($2, $3)`, cols.sk, comparator)
		args = append(args, c.SortKey, c.ID)
	}

	query += fmt.Sprintf(` ORDER BY %s %s, id %s LIMIT %d`, cols.sk, direction, direction, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query patches: %w", classifyError(err))
	}
	defer rows.Close()

	var patches []Patch
	for rows.Next() {
		patch, err := scanPatch(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan patch row: %w", classifyError(err))
		}
		patches = append(patches, patch)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating patch rows: %w", classifyError(err))
	}

	nextCursor := ""
	if len(patches) == limit {
		last := patches[len(patches)-1]
		nextCursor = encodeCursor(cursor{SortKey: patchSortKey(last, index), ID: last.ID})
	}

	return patches, nextCursor, nil
}

func patchSortKey(p Patch, index PatchIndex) string {
	switch index {
	case PatchesBySubmitter:
		return p.GSI1SK
	case PatchesBySeries:
		return p.GSI2SK
	default:
		return p.GSI3SK
	}
}

// BatchGetPatches fetches patches in chunks of at most 100 ids. A failed
// chunk is logged and skipped; sibling chunks still return.
func (r *PatchRepo) BatchGetPatches(ids []string) ([]Patch, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const batchSize = 100
	var patches []Patch

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		chunk, err := r.getPatchChunk(ids[start:end])
		if err != nil {
			slog.Warn("Batch get chunk failed, skipping", "from", start, "to", end, "error", err)
			continue
		}
		patches = append(patches, chunk...)
	}

	return patches, nil
}

func (r *PatchRepo) getPatchChunk(ids []string) ([]Patch, error) {
	rows, err := r.db.Query(`SELECT `+patchColumns+` FROM patches WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to batch get patches: %w", classifyError(err))
	}
	defer rows.Close()

	var patches []Patch
	for rows.Next() {
		patch, err := scanPatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patch row: %w", classifyError(err))
		}
		patches = append(patches, patch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patch rows: %w", classifyError(err))
	}

	return patches, nil
}

// DeletePatch removes a patch. Administrative use only; ingestion never
// deletes.
func (r *PatchRepo) DeletePatch(id string) error {
	result, err := r.db.Exec(`DELETE FROM patches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patch: %w", classifyError(err))
	}
	return r.requireRow(result, id)
}

// GetPatchCount returns the total number of tracked patches.
func (r *PatchRepo) GetPatchCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM patches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get patch count: %w", classifyError(err))
	}
	return count, nil
}
