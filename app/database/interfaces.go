package database

// PatchIndex names one of the secondary indexes over patches.
type PatchIndex string

const (
	PatchesBySubmitter PatchIndex = "by_submitter"
	PatchesBySeries    PatchIndex = "by_series"
	PatchesByStatus    PatchIndex = "by_status"
)

// DiscussionIndex names one of the secondary indexes over discussions.
type DiscussionIndex string

const (
	DiscussionsByPatch  DiscussionIndex = "by_patch"
	DiscussionsByThread DiscussionIndex = "by_thread"
	DiscussionsByAuthor DiscussionIndex = "by_author"
)

// QueryOptions controls an index query. Cursor is opaque: pass back the
// value returned by the previous page unchanged; an empty returned cursor
// signals the end of the result set.
type QueryOptions struct {
	Limit         int
	Cursor        string
	SortAscending bool
}

const DefaultQueryLimit = 50

type PatchRepository interface {
	GetPatch(id string) (*Patch, error)
	SavePatch(patch Patch) error
	UpdatePatchStatus(id, status string) error
	UpdateDiscussionCount(id string, count int) error
	UpdatePatchSummary(id, summary string) error
	QueryPatches(index PatchIndex, partition string, opts QueryOptions) ([]Patch, string, error)
	BatchGetPatches(ids []string) ([]Patch, error)
	DeletePatch(id string) error
	GetPatchCount() (int, error)
}

type DiscussionRepository interface {
	GetDiscussion(id, timestamp string) (*Discussion, error)
	SaveDiscussion(discussion Discussion) error
	UpdateDiscussionSummary(id, timestamp, summary string) error
	UpdateDiscussionSentiment(id, timestamp, sentiment string) error
	QueryDiscussions(index DiscussionIndex, partition string, opts QueryOptions) ([]Discussion, string, error)
	CountByPatch(patchID string) (int, error)
	BatchGetDiscussions(keys []DiscussionKey) ([]Discussion, error)
	LatestDiscussions(limit int) ([]Discussion, error)
	GetDiscussionCount() (int, error)
}
