package database

import (
	"time"
)

// Patch statuses mirror the upstream tracking service. Transitions are
// free-form: the external service is the source of truth.
const (
	StatusNew         = "NEW"
	StatusUnderReview = "UNDER_REVIEW"
	StatusAccepted    = "ACCEPTED"
	StatusRejected    = "REJECTED"
	StatusSuperseded  = "SUPERSEDED"
)

// Patch is one tracked patch submission. All timestamps that participate in
// sort keys are stored as ISO-8601 strings so index ordering stays
// lexicographic.
type Patch struct {
	ID             string
	Project        string // tracked project the patch was ingested under
	Name           string
	SubmitterID    string
	SubmitterName  string
	SubmitterEmail string
	SubmittedAt    string
	Status         string
	URL            string
	WebURL         string
	MboxURL        string
	MessageID      string
	Content        string

	// Series fields are empty when the patch belongs to no series. Only the
	// first series reported upstream is kept.
	SeriesID      string
	SeriesName    string
	SeriesVersion string

	DiscussionCount int
	Summary         string // attached by out-of-band analysis, empty otherwise
	LastUpdatedAt   string
	CreatedAt       time.Time

	// Secondary-index key pairs. The series pair (gsi2) is empty when the
	// patch has no series so the series index never carries placeholders.
	GSI1PK string // SUBMITTER#{submitterId}
	GSI1SK string // DATE#{submittedAt}
	GSI2PK string // SERIES#{seriesId}
	GSI2SK string // DATE#{submittedAt}
	GSI3PK string // STATUS#{status}
	GSI3SK string // DATE#{submittedAt}
}

// Discussion is one email message in a patch's review thread. The primary
// key is (ID, Timestamp): ID alone may collide when message-id extraction
// degrades to a fallback value across re-crawls.
type Discussion struct {
	ID            string
	Timestamp     string
	PatchID       string
	AuthorName    string
	AuthorEmail   string
	Subject       string
	MessageID     string
	InReplyTo     string // empty when the message starts its thread
	ThreadID      string
	References    []string
	Content       string
	IsReview      bool
	Summary       string // attached by out-of-band analysis, empty otherwise
	Sentiment     string
	LastUpdatedAt string
	CreatedAt     time.Time

	GSI1PK string // PATCH#{patchId}
	GSI1SK string // DATE#{timestamp}
	GSI2PK string // THREAD#{threadId}
	GSI2SK string // DATE#{timestamp}
	GSI3PK string // AUTHOR#{authorEmail}
	GSI3SK string // DATE#{timestamp}
}

// DiscussionKey identifies one discussion row. Callers must always carry
// the pair.
type DiscussionKey struct {
	ID        string
	Timestamp string
}
