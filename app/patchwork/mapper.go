package patchwork

import (
	"strconv"
	"strings"
	"time"

	"github.com/patchlore/patchlore/app/database"
)

// ToPatchRecord maps one external patch onto the stored schema. Pure and
// total: every missing field has a default, so any feed payload maps to a
// valid record. The status is always NEW; preserving a previously stored
// status is the caller's concern.
//
// Only the first series is kept: multi-series patches lose the additional
// associations. Patches without a series get no series index pair at all,
// never a placeholder partition. The feed reports message ids in angle
// brackets; the record keeps the bare id so it matches the archive's URLs.
func ToPatchRecord(ext Patch, now time.Time) database.Patch {
	nowISO := database.ISOTime(now)

	submitterID, submitterName, submitterEmail := "0", "Unknown", ""
	if ext.Submitter != nil {
		submitterID = strconv.Itoa(ext.Submitter.ID)
		submitterName = ext.Submitter.Name
		submitterEmail = ext.Submitter.Email
	}

	date := ext.Date
	if date == "" {
		date = nowISO
	}

	patch := database.Patch{
		ID:             strconv.Itoa(ext.ID),
		Name:           ext.Name,
		SubmitterID:    submitterID,
		SubmitterName:  submitterName,
		SubmitterEmail: submitterEmail,
		SubmittedAt:    date,
		Status:         database.StatusNew,
		URL:            ext.URL,
		WebURL:         ext.WebURL,
		MboxURL:        ext.Mbox,
		MessageID:      strings.Trim(ext.MsgID, "<>"),
		Content:        ext.Content,

		DiscussionCount: 0,
		LastUpdatedAt:   nowISO,

		GSI1PK: database.SubmitterPartition(submitterID),
		GSI1SK: database.DateSort(date),
		GSI3PK: database.StatusPartition(database.StatusNew),
		GSI3SK: database.DateSort(date),
	}

	if len(ext.Series) > 0 {
		first := ext.Series[0]
		patch.SeriesID = strconv.Itoa(first.ID)
		patch.SeriesName = first.Name
		patch.SeriesVersion = strconv.Itoa(first.Version)
		patch.GSI2PK = database.SeriesPartition(patch.SeriesID)
		patch.GSI2SK = database.DateSort(date)
	}

	return patch
}
