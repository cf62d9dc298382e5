package lore

import (
	"strings"
	"time"

	"github.com/patchlore/patchlore/app/database"
)

var idReplacer = strings.NewReplacer("@", "-at-", ".", "-dot-")

// EncodeDiscussionID turns a message id into a collision-resistant record
// id safe for composite keys.
func EncodeDiscussionID(messageID string) string {
	if messageID == "" {
		// Degraded extraction; the timestamp half of the key disambiguates.
		return "unknown"
	}
	return idReplacer.Replace(messageID)
}

// ThreadID resolves the conversation root for a message: the first
// References entry when present, otherwise the direct parent, otherwise
// the message itself.
func ThreadID(email *Email) string {
	if len(email.References) > 0 {
		return email.References[0]
	}
	if email.InReplyTo != "" {
		return email.InReplyTo
	}
	return email.MessageID
}

// ToDiscussionRecord maps a parsed email onto the stored schema.
func ToDiscussionRecord(email *Email, patchID string, now time.Time) database.Discussion {
	nowISO := database.ISOTime(now)

	timestamp := nowISO
	if !email.Date.IsZero() {
		timestamp = database.ISOTime(email.Date)
	}

	threadID := ThreadID(email)

	return database.Discussion{
		ID:            EncodeDiscussionID(email.MessageID),
		Timestamp:     timestamp,
		PatchID:       patchID,
		AuthorName:    email.AuthorName,
		AuthorEmail:   email.AuthorEmail,
		Subject:       email.Subject,
		MessageID:     email.MessageID,
		InReplyTo:     email.InReplyTo,
		ThreadID:      threadID,
		References:    email.References,
		Content:       email.Body,
		IsReview:      false,
		LastUpdatedAt: nowISO,

		GSI1PK: database.PatchPartition(patchID),
		GSI1SK: database.DateSort(timestamp),
		GSI2PK: database.ThreadPartition(threadID),
		GSI2SK: database.DateSort(timestamp),
		GSI3PK: database.AuthorPartition(email.AuthorEmail),
		GSI3SK: database.DateSort(timestamp),
	}
}
