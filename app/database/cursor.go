package database

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursor is the decoded form of the opaque pagination token returned by
// index queries. The sort key plus the primary key break ties between rows
// sharing a sort value.
type cursor struct {
	SortKey   string `json:"sk"`
	ID        string `json:"id"`
	Timestamp string `json:"ts,omitempty"`
}

func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(token string) (cursor, error) {
	var c cursor

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, &FatalStoreError{Err: fmt.Errorf("malformed cursor: %w", err)}
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return c, &FatalStoreError{Err: fmt.Errorf("malformed cursor: %w", err)}
	}

	return c, nil
}
