package patchwork

import (
	"reflect"
	"testing"
	"time"
)

var mapTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestToPatchRecord(t *testing.T) {
	ext := Patch{
		ID:   42,
		Name: "[PATCH v2] rust: add example abstraction",
		Date: "2024-01-01T00:00:00Z",
		Submitter: &Person{
			ID:    7,
			Name:  "A",
			Email: "a@x",
		},
		MsgID:  "<20240101.1234@example.com>",
		URL:    "https://patchwork.example.com/api/patches/42/",
		WebURL: "https://patchwork.example.com/patch/42/",
		Mbox:   "https://patchwork.example.com/patch/42/mbox/",
	}

	record := ToPatchRecord(ext, mapTime)

	if record.ID != "42" {
		t.Errorf("Expected id '42', got '%s'", record.ID)
	}
	if record.SubmitterID != "7" {
		t.Errorf("Expected submitter id '7', got '%s'", record.SubmitterID)
	}
	if record.Status != "NEW" {
		t.Errorf("Expected status 'NEW', got '%s'", record.Status)
	}
	if record.MessageID != "20240101.1234@example.com" {
		t.Errorf("Expected bare message id, got '%s'", record.MessageID)
	}
	if record.GSI1PK != "SUBMITTER#7" {
		t.Errorf("Expected gsi1pk 'SUBMITTER#7', got '%s'", record.GSI1PK)
	}
	if record.GSI1SK != "DATE#2024-01-01T00:00:00Z" {
		t.Errorf("Expected gsi1sk 'DATE#2024-01-01T00:00:00Z', got '%s'", record.GSI1SK)
	}
	if record.GSI3PK != "STATUS#NEW" {
		t.Errorf("Expected gsi3pk 'STATUS#NEW', got '%s'", record.GSI3PK)
	}
	if record.GSI3SK != "DATE#2024-01-01T00:00:00Z" {
		t.Errorf("Expected gsi3sk 'DATE#2024-01-01T00:00:00Z', got '%s'", record.GSI3SK)
	}
	if record.DiscussionCount != 0 {
		t.Errorf("Expected discussion count 0, got %d", record.DiscussionCount)
	}
}

func TestToPatchRecordNoSeries(t *testing.T) {
	ext := Patch{
		ID:        42,
		Date:      "2024-01-01T00:00:00Z",
		Submitter: &Person{ID: 7, Name: "A", Email: "a@x"},
	}

	record := ToPatchRecord(ext, mapTime)

	// No series: the series fields and the series index pair must be
	// entirely absent, never a placeholder.
	if record.SeriesID != "" || record.SeriesName != "" || record.SeriesVersion != "" {
		t.Errorf("Expected empty series fields, got id='%s' name='%s' version='%s'",
			record.SeriesID, record.SeriesName, record.SeriesVersion)
	}
	if record.GSI2PK != "" || record.GSI2SK != "" {
		t.Errorf("Expected no series index pair, got pk='%s' sk='%s'", record.GSI2PK, record.GSI2SK)
	}
}

func TestToPatchRecordFirstSeriesOnly(t *testing.T) {
	ext := Patch{
		ID:        43,
		Date:      "2024-02-01T00:00:00Z",
		Submitter: &Person{ID: 7},
		Series: []Series{
			{ID: 301, Name: "first series", Version: 2},
			{ID: 302, Name: "second series", Version: 1},
		},
	}

	record := ToPatchRecord(ext, mapTime)

	if record.SeriesID != "301" {
		t.Errorf("Expected series id '301' (first element), got '%s'", record.SeriesID)
	}
	if record.SeriesName != "first series" {
		t.Errorf("Expected series name 'first series', got '%s'", record.SeriesName)
	}
	if record.SeriesVersion != "2" {
		t.Errorf("Expected series version '2', got '%s'", record.SeriesVersion)
	}
	if record.GSI2PK != "SERIES#301" {
		t.Errorf("Expected gsi2pk 'SERIES#301', got '%s'", record.GSI2PK)
	}
	if record.GSI2SK != "DATE#2024-02-01T00:00:00Z" {
		t.Errorf("Expected gsi2sk 'DATE#2024-02-01T00:00:00Z', got '%s'", record.GSI2SK)
	}
}

func TestToPatchRecordMissingSubmitter(t *testing.T) {
	ext := Patch{
		ID:   44,
		Date: "2024-01-01T00:00:00Z",
	}

	record := ToPatchRecord(ext, mapTime)

	if record.SubmitterID != "0" {
		t.Errorf("Expected submitter id '0', got '%s'", record.SubmitterID)
	}
	if record.SubmitterName != "Unknown" {
		t.Errorf("Expected submitter name 'Unknown', got '%s'", record.SubmitterName)
	}
	if record.SubmitterEmail != "" {
		t.Errorf("Expected empty submitter email, got '%s'", record.SubmitterEmail)
	}
	if record.GSI1PK != "SUBMITTER#0" {
		t.Errorf("Expected gsi1pk 'SUBMITTER#0', got '%s'", record.GSI1PK)
	}
}

func TestToPatchRecordMissingDate(t *testing.T) {
	ext := Patch{
		ID:        45,
		Submitter: &Person{ID: 7},
	}

	record := ToPatchRecord(ext, mapTime)

	if record.SubmittedAt != "2024-06-01T12:00:00Z" {
		t.Errorf("Expected mapping time as date fallback, got '%s'", record.SubmittedAt)
	}
	if record.GSI1SK != "DATE#2024-06-01T12:00:00Z" {
		t.Errorf("Expected fallback date in sort key, got '%s'", record.GSI1SK)
	}
}

func TestToPatchRecordDeterministic(t *testing.T) {
	ext := Patch{
		ID:        42,
		Name:      "[PATCH] deterministic",
		Date:      "2024-01-01T00:00:00Z",
		Submitter: &Person{ID: 7, Name: "A", Email: "a@x"},
		Series:    []Series{{ID: 301, Name: "s", Version: 1}},
		MsgID:     "<m@x>",
		Content:   "diff --git a/a b/a",
	}

	first := ToPatchRecord(ext, mapTime)
	second := ToPatchRecord(ext, mapTime)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical records for identical input:\n%+v\n%+v", first, second)
	}
}
