package database

import "fmt"

// Secondary-index key derivation. Every component that writes or queries
// index keys goes through these helpers so the formats live in one place.

func SubmitterPartition(submitterID string) string {
	return fmt.Sprintf("SUBMITTER#%s", submitterID)
}

func SeriesPartition(seriesID string) string {
	return fmt.Sprintf("SERIES#%s", seriesID)
}

func StatusPartition(status string) string {
	return fmt.Sprintf("STATUS#%s", status)
}

func PatchPartition(patchID string) string {
	return fmt.Sprintf("PATCH#%s", patchID)
}

func ThreadPartition(threadID string) string {
	return fmt.Sprintf("THREAD#%s", threadID)
}

func AuthorPartition(authorEmail string) string {
	return fmt.Sprintf("AUTHOR#%s", authorEmail)
}

func DateSort(isoDate string) string {
	return fmt.Sprintf("DATE#%s", isoDate)
}
