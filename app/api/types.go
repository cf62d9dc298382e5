package api

import (
	"github.com/patchlore/patchlore/app/database"
	"github.com/patchlore/patchlore/app/ingest"
)

type Handler struct {
	patchRepo      database.PatchRepository
	discussionRepo database.DiscussionRepository
	ingestors      map[string]*ingest.Ingestor // keyed by project name
	scheduler      ingest.TaskSchedulerInterface
}
