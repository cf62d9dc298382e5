package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Upstream endpoints
	PatchworkURL string
	LoreURL      string
	LoreList     string
	ProjectsDir  string

	// Ingestion configuration
	PerPage             int
	MaxPages            int
	FetchDiscussions    bool
	RefreshLookbackDays int
	RefreshLimit        int
	SchedulerInterval   int
	WorkerCount         int

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
