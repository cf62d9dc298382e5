package projects

// ProjectConfig represents a complete tracked project definition
type ProjectConfig struct {
	Project  ProjectInfo     `yaml:"project"`
	Settings ProjectSettings `yaml:"settings"`
}

// ProjectInfo identifies the upstream sources for one tracked project
type ProjectInfo struct {
	Name         string `yaml:"name"`
	PatchworkURL string `yaml:"patchwork_url"`
	LoreList     string `yaml:"lore_list"`
}

// ProjectSettings contains per-project ingestion settings
type ProjectSettings struct {
	Enabled          bool `yaml:"enabled"`
	PerPage          int  `yaml:"per_page"`
	MaxPages         int  `yaml:"max_pages"`
	FetchDiscussions bool `yaml:"fetch_discussions"`
}
