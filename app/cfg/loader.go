package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"patchlore_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"patchlore_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"patchlore" description:"Database name"`

	// Upstream endpoints. The single patchwork/lore pair is the fallback
	// when no project definitions are present in the projects directory.
	PatchworkURL string `long:"patchwork-url" env:"PATCHWORK_URL" default:"https://patchwork.kernel.org/api/1.1/projects/rust-for-linux/patches/" description:"Patchwork patches endpoint"`
	LoreURL      string `long:"lore-url" env:"LORE_URL" default:"https://lore.kernel.org" description:"Mailing list archive base URL"`
	LoreList     string `long:"lore-list" env:"LORE_LIST" default:"rust-for-linux" description:"Mailing list name on the archive"`
	ProjectsDir  string `long:"projects-dir" env:"PROJECTS_DIR" default:"./projects" description:"Directory containing tracked project definition files"`

	// Ingestion configuration
	PerPage             int  `long:"per-page" env:"PER_PAGE" default:"50" description:"Patches requested per feed page"`
	MaxPages            int  `long:"max-pages" env:"MAX_PAGES" default:"5" description:"Hard ceiling on feed pages processed per run"`
	FetchDiscussions    bool `long:"fetch-discussions" env:"FETCH_DISCUSSIONS" description:"Crawl discussion threads for ingested patches"`
	RefreshLookbackDays int  `long:"refresh-lookback-days" env:"REFRESH_LOOKBACK_DAYS" default:"30" description:"How far back the discussion refresh looks for patches"`
	RefreshLimit        int  `long:"refresh-limit" env:"REFRESH_LIMIT" default:"100" description:"Maximum patches refreshed per run"`
	SchedulerInterval   int  `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Scheduler interval in seconds"`
	WorkerCount         int  `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for ingestion tasks"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Patchlore/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		PatchworkURL:        raw.PatchworkURL,
		LoreURL:             raw.LoreURL,
		LoreList:            raw.LoreList,
		ProjectsDir:         raw.ProjectsDir,
		PerPage:             raw.PerPage,
		MaxPages:            raw.MaxPages,
		FetchDiscussions:    raw.FetchDiscussions,
		RefreshLookbackDays: raw.RefreshLookbackDays,
		RefreshLimit:        raw.RefreshLimit,
		SchedulerInterval:   raw.SchedulerInterval,
		WorkerCount:         raw.WorkerCount,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
