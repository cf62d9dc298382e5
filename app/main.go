package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/patchlore/patchlore/app/api"
	"github.com/patchlore/patchlore/app/cfg"
	"github.com/patchlore/patchlore/app/database"
	"github.com/patchlore/patchlore/app/fetch"
	"github.com/patchlore/patchlore/app/ingest"
	"github.com/patchlore/patchlore/app/lore"
	"github.com/patchlore/patchlore/app/patchwork"
	"github.com/patchlore/patchlore/app/projects"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Optional .env file for local development
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Printf("Starting Patchlore server (version %s)...", cfg.GetVersion())

	// Database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Printf("Connected to database successfully")

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Initialize repositories
	patchRepo := database.NewPatchRepo(db)
	discussionRepo := database.NewDiscussionRepo(db)

	// Load tracked project definitions
	log.Printf("Loading project definitions from %s...", appCfg.ProjectsDir)
	loader := projects.NewLoader(appCfg.ProjectsDir)
	projectConfigs, err := loader.LoadAll()
	if err != nil {
		log.Fatal("Failed to load project definitions:", err)
	}

	// Build one ingestion pipeline per enabled project
	httpClient := &http.Client{Timeout: 30 * time.Second}
	fetcher := fetch.NewClient(httpClient, appCfg.UserAgent, fetch.DefaultPolicy())

	var pipelines []*ingest.Pipeline
	ingestors := make(map[string]*ingest.Ingestor)
	for file, pc := range projectConfigs {
		if !pc.Settings.Enabled {
			log.Printf("Project disabled, skipping: %s (%s)", pc.Project.Name, file)
			continue
		}

		patchClient := patchwork.NewClient(fetcher, pc.Project.PatchworkURL)
		loreClient := lore.NewClient(fetcher, appCfg.LoreURL, pc.Project.LoreList)
		ingestor := ingest.NewIngestor(pc.Project.Name, patchClient, loreClient, patchRepo, discussionRepo)

		ingestors[pc.Project.Name] = ingestor
		pipelines = append(pipelines, &ingest.Pipeline{
			Name:             pc.Project.Name,
			Ingestor:         ingestor,
			PerPage:          pc.Settings.PerPage,
			MaxPages:         pc.Settings.MaxPages,
			FetchDiscussions: pc.Settings.FetchDiscussions,
		})
		log.Printf("Tracking project: %s (list: %s)", pc.Project.Name, pc.Project.LoreList)
	}

	// Fall back to the env-configured project when no definitions exist
	if len(pipelines) == 0 {
		log.Printf("No project definitions found, tracking %s from environment", appCfg.LoreList)
		patchClient := patchwork.NewClient(fetcher, appCfg.PatchworkURL)
		loreClient := lore.NewClient(fetcher, appCfg.LoreURL, appCfg.LoreList)
		ingestor := ingest.NewIngestor(appCfg.LoreList, patchClient, loreClient, patchRepo, discussionRepo)

		ingestors[appCfg.LoreList] = ingestor
		pipelines = append(pipelines, &ingest.Pipeline{
			Name:             appCfg.LoreList,
			Ingestor:         ingestor,
			PerPage:          appCfg.PerPage,
			MaxPages:         appCfg.MaxPages,
			FetchDiscussions: appCfg.FetchDiscussions,
		})
	}

	// Initialize and start scheduler
	log.Printf("Starting background scheduler with %d workers for %d projects...", appCfg.WorkerCount, len(pipelines))
	scheduler := ingest.NewScheduler(pipelines, patchRepo)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	log.Println("Initializing HTTP server...")
	apiHandler := api.NewHandler(patchRepo, discussionRepo, ingestors, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	// Create HTTP server with timeouts
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("API endpoints available:")
		log.Printf("  Patches:       http://localhost:%s/patches?status=NEW", appCfg.Port)
		log.Printf("  Patch:         http://localhost:%s/patches/<id>", appCfg.Port)
		log.Printf("  Thread:        http://localhost:%s/threads/<id>", appCfg.Port)
		log.Printf("  Health check:  http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appCfg.Port)

		if appCfg.APIAccessKey != "" {
			log.Printf("  Refresh:       http://localhost:%s/api/patches/<id>/refresh (POST, requires API key)", appCfg.Port)
		} else {
			log.Printf("  API endpoints: DISABLED (API_ACCESS_KEY not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Patchlore server started successfully!")
	log.Println("Press Ctrl+C to shutdown gracefully...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	log.Println("Background scheduler stopped")

	log.Println("Patchlore server shutdown complete")
}
