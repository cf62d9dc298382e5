package projects

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of tracked project definitions
type Loader struct {
	projectsDir string
}

// NewLoader creates a new project definition loader
func NewLoader(projectsDir string) *Loader {
	return &Loader{projectsDir: projectsDir}
}

// LoadAll loads all YAML project definitions from the projects directory
func (l *Loader) LoadAll() (map[string]*ProjectConfig, error) {
	configs := make(map[string]*ProjectConfig)

	// Check if projects directory exists
	if _, err := os.Stat(l.projectsDir); os.IsNotExist(err) {
		return configs, nil // Return empty map if directory doesn't exist
	}

	files, err := filepath.Glob(filepath.Join(l.projectsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	// Also check for .yml extension
	ymlFiles, err := filepath.Glob(filepath.Join(l.projectsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	names := make(map[string]string)
	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid project %s: %w", file, err)
		}

		if prev, ok := names[config.Project.Name]; ok {
			return nil, fmt.Errorf("duplicate project name %q in %s and %s", config.Project.Name, prev, file)
		}
		names[config.Project.Name] = file

		configs[file] = config
		log.Printf("Loaded project definition from %s", file)
	}

	return configs, nil
}

// loadFile loads a single YAML project definition file
func (l *Loader) loadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config ProjectConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Set defaults
	l.setDefaults(&config)

	return &config, nil
}

// setDefaults applies default values to a project definition
func (l *Loader) setDefaults(config *ProjectConfig) {
	if config.Settings.PerPage == 0 {
		config.Settings.PerPage = 50
	}
	if config.Settings.MaxPages == 0 {
		config.Settings.MaxPages = 5
	}
}

// validate validates a project definition
func (l *Loader) validate(config *ProjectConfig) error {
	if config.Project.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if config.Project.PatchworkURL == "" {
		return fmt.Errorf("patchwork URL is required")
	}
	if config.Project.LoreList == "" {
		return fmt.Errorf("lore list is required")
	}

	if config.Settings.PerPage < 0 {
		return fmt.Errorf("per page must be non-negative")
	}
	if config.Settings.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative")
	}

	return nil
}
