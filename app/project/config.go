package project

import (
	"fmt"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ./internal/schema projects.schema.json

// Config is the projects file
type Config struct {
	Projects []Project `yaml:"projects" json:"projects" jsonschema:"required,minItems=1"`
}

// Load reads and validates projects file
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file) //nolint:gosec // file name comes from cli options
	if err != nil {
		return nil, fmt.Errorf("can't read projects file %s: %w", file, err)
	}
	return Parse(data)
}

// Parse decodes and validates projects yaml, paths get ~ expanded
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("can't parse projects: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	for i, p := range cfg.Projects {
		if p.Path == "" {
			continue
		}
		path, err := ExpandHome(p.Path)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
		cfg.Projects[i].Path = path
	}
	log.Printf("[DEBUG] loaded %d project(s)", len(cfg.Projects))
	return &cfg, nil
}

// Get returns project by name
func (c *Config) Get(name string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// Names returns all project names in file order
func (c *Config) Names() []string {
	res := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		res = append(res, p.Name)
	}
	return res
}

func (c *Config) validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("at least one project is required")
	}

	seen := map[string]bool{}
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("project %d: name is required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("project %d: duplicate name %q", i+1, p.Name)
		}
		seen[p.Name] = true
		if len(p.Commands) == 0 {
			return fmt.Errorf("project %q: at least one command is required", p.Name)
		}
		for j, cmd := range p.Commands {
			if strings.TrimSpace(cmd) == "" {
				return fmt.Errorf("project %q: command %d is empty", p.Name, j+1)
			}
		}
	}
	return nil
}

// GenerateSchema generates a JSON schema for the projects file
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
