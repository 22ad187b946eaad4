// Package project loads deployable projects from a yaml file. A project is a named list of shell
// commands executed sequentially in the project's directory.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Project is a single deployable unit
type Project struct {
	Name     string   `yaml:"name" json:"name" jsonschema:"required,description=project name used by webhook callers"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"description=working directory for commands, ~ expanded"`
	Commands []string `yaml:"commands" json:"commands" jsonschema:"required,minItems=1,description=shell commands executed in order"`
}

// Description returns a single-line human readable summary, used as the first line of job log
func (p Project) Description() string {
	dir := p.Path
	if dir == "" {
		dir = "."
	}
	return fmt.Sprintf("Project %s, %d command(s), in %s", p.Name, len(p.Commands), dir)
}

// CommandsJSON serializes the command list for persistence
func (p Project) CommandsJSON() ([]byte, error) {
	cmds := p.Commands
	if cmds == nil {
		cmds = []string{}
	}
	data, err := json.Marshal(cmds)
	if err != nil {
		return nil, fmt.Errorf("can't marshal commands of %s: %w", p.Name, err)
	}
	return data, nil
}

// ExpandHome replaces leading ~ with the user's home directory and makes the path absolute
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("can't get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("can't make %s absolute: %w", path, err)
	}
	return abs, nil
}
