package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "projects.yml")
	data := `
projects:
  - name: site
    path: /srv/site
    commands:
      - git pull
      - make deploy
  - name: api
    path: ~/api
    commands: [docker compose pull, docker compose up -d]
`
	require.NoError(t, os.WriteFile(file, []byte(data), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 2)
	assert.Equal(t, []string{"site", "api"}, cfg.Names())

	p, ok := cfg.Get("site")
	require.True(t, ok)
	assert.Equal(t, "/srv/site", p.Path)
	assert.Equal(t, []string{"git pull", "make deploy"}, p.Commands)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	p, ok = cfg.Get("api")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, "api"), p.Path)

	_, ok = cfg.Get("nope")
	assert.False(t, ok)
}

func TestLoad_NoFile(t *testing.T) {
	_, err := Load("/tmp/no-such-projects-file.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name, data, err string
	}{
		{"no projects", "projects: []", "at least one project is required"},
		{"no name", "projects: [{commands: [ls]}]", "project 1: name is required"},
		{"duplicate", "projects: [{name: a, commands: [ls]}, {name: a, commands: [pwd]}]", `project 2: duplicate name "a"`},
		{"no commands", "projects: [{name: a}]", `project "a": at least one command is required`},
		{"empty command", `projects: [{name: a, commands: [ls, " "]}]`, `project "a": command 2 is empty`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.EqualError(t, err, tt.err)
		})
	}

	_, err := Parse([]byte("projects: {bad"))
	assert.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()
	require.NotNil(t, schema)
	data, err := schema.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "commands")
	assert.Contains(t, string(data), "projects")
}
