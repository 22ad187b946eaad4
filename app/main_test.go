package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/thresh/app/auth"
)

func Test_makeHostName(t *testing.T) {
	opts.Notify.HostName = "test"
	assert.Equal(t, "test", makeHostName())

	opts.Notify.HostName = ""
	exp, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, exp, makeHostName())
}

func Test_makeNotifier(t *testing.T) {
	opts.Notify.EnabledCompletion, opts.Notify.EnabledError = false, false
	opts.Notify.Webhooks = []string{"http://example.com/hook"}
	assert.Nil(t, makeNotifier())

	opts.Notify.EnabledCompletion = true
	notif := makeNotifier()
	require.NotNil(t, notif)
	assert.True(t, notif.IsOnCompletion())
	assert.False(t, notif.IsOnError())

	opts.Notify.Webhooks = nil
	assert.Nil(t, makeNotifier(), "no destinations")
	opts.Notify.EnabledCompletion = false
}

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	tmpfile := filepath.Join(t.TempDir(), "thresh.log")

	opts.Log.Enabled = true
	opts.Log.Filename = tmpfile
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false
	defer func() {
		opts.Log.Enabled = false
		setupLogs()
	}()

	out := setupLogs()
	assert.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, tmpfile, logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)
}

func Test_makeDSN(t *testing.T) {
	dsn, err := makeDSN("postgres://u:p@localhost/thresh?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/thresh?sslmode=disable", dsn)

	dir := t.TempDir()
	dsn, err = makeDSN(filepath.Join(dir, "sub", "thresh.db"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "thresh.db"), dsn)
	assert.DirExists(t, filepath.Join(dir, "sub"))

	dsn, err = makeDSN(filepath.Join(dir, "x.db") + "?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.db")+"?_pragma=foreign_keys(1)", dsn)

}

func Test_runToken(t *testing.T) {
	opts.Secret, opts.Token = "s1", true
	defer func() { opts.Token = false }()

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf))
	token := strings.TrimSpace(buf.String())
	assert.NoError(t, auth.Authorize("s1", token))
	assert.Error(t, auth.Authorize("s2", token))
}

func Test_runSchema(t *testing.T) {
	saved := opts
	defer func() { opts = saved }()
	t.Setenv("THRESH_SECRET", "")

	_, err := flags.ParseArgs(&opts, []string{"--schema"})
	require.NoError(t, err, "no secret needed for schema")
	assert.Empty(t, opts.Secret)

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"commands"`)
}

func Test_runNoSecret(t *testing.T) {
	saved := opts
	defer func() { opts = saved }()

	for _, token := range []bool{false, true} {
		opts.Secret, opts.Token = "", token
		err := run(context.Background(), io.Discard)
		assert.EqualError(t, err, "secret is required, set --secret or THRESH_SECRET")
	}
}

func Test_runBadProjects(t *testing.T) {
	opts.Secret, opts.Projects = "s1", "/nonexistent/projects.yml"
	err := run(context.Background(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't read projects file")
}

func Test_runServer(t *testing.T) {
	dir := t.TempDir()
	projectsFile := filepath.Join(dir, "projects.yml")
	require.NoError(t, os.WriteFile(projectsFile, []byte(`
projects:
  - name: site
    path: `+dir+`
    commands: ["echo deploying", "touch done.txt"]
`), 0o600))

	opts.Secret = "s1"
	opts.Projects = projectsFile
	opts.DB = filepath.Join(dir, "db", "thresh.db")
	opts.LogsDir = filepath.Join(dir, "logs")
	opts.Listen = freeAddr(t)
	opts.Store.QueueSize, opts.Store.Workers = 8, 1
	opts.WebhookLimit = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, io.Discard) }()

	base := "http://" + opts.Listen
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	token, err := auth.IssueToken("s1")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/webhook", strings.NewReader(`{"project":"site"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var started struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "started", started.Status)

	require.Eventually(t, func() bool {
		req, err := http.NewRequest(http.MethodGet, base+"/api/v1/jobs/"+started.ID, http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var rec struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return false
		}
		return rec.Status == "succeeded"
	}, 5*time.Second, 50*time.Millisecond)

	assert.FileExists(t, filepath.Join(dir, "done.txt"))
	logData, err := os.ReadFile(filepath.Join(dir, "logs", "site.log"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Project site, 2 command(s), in %s\n$ echo deploying\ndeploying\n$ touch done.txt\n", dir),
		string(logData))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run didn't stop")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
