package witness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p1, err := LogPath("site", "~/logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs", "site.log"), p1)

	p2, err := LogPath("site", "~/logs")
	require.NoError(t, err)
	assert.Equal(t, p1, p2, "same name and dir, same path")

	p, err := LogPath("api-2025", "/var/log/thresh")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/thresh/api-2025.log", p)

	for _, name := range []string{"", ".", "..", "a/b", "../etc/passwd"} {
		_, err = LogPath(name, "/tmp")
		assert.ErrorIs(t, err, ErrLogFileCreate, name)
	}
}

func TestCreateLogSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	sink, err := CreateLogSink("job1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job1.log"), sink.Path())
	require.NoError(t, sink.Append([]byte("line1\n")))
	n, err := sink.Write([]byte("line2\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "job1.log"))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(data))

	// same name again truncates prior log
	sink, err = CreateLogSink("job1", dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append([]byte("fresh\n")))
	require.NoError(t, sink.Close())
	data, err = os.ReadFile(filepath.Join(dir, "job1.log"))
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(data))
}

func TestCreateLogSink_Errors(t *testing.T) {
	tmp := t.TempDir()

	t.Run("dir creation failed", func(t *testing.T) {
		file := filepath.Join(tmp, "regular-file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := CreateLogSink("job", filepath.Join(file, "logs"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLogDirCreate)
		assert.NotErrorIs(t, err, ErrLogFileCreate)
	})

	t.Run("file creation failed", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(tmp, "logs", "busy.log"), 0o750))
		_, err := CreateLogSink("busy", filepath.Join(tmp, "logs"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLogFileCreate)
	})
}

func TestLogSink_AppendAfterClose(t *testing.T) {
	sink, err := CreateLogSink("job", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Append([]byte("late\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLogWrite)
	assert.ErrorIs(t, err, os.ErrClosed)

	n, err := sink.Write([]byte("late\n"))
	assert.ErrorIs(t, err, ErrLogWrite)
	assert.Equal(t, 0, n)
}

func TestLogSink_Duplicate(t *testing.T) {
	dir := t.TempDir()
	sink, err := CreateLogSink("job", dir)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append([]byte("first\n")))
	dup, err := sink.Duplicate()
	require.NoError(t, err)
	defer dup.Close()

	require.NoError(t, sink.Append([]byte("second\n")))
	data, err := io.ReadAll(dup)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data), "duplicate sees later appends")

	_, err = dup.Write([]byte("nope"))
	assert.Error(t, err, "duplicate is read only")

	require.NoError(t, os.Remove(sink.Path()))
	_, err = sink.Duplicate()
	assert.ErrorIs(t, err, ErrLogDuplicate)
}

func TestLogSink_DuplicateReadsPrefixWhileAppending(t *testing.T) {
	sink, err := CreateLogSink("job", t.TempDir())
	require.NoError(t, err)
	defer sink.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			assert.NoError(t, sink.Append([]byte(fmt.Sprintf("line %03d\n", i))))
		}
	}()

	var snapshots [][]byte
	for i := 0; i < 20; i++ {
		dup, err := sink.Duplicate()
		require.NoError(t, err)
		data, err := io.ReadAll(dup)
		require.NoError(t, err)
		require.NoError(t, dup.Close())
		snapshots = append(snapshots, data)
	}
	wg.Wait()

	final, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	for _, snap := range snapshots {
		assert.True(t, bytes.HasPrefix(final, snap), "snapshot %q is not a prefix", snap)
	}
}
