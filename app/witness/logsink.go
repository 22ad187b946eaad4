package witness

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/umputun/thresh/app/project"
)

// LogSink is an append-only log file of a single job. Appends are serialized,
// reads go through independent handles made by Duplicate.
type LogSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// LogPath returns the log file location for the job, {logsDir}/{jobName}.log with logsDir
// expanded. The same name in the same directory always maps to the same file.
func LogPath(jobName, logsDir string) (string, error) {
	if jobName == "" || jobName == "." || jobName == ".." || filepath.Base(jobName) != jobName {
		return "", fmt.Errorf("%w: invalid job name %q", ErrLogFileCreate, jobName)
	}
	dir, err := project.ExpandHome(logsDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLogDirCreate, err)
	}
	return filepath.Join(dir, jobName+".log"), nil
}

// CreateLogSink makes logs directory if needed and creates (truncates) the job's log file
func CreateLogSink(jobName, logsDir string) (*LogSink, error) {
	path, err := LogPath(jobName, logsDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLogDirCreate, filepath.Dir(path), err)
	}
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o640) //nolint:gosec // path built from validated job name
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLogFileCreate, path, err)
	}
	return &LogSink{file: fh, path: path}, nil
}

// Append writes p to the end of the log
func (s *LogSink) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(p); err != nil {
		return fmt.Errorf("%w %s: %w", ErrLogWrite, s.path, err)
	}
	return nil
}

// Write satisfies io.Writer, used to stream command output into the log
func (s *LogSink) Write(p []byte) (int, error) {
	if err := s.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Duplicate opens an independent read-only handle to the same log file. The handle has
// its own offset and stays valid while appends continue. Caller closes it.
func (s *LogSink) Duplicate() (*os.File, error) {
	fh, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLogDuplicate, s.path, err)
	}
	return fh, nil
}

// Path returns absolute path of the log file
func (s *LogSink) Path() string { return s.path }

// Close closes the write handle
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
