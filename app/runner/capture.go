package runner

import (
	"bytes"
	"strings"
	"sync"
)

// OutputCapture keeps the last N lines of command output (stdout+stderr combined) for notifications.
// A line split between writes is joined back. Thread safe.
type OutputCapture struct {
	maxLines int
	lines    []string
	partial  []byte
	mu       sync.Mutex
}

// NewOutputCapture makes io.Writer capturing up to maxLines last lines, 0 disables capture
func NewOutputCapture(maxLines int) *OutputCapture {
	return &OutputCapture{maxLines: maxLines}
}

// Write satisfies io.Writer, never fails
func (o *OutputCapture) Write(p []byte) (int, error) {
	if o.maxLines <= 0 {
		return len(p), nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	data := append(o.partial, p...) //nolint:gocritic // partial is owned
	o.partial = nil
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		o.add(data[:idx])
		data = data[idx+1:]
	}
	if len(data) > 0 {
		o.partial = append([]byte(nil), data...)
	}
	return len(p), nil
}

// Output returns captured lines joined with \n, including the unterminated last line
func (o *OutputCapture) Output() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	lines := o.lines
	if len(o.partial) > 0 {
		lines = append(append([]string(nil), lines...), string(o.partial))
		if len(lines) > o.maxLines {
			lines = lines[len(lines)-o.maxLines:]
		}
	}
	return strings.Join(lines, "\n")
}

func (o *OutputCapture) add(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	if len(o.lines) >= o.maxLines {
		o.lines = o.lines[1:]
	}
	o.lines = append(o.lines, string(line))
}
