package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/umputun/thresh/app/enums"
)

// timeLayout is RFC 3339 with fixed millisecond precision. Stored values sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// JobSummary is a job without its command list, used for listings
type JobSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Status    enums.JobStatus `json:"status"`
	Project   string          `json:"project"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitzero"` // zero until the job reaches a terminal status
}

// JobRecord is the full persisted job
type JobRecord struct {
	JobSummary
	Commands json.RawMessage `json:"commands"`
}

// jobRow is the database shape of a job, timestamps kept as text
type jobRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Status    enums.JobStatus `db:"status"`
	Project   string          `db:"project"`
	Commands  string          `db:"commands"`
	StartedAt string          `db:"started_at"`
	EndedAt   string          `db:"ended_at"`
}

// FormatTime renders t in UTC with millisecond precision, the only timestamp form stored
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a stored timestamp, empty string is a zero time
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func (r jobRow) summary() (JobSummary, error) {
	started, err := ParseTime(r.StartedAt)
	if err != nil {
		return JobSummary{}, err
	}
	ended, err := ParseTime(r.EndedAt)
	if err != nil {
		return JobSummary{}, err
	}
	return JobSummary{ID: r.ID, Name: r.Name, Status: r.Status, Project: r.Project, StartedAt: started, EndedAt: ended}, nil
}

func (r jobRow) record() (JobRecord, error) {
	summary, err := r.summary()
	if err != nil {
		return JobRecord{}, err
	}
	res := JobRecord{JobSummary: summary}
	if r.Commands != "" {
		res.Commands = json.RawMessage(r.Commands)
	}
	return res, nil
}
