package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/thresh/app/enums"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLStore(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		s, err := NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		assert.Equal(t, "sqlite", s.driver)
		require.NoError(t, s.Close())
	})

	t.Run("invalid path", func(t *testing.T) {
		s, err := NewSQLStore(context.Background(), "/invalid/path/that/does/not/exist/test.db")
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestSQLStore_TablesCreated(t *testing.T) {
	s := newTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='jobs'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// initialize is idempotent
	require.NoError(t, s.initialize(context.Background()))
}

func Test_driverFor(t *testing.T) {
	tests := []struct{ name, dsn, driver, source string }{
		{"postgres url", "postgres://u:p@localhost:5432/thresh", "pgx", "postgres://u:p@localhost:5432/thresh"},
		{"postgresql url", "postgresql://localhost/thresh?sslmode=disable", "pgx", "postgresql://localhost/thresh?sslmode=disable"},
		{"sqlite file", "/var/lib/thresh.db", "sqlite", "/var/lib/thresh.db?_pragma=busy_timeout(5000)"},
		{"sqlite with params", "thresh.db?_pragma=foreign_keys(1)", "sqlite", "thresh.db?_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source := driverFor(tt.dsn)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestSQLStore_InsertUpdateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 4, 10, 11, 12, 345_000_000, time.UTC)
	err := s.Exec(ctx, QueryInsertJob, "id1", "site", enums.JobStatusStarted, "site", `["git pull","make"]`, FormatTime(started))
	require.NoError(t, err)

	rec, err := s.GetJob(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, "site", rec.Name)
	assert.Equal(t, enums.JobStatusStarted, rec.Status)
	assert.Equal(t, started, rec.StartedAt)
	assert.True(t, rec.EndedAt.IsZero(), "no end time while started")
	assert.JSONEq(t, `["git pull","make"]`, string(rec.Commands))

	ended := started.Add(1500 * time.Millisecond)
	err = s.Exec(ctx, QueryUpdateJobStatus, enums.JobStatusSucceeded, FormatTime(ended), "id1")
	require.NoError(t, err)

	rec, err = s.GetJob(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusSucceeded, rec.Status)
	assert.Equal(t, ended, rec.EndedAt)

	var raw string
	require.NoError(t, s.db.Get(&raw, "SELECT status FROM jobs WHERE id = 'id1'"))
	assert.Equal(t, "succeeded", raw, "status stored as lowercase token")
	require.NoError(t, s.db.Get(&raw, "SELECT ended_at FROM jobs WHERE id = 'id1'"))
	assert.Equal(t, "2025-03-04T10:11:13.845Z", raw)
}

func TestSQLStore_ExecErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Exec(ctx, Query("blah"))
	assert.EqualError(t, err, `unknown query "blah"`)

	err = s.Exec(ctx, QueryUpdateJobStatus, enums.JobStatusFailed, FormatTime(time.Now()), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	now := FormatTime(time.Now())
	require.NoError(t, s.Exec(ctx, QueryInsertJob, "dup", "n", enums.JobStatusStarted, "p", "[]", now))
	err = s.Exec(ctx, QueryInsertJob, "dup", "n", enums.JobStatusStarted, "p", "[]", now)
	assert.Error(t, err, "primary key violation")
}

func TestSQLStore_ListJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := s.Exec(ctx, QueryInsertJob, id, "job-"+id, enums.JobStatusStarted, "prj", "[]",
			FormatTime(base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	require.NoError(t, s.Exec(ctx, QueryUpdateJobStatus, enums.JobStatusFailed, FormatTime(base.Add(time.Hour)), "a"))

	jobs, err := s.ListJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "c", jobs[0].ID, "newest first")
	assert.Equal(t, "a", jobs[2].ID)
	assert.Equal(t, enums.JobStatusFailed, jobs[2].Status)
	assert.Equal(t, base.Add(time.Hour), jobs[2].EndedAt)

	jobs, err = s.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestSQLStore_LatestJobID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Exec(ctx, QueryInsertJob, "old", "site", enums.JobStatusSucceeded, "site", "[]", FormatTime(base)))
	require.NoError(t, s.Exec(ctx, QueryInsertJob, "new", "site", enums.JobStatusStarted, "site", "[]",
		FormatTime(base.Add(time.Second))))
	require.NoError(t, s.Exec(ctx, QueryInsertJob, "other", "api", enums.JobStatusStarted, "api", "[]",
		FormatTime(base.Add(time.Minute))))

	id, err := s.LatestJobID(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, "new", id)

	_, err = s.LatestJobID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_GetJobNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	ts, err = ParseTime("2025-03-04T10:11:12.345Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 11, 12, 345_000_000, time.UTC), ts)

	_, err = ParseTime("yesterday")
	assert.Error(t, err)

	loc := time.FixedZone("X", 3*3600)
	assert.Equal(t, "2025-03-04T07:11:12.000Z", FormatTime(time.Date(2025, 3, 4, 10, 11, 12, 0, loc)))
}
