// Package witness tracks a single deployment job. Every lifecycle transition is recorded twice,
// as a human readable line in the job's append-only log and as a status row in the job store.
// The log append always happens first and the store update second. The two are not transactional,
// so a crash in between leaves the log one step ahead of the persisted status.
package witness

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/thresh/app/enums"
	"github.com/umputun/thresh/app/project"
	"github.com/umputun/thresh/app/store"
)

//go:generate moq -out mocks/persister.go -pkg mocks -skip-ensure -fmt goimports . Persister

// Persister executes parameterized write queries, implemented by store.Channel
type Persister interface {
	Execute(ctx context.Context, q store.Query, params ...any) error
}

// Deps are runtime dependencies shared by all witnesses. Made once at startup.
type Deps struct {
	Persister Persister
	LogsDir   string
	Now       func() time.Time // defaults to time.Now
	NewID     func() string    // defaults to uuid.NewString
}

// Witness records lifecycle of one job. Reporting methods are expected to be called
// in sequence by a single goroutine: Start, any number of ReportCommand, then one of
// ReportSuccess, ReportFailureByExitCode or ReportFailure. Write may be used concurrently
// to add command output.
type Witness struct {
	id        string
	name      string
	project   string
	startedAt time.Time
	log       *LogSink
	deps      Deps

	mu     sync.Mutex
	status enums.JobStatus
}

// Start creates the job's log with the project description as the first line and
// records the job as started. No witness returned on any failure.
func Start(ctx context.Context, jobName string, prj project.Project, deps Deps) (*Witness, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	sink, err := CreateLogSink(jobName, deps.LogsDir)
	if err != nil {
		return nil, err
	}

	abort := func(err error) (*Witness, error) {
		if closeErr := sink.Close(); closeErr != nil {
			log.Printf("[WARN] can't close log %s: %v", sink.Path(), closeErr)
		}
		return nil, err
	}

	if err = sink.Append([]byte(strings.TrimRight(prj.Description(), "\n") + "\n")); err != nil {
		return abort(err)
	}

	commands, err := prj.CommandsJSON()
	if err != nil {
		return abort(fmt.Errorf("%w: %w", ErrCommandsSerialize, err))
	}

	w := &Witness{
		id:        deps.NewID(),
		name:      jobName,
		project:   prj.Name,
		startedAt: deps.Now().UTC(),
		log:       sink,
		deps:      deps,
		status:    enums.JobStatusStarted,
	}

	err = deps.Persister.Execute(ctx, store.QueryInsertJob, w.id, w.name, enums.JobStatusStarted, w.project,
		string(commands), store.FormatTime(w.startedAt))
	if err != nil {
		return abort(fmt.Errorf("can't record start of job %s: %w", jobName, err))
	}

	log.Printf("[INFO] job %s (%s) started for project %s, log %s", w.name, w.id, w.project, sink.Path())
	return w, nil
}

// ReportCommand marks the beginning of a command in the log
func (w *Witness) ReportCommand(command string) error {
	log.Printf("[DEBUG] job %s, command %q", w.name, command)
	return w.log.Append([]byte("$ " + command + "\n"))
}

// ReportSuccess records the job as succeeded
func (w *Witness) ReportSuccess(ctx context.Context) error {
	if err := w.checkActive(); err != nil {
		return err
	}
	return w.finish(ctx, enums.JobStatusSucceeded)
}

// ReportFailureByExitCode logs the exit code and records the job as failed.
// Negative code means the process was terminated by a signal, same as exec.ExitError.ExitCode.
func (w *Witness) ReportFailureByExitCode(ctx context.Context, code int) error {
	if err := w.checkActive(); err != nil {
		return err
	}
	line := fmt.Sprintf("Exit %d\n", code)
	if code < 0 {
		line = "Process terminated by signal\n"
	}
	if err := w.log.Append([]byte(line)); err != nil {
		return err
	}
	return w.finish(ctx, enums.JobStatusFailed)
}

// ReportFailure logs the runner error and records the job as failed
func (w *Witness) ReportFailure(ctx context.Context, runErr error) error {
	if err := w.checkActive(); err != nil {
		return err
	}
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := w.log.Append([]byte(strings.TrimRight(msg, "\n") + "\n")); err != nil {
		return err
	}
	return w.finish(ctx, enums.JobStatusFailed)
}

// Write appends command output to the log, satisfies io.Writer
func (w *Witness) Write(p []byte) (int, error) {
	return w.log.Write(p)
}

// DuplicateLog returns an independent read handle to the job's log, for streaming it while the job runs
func (w *Witness) DuplicateLog() (*os.File, error) {
	return w.log.Duplicate()
}

// Close releases the log write handle
func (w *Witness) Close() error {
	return w.log.Close()
}

// ID returns job id
func (w *Witness) ID() string { return w.id }

// Name returns job name
func (w *Witness) Name() string { return w.name }

// LogPath returns the job's log file path
func (w *Witness) LogPath() string { return w.log.Path() }

// Status returns the last durably recorded status
func (w *Witness) Status() enums.JobStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// checkActive rejects a transition once a terminal status has been persisted
func (w *Witness) checkActive() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != enums.JobStatusStarted {
		return fmt.Errorf("job %s is %s: %w", w.name, w.status, ErrAlreadyFinished)
	}
	return nil
}

// finish persists the terminal status. On failure the job stays started and the call may be repeated.
func (w *Witness) finish(ctx context.Context, status enums.JobStatus) error {
	endedAt := w.deps.Now().UTC()
	if endedAt.Before(w.startedAt) {
		endedAt = w.startedAt // wall clock moved back
	}

	if err := w.deps.Persister.Execute(ctx, store.QueryUpdateJobStatus, status, store.FormatTime(endedAt), w.id); err != nil {
		return fmt.Errorf("can't record %s status of job %s: %w", status, w.name, err)
	}

	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
	log.Printf("[INFO] job %s (%s) %s in %v", w.name, w.id, status, endedAt.Sub(w.startedAt).Round(time.Millisecond))
	return nil
}
