// Package runner executes project commands for a job and reports every step to the job's witness
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"reflect"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/thresh/app/project"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// Witness records the job lifecycle, implemented by witness.Witness
type Witness interface {
	io.Writer
	Name() string
	ReportCommand(command string) error
	ReportSuccess(ctx context.Context) error
	ReportFailureByExitCode(ctx context.Context, code int) error
	ReportFailure(ctx context.Context, runErr error) error
}

// Notifier interface defines delivery of job outcome messages
type Notifier interface {
	Send(ctx context.Context, subj, text string) error
	IsOnError() bool
	IsOnCompletion() bool
	MakeErrorText(job, project, errLog string) string
	MakeCompletionText(job, project string) string
}

// Runner runs project commands sequentially, stopping on the first failure
type Runner struct {
	Notifier          Notifier
	NotifyTimeout     time.Duration
	NotifyMaxLogLines int    // output tail lines included in error notifications
	Shell             string // defaults to sh
}

// Run executes all commands of prj and records the outcome with w. Blocks till the job is done.
// Canceling ctx kills the running command, the job is recorded as terminated by signal.
// Returns the command error, or the reporting error if the outcome couldn't be recorded.
func (r *Runner) Run(ctx context.Context, w Witness, prj project.Project) error {
	capture := NewOutputCapture(r.NotifyMaxLogLines)
	runErr := r.execute(ctx, w, prj, capture)

	// outcome has to be recorded even if ctx canceled
	reportCtx := context.WithoutCancel(ctx)
	var reportErr error
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		reportErr = w.ReportSuccess(reportCtx)
	case errors.As(runErr, &exitErr):
		reportErr = w.ReportFailureByExitCode(reportCtx, exitErr.ExitCode())
	default:
		reportErr = w.ReportFailure(reportCtx, runErr)
	}
	if reportErr != nil {
		log.Printf("[WARN] can't record outcome of job %s: %v", w.Name(), reportErr)
	}

	if runErr != nil {
		log.Printf("[INFO] job %s failed: %v", w.Name(), runErr)
	}

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if out := capture.Output(); out != "" {
			errMsg += "\n\n" + out
		}
	}
	if err := r.notify(reportCtx, w.Name(), prj.Name, errMsg); err != nil {
		log.Printf("[WARN] failed to notify, %v", err)
	}

	if reportErr != nil {
		return fmt.Errorf("can't record outcome of job %s: %w", w.Name(), reportErr)
	}
	return runErr
}

func (r *Runner) execute(ctx context.Context, w Witness, prj project.Project, capture io.Writer) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	out := io.MultiWriter(w, capture)
	for _, command := range prj.Commands {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job %s canceled before %q: %w", w.Name(), command, err)
		}
		if err := w.ReportCommand(command); err != nil {
			return err
		}
		cmd := exec.CommandContext(ctx, shell, "-c", command) // nolint gosec
		cmd.Dir = prj.Path
		cmd.Stdout = out
		cmd.Stderr = out
		cmd.WaitDelay = 5 * time.Second // background children may keep output pipe open after kill
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("failed to execute command %s: %w", command, err)
		}
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, job, prj, errMsg string) error {
	if r.Notifier == nil || reflect.ValueOf(r.Notifier).IsNil() {
		return nil
	}
	timeout := r.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if errMsg != "" && r.Notifier.IsOnError() {
		msg := r.Notifier.MakeErrorText(job, prj, errMsg)
		if err := r.Notifier.Send(ctx, fmt.Sprintf("failed job %s", job), msg); err != nil {
			return fmt.Errorf("failed to send error notification: %w", err)
		}
		return nil
	}

	if errMsg == "" && r.Notifier.IsOnCompletion() {
		msg := r.Notifier.MakeCompletionText(job, prj)
		if err := r.Notifier.Send(ctx, fmt.Sprintf("completed job %s", job), msg); err != nil {
			return fmt.Errorf("failed to send completion notification: %w", err)
		}
	}
	return nil
}
