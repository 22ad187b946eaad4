package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/thresh/app/enums"
	"github.com/umputun/thresh/app/store"
	"github.com/umputun/thresh/app/witness"
)

// webhookRequest is the body of POST /api/v1/webhook
type webhookRequest struct {
	Project string `json:"project"`
	Job     string `json:"job,omitempty"` // defaults to project name
}

// webhookResponse describes the started job
type webhookResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Project string          `json:"project"`
	Status  enums.JobStatus `json:"status"`
}

// handleWebhook starts a job for the requested project. The job runs in background,
// the response is sent once the job is recorded as started.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Project == "" {
		s.writeJSONError(w, http.StatusBadRequest, "project required")
		return
	}

	prj, ok := s.cfg.Projects.Get(req.Project)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "project not found")
		return
	}

	name := req.Job
	if name == "" {
		name = prj.Name
	}
	if _, err := witness.LogPath(name, s.cfg.WitnessDeps.LogsDir); errors.Is(err, witness.ErrLogFileCreate) {
		s.writeJSONError(w, http.StatusBadRequest, "invalid job name")
		return
	}

	if !s.active.Reserve(name) {
		s.writeJSONError(w, http.StatusConflict, "job "+name+" is already running")
		return
	}

	// start is not bound to the caller's connection, a recorded job always gets its witness
	wtn, err := witness.Start(context.WithoutCancel(r.Context()), name, prj, s.cfg.WitnessDeps)
	if err != nil {
		s.active.Release(name)
		log.Printf("[ERROR] can't start job %s: %v", name, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to start job")
		return
	}
	s.active.Attach(wtn)

	s.jobsWg.Add(1)
	go func() {
		defer s.jobsWg.Done()
		defer s.active.Release(name)
		if err := s.cfg.Runner.Run(s.jobsCtx, wtn, prj); err != nil {
			log.Printf("[DEBUG] job %s (%s) finished with %v", name, wtn.ID(), err)
		}
		if err := wtn.Close(); err != nil {
			log.Printf("[WARN] can't close log of job %s: %v", name, err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, webhookResponse{ID: wtn.ID(), Name: name, Project: prj.Name, Status: wtn.Status()})
}

// handleListJobs returns recent jobs, newest first
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = l
	}

	jobs, err := s.cfg.Store.ListJobs(r.Context(), limit)
	if err != nil {
		log.Printf("[WARN] failed to list jobs: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

// handleGetJob returns a single job with its commands
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("[WARN] failed to get job %s: %v", r.PathValue("id"), err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleJobLog returns the job's log. Running job's log is read through a duplicated handle,
// with follow=true it is streamed till the job is done. A log file is shared by all runs with
// the same name, so a finished job's log is served only while it is still the latest run of that
// name and the name is not running again, otherwise 410.
func (s *Server) handleJobLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	follow, _ := strconv.ParseBool(r.URL.Query().Get("follow"))

	if wtn, ok := s.active.Get(id); ok {
		fh, err := wtn.DuplicateLog()
		if err != nil {
			log.Printf("[WARN] %v", err)
			s.writeJSONError(w, http.StatusInternalServerError, "failed to open log")
			return
		}
		defer fh.Close()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if follow {
			s.streamLog(w, r, id, fh)
			return
		}
		if _, err := io.Copy(w, fh); err != nil {
			log.Printf("[WARN] failed to send log of %s: %v", id, err)
		}
		return
	}

	rec, err := s.cfg.Store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("[WARN] failed to get job %s: %v", id, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if s.active.Busy(rec.Name) {
		s.writeJSONError(w, http.StatusGone, "log overwritten by a newer run")
		return
	}
	latest, err := s.cfg.Store.LatestJobID(r.Context(), rec.Name)
	if err != nil {
		log.Printf("[WARN] failed to get latest run of %s: %v", rec.Name, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if latest != id {
		s.writeJSONError(w, http.StatusGone, "log overwritten by a newer run")
		return
	}

	path, err := witness.LogPath(rec.Name, s.cfg.WitnessDeps.LogsDir)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "invalid log location")
		return
	}
	fh, err := os.Open(path) //nolint:gosec // path built from recorded job name
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "log not found")
		return
	}
	defer fh.Close()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, fh); err != nil {
		log.Printf("[WARN] failed to send log of %s: %v", id, err)
	}
}

// streamLog copies everything appended to the log till the job leaves the active registry
// or the client goes away
func (s *Server) streamLog(w http.ResponseWriter, r *http.Request, id string, fh io.Reader) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Printf("[WARN] can't lift write deadline for %s: %v", id, err)
	}
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(s.followInterval)
	defer ticker.Stop()
	for {
		_, active := s.active.Get(id) // checked before copy, so the final copy sees the complete log
		if _, err := io.Copy(w, fh); err != nil {
			log.Printf("[DEBUG] log stream of %s stopped: %v", id, err)
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
		if !active {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
