// Package web implements the http api: webhook to start jobs and read-only access to jobs and their logs
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/thresh/app/auth"
	"github.com/umputun/thresh/app/project"
	"github.com/umputun/thresh/app/runner"
	"github.com/umputun/thresh/app/store"
	"github.com/umputun/thresh/app/witness"
)

// JobStore provides read access to recorded jobs
type JobStore interface {
	ListJobs(ctx context.Context, limit int) ([]store.JobSummary, error)
	GetJob(ctx context.Context, id string) (store.JobRecord, error)
	LatestJobID(ctx context.Context, name string) (string, error)
}

// Projects provides configured projects by name
type Projects interface {
	Get(name string) (project.Project, bool)
}

// JobRunner executes the job's commands reporting to its witness, blocking
type JobRunner interface {
	Run(ctx context.Context, w runner.Witness, prj project.Project) error
}

// Config holds server configuration
type Config struct {
	Secret       string // shared secret for bearer tokens
	Version      string
	Store        JobStore
	Projects     Projects
	Runner       JobRunner
	WitnessDeps  witness.Deps
	WebhookLimit float64 // max webhook requests per second per ip, 0 means no limit
}

// Server is the http api server
type Server struct {
	cfg     Config
	gate    *auth.Gate
	active  *activeJobs
	jobsCtx context.Context // passed to runner, canceled on shutdown
	jobsWg  sync.WaitGroup

	followInterval time.Duration // poll interval for log streaming
}

// New makes api server
func New(cfg Config) (*Server, error) {
	if cfg.Secret == "" {
		return nil, errors.New("web server initialization failed: secret is required")
	}
	if cfg.Store == nil || cfg.Projects == nil || cfg.Runner == nil || cfg.WitnessDeps.Persister == nil {
		return nil, errors.New("web server initialization failed: store, projects, runner and persister are required")
	}
	return &Server{
		cfg:            cfg,
		gate:           auth.NewGate(cfg.Secret),
		active:         newActiveJobs(),
		jobsCtx:        context.Background(),
		followInterval: 250 * time.Millisecond,
	}, nil
}

// Run starts the web server, blocking till ctx canceled. Running jobs are killed on shutdown
// and their outcome recorded before Run returns.
func (s *Server) Run(ctx context.Context, address string) error {
	s.jobsCtx = ctx

	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second, // log streaming lifts it per request
		IdleTimeout:       30 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	<-shutdownDone
	s.Wait()
	log.Printf("[INFO] web server stopped")
	return nil
}

// Wait blocks till all started jobs finished
func (s *Server) Wait() {
	s.jobsWg.Wait()
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("thresh", "umputun", s.cfg.Version),
		rest.Ping,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache, s.gate.Middleware)
		api.With(s.webhookLimiter()).HandleFunc("POST /webhook", s.handleWebhook)
		api.HandleFunc("GET /jobs", s.handleListJobs)
		api.HandleFunc("GET /jobs/{id}", s.handleGetJob)
		api.HandleFunc("GET /jobs/{id}/log", s.handleJobLog)
	})

	return router
}

func (s *Server) webhookLimiter() func(http.Handler) http.Handler {
	if s.cfg.WebhookLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	lmt := tollbooth.NewLimiter(s.cfg.WebhookLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"}) // real ip set by rest.RealIP
	lmt.SetMessage(`{"error":"too many requests"}`)
	lmt.SetMessageContentType("application/json")
	return tollbooth.HTTPMiddleware(lmt)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
