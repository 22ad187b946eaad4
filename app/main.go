package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/thresh/app/auth"
	"github.com/umputun/thresh/app/notify"
	"github.com/umputun/thresh/app/project"
	"github.com/umputun/thresh/app/runner"
	"github.com/umputun/thresh/app/store"
	"github.com/umputun/thresh/app/web"
	"github.com/umputun/thresh/app/witness"
)

var opts struct {
	Listen       string  `short:"l" long:"listen" env:"THRESH_LISTEN" default:"127.0.0.1:8080" description:"listen address"`
	Secret       string  `short:"s" long:"secret" env:"THRESH_SECRET" description:"shared secret for bearer tokens, required except for --schema"`
	Token        bool    `long:"token" description:"print bearer token for the secret and exit"`
	Projects     string  `short:"p" long:"projects" env:"THRESH_PROJECTS" default:"projects.yml" description:"projects file"`
	Schema       bool    `long:"schema" description:"print projects file json schema and exit"`
	LogsDir      string  `long:"logs-dir" env:"THRESH_LOGS_DIR" default:"~/.thresh/logs" description:"jobs logs directory"`
	DB           string  `long:"db" env:"THRESH_DB" default:"~/.thresh/thresh.db" description:"job store, sqlite file or postgres:// url"`
	WebhookLimit float64 `long:"webhook-limit" env:"THRESH_WEBHOOK_LIMIT" default:"5" description:"max webhook requests per second per ip, 0 to disable"`
	Dbg          bool    `long:"dbg" env:"THRESH_DEBUG" description:"debug mode"`

	Store struct {
		QueueSize int `long:"queue" env:"QUEUE" default:"64" description:"max pending store writes"`
		Workers   int `long:"workers" env:"WORKERS" default:"1" description:"store writers, 1 serializes all writes"`
	} `group:"store" namespace:"store" env-namespace:"THRESH_STORE"`

	Notify struct {
		Webhooks          []string      `long:"webhook" env:"WEBHOOKS" env-delim:"," description:"webhook url(s) for notifications"`
		Headers           []string      `long:"header" env:"HEADERS" env-delim:"," description:"webhook header(s), name:value"`
		EnabledError      bool          `long:"enabled-error" env:"ENABLED_ERROR" description:"enable notifications on failed jobs"`
		EnabledCompletion bool          `long:"enabled-complete" env:"ENABLED_COMPLETE" description:"enable notifications on completed jobs"`
		Timeout           time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
		MaxLogLines       int           `long:"max-log" env:"MAX_LOG" default:"100" description:"max number of output lines in failure notification"`
		HostName          string        `long:"host" env:"HOSTNAME" description:"host name running thresh"`
	} `group:"notify" namespace:"notify" env-namespace:"THRESH_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"thresh.log" description:"file to write logs to"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max size of log file in megabytes before rotation"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files to retain"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to retain old log files, 0 to keep forever"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"THRESH_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("thresh %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run is the blocking entry point, returns on ctx cancellation after running jobs are done.
// In token and schema modes prints to out and returns immediately.
func run(ctx context.Context, out io.Writer) error {
	if opts.Schema {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(project.GenerateSchema())
	}

	if opts.Secret == "" {
		return errors.New("secret is required, set --secret or THRESH_SECRET")
	}

	if opts.Token {
		token, err := auth.IssueToken(opts.Secret)
		if err != nil {
			return fmt.Errorf("can't make token: %w", err)
		}
		_, err = fmt.Fprintln(out, token)
		return err
	}

	projects, err := project.Load(opts.Projects)
	if err != nil {
		return err
	}
	log.Printf("[INFO] projects: %s", strings.Join(projects.Names(), ", "))

	dsn, err := makeDSN(opts.DB)
	if err != nil {
		return err
	}
	st, err := store.NewSQLStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("can't open job store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] can't close job store: %v", err)
		}
	}()

	ch := store.NewChannel(st, store.ChannelOpts{QueueSize: opts.Store.QueueSize, Workers: opts.Store.Workers})
	defer ch.Close()

	srv, err := web.New(web.Config{
		Secret:   opts.Secret,
		Version:  revision,
		Store:    st,
		Projects: projects,
		Runner: &runner.Runner{
			Notifier:          makeNotifier(),
			NotifyTimeout:     opts.Notify.Timeout,
			NotifyMaxLogLines: opts.Notify.MaxLogLines,
		},
		WitnessDeps:  witness.Deps{Persister: ch, LogsDir: opts.LogsDir},
		WebhookLimit: opts.WebhookLimit,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Listen)
}

// makeDSN passes postgres urls as is, sqlite file gets ~ expanded and its directory created
func makeDSN(db string) (string, error) {
	if strings.HasPrefix(db, "postgres://") || strings.HasPrefix(db, "postgresql://") {
		return db, nil
	}
	path, params, _ := strings.Cut(db, "?")
	path, err := project.ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("can't make db directory: %w", err)
	}
	if params != "" {
		return path + "?" + params, nil
	}
	return path, nil
}

func makeNotifier() *notify.Service {
	if !opts.Notify.EnabledError && !opts.Notify.EnabledCompletion {
		return nil
	}
	return notify.NewService(notify.Params{
		WebhookURLs:       opts.Notify.Webhooks,
		Headers:           opts.Notify.Headers,
		EnabledError:      opts.Notify.EnabledError,
		EnabledCompletion: opts.Notify.EnabledCompletion,
		Timeout:           opts.Notify.Timeout,
		HostName:          makeHostName(),
	})
}

func makeHostName() string {
	if opts.Notify.HostName != "" {
		return opts.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// setupLogs configures lgr, writes to rotated file if enabled or to stdout otherwise
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts := []log.Option{log.Msec, log.LevelBraces, log.Out(out), log.Err(out)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFile, log.CallerFunc)
	}
	log.Setup(logOpts...)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %v received, shutting down", sig)
			cancel() // terminate on SIGTERM and SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
}
