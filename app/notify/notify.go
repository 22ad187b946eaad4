// Package notify delivers job outcome messages to webhook destinations
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// Notifier delivers text to a destination url with the matching schema, implemented by go-pkgz/notify notifiers
type Notifier interface {
	Schema() string
	Send(ctx context.Context, destination, text string) error
}

// Params defines destinations and which outcomes are reported
type Params struct {
	WebhookURLs       []string
	Headers           []string // extra webhook headers, "Name:value"
	EnabledError      bool
	EnabledCompletion bool
	Timeout           time.Duration
	HostName          string
}

// Service sends messages to all configured destinations, each routed to the notifier matching its schema
type Service struct {
	destinations []Notifier
	urls         []string
	onError      bool
	onCompletion bool
	hostName     string
}

// NewService makes notification service. Returns nil if no destinations defined.
func NewService(p Params) *Service {
	if len(p.WebhookURLs) == 0 {
		return nil
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	wh := notify.NewWebhook(notify.WebhookParams{Timeout: p.Timeout, Headers: p.Headers})
	log.Printf("[INFO] notifications to %d webhook(s), on error: %v, on completion: %v",
		len(p.WebhookURLs), p.EnabledError, p.EnabledCompletion)
	return &Service{
		destinations: []Notifier{wh},
		urls:         p.WebhookURLs,
		onError:      p.EnabledError,
		onCompletion: p.EnabledCompletion,
		hostName:     p.HostName,
	}
}

// Send sends text to all destinations. Subject goes as the first line.
// All destinations are tried, errors combined.
func (s *Service) Send(ctx context.Context, subj, text string) error {
	msg := subj
	if text != "" {
		msg += "\n\n" + text
	}

	var errs []error
	for _, url := range s.urls {
		n := s.notifierFor(url)
		if n == nil {
			errs = append(errs, fmt.Errorf("no notifier for %s", redact(url)))
			continue
		}
		if err := n.Send(ctx, url, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", redact(url), err))
			continue
		}
		log.Printf("[DEBUG] sent %q to %s", subj, redact(url))
	}
	return errors.Join(errs...)
}

// IsOnError returns true if error notifications enabled
func (s *Service) IsOnError() bool { return s.onError }

// IsOnCompletion returns true if completion notifications enabled
func (s *Service) IsOnCompletion() bool { return s.onCompletion }

// MakeErrorText makes message body for the failed job, errLog has the error and output tail
func (s *Service) MakeErrorText(job, project, errLog string) string {
	return fmt.Sprintf("job %s (project %s) failed on %s at %s\n\n%s", job, project, s.host(),
		time.Now().Format(time.RFC3339), strings.TrimSpace(errLog))
}

// MakeCompletionText makes message body for the succeeded job
func (s *Service) MakeCompletionText(job, project string) string {
	return fmt.Sprintf("job %s (project %s) completed on %s at %s", job, project, s.host(), time.Now().Format(time.RFC3339))
}

// HostName returns host reported in messages
func (s *Service) HostName() string { return s.host() }

func (s *Service) host() string {
	if s.hostName == "" {
		return "localhost"
	}
	return s.hostName
}

func (s *Service) notifierFor(url string) Notifier {
	for _, n := range s.destinations {
		if strings.HasPrefix(url, n.Schema()) {
			return n
		}
	}
	return nil
}

// redact drops query and user info from url, webhooks often carry tokens there
func redact(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	j := strings.Index(url, "://")
	if j < 0 {
		return url
	}
	rest := url[j+3:]
	host := rest
	if k := strings.Index(rest, "/"); k >= 0 {
		host = rest[:k]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		return url[:j+3] + "***" + rest[i:]
	}
	return url
}
