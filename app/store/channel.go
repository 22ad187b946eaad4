package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
)

// ErrChannelUnreachable returned when the request never reached a worker or the response never came back.
// It says nothing about the query itself.
var ErrChannelUnreachable = errors.New("persistence channel unreachable")

// ErrQueryRejected matches any *QueryError, i.e. the query was run and failed
var ErrQueryRejected = errors.New("persistence query rejected")

// QueryError is returned when a worker executed the query and the engine failed it
type QueryError struct {
	Query Query
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s rejected: %v", e.Query, e.Err)
}

// Unwrap returns the engine error
func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrQueryRejected) true for any QueryError
func (e *QueryError) Is(target error) bool { return target == ErrQueryRejected }

// Executor runs a known query with ordered params, implemented by SQLStore
type Executor interface {
	Exec(ctx context.Context, q Query, params ...any) error
}

// ChannelOpts defines queue size and workers count, zero values mean defaults
type ChannelOpts struct {
	QueueSize int // bounded queue of pending requests, 64 by default
	Workers   int // workers draining the queue, 1 by default (all writes serialized)
}

// Channel is a request/response handle to the job store. Requests are queued
// and executed by workers, each caller waits for its own response.
type Channel struct {
	exec     Executor
	requests chan request
	done     chan struct{} // closed on Close, no new requests accepted
	stopped  chan struct{} // closed when all workers exited
	once     sync.Once
}

type request struct {
	ctx    context.Context
	query  Query
	params []any
	resp   chan error
}

// NewChannel makes channel and starts workers
func NewChannel(exec Executor, opts ChannelOpts) *Channel {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	c := &Channel{
		exec:     exec,
		requests: make(chan request, opts.QueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	wg := syncs.NewSizedGroup(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		wg.Go(func(context.Context) { c.worker() })
	}
	go func() {
		wg.Wait()
		close(c.stopped)
	}()
	log.Printf("[DEBUG] persistence channel started, queue %d, workers %d", opts.QueueSize, opts.Workers)
	return c
}

// Execute queues the query and blocks till a worker runs it. Returns ErrChannelUnreachable
// if the channel is closed or ctx ends before a worker picks the request up, *QueryError
// (ErrQueryRejected) if the query failed. Once picked up, the query's own result is returned
// even if ctx ends meanwhile.
func (c *Channel) Execute(ctx context.Context, q Query, params ...any) error {
	select {
	case <-c.done:
		return fmt.Errorf("can't send %s: %w", q, ErrChannelUnreachable)
	default:
	}

	req := request{ctx: ctx, query: q, params: params, resp: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return fmt.Errorf("can't send %s: %w", q, ErrChannelUnreachable)
	case <-ctx.Done():
		return fmt.Errorf("can't send %s: %w: %w", q, ErrChannelUnreachable, ctx.Err())
	}

	select {
	case err := <-req.resp:
		return err
	case <-c.stopped:
		// worker may have answered right before stopping
		select {
		case err := <-req.resp:
			return err
		default:
			return fmt.Errorf("no response for %s: %w", q, ErrChannelUnreachable)
		}
	}
}

// Close stops accepting requests and waits for workers to finish the in-flight ones.
// Safe to call multiple times.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *Channel) worker() {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requests:
			if req.ctx.Err() != nil {
				req.resp <- fmt.Errorf("%s dropped: %w: %w", req.query, ErrChannelUnreachable, req.ctx.Err())
				continue
			}
			if err := c.exec.Exec(req.ctx, req.query, req.params...); err != nil {
				log.Printf("[WARN] query %s failed: %v", req.query, err)
				req.resp <- &QueryError{Query: req.query, Err: err}
				continue
			}
			req.resp <- nil
		}
	}
}
