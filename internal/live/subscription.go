// Package live turns a blocking store watch into a cancellable
// subscription that reconnects with capped exponential backoff.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// Source runs one watch stream. It calls emit with the full result set on
// every change and blocks until ctx is cancelled (returning nil or
// ctx.Err()) or the stream breaks (returning the cause).
type Source[T any] func(ctx context.Context, emit func(T)) error

// Subscription is a running live query. Stop is idempotent and safe to
// call from any goroutine except from inside the callback itself.
type Subscription struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	once    sync.Once
	mu      sync.Mutex
	stopped bool
}

type options struct {
	base    time.Duration
	max     time.Duration
	logger  *slog.Logger
	onError func(error)
}

// Option configures Start.
type Option func(*options)

// WithBackoff sets the first retry delay and the cap.
func WithBackoff(base, max time.Duration) Option {
	return func(o *options) {
		o.base = base
		o.max = max
	}
}

// WithLogger sets the logger used to report stream failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithErrorHandler registers fn to be told about every stream failure. The
// error wraps domain.ErrSubscription. fn is never called after Stop returns.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Start runs src in its own goroutine and delivers each emission to fn.
// The subscription lives until Stop is called or parent is cancelled.
func Start[T any](parent context.Context, name string, src Source[T], fn func(T), opts ...Option) *Subscription {
	o := options{
		base:   250 * time.Millisecond,
		max:    30 * time.Second,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		s.run(ctx, o, func(ctx context.Context) (bool, error) {
			emitted := false
			err := src(ctx, func(v T) {
				emitted = true
				s.deliver(func() { fn(v) })
			})
			return emitted, err
		})
	}()
	return s
}

// run keeps the stream open. Failures before the first emission back off
// exponentially; a stream that emitted and then dropped starts a fresh
// backoff after one base delay.
func (s *Subscription) run(ctx context.Context, o options, attempt func(context.Context) (bool, error)) {
	for ctx.Err() == nil {
		err := retry.Do(ctx, newBackoff(o), func(ctx context.Context) error {
			emitted, err := attempt(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("stream ended")
			}
			err = fmt.Errorf("%w: %s: %w", domain.ErrSubscription, s.name, err)
			o.logger.WarnContext(ctx, "live query interrupted",
				"subscription", s.name,
				"emitted", emitted,
				"error", err,
			)
			if o.onError != nil {
				s.deliver(func() { o.onError(err) })
			}
			if emitted {
				return nil
			}
			return retry.RetryableError(err)
		})
		if err != nil || ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(o.base):
		}
	}
}

func newBackoff(o options) retry.Backoff {
	b := retry.NewExponential(o.base)
	b = retry.WithCappedDuration(o.max, b)
	return retry.WithJitterPercent(10, b)
}

// deliver runs fn unless the subscription has been stopped. Holding mu
// while fn runs is what lets Stop guarantee no callback after it returns.
func (s *Subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fn()
}

// Stop cancels the watch and waits for its goroutine to exit. No callback
// runs after Stop returns. Calling Stop more than once is a no-op.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
	})
	<-s.done
}

// Done is closed once the watch goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
