package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

// errListenerLost is returned by a watch whose notification source dropped.
var errListenerLost = errors.New("change listener lost")

// Notifier owns the process's single LISTEN connection and fans change
// notifications out to the watchers registered with it. The connection is
// opened outside the pool, so live queries never hold pooled connections;
// their refresh queries borrow one only for the duration of the query.
type Notifier struct {
	connect   func(ctx context.Context) (*pgx.Conn, error)
	logger    *slog.Logger
	base      time.Duration
	max       time.Duration
	readyWait time.Duration

	mu        sync.Mutex
	live      bool
	ready     chan struct{}
	listeners map[*listener]struct{}
}

// listener is one watcher's registration. wake holds at most one pending
// signal; several notifications before a refresh collapse into one.
type listener struct {
	channel string
	match   func(payload string) bool
	wake    chan struct{}
	lost    chan struct{}
}

// NewNotifier returns a Notifier that dials cfg for its listening
// connection. Run must be started before watchers can register.
func NewNotifier(cfg *pgx.ConnConfig, logger *slog.Logger) *Notifier {
	return newNotifier(func(ctx context.Context) (*pgx.Conn, error) {
		return pgx.ConnectConfig(ctx, cfg.Copy())
	}, logger)
}

func newNotifier(connect func(ctx context.Context) (*pgx.Conn, error), logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		connect:   connect,
		logger:    logger,
		base:      500 * time.Millisecond,
		max:       30 * time.Second,
		readyWait: 10 * time.Second,
		ready:     make(chan struct{}),
		listeners: make(map[*listener]struct{}),
	}
}

// Run keeps the listening connection open until ctx is cancelled,
// reconnecting with capped exponential backoff. Watchers registered on a
// connection that drops are told so and re-register through their retry.
func (n *Notifier) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		err := retry.Do(ctx, n.backoff(), func(ctx context.Context) error {
			listened, err := n.session(ctx)
			if ctx.Err() != nil {
				return nil
			}
			n.logger.WarnContext(ctx, "change listener interrupted", "listened", listened, "error", err)
			if listened {
				return nil
			}
			return retry.RetryableError(err)
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("repo.Notifier.Run: %w", err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(n.base):
		}
	}
	return nil
}

func (n *Notifier) backoff() retry.Backoff {
	b := retry.NewExponential(n.base)
	b = retry.WithCappedDuration(n.max, b)
	return retry.WithJitterPercent(10, b)
}

// session runs one connection: LISTEN on every channel, then dispatch
// until the connection breaks or ctx ends.
func (n *Notifier) session(ctx context.Context) (listened bool, err error) {
	conn, err := n.connect(ctx)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		_ = conn.Close(context.WithoutCancel(ctx))
	}()
	defer n.drop()

	// The channels are package constants, never user input.
	for _, channel := range []string{tripChannel, activityChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return false, fmt.Errorf("listen %s: %w", channel, err)
		}
	}
	n.open()

	for {
		msg, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait: %w", err)
		}
		n.dispatch(msg.Channel, msg.Payload)
	}
}

// open marks the connection as listening and releases waiting watchers.
func (n *Notifier) open() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.live = true
	close(n.ready)
}

// drop ends every registration of the current connection.
func (n *Notifier) drop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		close(l.lost)
		delete(n.listeners, l)
	}
	if n.live {
		n.live = false
		n.ready = make(chan struct{})
	}
}

func (n *Notifier) dispatch(channel, payload string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		if l.channel != channel || !l.match(payload) {
			continue
		}
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
}

// subscribe registers a watcher once the connection is listening. It waits
// at most readyWait for a connection so a dead database surfaces as an
// error instead of a silent hang.
func (n *Notifier) subscribe(ctx context.Context, channel string, match func(string) bool) (*listener, error) {
	timeout := time.NewTimer(n.readyWait)
	defer timeout.Stop()

	for {
		n.mu.Lock()
		if n.live {
			l := &listener{
				channel: channel,
				match:   match,
				wake:    make(chan struct{}, 1),
				lost:    make(chan struct{}),
			}
			n.listeners[l] = struct{}{}
			n.mu.Unlock()
			return l, nil
		}
		ready := n.ready
		n.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, errors.New("change listener not connected")
		}
	}
}

func (n *Notifier) unsubscribe(l *listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, l)
}
