// Package pgfeed implements the change feed over PostgreSQL LISTEN/NOTIFY.
// Row triggers publish one JSON payload per change on a single channel; each
// subscription holds one pooled connection for its lifetime.
package pgfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	DefaultChannel          = "pharmaqueue_changes"
	DefaultSubscribeTimeout = 10 * time.Second

	messageBuffer  = 64
	releaseTimeout = 5 * time.Second
)

// Listener implements ports.ChangeFeed.
type Listener struct {
	pool             *pgxpool.Pool
	channel          string
	subscribeTimeout time.Duration
	logger           zerolog.Logger
}

// NewListener builds a feed on channel. Empty values take the defaults.
func NewListener(pool *pgxpool.Pool, channel string, subscribeTimeout time.Duration, logger zerolog.Logger) *Listener {
	if channel == "" {
		channel = DefaultChannel
	}
	if subscribeTimeout <= 0 {
		subscribeTimeout = DefaultSubscribeTimeout
	}
	return &Listener{
		pool:             pool,
		channel:          channel,
		subscribeTimeout: subscribeTimeout,
		logger:           logger.With().Str("component", "pgfeed").Str("channel", channel).Logger(),
	}
}

// Channel returns the channel the listener subscribes to.
func (l *Listener) Channel() string {
	return l.channel
}

// ApplyChannel points the row triggers at the listener's channel.
func (l *Listener) ApplyChannel(ctx context.Context) error {
	tag, err := l.pool.Exec(ctx, `UPDATE feed_settings SET channel = $1 WHERE id`, l.channel)
	if err != nil {
		return fmt.Errorf("apply feed channel: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return errors.New("apply feed channel: feed_settings row missing, run migrations")
	}
	return nil
}

// Subscribe starts listening in the background. The first message is
// SUBSCRIBED once LISTEN succeeded, or TIMED_OUT / CHANNEL_ERROR when it
// could not; after any failure the message channel is closed.
func (l *Listener) Subscribe(ctx context.Context, tables []string) (ports.Subscription, error) {
	if len(tables) == 0 {
		return nil, errs.NewValueIsRequiredError("tables")
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan ports.FeedMessage, messageBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run(runCtx, sub, slices.Clone(tables))
	return sub, nil
}

func (l *Listener) run(ctx context.Context, sub *subscription, tables []string) {
	defer close(sub.done)
	defer close(sub.ch)

	conn, err := l.listen(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		status := ports.ChannelError
		if errors.Is(err, context.DeadlineExceeded) {
			status = ports.ChannelTimedOut
		}
		l.logger.Warn().Err(err).Str("status", string(status)).Msg("listen failed")
		sub.send(ctx, ports.FeedMessage{Status: status, Err: err})
		return
	}
	defer l.release(conn)

	if !sub.send(ctx, ports.FeedMessage{Status: ports.ChannelSubscribed}) {
		return
	}
	l.logger.Debug().Strs("tables", tables).Msg("listening")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn().Err(err).Msg("notification wait failed")
			sub.send(ctx, ports.FeedMessage{Status: ports.ChannelError, Err: err})
			return
		}

		ev, err := DecodePayload(n.Payload)
		if err != nil {
			l.logger.Warn().Err(err).Str("payload", n.Payload).Msg("skipping malformed notification")
			continue
		}
		if !slices.Contains(tables, ev.Table) {
			continue
		}
		if !sub.send(ctx, ports.FeedMessage{Change: &ev}) {
			return
		}
	}
}

func (l *Listener) listen(ctx context.Context) (*pgxpool.Conn, error) {
	listenCtx, cancel := context.WithTimeout(ctx, l.subscribeTimeout)
	defer cancel()

	conn, err := l.pool.Acquire(listenCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(listenCtx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		l.release(conn)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

// release returns the connection without any listen registration. A
// connection that cannot be cleaned is closed so the pool discards it.
func (l *Listener) release(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if conn.Conn().IsClosed() {
		conn.Release()
		return
	}
	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

type subscription struct {
	ch     chan ports.FeedMessage
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Messages() <-chan ports.FeedMessage {
	return s.ch
}

// Close stops listening and waits until the connection is back in the pool.
func (s *subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *subscription) send(ctx context.Context, msg ports.FeedMessage) bool {
	select {
	case s.ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// DecodePayload parses one trigger notification.
func DecodePayload(payload string) (ports.ChangeEvent, error) {
	var ev ports.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ports.ChangeEvent{}, errs.NewValueIsInvalidErrorWithCause("payload", err)
	}

	switch {
	case ev.Table == "":
		return ports.ChangeEvent{}, errs.NewValueIsRequiredError("table")
	case ev.Kind != ports.ChangeInsert && ev.Kind != ports.ChangeUpdate && ev.Kind != ports.ChangeDelete:
		return ports.ChangeEvent{}, errs.NewValueIsInvalidErrorWithCause("type", fmt.Errorf("%q is not a row operation", ev.Kind))
	case ev.RowID <= 0:
		return ports.ChangeEvent{}, errs.NewValueIsInvalidErrorWithCause("id", fmt.Errorf("%d is not greater than 0", ev.RowID))
	case !ev.IsOrderRow() && ev.OrderID <= 0:
		return ports.ChangeEvent{}, errs.NewValueIsRequiredError("order_id")
	}
	return ev, nil
}
