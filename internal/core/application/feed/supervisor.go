package feed

import (
	"context"
	"slices"
	"sync"
	"time"

	"pharmaqueue/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultReconnectDelay    = 3 * time.Second
	DefaultMaxReconnectDelay = time.Minute
)

// Poller is the fallback polling job. Start must be idempotent per Stop.
type Poller interface {
	Start() error
	Stop()
}

// Config tunes the supervisor. Zero delays take the defaults.
type Config struct {
	Tables            []string
	FallbackEnabled   bool
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Supervisor owns one logical subscription at a time. Changes are handed to
// onChange in arrival order from the subscription goroutine; health changes
// are reported to onHealth outside the internal lock.
//
// Status handling:
//   - SUBSCRIBED: connected, polling stopped, reconnect timer cancelled, backoff reset
//   - CHANNEL_ERROR, TIMED_OUT: disconnected, polling engaged if enabled
//   - CLOSED: as above, plus one resubscription scheduled with backoff
type Supervisor struct {
	feed     ports.ChangeFeed
	poller   Poller
	onChange func(ports.ChangeEvent)
	onHealth func(Health)
	cfg      Config
	logger   zerolog.Logger

	mu             sync.Mutex
	ctx            context.Context
	sub            ports.Subscription
	generation     uint64
	health         Health
	polling        bool
	reconnectTimer *time.Timer
	backoff        *backoff.ExponentialBackOff
	running        bool
}

// NewSupervisor wires a supervisor. poller may be nil when fallback is disabled.
func NewSupervisor(
	feed ports.ChangeFeed,
	poller Poller,
	cfg Config,
	onChange func(ports.ChangeEvent),
	onHealth func(Health),
	logger zerolog.Logger,
) *Supervisor {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = max(DefaultMaxReconnectDelay, cfg.ReconnectDelay)
	}
	if len(cfg.Tables) == 0 {
		cfg.Tables = ports.FeedTables()
	}
	if onHealth == nil {
		onHealth = func(Health) {}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectDelay
	b.MaxInterval = cfg.MaxReconnectDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	return &Supervisor{
		feed:     feed,
		poller:   poller,
		onChange: onChange,
		onHealth: onHealth,
		cfg:      cfg,
		logger:   logger.With().Str("component", "feed-supervisor").Logger(),
		backoff:  b,
	}
}

// Start opens the subscription. ctx bounds the subscription's lifetime.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.running = true
	s.mu.Unlock()

	s.resubscribe()
}

// Stop cancels the poll timer, the reconnect timer and the subscription.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.running = false
	s.generation++
	s.cancelReconnectLocked()
	s.stopPollingLocked()
	sub := s.sub
	s.sub = nil
	changed := s.setHealthLocked(Disconnected)
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if changed {
		s.onHealth(Disconnected)
	}
}

// Reconnect tears down and recreates the subscription, cancelling any
// scheduled resubscription.
func (s *Supervisor) Reconnect() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancelReconnectLocked()
	s.mu.Unlock()

	s.logger.Info().Msg("manual reconnect")
	s.resubscribe()
}

// Health returns the current connection health.
func (s *Supervisor) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// Polling reports whether the fallback poller is engaged.
func (s *Supervisor) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling
}

// ReconnectScheduled reports whether a resubscription timer is pending.
func (s *Supervisor) ReconnectScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectTimer != nil
}

func (s *Supervisor) resubscribe() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	old := s.sub
	s.sub = nil
	ctx := s.ctx
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	sub, err := s.feed.Subscribe(ctx, slices.Clone(s.cfg.Tables))
	if err != nil {
		s.logger.Warn().Err(err).Msg("subscribe failed")
		s.handleStatus(gen, ports.ChannelClosed, err)
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		sub.Close()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	go s.pump(gen, sub)
}

func (s *Supervisor) pump(gen uint64, sub ports.Subscription) {
	for msg := range sub.Messages() {
		if msg.Change != nil {
			if s.isCurrent(gen) {
				s.onChange(*msg.Change)
			}
			continue
		}
		s.handleStatus(gen, msg.Status, msg.Err)
	}
	s.handleStatus(gen, ports.ChannelClosed, nil)
}

func (s *Supervisor) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && gen == s.generation
}

func (s *Supervisor) handleStatus(gen uint64, status ports.ChannelStatus, cause error) {
	s.mu.Lock()
	if !s.running || gen != s.generation {
		s.mu.Unlock()
		return
	}

	var changed bool
	switch status {
	case ports.ChannelSubscribed:
		s.logger.Info().Msg("subscribed")
		s.stopPollingLocked()
		s.cancelReconnectLocked()
		s.backoff.Reset()
		changed = s.setHealthLocked(Connected)
	case ports.ChannelError, ports.ChannelTimedOut, ports.ChannelClosed:
		s.logger.Warn().Err(cause).Str("status", string(status)).Msg("feed degraded")
		if status == ports.ChannelClosed {
			// A closed channel never delivers again.
			s.sub = nil
			s.scheduleReconnectLocked()
		}
		target := Disconnected
		if s.startPollingLocked() {
			target = Fallback
		}
		changed = s.setHealthLocked(target)
	default:
		s.logger.Debug().Str("status", string(status)).Msg("ignoring unknown channel status")
	}
	health := s.health
	s.mu.Unlock()

	if changed {
		s.onHealth(health)
	}
}

// setHealthLocked reports whether the health actually changed.
func (s *Supervisor) setHealthLocked(h Health) bool {
	if s.health == h {
		return false
	}
	s.health = h
	return true
}

// startPollingLocked engages the poller once. It reports whether polling is on.
func (s *Supervisor) startPollingLocked() bool {
	if !s.cfg.FallbackEnabled || s.poller == nil {
		return false
	}
	if s.polling {
		return true
	}
	if err := s.poller.Start(); err != nil {
		s.logger.Error().Err(err).Msg("failed to start fallback polling")
		return false
	}
	s.polling = true
	s.logger.Info().Msg("fallback polling engaged")
	return true
}

func (s *Supervisor) stopPollingLocked() {
	if !s.polling {
		return
	}
	s.poller.Stop()
	s.polling = false
	s.logger.Info().Msg("fallback polling stopped")
}

func (s *Supervisor) scheduleReconnectLocked() {
	if s.reconnectTimer != nil {
		return
	}
	delay := s.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = s.cfg.MaxReconnectDelay
	}
	s.logger.Info().Dur("delay", delay).Msg("resubscription scheduled")

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.reconnectTimer != timer {
			s.mu.Unlock()
			return
		}
		s.reconnectTimer = nil
		s.mu.Unlock()

		s.resubscribe()
	})
	s.reconnectTimer = timer
}

func (s *Supervisor) cancelReconnectLocked() {
	if s.reconnectTimer == nil {
		return
	}
	s.reconnectTimer.Stop()
	s.reconnectTimer = nil
}
