// Package alert decides when the new-order sound plays.
package alert

import (
	"context"
	"fmt"
	"sync"

	"pharmaqueue/internal/core/ports"

	"github.com/rs/zerolog"
)

// Trigger fires the audible alert whenever the visible order count grows.
// Playback failures are logged and never propagated to the reconciliation path.
type Trigger struct {
	player         ports.AlertPlayer
	alertOnInitial bool
	logger         zerolog.Logger

	mu          sync.Mutex
	initialized bool
	lastCount   int
	primed      bool
}

// NewTrigger builds a trigger. With alertOnInitial the first non-empty
// population also fires.
func NewTrigger(player ports.AlertPlayer, alertOnInitial bool, logger zerolog.Logger) *Trigger {
	return &Trigger{
		player:         player,
		alertOnInitial: alertOnInitial,
		logger:         logger.With().Str("component", "alert-trigger").Logger(),
	}
}

// Observe records the visible count after a reconciliation and reports whether
// an alert was attempted.
func (t *Trigger) Observe(ctx context.Context, count int) bool {
	t.mu.Lock()
	fire := count > t.lastCount
	if !t.initialized {
		fire = t.alertOnInitial && count > 0
		t.initialized = true
	}
	t.lastCount = count
	primed := t.primed
	t.mu.Unlock()

	if !fire {
		return false
	}

	if !primed {
		t.logger.Debug().Msg("alert attempted before audio was primed")
	}
	if err := t.player.Play(ctx, false); err != nil {
		t.logger.Warn().Err(err).Int("count", count).Msg("alert playback failed")
	}
	return true
}

// Prime unlocks playback with a muted play and pause, once per trigger. It
// must be called in response to a genuine user interaction. A failed attempt
// leaves the trigger unprimed so the next interaction retries.
func (t *Trigger) Prime(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.primed {
		return nil
	}
	if err := t.player.Play(ctx, true); err != nil {
		return fmt.Errorf("prime audio: %w", err)
	}
	if err := t.player.Pause(ctx); err != nil {
		return fmt.Errorf("prime audio: %w", err)
	}
	t.primed = true
	t.logger.Info().Msg("audio primed")
	return nil
}

// Primed reports whether Prime has succeeded.
func (t *Trigger) Primed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primed
}
