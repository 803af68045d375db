package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the fallback poller fires while push delivery is down.
const DefaultPollInterval = 30 * time.Second

// FallbackPollJob refreshes the order cache at a fixed interval while the
// change feed is degraded. A tick is skipped when a successful sync happened
// within half the interval.
type FallbackPollJob struct {
	refresh  func()
	lastSync func() time.Time
	now      func() time.Time
	interval time.Duration
	logger   zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewFallbackPollJob builds a stopped poll job. A non-positive interval takes
// the default. now must be the clock lastSync is stamped with; nil means time.Now.
func NewFallbackPollJob(
	refresh func(),
	lastSync func() time.Time,
	now func() time.Time,
	interval time.Duration,
	logger zerolog.Logger,
) *FallbackPollJob {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if now == nil {
		now = time.Now
	}
	return &FallbackPollJob{
		refresh:  refresh,
		lastSync: lastSync,
		now:      now,
		interval: interval,
		logger:   logger.With().Str("component", "fallback_poll_job").Logger(),
	}
}

// Start schedules polling. Calling Start while running is a no-op.
func (j *FallbackPollJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", j.interval), func() { j.Tick() }); err != nil {
		return err
	}
	c.Start()
	j.cron = c

	j.logger.Info().Dur("interval", j.interval).Msg("Fallback poll job started")
	return nil
}

// Stop cancels polling. It does not wait for a running tick.
func (j *FallbackPollJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron == nil {
		return
	}
	j.cron.Stop()
	j.cron = nil
	j.logger.Info().Msg("Fallback poll job stopped")
}

// Running reports whether the job is scheduled.
func (j *FallbackPollJob) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cron != nil
}

// Tick runs one poll decision and reports whether a refresh was requested.
func (j *FallbackPollJob) Tick() bool {
	since := j.now().Sub(j.lastSync())
	if since <= j.interval/2 {
		j.logger.Debug().Dur("since_last_sync", since).Msg("Skipping poll, recent sync")
		return false
	}
	j.refresh()
	return true
}
