package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSLATickInterval is how often SLA timers are recomputed for display.
const DefaultSLATickInterval = 30 * time.Second

// SLATickJob recomputes the SLA of every cached order on a fixed tick and
// hands the result to publish.
type SLATickJob struct {
	publish  func()
	interval time.Duration
	cron     *cron.Cron
	logger   zerolog.Logger
}

func NewSLATickJob(publish func(), interval time.Duration, logger zerolog.Logger) *SLATickJob {
	if interval <= 0 {
		interval = DefaultSLATickInterval
	}
	return &SLATickJob{
		publish:  publish,
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With().Str("component", "sla_tick_job").Logger(),
	}
}

func (j *SLATickJob) Start() error {
	if _, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.publish); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Dur("interval", j.interval).Msg("SLA tick job started")
	return nil
}

func (j *SLATickJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("SLA tick job stopped")
}
