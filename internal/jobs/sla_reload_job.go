package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SLAReloadJob re-reads the SLA budget table periodically so edits made by
// administrators reach running sessions without a restart.
type SLAReloadJob struct {
	reload   func(ctx context.Context) error
	interval time.Duration
	cron     *cron.Cron
	logger   zerolog.Logger
}

func NewSLAReloadJob(reload func(ctx context.Context) error, interval time.Duration, logger zerolog.Logger) *SLAReloadJob {
	return &SLAReloadJob{
		reload:   reload,
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With().Str("component", "sla_reload_job").Logger(),
	}
}

func (j *SLAReloadJob) Start() error {
	_, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := j.reload(ctx); err != nil {
			j.logger.Error().Err(err).Msg("SLA config reload failed")
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().Dur("interval", j.interval).Msg("SLA reload job started")
	return nil
}

func (j *SLAReloadJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("SLA reload job stopped")
}
