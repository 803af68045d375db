package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// JobManager coordinates the process-wide scheduled jobs. The fallback poll
// job is not managed here: each session's feed supervisor starts and stops it.
type JobManager struct {
	slaTickJob   *SLATickJob
	slaReloadJob *SLAReloadJob
}

// NewJobManager creates the jobs. A non-positive reloadInterval disables the
// SLA reload job.
func NewJobManager(
	publishSLA func(),
	slaTickInterval time.Duration,
	reloadSLA func(ctx context.Context) error,
	reloadInterval time.Duration,
	logger zerolog.Logger,
) *JobManager {
	jm := &JobManager{
		slaTickJob: NewSLATickJob(publishSLA, slaTickInterval, logger),
	}
	if reloadSLA != nil && reloadInterval > 0 {
		jm.slaReloadJob = NewSLAReloadJob(reloadSLA, reloadInterval, logger)
	}
	return jm
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.slaTickJob.Start(); err != nil {
		return fmt.Errorf("failed to start SLA tick job: %w", err)
	}

	if jm.slaReloadJob != nil {
		if err := jm.slaReloadJob.Start(); err != nil {
			// Stop already started jobs if this one fails
			jm.slaTickJob.Stop()
			return fmt.Errorf("failed to start SLA reload job: %w", err)
		}
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	if jm.slaReloadJob != nil {
		jm.slaReloadJob.Stop()
	}
	jm.slaTickJob.Stop()
}
