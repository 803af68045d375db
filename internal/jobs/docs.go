// Package jobs provides scheduled background tasks for the pharmacy queue.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. FallbackPollJob - refreshes the order cache every poll interval while the
// change feed is degraded; started and stopped by the feed supervisor
// 2. SLATickJob - recomputes SLA timers for every visible order and publishes them
// 3. SLAReloadJob - optionally re-reads the SLA budget table
//
// # Usage
//
//	jobManager := jobs.NewJobManager(publishSLA, 30*time.Second, reloadSLA, 0, logger)
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// All jobs use "@every <interval>" descriptors. cron schedules at one-second
// granularity, so shorter intervals are rounded up to a second.
package jobs
