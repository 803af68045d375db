package jobs_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pharmaqueue/internal/jobs"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJobManager_StartAllStopAll(t *testing.T) {
	var ticks, reloads atomic.Int32
	jm := jobs.NewJobManager(
		func() { ticks.Add(1) },
		time.Second,
		func(context.Context) error { reloads.Add(1); return nil },
		time.Second,
		zerolog.Nop(),
	)

	require.NoError(t, jm.StartAll())
	require.Eventually(t, func() bool { return ticks.Load() >= 1 && reloads.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	jm.StopAll()
}

func TestJobManager_ReloadDisabled(t *testing.T) {
	jm := jobs.NewJobManager(func() {}, time.Second, nil, 0, zerolog.Nop())

	require.NoError(t, jm.StartAll())
	jm.StopAll()
}
