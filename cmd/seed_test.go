package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmaqueue/internal/adapters/out/memstore"
	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SeedMemory(t *testing.T) {
	// Given
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	store := memstore.New(services.DefaultDoubleCheckGate(), func() time.Time { return now })
	actor := kernel.NewUUID()

	// When
	require.NoError(t, SeedMemory(t.Context(), store, actor, now))

	// Then
	orders, err := store.ListByStatuses(t.Context(), order.AllStatuses())
	require.NoError(t, err)
	require.Len(t, orders, len(sampleOrders))

	var checking *order.Order
	for _, o := range orders {
		if o.Status == order.Checking {
			checking = o
		}
	}
	require.NotNil(t, checking)
	assert.True(t, checking.HasMAV())
	assert.Equal(t, now.Add(-11*time.Minute), checking.CreatedAt)

	names, err := store.ResolveDisplayNames(t.Context(), []kernel.UUID{actor})
	require.NoError(t, err)
	assert.Equal(t, "Demo Pharmacist", names[actor])

	configs, err := store.LoadSLAConfigs(t.Context())
	require.NoError(t, err)
	assert.Len(t, configs, 2)
}

func Test_DemoCompositionRootServesSeededQueue(t *testing.T) {
	// Given
	cfg := Config{
		HTTPPort:          "0",
		Env:               "development",
		ReconnectDelay:    50 * time.Millisecond,
		MaxReconnectDelay: time.Second,
		SLATickInterval:   time.Second,
		RequiredChecks:    2,
		DistinctCheckers:  true,
	}
	actor := kernel.NewUUID()
	cfg.ActorID = actor.String()
	store := memstore.New(services.DefaultDoubleCheckGate(), nil)
	require.NoError(t, SeedMemory(t.Context(), store, actor, time.Now()))

	root, err := NewDemoCompositionRoot(cfg, zerolog.Nop(), store)
	require.NoError(t, err)

	// When
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	require.NoError(t, root.Session().Start(ctx))
	defer root.Session().Stop()

	// Then
	require.Eventually(t, func() bool {
		return root.Session().Health() == feed.Connected && len(root.Session().Orders()) == len(sampleOrders)
	}, 2*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	root.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":5`)
}

func Test_DemoCompositionRootRejectsInvalidConfig(t *testing.T) {
	store := memstore.New(services.DefaultDoubleCheckGate(), nil)

	_, err := NewDemoCompositionRoot(Config{Env: "production"}, zerolog.Nop(), store)

	assert.Error(t, err)
}
