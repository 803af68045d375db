package ports

import (
	"context"

	"pharmaqueue/internal/core/domain/model/sla"
)

// SLAConfigSource reads the per-priority SLA budget table.
type SLAConfigSource interface {
	LoadSLAConfigs(ctx context.Context) ([]sla.Config, error)
}
