// Package slaconfigrepo reads and maintains the per-priority SLA table.
package slaconfigrepo

import (
	"context"
	"fmt"
	"time"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SLAConfigDTO struct {
	Priority                string `gorm:"primaryKey"`
	SLAMinutes              int    `gorm:"column:sla_minutes"`
	WarningThresholdPercent int
	CreatedAt               time.Time
}

func (SLAConfigDTO) TableName() string {
	return "sla_config"
}

// GormSLAConfigRepository implements ports.SLAConfigSource.
type GormSLAConfigRepository struct {
	db *gorm.DB
}

func NewGormSLAConfigRepository(db *gorm.DB) *GormSLAConfigRepository {
	return &GormSLAConfigRepository{db: db}
}

// LoadSLAConfigs returns every valid row. A row that fails validation makes
// the whole load fail so a broken table is noticed instead of half applied.
func (r *GormSLAConfigRepository) LoadSLAConfigs(ctx context.Context) ([]sla.Config, error) {
	var dtos []SLAConfigDTO
	if err := r.db.WithContext(ctx).Order("priority").Find(&dtos).Error; err != nil {
		return nil, fmt.Errorf("load SLA configs: %w", err)
	}

	configs := make([]sla.Config, 0, len(dtos))
	for _, dto := range dtos {
		priority, err := order.ParsePriority(dto.Priority)
		if err != nil {
			return nil, fmt.Errorf("SLA config %q: %w", dto.Priority, err)
		}
		cfg, err := sla.NewConfig(priority, dto.SLAMinutes, dto.WarningThresholdPercent)
		if err != nil {
			return nil, fmt.Errorf("SLA config %q: %w", dto.Priority, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Upsert writes one priority's budget.
func (r *GormSLAConfigRepository) Upsert(ctx context.Context, cfg sla.Config) error {
	dto := SLAConfigDTO{
		Priority:                cfg.Priority.String(),
		SLAMinutes:              cfg.BudgetMinutes,
		WarningThresholdPercent: cfg.WarningThresholdPercent,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "priority"}},
		DoUpdates: clause.AssignmentColumns([]string{"sla_minutes", "warning_threshold_percent"}),
	}).Create(&dto).Error
	if err != nil {
		return fmt.Errorf("upsert SLA config: %w", err)
	}
	return nil
}
