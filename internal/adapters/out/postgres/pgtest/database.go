// Package pgtest starts a migrated PostgreSQL container for integration suites.
package pgtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgadapter "pharmaqueue/internal/adapters/out/postgres"
	"pharmaqueue/internal/adapters/out/postgres/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

type Database struct {
	Container *postgres.PostgresContainer
	DSN       string
	Pool      *pgxpool.Pool
	DB        *gorm.DB
}

// Start runs postgres:15-alpine and applies every migration.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}
	d := &Database{Container: container}

	d.DSN, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, errors.Join(err, d.Close(ctx))
	}
	if d.Pool, err = pgadapter.NewPool(ctx, d.DSN, 8, 1); err != nil {
		return nil, errors.Join(err, d.Close(ctx))
	}
	if _, err = migrations.NewMigrator(d.Pool, zerolog.Nop()).Up(ctx); err != nil {
		return nil, errors.Join(err, d.Close(ctx))
	}
	if d.DB, err = pgadapter.OpenGorm(d.DSN, 8); err != nil {
		return nil, errors.Join(err, d.Close(ctx))
	}
	return d, nil
}

// Reset empties every data table and restores the default policy, feed channel and SLA rows.
func (d *Database) Reset(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `
TRUNCATE order_events, high_alert_checks, order_items, orders, kit_items, kits, meds, profiles, rooms RESTART IDENTITY CASCADE;
UPDATE mav_policy SET required_checks = 2, distinct_checkers = TRUE WHERE id;
UPDATE feed_settings SET channel = 'pharmaqueue_changes' WHERE id;
DELETE FROM sla_config;
INSERT INTO sla_config (priority, sla_minutes, warning_threshold_percent) VALUES ('normal', 60, 80), ('urgent', 15, 80);`)
	return err
}

func (d *Database) Close(ctx context.Context) error {
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.Container != nil {
		return d.Container.Terminate(ctx)
	}
	return nil
}
