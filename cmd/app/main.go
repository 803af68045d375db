package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmaqueue/cmd"
	"pharmaqueue/internal/adapters/out/memstore"
	"pharmaqueue/internal/adapters/out/postgres"
	"pharmaqueue/internal/adapters/out/postgres/migrations"
	"pharmaqueue/internal/core/domain/model/order"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "pharmaqueue",
		Short:         "Realtime pharmacy order queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")

	rootCmd.AddCommand(serveCmd(&envFile))
	rootCmd.AddCommand(migrateCmd(&envFile))
	rootCmd.AddCommand(seedCmd(&envFile))
	rootCmd.AddCommand(demoCmd(&envFile))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load(envFile string) (cmd.Config, zerolog.Logger, error) {
	cfg, err := cmd.LoadConfig(envFile)
	if err != nil {
		return cmd.Config{}, zerolog.Nop(), err
	}
	return cfg, cmd.NewLogger(cfg), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the queue against PostgreSQL",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := load(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			root, err := cmd.NewCompositionRoot(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer root.Close()

			return root.Run(ctx)
		},
	}
}

func migrateCmd(envFile *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withMigrator := func(run func(ctx context.Context, m *migrations.Migrator) error) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := load(*envFile)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			return run(ctx, migrations.NewMigrator(pool, logger))
		}
	}

	c.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, m *migrations.Migrator) error {
			count, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		}),
	})

	c.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withMigrator(func(ctx context.Context, m *migrations.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			fmt.Printf("%-8s %-32s %-8s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				state, appliedAt := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.DateTime)
					}
				}
				fmt.Printf("%-8d %-32s %-8s %s\n", s.Version, s.Name, state, appliedAt)
			}
			return nil
		}),
	})

	return c
}

func seedCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample queue into an empty database",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := load(*envFile)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			actor, err := cfg.Actor()
			if err != nil {
				return err
			}

			db, err := postgres.OpenGorm(cfg.DatabaseURL, cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			ctx, stop := signalContext()
			defer stop()

			created, err := cmd.SeedDatabase(ctx, postgres.NewGormUnitOfWorkFactory(db), actor, time.Now())
			if err != nil {
				return err
			}
			logger.Info().Int("orders", created).Str("actor", actor.String()).Msg("sample queue seeded")
			return nil
		},
	}
}

func demoCmd(envFile *string) *cobra.Command {
	var every time.Duration

	c := &cobra.Command{
		Use:   "demo",
		Short: "Run the queue against an in-memory store with sample orders",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := load(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			gate, err := cfg.Gate()
			if err != nil {
				return err
			}
			actor, err := cfg.Actor()
			if err != nil {
				return err
			}
			cfg.ActorID = actor.String()

			store := memstore.New(gate, nil)
			if err := cmd.SeedMemory(ctx, store, actor, time.Now()); err != nil {
				return err
			}

			root, err := cmd.NewDemoCompositionRoot(cfg, logger, store)
			if err != nil {
				return err
			}

			if every > 0 {
				arrivals := cron.New()
				if _, err := arrivals.AddFunc(fmt.Sprintf("@every %s", every), func() {
					o, err := store.CreateOrder(ctx, memstore.NewOrder{
						Priority:  order.Normal,
						RoomID:    1,
						CreatedBy: actor,
						Items:     []order.Item{{MedID: 1, MedName: "Cefazolin", Qty: 2, Unit: "g"}},
					})
					if err != nil {
						logger.Error().Err(err).Msg("demo order not created")
						return
					}
					logger.Info().Int64("order_id", o.ID).Msg("demo order submitted")
				}); err != nil {
					return fmt.Errorf("schedule demo arrivals: %w", err)
				}
				arrivals.Start()
				defer arrivals.Stop()
			}

			return root.Run(ctx)
		},
	}
	c.Flags().DurationVar(&every, "arrivals", 0, "Submit a new sample order at this interval (0 disables)")
	return c
}
