package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihttp "pharmaqueue/internal/adapters/in/http"
	"pharmaqueue/internal/adapters/in/http/ws"
	"pharmaqueue/internal/adapters/in/pgfeed"
	"pharmaqueue/internal/adapters/out/memstore"
	"pharmaqueue/internal/adapters/out/postgres"
	"pharmaqueue/internal/adapters/out/postgres/orderrepo"
	"pharmaqueue/internal/adapters/out/postgres/slaconfigrepo"
	"pharmaqueue/internal/adapters/out/postgres/workflowrpc"
	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/application/synchronizer"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/jobs"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// backend groups the ports a session runs against.
type backend struct {
	reader  ports.OrderReader
	gateway ports.WorkflowGateway
	feed    ports.ChangeFeed
	sla     ports.SLAConfigSource
}

// CompositionRoot owns the long-lived objects of one process.
type CompositionRoot struct {
	cfg    Config
	logger zerolog.Logger

	hub     *ws.Hub
	session *synchronizer.Synchronizer
	jobs    *jobs.JobManager
	echo    *echo.Echo

	closers []func()
}

// NewCompositionRoot wires a session against PostgreSQL.
func NewCompositionRoot(ctx context.Context, cfg Config, logger zerolog.Logger) (*CompositionRoot, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	gate, err := cfg.Gate()
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	gormDB, err := postgres.OpenGorm(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		pool.Close()
		return nil, err
	}
	closers := []func(){
		pool.Close,
		func() {
			if sqlDB, err := gormDB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}

	gateway := workflowrpc.NewGateway(gormDB)
	if err := gateway.ApplyPolicy(ctx, gate); err != nil {
		runClosers(closers)
		return nil, err
	}
	logger.Info().Int("required_checks", gate.Required()).Bool("distinct_checkers", gate.DistinctActors()).Msg("double-check policy applied")

	listener := pgfeed.NewListener(pool, cfg.FeedChannel, cfg.SubscribeTimeout, logger)
	if err := listener.ApplyChannel(ctx); err != nil {
		runClosers(closers)
		return nil, err
	}
	logger.Info().Str("channel", listener.Channel()).Msg("feed channel applied")

	root, err := assemble(cfg, logger, backend{
		reader:  orderrepo.NewGormOrderRepository(gormDB),
		gateway: gateway,
		feed:    listener,
		sla:     slaconfigrepo.NewGormSLAConfigRepository(gormDB),
	})
	if err != nil {
		runClosers(closers)
		return nil, err
	}
	root.closers = closers
	return root, nil
}

// NewDemoCompositionRoot wires a session against an in-memory store.
func NewDemoCompositionRoot(cfg Config, logger zerolog.Logger, store *memstore.Store) (*CompositionRoot, error) {
	return assemble(cfg, logger, backend{reader: store, gateway: store, feed: store, sla: store})
}

func assemble(cfg Config, logger zerolog.Logger, b backend) (*CompositionRoot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	actor, _ := cfg.Actor()
	statuses, _ := cfg.Statuses()
	gate, _ := cfg.Gate()

	hub := ws.NewHub(logger)
	clock := time.Now
	session := synchronizer.New(b.reader, b.gateway, b.feed, b.sla, hub, synchronizer.Options{
		Actor:             actor,
		AllowList:         statuses,
		FallbackEnabled:   cfg.FallbackEnabled,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
		NewPoller: func(refresh func(), lastSync func() time.Time) feed.Poller {
			return jobs.NewFallbackPollJob(refresh, lastSync, clock, cfg.PollInterval, logger)
		},
		AlertOnInitialLoad: cfg.AlertOnInitialLoad,
		Gate:               gate,
		Observer:           hub,
		Now:                clock,
	}, logger)

	snapshot := func() []ws.Event {
		var events []ws.Event
		if ev, err := hub.ConnectionEvent(session.Health()); err == nil {
			events = append(events, ev)
		}
		if ev, err := hub.OrdersEvent(session.Orders(), session.Stats()); err == nil {
			events = append(events, ev)
		}
		return events
	}

	return &CompositionRoot{
		cfg:     cfg,
		logger:  logger,
		hub:     hub,
		session: session,
		jobs:    jobs.NewJobManager(session.PublishSLA, cfg.SLATickInterval, session.ReloadSLA, cfg.SLAReloadInterval, logger),
		echo: apihttp.NewRouter(apihttp.NewServer(session), apihttp.RouterConfig{
			Hub:            hub,
			Snapshot:       snapshot,
			AllowedOrigins: cfg.AllowedOrigins,
		}, logger),
	}, nil
}

// Session exposes the synchronizer, mainly for seeding and tests.
func (c *CompositionRoot) Session() *synchronizer.Synchronizer {
	return c.session
}

// Run starts the session, the scheduled jobs and the HTTP server, and blocks
// until ctx is cancelled or the server fails.
func (c *CompositionRoot) Run(ctx context.Context) error {
	if err := c.session.Start(ctx); err != nil {
		return fmt.Errorf("start synchronizer: %w", err)
	}
	defer c.session.Stop()

	if err := c.jobs.StartAll(); err != nil {
		return err
	}
	defer c.jobs.StopAll()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := "0.0.0.0:" + c.cfg.HTTPPort
		c.logger.Info().Str("addr", addr).Msg("starting http server")
		if err := c.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		c.logger.Info().Msg("shutting down http server")
		return c.echo.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the database handles, if any.
func (c *CompositionRoot) Close() {
	runClosers(c.closers)
	c.closers = nil
}

func runClosers(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
