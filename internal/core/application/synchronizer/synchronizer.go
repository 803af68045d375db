// Package synchronizer is the per-session facade of the pharmacy queue. It
// wires the reconciler, the feed supervisor, the alert trigger and the
// workflow commands behind one serialized work queue, and exposes the
// presentation API.
package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pharmaqueue/internal/core/application/alert"
	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/application/reconciler"
	"pharmaqueue/internal/core/application/usecases/commands"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
	"pharmaqueue/internal/core/domain/services"
	"pharmaqueue/internal/core/ports"

	"github.com/rs/zerolog"
)

// ErrNotRunning is returned for work submitted before Start or after Stop.
var ErrNotRunning = errors.New("synchronizer is not running")

// OrderView is a cached order decorated for display.
type OrderView struct {
	order.Order
	HasMAV         bool       `json:"hasMAV"`
	ChecksRequired int        `json:"checksRequired"`
	GateSatisfied  bool       `json:"gateSatisfied"`
	SLA            sla.Status `json:"sla"`
}

// CheckOutcome reports a double-check submission and, when the gate opened,
// the automatic attempt to advance the order to ready. The follow-up is
// reported on its own; its failure does not fail the check.
type CheckOutcome struct {
	Check   commands.SubmitCheckResult            `json:"check"`
	Advance *Result[commands.AdvanceStatusResult] `json:"advance,omitempty"`
}

type task struct {
	name string
	run  func(ctx context.Context) error
	done chan error
}

// Synchronizer keeps one session's view of the queue consistent with the store.
// All cache writes run on a single worker in arrival order; reads are concurrent.
type Synchronizer struct {
	reader  ports.OrderReader
	feed    ports.ChangeFeed
	slaSrc  ports.SLAConfigSource
	opts    Options
	logger  zerolog.Logger
	rec     *reconciler.Reconciler
	trigger *alert.Trigger

	advance commands.AdvanceStatusCommandHandler
	claim   commands.ClaimOrderCommandHandler
	check   commands.SubmitCheckCommandHandler

	evaluator atomic.Pointer[services.SLAEvaluator]
	lastSync  atomic.Int64

	mu         sync.Mutex
	supervisor *feed.Supervisor
	tasks      chan task
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
}

// New builds a stopped synchronizer.
func New(
	reader ports.OrderReader,
	gateway ports.WorkflowGateway,
	changeFeed ports.ChangeFeed,
	slaSource ports.SLAConfigSource,
	player ports.AlertPlayer,
	opts Options,
	logger zerolog.Logger,
) *Synchronizer {
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "synchronizer").Str("actor", opts.Actor.String()).Logger()

	s := &Synchronizer{
		reader:  reader,
		feed:    changeFeed,
		slaSrc:  slaSource,
		opts:    opts,
		logger:  logger,
		rec:     reconciler.New(reader, opts.AllowList, logger),
		trigger: alert.NewTrigger(player, opts.AlertOnInitialLoad, logger),
		advance: commands.NewAdvanceStatusCommandHandler(gateway),
		claim:   commands.NewClaimOrderCommandHandler(gateway),
		check:   commands.NewSubmitCheckCommandHandler(gateway),
	}
	evaluator := services.NewSLAEvaluator(nil, opts.Now)
	s.evaluator.Store(&evaluator)
	return s
}

// Start loads the SLA table, performs the initial full load and opens the
// change feed. Failures of the first two are logged; the session still runs
// and recovers through the feed or a manual refresh.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("synchronizer already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.tasks = make(chan task, s.opts.QueueSize)
	s.running = true

	var poller feed.Poller
	if s.opts.FallbackEnabled && s.opts.NewPoller != nil {
		poller = s.opts.NewPoller(s.requestReload, s.LastSync)
	}
	s.supervisor = feed.NewSupervisor(s.feed, poller, feed.Config{
		Tables:            ports.FeedTables(),
		FallbackEnabled:   s.opts.FallbackEnabled,
		ReconnectDelay:    s.opts.ReconnectDelay,
		MaxReconnectDelay: s.opts.MaxReconnectDelay,
	}, s.onChange, s.opts.Observer.ConnectionChanged, s.logger)
	runCtx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.work(runCtx)

	if err := s.ReloadSLA(runCtx); err != nil {
		s.logger.Warn().Err(err).Msg("SLA configs unavailable, timers stay neutral")
	}

	if err := s.submit(runCtx, "initial load", s.loadAll); err != nil {
		s.logger.Error().Err(err).Msg("initial load failed")
	}

	s.supervisor.Start(runCtx)
	s.logger.Info().Strs("allow_list", statusNames(s.rec.AllowList())).Msg("synchronizer started")
	return nil
}

// Stop cancels the subscription, every timer and the worker, and waits for it.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	supervisor := s.supervisor
	cancel := s.cancel
	s.mu.Unlock()

	supervisor.Stop()
	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("synchronizer stopped")
}

func (s *Synchronizer) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.tasks:
			err := t.run(ctx)
			if err != nil && t.done == nil {
				s.logger.Warn().Err(err).Str("task", t.name).Msg("background task failed")
			}
			if t.done != nil {
				t.done <- err
			}
		}
	}
}

// enqueue adds a task without waiting for it. It reports false when stopped.
func (s *Synchronizer) enqueue(name string, run func(ctx context.Context) error) bool {
	s.mu.Lock()
	running, tasks, ctx := s.running, s.tasks, s.ctx
	s.mu.Unlock()
	if !running {
		return false
	}

	select {
	case tasks <- task{name: name, run: run}:
		return true
	case <-ctx.Done():
		return false
	}
}

// submit adds a task and waits for its completion.
func (s *Synchronizer) submit(ctx context.Context, name string, run func(ctx context.Context) error) error {
	s.mu.Lock()
	running, tasks, runCtx := s.running, s.tasks, s.ctx
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	done := make(chan error, 1)
	select {
	case tasks <- task{name: name, run: run, done: done}:
	case <-runCtx.Done():
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) onChange(ev ports.ChangeEvent) {
	s.enqueue("change "+ev.Table, func(ctx context.Context) error {
		switch {
		case ev.IsOrderRow():
			return s.applied(s.rec.ApplyRowEvent(ctx, ev.Kind, ev.RowID))
		case ev.OrderID > 0:
			return s.applied(s.rec.ApplySecondaryEvent(ctx, ev.OrderID))
		default:
			return s.loadAll(ctx)
		}
	})
}

// requestReload is the fallback poller's refresh hook.
func (s *Synchronizer) requestReload() {
	s.enqueue("poll", s.loadAll)
}

func (s *Synchronizer) loadAll(ctx context.Context) error {
	return s.applied(s.rec.LoadAll(ctx))
}

func (s *Synchronizer) refreshOrder(ctx context.Context, orderID int64) error {
	return s.applied(s.rec.ApplyRowEvent(ctx, ports.ChangeUpdate, orderID))
}

// applied runs after every reconciliation on the worker.
func (s *Synchronizer) applied(delta reconciler.Delta, err error) error {
	if err != nil {
		return err
	}
	s.lastSync.Store(s.opts.Now().UnixNano())
	if !delta.Changed {
		return nil
	}
	s.trigger.Observe(s.ctx, delta.Current)
	s.opts.Observer.OrdersChanged(s.Orders(), s.rec.Stats())
	return nil
}

// LastSync returns the time of the last successful reconciliation, zero if none.
func (s *Synchronizer) LastSync() time.Time {
	n := s.lastSync.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Orders returns the visible orders in display order with SLA and gate state.
func (s *Synchronizer) Orders() []OrderView {
	snapshot := s.rec.Snapshot()
	statuses := s.evaluator.Load().EvaluateOrders(snapshot)

	views := make([]OrderView, len(snapshot))
	for i, o := range snapshot {
		views[i] = OrderView{
			Order:          *o,
			HasMAV:         o.HasMAV(),
			ChecksRequired: s.opts.Gate.Required(),
			GateSatisfied:  !o.HasMAV() || s.opts.Gate.Satisfied(o.Checks),
			SLA:            statuses[o.ID],
		}
	}
	return views
}

// Order returns one visible order.
func (s *Synchronizer) Order(orderID int64) (*order.Order, bool) {
	return s.rec.Get(orderID)
}

// Stats returns the cache statistics.
func (s *Synchronizer) Stats() reconciler.Stats {
	return s.rec.Stats()
}

// Health returns the connection health, disconnected before Start.
func (s *Synchronizer) Health() feed.Health {
	s.mu.Lock()
	supervisor := s.supervisor
	s.mu.Unlock()
	if supervisor == nil {
		return feed.Disconnected
	}
	return supervisor.Health()
}

// SLASnapshot evaluates every visible order at the current instant.
func (s *Synchronizer) SLASnapshot() map[int64]sla.Status {
	return s.evaluator.Load().EvaluateOrders(s.rec.Snapshot())
}

// SLAFor evaluates one visible order.
func (s *Synchronizer) SLAFor(orderID int64) (sla.Status, bool) {
	o, found := s.rec.Get(orderID)
	if !found {
		return sla.Status{}, false
	}
	return s.evaluator.Load().Evaluate(o.Priority, o.CreatedAt), true
}

// PublishSLA pushes a fresh SLA snapshot to the observer. The SLA tick job calls it.
func (s *Synchronizer) PublishSLA() {
	s.opts.Observer.SLATick(s.SLASnapshot())
}

// ReloadSLA re-reads the SLA table and swaps the evaluator.
func (s *Synchronizer) ReloadSLA(ctx context.Context) error {
	configs, err := s.slaSrc.LoadSLAConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load SLA configs: %w", err)
	}
	evaluator := services.NewSLAEvaluator(sla.NewTable(configs...), s.opts.Now)
	s.evaluator.Store(&evaluator)
	s.logger.Debug().Int("configs", len(configs)).Msg("SLA configs loaded")
	return nil
}

// Refresh reloads every visible order regardless of feed state.
func (s *Synchronizer) Refresh(ctx context.Context) Result[reconciler.Stats] {
	if err := s.submit(ctx, "refresh", s.loadAll); err != nil {
		return fail[reconciler.Stats](err)
	}
	return ok(s.rec.Stats())
}

// Reconnect recreates the change-feed subscription.
func (s *Synchronizer) Reconnect() Result[feed.Health] {
	s.mu.Lock()
	running, supervisor := s.running, s.supervisor
	s.mu.Unlock()
	if !running {
		return fail[feed.Health](ErrNotRunning)
	}
	supervisor.Reconnect()
	return ok(supervisor.Health())
}

// PrimeAudio unlocks alert playback after a user interaction.
func (s *Synchronizer) PrimeAudio(ctx context.Context) Result[bool] {
	if err := s.trigger.Prime(ctx); err != nil {
		return fail[bool](err)
	}
	return ok(true)
}

// SetAllowList changes which statuses are visible and reloads.
func (s *Synchronizer) SetAllowList(ctx context.Context, statuses []order.Status) Result[reconciler.Stats] {
	for _, st := range statuses {
		if err := st.Validate(); err != nil {
			return fail[reconciler.Stats](err)
		}
	}
	err := s.submit(ctx, "set allow-list", func(ctx context.Context) error {
		s.rec.SetAllowList(statuses)
		return s.loadAll(ctx)
	})
	if err != nil {
		return fail[reconciler.Stats](err)
	}
	return ok(s.rec.Stats())
}

// AdvanceStatus requests the next status of an order. When the cached status
// rules the target out, the order is re-read first and the target checked
// against the fresh status, so a stale cache never refuses a legal step. The
// order is re-read afterwards whatever the outcome.
func (s *Synchronizer) AdvanceStatus(
	ctx context.Context,
	orderID int64,
	to order.Status,
	reason string,
	metadata json.RawMessage,
) Result[commands.AdvanceStatusResult] {
	cmd, err := commands.NewAdvanceStatusCommand(s.opts.Actor, orderID, to, reason)
	if err == nil {
		cmd, err = cmd.WithMetadata(metadata)
	}
	if err != nil {
		return fail[commands.AdvanceStatusResult](err)
	}
	result, err := s.advance.Handle(ctx, s.withCachedStatus(cmd))
	var rejected *commands.TransitionRejectedError
	if errors.As(err, &rejected) && rejected.Local {
		s.resync(ctx, orderID)
		result, err = s.advance.Handle(ctx, s.withCachedStatus(cmd))
	}
	if !errors.As(err, &rejected) || !rejected.Local {
		s.resync(ctx, orderID)
	}
	if err != nil {
		s.logger.Info().Err(err).Int64("order_id", orderID).Str("to", to.String()).Msg("status change rejected")
		return fail[commands.AdvanceStatusResult](err)
	}

	s.logger.Info().Int64("order_id", orderID).Str("from", result.From.String()).Str("to", result.To.String()).Msg("status changed")
	return ok(result)
}

// Claim assigns the order to the session's actor.
func (s *Synchronizer) Claim(ctx context.Context, orderID int64) Result[commands.ClaimOrderResult] {
	cmd, err := commands.NewClaimOrderCommand(s.opts.Actor, orderID)
	if err != nil {
		return fail[commands.ClaimOrderResult](err)
	}

	result, err := s.claim.Handle(ctx, cmd)
	s.resync(ctx, orderID)
	if err != nil {
		s.logger.Info().Err(err).Int64("order_id", orderID).Msg("claim rejected")
		return fail[commands.ClaimOrderResult](err)
	}
	return ok(result)
}

// SubmitCheck records a double check and, once the gate is satisfied, tries
// to advance the order to ready.
func (s *Synchronizer) SubmitCheck(ctx context.Context, orderID int64, notes string) Result[CheckOutcome] {
	cmd, err := commands.NewSubmitCheckCommand(s.opts.Actor, orderID, notes)
	if err != nil {
		return fail[CheckOutcome](err)
	}

	result, err := s.check.Handle(ctx, cmd)
	s.resync(ctx, orderID)
	if err != nil {
		s.logger.Info().Err(err).Int64("order_id", orderID).Msg("check rejected")
		return fail[CheckOutcome](err)
	}

	outcome := CheckOutcome{Check: result}
	if result.GateSatisfied {
		advance := s.AdvanceStatus(ctx, orderID, order.Ready, "double check complete", nil)
		outcome.Advance = &advance
	}
	return ok(outcome)
}

// resync re-reads one order after a mutation attempt. Failures are logged;
// the feed or the poller will catch up.
// withCachedStatus lets the handler check adjacency against the cache. An
// order missing from the cache is left to the store.
func (s *Synchronizer) withCachedStatus(cmd commands.AdvanceStatusCommand) commands.AdvanceStatusCommand {
	if cached, found := s.rec.Get(cmd.OrderID()); found {
		return cmd.WithCurrentStatus(cached.Status)
	}
	return cmd.WithCurrentStatus(order.Unknown)
}

func (s *Synchronizer) resync(ctx context.Context, orderID int64) {
	err := s.submit(ctx, "resync order", func(ctx context.Context) error {
		return s.refreshOrder(ctx, orderID)
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("post-mutation refresh failed")
	}
}

func statusNames(statuses []order.Status) []string {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return names
}
