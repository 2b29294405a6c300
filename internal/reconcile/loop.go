// Package reconcile runs the process-wide price tick: draw changes, apply
// them to the stored table, mirror the result and refresh active accounts.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/events"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// State of the loop
type State string

const (
	StateIdle    State = "idle"
	StateTicking State = "ticking"
	StateClosed  State = "closed"
)

var (
	// ErrTickInFlight is returned when a tick is requested while one is running
	ErrTickInFlight = errors.New("tick already in flight")
	// ErrClosed is returned once the loop has been torn down
	ErrClosed = errors.New("reconciliation loop closed")
)

// Ticker draws per-symbol percent changes
type Ticker interface {
	Tick(ctx context.Context, symbols []string) prices.TickResult
}

// HistoryRecorder appends a tick's prices to the history
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, prices map[string]decimal.Decimal, changes map[string]int, at time.Time) error
}

// AnalyticsPublisher recomputes analytics for a set of users
type AnalyticsPublisher interface {
	PublishFor(ctx context.Context, userIDs []string) int
}

// ActiveUsers lists users with an open session
type ActiveUsers interface {
	ActiveUsers() []string
}

// Deps are the collaborators of a Loop. History, Analytics, Sessions and
// Events are optional.
type Deps struct {
	Store        domain.PriceStore
	Oracle       Ticker
	Table        *prices.Table
	History      HistoryRecorder
	Analytics    AnalyticsPublisher
	Sessions     ActiveUsers
	Events       *events.Manager
	StoreTimeout time.Duration
}

// Report describes one completed tick
type Report struct {
	At        time.Time                  `json:"at"`
	Prices    map[string]decimal.Decimal `json:"prices"`
	Changes   map[string]int             `json:"changes"`
	Neutral   bool                       `json:"neutral"`
	Published int                        `json:"published"`
	Duration  time.Duration              `json:"duration"`
}

// Status is a point-in-time view of the loop
type Status struct {
	State    State     `json:"state"`
	LastTick time.Time `json:"last_tick,omitempty"`
	Ticks    int64     `json:"ticks"`
	Skipped  int64     `json:"skipped"`
	Failed   int64     `json:"failed"`
	Neutral  int64     `json:"neutral"`
}

// Loop is the single-flight reconciliation loop
type Loop struct {
	deps Deps
	now  func() time.Time
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// lifecycle orders wg.Add in Tick against the closed flip in Close
	lifecycle sync.Mutex
	wg        sync.WaitGroup

	ticking atomic.Bool
	closed  atomic.Bool

	mu       sync.RWMutex
	lastTick time.Time

	ticks   atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
	neutral atomic.Int64
}

// NewLoop creates an idle loop
func NewLoop(deps Deps, log zerolog.Logger) *Loop {
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		deps:   deps,
		now:    time.Now,
		log:    log.With().Str("component", "reconcile").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the job name
func (l *Loop) Name() string {
	return "reconcile_prices"
}

// Run executes one tick; called by the scheduler on each timer fire.
// A fire that lands while a tick is in flight is dropped.
func (l *Loop) Run() error {
	_, err := l.Tick(l.ctx)
	if errors.Is(err, ErrTickInFlight) || errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Tick performs one reconciliation if none is in flight
func (l *Loop) Tick(ctx context.Context) (*Report, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if !l.ticking.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		l.log.Debug().Msg("Tick in flight, dropping fire")
		l.emitSkipped("in_flight")
		return nil, ErrTickInFlight
	}
	l.lifecycle.Lock()
	if l.closed.Load() {
		l.lifecycle.Unlock()
		l.ticking.Store(false)
		return nil, ErrClosed
	}
	l.wg.Add(1)
	l.lifecycle.Unlock()
	defer func() {
		l.ticking.Store(false)
		l.wg.Done()
	}()

	report, err := l.tick(ctx)
	if err != nil {
		l.failed.Add(1)
		l.log.Error().Err(err).Msg("Tick failed, price table unchanged")
		l.emitSkipped(err.Error())
		return nil, err
	}

	l.ticks.Add(1)
	if report.Neutral {
		l.neutral.Add(1)
	}
	l.mu.Lock()
	l.lastTick = report.At
	l.mu.Unlock()

	l.log.Info().
		Bool("neutral", report.Neutral).
		Int("symbols", len(report.Prices)).
		Int("published", report.Published).
		Dur("duration", report.Duration).
		Msg("Tick completed")

	return report, nil
}

func (l *Loop) tick(ctx context.Context) (*Report, error) {
	start := l.now()

	readCtx, cancel := context.WithTimeout(ctx, l.deps.StoreTimeout)
	current, err := l.deps.Store.GetAll(readCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	symbols := make([]string, 0, len(current))
	for symbol := range current {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	result := l.deps.Oracle.Tick(ctx, symbols)
	next := prices.ApplyChanges(current, result.Changes)

	writeCtx, cancel := context.WithTimeout(ctx, l.deps.StoreTimeout)
	err = l.deps.Store.PutAll(writeCtx, next)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to write prices: %w", err)
	}

	l.deps.Table.Replace(next)
	at := l.now().UTC()

	if l.deps.History != nil {
		if err := l.deps.History.RecordHistory(ctx, next, result.Changes, at); err != nil {
			l.log.Warn().Err(err).Msg("Failed to record price history")
		}
	}

	if l.deps.Events != nil {
		l.deps.Events.EmitTyped("reconcile", &events.PriceUpdatedData{
			Prices:  next,
			Changes: result.Changes,
			Neutral: result.Neutral,
		})
	}

	published := 0
	if l.deps.Analytics != nil && l.deps.Sessions != nil {
		if users := l.deps.Sessions.ActiveUsers(); len(users) > 0 {
			published = l.deps.Analytics.PublishFor(ctx, users)
		}
	}

	return &Report{
		At:        at,
		Prices:    next,
		Changes:   result.Changes,
		Neutral:   result.Neutral,
		Published: published,
		Duration:  l.now().Sub(start),
	}, nil
}

func (l *Loop) emitSkipped(reason string) {
	if l.deps.Events != nil {
		l.deps.Events.EmitTyped("reconcile", &events.TickSkippedData{Reason: reason})
	}
}

// State returns the current state
func (l *Loop) State() State {
	switch {
	case l.closed.Load():
		return StateClosed
	case l.ticking.Load():
		return StateTicking
	default:
		return StateIdle
	}
}

// LastTick returns the completion time of the last successful tick
func (l *Loop) LastTick() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastTick
}

// Status returns the loop state and counters
func (l *Loop) Status() Status {
	return Status{
		State:    l.State(),
		LastTick: l.LastTick(),
		Ticks:    l.ticks.Load(),
		Skipped:  l.skipped.Load(),
		Failed:   l.failed.Load(),
		Neutral:  l.neutral.Load(),
	}
}

// Close tears the loop down, cancelling and waiting for an in-flight tick
func (l *Loop) Close() {
	l.lifecycle.Lock()
	if !l.closed.CompareAndSwap(false, true) {
		l.lifecycle.Unlock()
		return
	}
	l.lifecycle.Unlock()
	l.cancel()
	l.wg.Wait()
	l.log.Info().Msg("Reconciliation loop stopped")
}
