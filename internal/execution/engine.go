// Package execution routes risk-gated orders to venues, slices large
// orders over time (TWAP) or volume (VWAP), performs the emergency unwind,
// and reconciles the ledger against venue ground truth.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"
	"tradecore/internal/marketdata"
	"tradecore/internal/risk"
	"tradecore/internal/util"
	"tradecore/internal/venue"
)

// Validation errors: fatal to the single call, never retried.
var (
	ErrUnknownSymbol        = errors.New("unknown or empty symbol")
	ErrInvalidQuantity      = errors.New("order quantity must be positive")
	ErrMissingLimitPrice    = errors.New("limit order requires a positive price")
	ErrNoMarketData         = errors.New("no market data for symbol")
	ErrInvalidVolumeProfile = errors.New("volume profile must be non-negative and sum to a positive value")
	ErrNoVenueQuotes        = errors.New("no venue produced a routing quote")
	ErrUnknownVenue         = errors.New("unknown venue")
)

// Failure reason codes recorded on Failed orders.
const (
	reasonPlacementFailed = "placement-failed"
	reasonNoVenue         = "no-venue"
	reasonInternal        = "internal-error"
)

// Journal receives audit records. The store package implements it; a nil
// journal disables auditing.
type Journal interface {
	RecordOrder(ctx context.Context, order domain.Order) error
	RecordFill(ctx context.Context, fill domain.Fill) error
	RecordReconciliation(ctx context.Context, venueName string, deltas []ledger.Delta) error
}

// Alerter receives operational alerts. The monitor hub implements it.
type Alerter interface {
	Notify(severity, message string)
}

// TradeRecorder receives realized P&L outcomes.
type TradeRecorder interface {
	RecordTrade(pnl float64)
}

// Config holds the engine's placement and slicing parameters.
type Config struct {
	RetryAttempts  int
	RetryBaseDelay time.Duration
	TWAPSlices     int
}

// SliceResult summarizes a TWAP or VWAP run. Per-slice failures are
// best-effort: they are counted, not fatal.
type SliceResult struct {
	Requested float64 // quantity asked for
	Executed  float64 // quantity actually filled
	Placed    int     // child orders filled
	Failed    int     // child orders rejected or failed
	Halted    bool    // slicing stopped early by cancellation or unwind
}

// Engine is the order execution engine. It owns the order records, asks the
// risk gate before every placement, and applies fills to the ledger.
type Engine struct {
	cfg     Config
	gate    *risk.Gate
	ledger  *ledger.Ledger
	buffer  *marketdata.Buffer
	venues  map[string]venue.Venue
	journal Journal
	alerts  Alerter
	timing  util.DurationSink
	trades  TradeRecorder
	log     *slog.Logger

	idSeq atomic.Int64

	mu        sync.Mutex
	orders    map[string]*domain.Order
	cancel    chan struct{}
	unwinding bool
}

// NewEngine creates an Engine over the given venues and wires itself into
// the gate as its unwinder. journal, alerts, timing, and trades may be nil.
func NewEngine(
	cfg Config,
	gate *risk.Gate,
	l *ledger.Ledger,
	buffer *marketdata.Buffer,
	venues []venue.Venue,
	journal Journal,
	alerts Alerter,
	timing util.DurationSink,
	trades TradeRecorder,
	log *slog.Logger,
) *Engine {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.TWAPSlices <= 0 {
		cfg.TWAPSlices = 10
	}
	if log == nil {
		log = slog.Default()
	}

	byName := make(map[string]venue.Venue, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}

	e := &Engine{
		cfg:     cfg,
		gate:    gate,
		ledger:  l,
		buffer:  buffer,
		venues:  byName,
		journal: journal,
		alerts:  alerts,
		timing:  timing,
		trades:  trades,
		log:     log.With("component", "execution"),
		orders:  make(map[string]*domain.Order),
		cancel:  make(chan struct{}),
	}
	gate.SetUnwinder(e)
	return e
}

// nextOrderID returns a unique, monotonic-time-derived order id.
func (e *Engine) nextOrderID() string {
	return fmt.Sprintf("ord-%d-%d", time.Now().UnixNano(), e.idSeq.Add(1))
}

// OrderStatus returns a copy of the order record for id.
func (e *Engine) OrderStatus(id string) (domain.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Orders returns copies of all order records, newest first.
func (e *Engine) Orders() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (e *Engine) trackOrder(o *domain.Order) {
	e.mu.Lock()
	e.orders[o.ID] = o
	e.mu.Unlock()
}

func (e *Engine) setOrderOutcome(o *domain.Order, status domain.OrderStatus, reason string) {
	e.mu.Lock()
	o.Status = status
	o.Reason = reason
	e.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Order routing
// ---------------------------------------------------------------------------

// RouteOrder validates a trade intent, asks the risk gate for authorization,
// places the order at the best venue with bounded retries, and applies the
// resulting fill to the ledger before re-evaluating risk.
//
// Validation failures return a non-nil error. A risk rejection or a
// placement failure is a structured outcome: the returned order carries
// status Rejected or Failed with a reason code, and the error is nil.
func (e *Engine) RouteOrder(ctx context.Context, symbol string, side domain.OrderSide, orderType domain.OrderType, quantity, price float64) (order domain.Order, err error) {
	if symbol == "" {
		return domain.Order{}, ErrUnknownSymbol
	}
	if quantity <= 0 {
		return domain.Order{}, ErrInvalidQuantity
	}
	if orderType == domain.OrderTypeLimit && price <= 0 {
		return domain.Order{}, ErrMissingLimitPrice
	}

	refPrice := price
	if refPrice <= 0 {
		last, ok := e.buffer.Last(symbol)
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrNoMarketData, symbol)
		}
		refPrice = last.Price
	}

	rec := &domain.Order{
		ID:        e.nextOrderID(),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	e.trackOrder(rec)

	// One bad order never halts the engine: anything unexpected past this
	// point becomes a Failed order record instead of propagating.
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while routing order", "order", rec.ID, "panic", r)
			e.setOrderOutcome(rec, domain.OrderStatusFailed, reasonInternal)
			order, err = *rec, nil
		}
	}()

	decision := e.gate.CheckOrder(*rec, refPrice)
	if !decision.Approved {
		e.setOrderOutcome(rec, domain.OrderStatusRejected, decision.Reason)
		e.log.Info("order rejected by risk gate",
			"order", rec.ID, "symbol", symbol, "reason", decision.Reason,
			"projected_exposure", decision.ProjectedExposure)
		e.journalOrder(ctx, *rec)
		return *rec, nil
	}

	target, _, routeErr := e.SmartOrderRouting(ctx, *rec)
	if routeErr != nil {
		e.setOrderOutcome(rec, domain.OrderStatusFailed, reasonNoVenue)
		e.log.Error("no venue available", "order", rec.ID, "error", routeErr)
		e.notify("error", "order "+rec.ID+" failed: no venue available")
		e.journalOrder(ctx, *rec)
		return *rec, nil
	}

	fill, placeErr := e.placeWithRetry(ctx, target, *rec)
	if placeErr != nil {
		e.setOrderOutcome(rec, domain.OrderStatusFailed, reasonPlacementFailed)
		e.log.Error("placement failed after retries",
			"order", rec.ID, "venue", target.Name(), "error", placeErr)
		e.notify("error", "order "+rec.ID+" failed at venue "+target.Name())
		e.journalOrder(ctx, *rec)
		return *rec, nil
	}

	e.applyFill(ctx, rec, fill)
	return *rec, nil
}

// placeWithRetry submits the order with bounded exponential backoff. No
// lock is held across the venue call.
func (e *Engine) placeWithRetry(ctx context.Context, v venue.Venue, order domain.Order) (domain.Fill, error) {
	var fill domain.Fill
	err := util.Timed(e.timing, "place-order", func() error {
		return util.Retry(ctx, e.cfg.RetryAttempts, e.cfg.RetryBaseDelay, func() error {
			var placeErr error
			fill, placeErr = v.PlaceOrder(ctx, order)
			return placeErr
		})
	})
	return fill, err
}

// applyFill updates the order record and the ledger from a fill, journals
// it, records realized P&L, and triggers the post-update risk evaluation.
func (e *Engine) applyFill(ctx context.Context, rec *domain.Order, fill domain.Fill) {
	before, _ := e.ledger.Get(fill.Symbol)
	after := e.ledger.Apply(fill.Symbol, fill.Quantity, fill.Price)

	e.mu.Lock()
	rec.Status = domain.OrderStatusFilled
	rec.Venue = fill.Venue
	rec.FilledQuantity = math.Abs(fill.Quantity)
	rec.FilledAvgPrice = fill.Price
	e.mu.Unlock()

	e.log.Info("order filled",
		"order", rec.ID, "symbol", fill.Symbol, "venue", fill.Venue,
		"quantity", fill.Quantity, "price", fill.Price, "position", after.Quantity)

	if e.journal != nil {
		if err := e.journal.RecordFill(ctx, fill); err != nil {
			e.log.Warn("journaling fill", "order", rec.ID, "error", err)
		}
	}
	e.journalOrder(ctx, *rec)
	e.recordRealized(before, fill)

	// Synchronous by design: no window of unchecked exposure between a
	// ledger mutation and the next risk decision.
	e.gate.EvaluateRisk(ctx)
}

// recordRealized reports P&L for the closed portion of a position.
func (e *Engine) recordRealized(before domain.Position, fill domain.Fill) {
	if e.trades == nil || before.Quantity == 0 {
		return
	}
	// Only fills that reduce the existing position realize P&L.
	if before.Quantity > 0 && fill.Quantity < 0 {
		closed := math.Min(before.Quantity, -fill.Quantity)
		e.trades.RecordTrade(closed * (fill.Price - before.EntryPrice))
	} else if before.Quantity < 0 && fill.Quantity > 0 {
		closed := math.Min(-before.Quantity, fill.Quantity)
		e.trades.RecordTrade(closed * (before.EntryPrice - fill.Price))
	}
}

func (e *Engine) journalOrder(ctx context.Context, order domain.Order) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordOrder(ctx, order); err != nil {
		e.log.Warn("journaling order", "order", order.ID, "error", err)
	}
}

func (e *Engine) notify(severity, message string) {
	if e.alerts != nil {
		e.alerts.Notify(severity, message)
	}
}

// ---------------------------------------------------------------------------
// Smart order routing
// ---------------------------------------------------------------------------

// SmartOrderRouting selects the venue minimizing fee + slippage for the
// order's symbol. Venues that fail to quote are skipped. Ties break on the
// lexicographically smallest venue name for determinism.
func (e *Engine) SmartOrderRouting(ctx context.Context, order domain.Order) (venue.Venue, venue.Quote, error) {
	names := make([]string, 0, len(e.venues))
	for name := range e.venues {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		best      venue.Venue
		bestQuote venue.Quote
	)
	for _, name := range names {
		v := e.venues[name]
		q, err := v.Quote(ctx, order.Symbol)
		if err != nil {
			e.log.Warn("venue quote failed", "venue", name, "symbol", order.Symbol, "error", err)
			continue
		}
		if best == nil || q.Cost() < bestQuote.Cost() {
			best, bestQuote = v, q
		}
	}
	if best == nil {
		return nil, venue.Quote{}, ErrNoVenueQuotes
	}
	return best, bestQuote, nil
}
