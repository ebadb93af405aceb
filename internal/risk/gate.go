// Package risk implements the pre-trade gate and post-update risk
// evaluation: position sizing, parametric VaR, exposure and drawdown
// computation, and the Normal → Breach → Unwinding state machine that
// triggers an emergency unwind.
package risk

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"
)

var (
	// ErrInvalidStopLoss is returned when entry price equals stop loss,
	// which makes the per-unit risk (and the size division) undefined.
	ErrInvalidStopLoss = errors.New("invalid stop loss: entry price equals stop loss")

	// ErrInsufficientHistory is returned when too few return samples are
	// supplied for a VaR estimate.
	ErrInsufficientHistory = errors.New("insufficient return history for VaR")
)

// maxPositionPct caps any single position's notional at this fraction of
// account balance during the pre-trade check.
const maxPositionPct = 0.2

// State is the gate's lifecycle state. The gate runs for the lifetime of
// the process; there is no terminal state.
type State string

const (
	StateNormal    State = "normal"
	StateBreach    State = "breach"
	StateUnwinding State = "unwinding"
)

// Rejection reason codes carried on Decision and Order records.
const (
	ReasonPositionLimit = "position-limit"
	ReasonExposureLimit = "exposure-limit"
	ReasonGateHalted    = "gate-halted"
)

// Decision is the explicit result of a pre-trade check. A rejection is a
// structured outcome, not an error.
type Decision struct {
	Approved          bool
	Reason            string
	ProjectedNotional float64
	ProjectedExposure float64
}

// Unwinder flattens all open positions. The execution engine implements
// it; the gate holds it as an interface to break the construction cycle
// between the two.
type Unwinder interface {
	UnwindAll(ctx context.Context) error
}

// Alerter receives risk alerts. The monitor hub implements it.
type Alerter interface {
	Notify(severity, message string)
}

// Gate authorizes or rejects orders against live exposure, drawdown, and
// position limits, and evaluates overall risk after every ledger mutation.
type Gate struct {
	limits           domain.RiskLimits
	ledger           *ledger.Ledger
	minReturnSamples int
	log              *slog.Logger
	alerts           Alerter

	mu       sync.Mutex
	state    State
	account  domain.AccountState
	unwinder Unwinder
}

// NewGate creates a Gate in the Normal state. The unwinder must be set via
// SetUnwinder before the first EvaluateRisk call.
func NewGate(limits domain.RiskLimits, account domain.AccountState, l *ledger.Ledger, minReturnSamples int, alerts Alerter, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		limits:           limits,
		ledger:           l,
		minReturnSamples: minReturnSamples,
		log:              log.With("component", "risk"),
		alerts:           alerts,
		state:            StateNormal,
		account:          account,
	}
}

// SetUnwinder wires the execution engine's unwind entry point.
func (g *Gate) SetUnwinder(u Unwinder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unwinder = u
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Account returns a snapshot of the account state.
func (g *Gate) Account() domain.AccountState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.account
}

// Limits returns the configured risk limits.
func (g *Gate) Limits() domain.RiskLimits {
	return g.limits
}

// SetCurrentEquity updates the account's current equity as fills settle.
func (g *Gate) SetCurrentEquity(equity float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.account.CurrentEquity = equity
}

// ---------------------------------------------------------------------------
// Risk calculations
// ---------------------------------------------------------------------------

// CalculatePositionSize returns the position size that risks riskPct percent
// of balance between entryPrice and stopLoss:
//
//	size = (balance × riskPct/100) / |entryPrice − stopLoss|
func CalculatePositionSize(entryPrice, stopLoss, balance, riskPct float64) (float64, error) {
	riskPerUnit := math.Abs(entryPrice - stopLoss)
	if riskPerUnit == 0 {
		return 0, ErrInvalidStopLoss
	}
	riskAmount := balance * riskPct / 100
	return riskAmount / riskPerUnit, nil
}

// PositionSize applies CalculatePositionSize with the gate's configured
// account balance and risk tolerance.
func (g *Gate) PositionSize(entryPrice, stopLoss float64) (float64, error) {
	acct := g.Account()
	return CalculatePositionSize(entryPrice, stopLoss, acct.Balance, g.limits.RiskTolerancePct)
}

// CalculateVaR computes parametric Value-at-Risk over the supplied return
// samples at the given confidence level, scaled by account balance. The
// result is non-positive: the potential loss.
func (g *Gate) CalculateVaR(returns []float64, confidenceLevel float64) (float64, error) {
	if len(returns) < g.minReturnSamples {
		return 0, ErrInsufficientHistory
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(returns)))

	v := g.Account().Balance * normQuantile(1-confidenceLevel, mean, std)
	if v > 0 {
		v = 0
	}
	return v, nil
}

// normQuantile is the inverse CDF of the normal distribution with the given
// mean and standard deviation.
func normQuantile(p, mean, std float64) float64 {
	return mean + std*math.Sqrt2*math.Erfinv(2*p-1)
}

// CalculateExposure returns Σ|position value| over open positions.
func (g *Gate) CalculateExposure() float64 {
	return g.ledger.TotalExposure()
}

// CalculateDrawdown returns the fractional equity loss from initial equity,
// floored at zero.
func (g *Gate) CalculateDrawdown() float64 {
	acct := g.Account()
	if acct.InitialEquity <= 0 {
		return 0
	}
	dd := (acct.InitialEquity - acct.CurrentEquity) / acct.InitialEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// ---------------------------------------------------------------------------
// Pre-trade gate
// ---------------------------------------------------------------------------

// CheckOrder authorizes or rejects an order before placement. refPrice is
// the price the projection is valued at (the limit price, or the latest
// market price for market orders). Rejections are structured results with
// a reason code, never errors.
func (g *Gate) CheckOrder(order domain.Order, refPrice float64) Decision {
	g.mu.Lock()
	state := g.state
	balance := g.account.Balance
	g.mu.Unlock()

	if state != StateNormal {
		return Decision{Reason: ReasonGateHalted}
	}

	signedQty := order.Quantity
	if order.Side == domain.OrderSideSell {
		signedQty = -signedQty
	}

	current, _ := g.ledger.Get(order.Symbol)
	projectedQty := current.Quantity + signedQty
	projectedNotional := math.Abs(projectedQty * refPrice)

	exposure := g.ledger.TotalExposure()
	projectedExposure := exposure - math.Abs(current.Value) + projectedNotional

	d := Decision{
		ProjectedNotional: projectedNotional,
		ProjectedExposure: projectedExposure,
	}

	if projectedNotional > balance*maxPositionPct {
		d.Reason = ReasonPositionLimit
		return d
	}
	if projectedExposure > g.limits.MaxExposure {
		d.Reason = ReasonExposureLimit
		return d
	}

	d.Approved = true
	return d
}

// ---------------------------------------------------------------------------
// Post-update evaluation
// ---------------------------------------------------------------------------

// EvaluateRisk runs after every ledger mutation. When exposure or drawdown
// exceeds its limit the gate transitions to Breach, triggers the unwinder,
// and returns to Normal once all positions are flat and limits hold again.
func (g *Gate) EvaluateRisk(ctx context.Context) {
	exposure := g.ledger.TotalExposure()
	drawdown := g.CalculateDrawdown()

	var metric string
	var value, limit float64
	switch {
	case exposure > g.limits.MaxExposure:
		metric, value, limit = "exposure", exposure, g.limits.MaxExposure
	case drawdown > g.limits.MaxDrawdownPct:
		metric, value, limit = "drawdown", drawdown, g.limits.MaxDrawdownPct
	default:
		return
	}

	g.mu.Lock()
	if g.state != StateNormal {
		// A breach is already being handled.
		g.mu.Unlock()
		return
	}
	g.state = StateBreach
	unwinder := g.unwinder
	g.mu.Unlock()

	g.log.Error("risk breach", "metric", metric, "value", value, "limit", limit)
	if g.alerts != nil {
		g.alerts.Notify("critical", "risk breach: "+metric+" limit exceeded")
	}

	if unwinder == nil {
		g.log.Error("no unwinder configured, gate stays in breach")
		return
	}

	g.mu.Lock()
	g.state = StateUnwinding
	g.mu.Unlock()

	// The unwind places venue orders; it must run outside the gate lock.
	if err := unwinder.UnwindAll(ctx); err != nil {
		g.log.Error("unwind failed", "error", err)
		if g.alerts != nil {
			g.alerts.Notify("critical", "unwind failed: "+err.Error())
		}
		g.mu.Lock()
		g.state = StateBreach
		g.mu.Unlock()
		return
	}

	remaining := g.ledger.TotalExposure()
	if remaining > g.limits.MaxExposure {
		g.log.Error("exposure still above limit after unwind", "exposure", remaining)
		g.mu.Lock()
		g.state = StateBreach
		g.mu.Unlock()
		return
	}

	if dd := g.CalculateDrawdown(); dd > g.limits.MaxDrawdownPct {
		// Flat, but the realized loss keeps drawdown above the limit.
		// Stay halted until the operator restores equity headroom.
		g.log.Warn("flat after unwind but drawdown remains above limit", "drawdown", dd)
		g.mu.Lock()
		g.state = StateBreach
		g.mu.Unlock()
		return
	}

	g.mu.Lock()
	g.state = StateNormal
	g.mu.Unlock()
	g.log.Info("unwind complete, gate back to normal", "exposure", remaining)
}
