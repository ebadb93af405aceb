package execution

import (
	"context"
	"fmt"
	"math"
	"time"

	"tradecore/internal/domain"
)

// ---------------------------------------------------------------------------
// Emergency unwind
// ---------------------------------------------------------------------------

// UnwindAll closes every open position with offsetting market orders. It is
// invoked by the risk gate on a breach and may also be called directly for
// an operator-initiated flatten.
//
// Unwind orders bypass the risk gate: the gate is already in breach and an
// offsetting order only reduces exposure. Any in-flight TWAP or VWAP run is
// cancelled first so slicing cannot race the flatten. Failures to close
// individual positions are collected; a non-nil error means exposure
// remains and the gate stays in breach.
func (e *Engine) UnwindAll(ctx context.Context) error {
	e.mu.Lock()
	if e.unwinding {
		e.mu.Unlock()
		return nil
	}
	e.unwinding = true
	close(e.cancel)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancel = make(chan struct{})
		e.unwinding = false
		e.mu.Unlock()
	}()

	open := e.ledger.Open()
	e.log.Warn("unwinding all positions", "open_positions", len(open))
	e.notify("critical", fmt.Sprintf("emergency unwind started: %d open positions", len(open)))

	var failed int
	for _, pos := range open {
		if err := e.closePosition(ctx, pos); err != nil {
			failed++
			e.log.Error("closing position during unwind",
				"symbol", pos.Symbol, "quantity", pos.Quantity, "error", err)
			e.notify("error", "unwind failed to close "+pos.Symbol)
		}
	}

	if failed > 0 {
		return fmt.Errorf("unwind incomplete: %d of %d positions still open", failed, len(open))
	}
	e.log.Info("unwind complete", "closed", len(open))
	return nil
}

// closePosition places one offsetting market order straight at the best
// venue and applies the fill to the ledger.
func (e *Engine) closePosition(ctx context.Context, pos domain.Position) error {
	side := domain.OrderSideSell
	if pos.Quantity < 0 {
		side = domain.OrderSideBuy
	}

	rec := &domain.Order{
		ID:        e.nextOrderID(),
		Symbol:    pos.Symbol,
		Side:      side,
		Type:      domain.OrderTypeMarket,
		Quantity:  math.Abs(pos.Quantity),
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	e.trackOrder(rec)

	target, _, err := e.SmartOrderRouting(ctx, *rec)
	if err != nil {
		e.setOrderOutcome(rec, domain.OrderStatusFailed, reasonNoVenue)
		e.journalOrder(ctx, *rec)
		return err
	}

	fill, err := e.placeWithRetry(ctx, target, *rec)
	if err != nil {
		e.setOrderOutcome(rec, domain.OrderStatusFailed, reasonPlacementFailed)
		e.journalOrder(ctx, *rec)
		return err
	}

	before, _ := e.ledger.Get(fill.Symbol)
	e.ledger.Apply(fill.Symbol, fill.Quantity, fill.Price)

	e.mu.Lock()
	rec.Status = domain.OrderStatusFilled
	rec.Venue = fill.Venue
	rec.FilledQuantity = math.Abs(fill.Quantity)
	rec.FilledAvgPrice = fill.Price
	e.mu.Unlock()

	if e.journal != nil {
		if jerr := e.journal.RecordFill(ctx, fill); jerr != nil {
			e.log.Warn("journaling unwind fill", "order", rec.ID, "error", jerr)
		}
	}
	e.journalOrder(ctx, *rec)
	e.recordRealized(before, fill)
	return nil
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

// ReconcilePositions replaces the ledger with the named venue's reported
// positions, treating the venue as ground truth. The venue query runs
// outside any lock; the swap itself is atomic inside the ledger. Deltas
// between local and remote state are logged and journaled for audit, then
// risk is re-evaluated against the adopted state.
func (e *Engine) ReconcilePositions(ctx context.Context, venueName string) error {
	v, ok := e.venues[venueName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVenue, venueName)
	}

	remote, err := v.Positions(ctx)
	if err != nil {
		return fmt.Errorf("fetching positions from %s: %w", venueName, err)
	}

	deltas := e.ledger.Replace(remote)
	for _, d := range deltas {
		e.log.Warn("position drift detected",
			"venue", venueName, "symbol", d.Symbol,
			"local", d.LocalQuantity, "remote", d.RemoteQuantity)
	}
	if len(deltas) > 0 {
		e.notify("warning", fmt.Sprintf("reconciliation against %s adjusted %d positions", venueName, len(deltas)))
	}

	if e.journal != nil {
		if jerr := e.journal.RecordReconciliation(ctx, venueName, deltas); jerr != nil {
			e.log.Warn("journaling reconciliation", "venue", venueName, "error", jerr)
		}
	}

	e.gate.EvaluateRisk(ctx)
	e.log.Info("reconciliation complete", "venue", venueName, "deltas", len(deltas))
	return nil
}
