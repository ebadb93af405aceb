package execution

import (
	"context"
	"fmt"
	"time"

	"tradecore/internal/domain"
)

// ---------------------------------------------------------------------------
// Time-sliced execution
// ---------------------------------------------------------------------------

// ExecuteTWAP splits quantity into equal child orders placed at regular
// intervals across duration. Each child is a market order priced off the
// live buffer at placement time, so later slices track the moving market.
//
// A failed or rejected child is counted and skipped; the run only halts on
// context cancellation or an engine unwind. The error is non-nil only for
// invalid arguments.
func (e *Engine) ExecuteTWAP(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, duration time.Duration, slices int) (SliceResult, error) {
	if quantity <= 0 {
		return SliceResult{}, ErrInvalidQuantity
	}
	if slices <= 0 {
		slices = e.cfg.TWAPSlices
	}
	if duration <= 0 {
		return SliceResult{}, fmt.Errorf("twap duration must be positive, got %v", duration)
	}

	sliceQty := quantity / float64(slices)
	interval := duration / time.Duration(slices)
	res := SliceResult{Requested: quantity}

	e.log.Info("starting twap",
		"symbol", symbol, "side", side, "quantity", quantity,
		"slices", slices, "interval", interval)

	cancel := e.cancelChan()
	for i := 0; i < slices; i++ {
		if e.halted(ctx, cancel) {
			res.Halted = true
			break
		}

		order, err := e.RouteOrder(ctx, symbol, side, domain.OrderTypeMarket, sliceQty, 0)
		switch {
		case err != nil:
			res.Failed++
			e.log.Warn("twap slice invalid", "symbol", symbol, "slice", i+1, "error", err)
		case order.Status == domain.OrderStatusFilled:
			res.Placed++
			res.Executed += order.FilledQuantity
		default:
			res.Failed++
			e.log.Warn("twap slice not filled",
				"symbol", symbol, "slice", i+1, "status", order.Status, "reason", order.Reason)
		}

		if i < slices-1 {
			select {
			case <-ctx.Done():
				res.Halted = true
				return res, nil
			case <-cancel:
				res.Halted = true
				return res, nil
			case <-time.After(interval):
			}
		}
	}

	e.log.Info("twap complete",
		"symbol", symbol, "executed", res.Executed, "placed", res.Placed,
		"failed", res.Failed, "halted", res.Halted)
	return res, nil
}

// ---------------------------------------------------------------------------
// Volume-weighted execution
// ---------------------------------------------------------------------------

// ExecuteVWAP splits quantity proportionally to the given volume profile
// and places one child market order per bucket, in order. The child sizes
// sum back to quantity up to floating point error.
func (e *Engine) ExecuteVWAP(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, profile []float64) (SliceResult, error) {
	if quantity <= 0 {
		return SliceResult{}, ErrInvalidQuantity
	}
	var total float64
	for _, v := range profile {
		if v < 0 {
			return SliceResult{}, ErrInvalidVolumeProfile
		}
		total += v
	}
	if total <= 0 {
		return SliceResult{}, ErrInvalidVolumeProfile
	}

	res := SliceResult{Requested: quantity}
	e.log.Info("starting vwap",
		"symbol", symbol, "side", side, "quantity", quantity, "buckets", len(profile))

	cancel := e.cancelChan()
	for i, v := range profile {
		if v == 0 {
			continue
		}
		if e.halted(ctx, cancel) {
			res.Halted = true
			break
		}

		child := quantity * v / total
		order, err := e.RouteOrder(ctx, symbol, side, domain.OrderTypeMarket, child, 0)
		switch {
		case err != nil:
			res.Failed++
			e.log.Warn("vwap bucket invalid", "symbol", symbol, "bucket", i, "error", err)
		case order.Status == domain.OrderStatusFilled:
			res.Placed++
			res.Executed += order.FilledQuantity
		default:
			res.Failed++
			e.log.Warn("vwap bucket not filled",
				"symbol", symbol, "bucket", i, "status", order.Status, "reason", order.Reason)
		}
	}

	e.log.Info("vwap complete",
		"symbol", symbol, "executed", res.Executed, "placed", res.Placed,
		"failed", res.Failed, "halted", res.Halted)
	return res, nil
}

// cancelChan returns the channel closed when an unwind begins.
func (e *Engine) cancelChan() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel
}

func (e *Engine) halted(ctx context.Context, cancel <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-cancel:
		return true
	default:
		return false
	}
}
