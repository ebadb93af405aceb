// Package venue defines the execution venue boundary: order placement,
// fee/slippage quoting for routing, and ground-truth positions for
// reconciliation. Implementations are provided for the Alpaca brokerage
// and for an in-memory simulator.
package venue

import (
	"context"

	"tradecore/internal/domain"
)

// Quote is a venue's current cost estimate for executing one unit of an
// order: an explicit fee plus expected slippage, both in quote currency.
// Smart order routing minimizes Fee + Slippage.
type Quote struct {
	Venue    string
	Fee      float64
	Slippage float64
}

// Cost is the routing objective.
func (q Quote) Cost() float64 {
	return q.Fee + q.Slippage
}

// Venue abstracts a single execution venue.
type Venue interface {
	// Name returns the venue identifier (e.g. "alpaca", "simulator").
	Name() string

	// PlaceOrder submits the order and returns the resulting fill. The
	// returned fill quantity is signed: positive for buys, negative for
	// sells. Errors are transient placement failures eligible for retry.
	PlaceOrder(ctx context.Context, order domain.Order) (domain.Fill, error)

	// Quote returns the venue's current fee/slippage estimate for symbol.
	Quote(ctx context.Context, symbol string) (Quote, error)

	// Positions returns the venue's authoritative open positions, used as
	// reconciliation ground truth.
	Positions(ctx context.Context) ([]domain.Position, error)
}
