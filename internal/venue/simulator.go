package venue

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradecore/internal/domain"
)

// Compile-time interface check.
var _ Venue = (*Simulator)(nil)

// ErrNoPrice is returned when the simulator has no price for a market order
// and the order carries none.
var ErrNoPrice = errors.New("simulator: no price available for symbol")

// Simulator implements Venue in memory for paper trading and tests. Orders
// fill immediately and completely at the order's limit price, or at the
// price supplied by the PriceFunc for market orders.
type Simulator struct {
	name     string
	fee      float64
	slippage float64

	// PriceFunc supplies the current market price per symbol; typically
	// wired to the market data buffer's latest tick.
	priceFunc func(symbol string) (float64, bool)

	mu        sync.Mutex
	fills     []domain.Fill
	positions map[string]*domain.Position
	failNext  int
}

// NewSimulator creates a Simulator with the given name, per-order fee, and
// slippage estimate used for routing quotes.
func NewSimulator(name string, fee, slippage float64, priceFunc func(symbol string) (float64, bool)) *Simulator {
	return &Simulator{
		name:      name,
		fee:       fee,
		slippage:  slippage,
		priceFunc: priceFunc,
		positions: make(map[string]*domain.Position),
	}
}

// Name returns the simulator's configured venue name.
func (s *Simulator) Name() string { return s.name }

// FailNext makes the next n PlaceOrder calls return a transient error,
// for exercising retry paths.
func (s *Simulator) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// PlaceOrder fills the order immediately at the limit price or the current
// simulated market price.
func (s *Simulator) PlaceOrder(_ context.Context, order domain.Order) (domain.Fill, error) {
	s.mu.Lock()
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return domain.Fill{}, errors.New("simulator: injected transient placement failure")
	}
	s.mu.Unlock()

	price := order.Price
	if order.Type == domain.OrderTypeMarket || price == 0 {
		if s.priceFunc == nil {
			return domain.Fill{}, ErrNoPrice
		}
		p, ok := s.priceFunc(order.Symbol)
		if !ok {
			return domain.Fill{}, ErrNoPrice
		}
		price = p
	}

	qty := order.Quantity
	if order.Side == domain.OrderSideSell {
		qty = -qty
	}

	fill := domain.Fill{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Quantity:  qty,
		Price:     price,
		Venue:     s.name,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, fill)

	pos, ok := s.positions[order.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: order.Symbol, EntryPrice: price}
		s.positions[order.Symbol] = pos
	}
	pos.Quantity += qty
	pos.Value = pos.Quantity * price
	pos.UpdatedAt = fill.Timestamp
	if pos.Quantity == 0 {
		pos.Status = domain.PositionStatusClosed
	} else {
		pos.Status = domain.PositionStatusOpen
	}

	return fill, nil
}

// Quote returns the configured static fee/slippage estimate.
func (s *Simulator) Quote(_ context.Context, _ string) (Quote, error) {
	return Quote{Venue: s.name, Fee: s.fee, Slippage: s.slippage}, nil
}

// Positions returns copies of the simulator's open positions.
func (s *Simulator) Positions(_ context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Position, 0, len(s.positions))
	for _, pos := range s.positions {
		if pos.Status == domain.PositionStatusOpen {
			out = append(out, *pos)
		}
	}
	return out, nil
}

// Fills returns a copy of every fill the simulator has produced.
func (s *Simulator) Fills() []domain.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Fill, len(s.fills))
	copy(out, s.fills)
	return out
}

// SetPosition seeds a venue-side position, used to stage reconciliation
// scenarios.
func (s *Simulator) SetPosition(pos domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pos
	s.positions[pos.Symbol] = &p
}
