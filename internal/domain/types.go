// Package domain defines the shared value types passed between the market
// data buffer, position ledger, risk gate, and execution engine.
package domain

import "time"

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Tick is a single normalized market data point. Ticks are immutable once
// created: the feed adapter builds one per exchange message and nothing
// downstream ever modifies it.
type Tick struct {
	Timestamp time.Time
	Symbol    string
	Price     float64
	Volume    float64
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the side that offsets this one.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the lifecycle state of an order. Filled, Rejected, and
// Failed are terminal: no order ever transitions out of them.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusFailed   OrderStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusRejected, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// Order is a single order record owned by the execution engine. ID is
// unique and monotonic-time-derived. Reason carries the rejection or
// failure reason code and is empty for pending/filled orders.
type Order struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Quantity       float64
	Price          float64 // zero for market orders
	Status         OrderStatus
	Reason         string
	Venue          string
	FilledQuantity float64
	FilledAvgPrice float64
	CreatedAt      time.Time
}

// Fill is the execution report a venue returns on successful placement.
// Quantity is signed: positive for buys, negative for sells.
type Fill struct {
	OrderID   string
	Symbol    string
	Quantity  float64
	Price     float64
	Venue     string
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is a single-symbol holding in the ledger. Quantity is signed
// (negative for shorts). Value is always Quantity × the last price applied;
// it is recomputed on every update, never set independently. Closed
// positions are kept for the audit trail, never deleted.
type Position struct {
	Symbol     string
	Quantity   float64
	Value      float64
	EntryPrice float64
	StopLoss   float64
	Status     PositionStatus
	UpdatedAt  time.Time
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// SignalSide is the direction a strategy wants to trade.
type SignalSide string

const (
	SignalSideBuy  SignalSide = "buy"
	SignalSideSell SignalSide = "sell"
)

// Signal is a trade intent emitted by a strategy. Strength is the
// strategy's confidence in [0, 1].
type Signal struct {
	Strategy  string
	Symbol    string
	Side      SignalSide
	Strength  float64
	CreatedAt time.Time
}

// ---------------------------------------------------------------------------
// Account and risk limits
// ---------------------------------------------------------------------------

// RiskLimits are the static limits the risk gate enforces. They are
// supplied at construction and never change for the life of the gate.
type RiskLimits struct {
	MaxExposure      float64 // ceiling on Σ|position value|
	MaxDrawdownPct   float64 // fractional, e.g. 0.15 for 15%
	RiskTolerancePct float64 // percent of balance risked per trade, e.g. 2 for 2%
}

// AccountState is the mutable account view the risk gate reads.
// CurrentEquity is updated externally as fills settle.
type AccountState struct {
	Balance       float64
	InitialEquity float64
	CurrentEquity float64
}
