package domain

import (
	"testing"
	"time"
)

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusRejected, OrderStatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	if OrderStatusPending.Terminal() {
		t.Error("pending.Terminal() = true, want false")
	}
}

func TestOrderSideOpposite(t *testing.T) {
	if got := OrderSideBuy.Opposite(); got != OrderSideSell {
		t.Errorf("buy.Opposite() = %q, want %q", got, OrderSideSell)
	}
	if got := OrderSideSell.Opposite(); got != OrderSideBuy {
		t.Errorf("sell.Opposite() = %q, want %q", got, OrderSideBuy)
	}
}

func TestEnumValues(t *testing.T) {
	if OrderSideBuy != "buy" || OrderSideSell != "sell" {
		t.Error("OrderSide constants have unexpected values")
	}
	if OrderTypeMarket != "market" || OrderTypeLimit != "limit" {
		t.Error("OrderType constants have unexpected values")
	}
	if PositionStatusOpen != "open" || PositionStatusClosed != "closed" {
		t.Error("PositionStatus constants have unexpected values")
	}
}

func TestZeroValues(t *testing.T) {
	tick := Tick{}
	if tick.Symbol != "" || tick.Price != 0 || tick.Volume != 0 {
		t.Error("expected zero fields for zero-value Tick")
	}
	if !tick.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Tick")
	}

	pos := Position{Symbol: "BTCUSD", Quantity: 1.5, Value: 1.5 * 40000, Status: PositionStatusOpen, UpdatedAt: time.Now()}
	if pos.Value != 60000 {
		t.Errorf("pos.Value = %v, want 60000", pos.Value)
	}
}
