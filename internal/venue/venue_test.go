package venue

import (
	"context"
	"testing"

	"tradecore/internal/domain"
)

func TestSimulatorFillsAtLimitPrice(t *testing.T) {
	s := NewSimulator("simulator", 1.0, 0.5, nil)

	fill, err := s.PlaceOrder(context.Background(), domain.Order{
		ID: "ord-1", Symbol: "BTCUSD", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeLimit, Quantity: 0.5, Price: 40000,
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if fill.Price != 40000 {
		t.Errorf("fill.Price = %v, want 40000", fill.Price)
	}
	if fill.Quantity != 0.5 {
		t.Errorf("fill.Quantity = %v, want 0.5", fill.Quantity)
	}
}

func TestSimulatorMarketOrderUsesPriceFunc(t *testing.T) {
	s := NewSimulator("simulator", 1.0, 0.5, func(symbol string) (float64, bool) {
		return 41000, true
	})

	fill, err := s.PlaceOrder(context.Background(), domain.Order{
		ID: "ord-1", Symbol: "BTCUSD", Side: domain.OrderSideSell,
		Type: domain.OrderTypeMarket, Quantity: 1.0,
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if fill.Price != 41000 {
		t.Errorf("fill.Price = %v, want 41000", fill.Price)
	}
	if fill.Quantity != -1.0 {
		t.Errorf("fill.Quantity = %v, want -1.0 for a sell", fill.Quantity)
	}
}

func TestSimulatorNoPrice(t *testing.T) {
	s := NewSimulator("simulator", 0, 0, nil)

	_, err := s.PlaceOrder(context.Background(), domain.Order{
		ID: "ord-1", Symbol: "BTCUSD", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeMarket, Quantity: 1.0,
	})
	if err == nil {
		t.Fatal("PlaceOrder returned nil error with no price source")
	}
}

func TestSimulatorFailNext(t *testing.T) {
	s := NewSimulator("simulator", 0, 0, nil)
	s.FailNext(2)

	order := domain.Order{
		ID: "ord-1", Symbol: "BTCUSD", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeLimit, Quantity: 1.0, Price: 40000,
	}

	for i := 0; i < 2; i++ {
		if _, err := s.PlaceOrder(context.Background(), order); err == nil {
			t.Fatalf("attempt %d: want injected failure, got nil error", i+1)
		}
	}
	if _, err := s.PlaceOrder(context.Background(), order); err != nil {
		t.Fatalf("third attempt should succeed, got %v", err)
	}
}

func TestSimulatorPositionsTrackFills(t *testing.T) {
	s := NewSimulator("simulator", 0, 0, nil)
	ctx := context.Background()

	buy := domain.Order{ID: "o1", Symbol: "BTCUSD", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Quantity: 2.0, Price: 40000}
	sell := domain.Order{ID: "o2", Symbol: "BTCUSD", Side: domain.OrderSideSell, Type: domain.OrderTypeLimit, Quantity: 0.5, Price: 40000}

	if _, err := s.PlaceOrder(ctx, buy); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlaceOrder(ctx, sell); err != nil {
		t.Fatal(err)
	}

	positions, err := s.Positions(ctx)
	if err != nil {
		t.Fatalf("Positions returned error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("len(Positions) = %d, want 1", len(positions))
	}
	if positions[0].Quantity != 1.5 {
		t.Errorf("position quantity = %v, want 1.5", positions[0].Quantity)
	}
	if got := len(s.Fills()); got != 2 {
		t.Errorf("len(Fills) = %d, want 2", got)
	}
}

func TestSimulatorQuote(t *testing.T) {
	s := NewSimulator("sim-a", 2.0, 1.5, nil)
	q, err := s.Quote(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if q.Venue != "sim-a" {
		t.Errorf("q.Venue = %q, want sim-a", q.Venue)
	}
	if q.Cost() != 3.5 {
		t.Errorf("q.Cost() = %v, want 3.5", q.Cost())
	}
}

func TestAlpacaName(t *testing.T) {
	a := NewAlpaca("key", "secret", "https://paper-api.alpaca.markets", 0, 1.0, 60)
	if got := a.Name(); got != "alpaca" {
		t.Errorf("Alpaca.Name() = %q, want %q", got, "alpaca")
	}
}
