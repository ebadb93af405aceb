package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalOrderUpsert(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	order := domain.Order{
		ID: "ord-1", Symbol: "BTCUSD", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeMarket, Quantity: 2,
		Status: domain.OrderStatusPending, CreatedAt: time.Now(),
	}
	if err := j.RecordOrder(ctx, order); err != nil {
		t.Fatalf("RecordOrder(pending): %v", err)
	}

	order.Status = domain.OrderStatusFilled
	order.Venue = "sim-a"
	order.FilledQuantity = 2
	order.FilledAvgPrice = 100
	if err := j.RecordOrder(ctx, order); err != nil {
		t.Fatalf("RecordOrder(filled): %v", err)
	}

	got, err := j.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != domain.OrderStatusFilled || got.FilledAvgPrice != 100 {
		t.Errorf("order = %+v, want filled at 100", got)
	}

	filled, err := j.ListOrders(ctx, domain.OrderStatusFilled)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(filled) != 1 {
		t.Errorf("filled orders = %d, want 1", len(filled))
	}
	pending, _ := j.ListOrders(ctx, domain.OrderStatusPending)
	if len(pending) != 0 {
		t.Errorf("pending orders = %d after upsert, want 0", len(pending))
	}
}

func TestJournalFills(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	ts := time.Now().Truncate(time.Millisecond)
	fill := domain.Fill{OrderID: "ord-1", Symbol: "BTCUSD", Quantity: -3, Price: 101.5, Venue: "sim-a", Timestamp: ts}
	if err := j.RecordFill(ctx, fill); err != nil {
		t.Fatalf("RecordFill: %v", err)
	}

	fills, err := j.ListFills(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("ListFills: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	if fills[0].Quantity != -3 || !fills[0].Timestamp.Equal(ts) {
		t.Errorf("fill = %+v, want quantity -3 at %v", fills[0], ts)
	}
	if other, _ := j.ListFills(ctx, "ETHUSD"); len(other) != 0 {
		t.Errorf("fills for other symbol = %d, want 0", len(other))
	}
}

func TestJournalReconciliationAndAlerts(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	deltas := []ledger.Delta{
		{Symbol: "BTCUSD", LocalQuantity: 10, RemoteQuantity: 7},
		{Symbol: "ETHUSD", LocalQuantity: 0, RemoteQuantity: 2},
	}
	if err := j.RecordReconciliation(ctx, "sim-a", deltas); err != nil {
		t.Fatalf("RecordReconciliation: %v", err)
	}
	if err := j.RecordReconciliation(ctx, "sim-a", nil); err != nil {
		t.Errorf("RecordReconciliation(empty): %v", err)
	}
	if err := j.RecordAlert(ctx, time.Now(), "critical", "risk breach: exposure limit exceeded"); err != nil {
		t.Errorf("RecordAlert: %v", err)
	}
}

func TestParquetTickRoundTrip(t *testing.T) {
	s := NewParquetTickStore(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	ticks := []domain.Tick{
		{Symbol: "BTCUSD", Price: 100, Volume: 1.5, Timestamp: base},
		{Symbol: "BTCUSD", Price: 101, Volume: 2, Timestamp: base.Add(time.Second)},
		{Symbol: "ETHUSD", Price: 50, Volume: 10, Timestamp: base},
	}
	if err := s.WriteTicks(ctx, ticks); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	got, err := s.ReadTicks(ctx, "BTCUSD", "2026-08-27")
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ticks, want 2", len(got))
	}
	if got[0].Price != 100 || got[1].Price != 101 {
		t.Errorf("prices = %v, %v, want 100, 101", got[0].Price, got[1].Price)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, base)
	}

	// Appending preserves earlier rows.
	more := []domain.Tick{{Symbol: "BTCUSD", Price: 102, Volume: 1, Timestamp: base.Add(2 * time.Second)}}
	if err := s.WriteTicks(ctx, more); err != nil {
		t.Fatalf("WriteTicks(append): %v", err)
	}
	got, _ = s.ReadTicks(ctx, "BTCUSD", "2026-08-27")
	if len(got) != 3 {
		t.Errorf("after append got %d ticks, want 3", len(got))
	}
}

func TestParquetReadMissingFile(t *testing.T) {
	s := NewParquetTickStore(t.TempDir())
	got, err := s.ReadTicks(context.Background(), "BTCUSD", "2026-01-01")
	if err != nil {
		t.Fatalf("ReadTicks on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d ticks from missing file, want 0", len(got))
	}
}
