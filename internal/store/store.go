// Package store persists the engine's audit trail. The SQLite journal keeps
// the relational records (orders, fills, reconciliations, alerts); the
// Parquet recorder archives raw tick data for offline analysis.
package store

import (
	"context"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"
)

// Journal is the audit trail interface the execution engine writes to.
type Journal interface {
	RecordOrder(ctx context.Context, order domain.Order) error
	RecordFill(ctx context.Context, fill domain.Fill) error
	RecordReconciliation(ctx context.Context, venueName string, deltas []ledger.Delta) error
	RecordAlert(ctx context.Context, at time.Time, severity, message string) error
}

// TickStore archives market data ticks.
type TickStore interface {
	WriteTicks(ctx context.Context, ticks []domain.Tick) error
	ReadTicks(ctx context.Context, symbol, date string) ([]domain.Tick, error)
}
