// Package ledger maintains the authoritative in-memory map of positions.
// It is the sole source of truth for current holdings; every mutating and
// aggregate-reading operation runs under one mutex so exposure queries
// never observe a partially-applied update.
package ledger

import (
	"math"
	"sort"
	"sync"
	"time"

	"tradecore/internal/domain"
)

// Ledger is the mutex-protected symbol → position map. Callers never
// acquire the lock directly; they only call atomic operations. The lock is
// held strictly for in-memory mutation, never across a network call.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*domain.Position
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]*domain.Position)}
}

// Apply atomically adjusts the position for symbol by quantityDelta at the
// given price, creating the position on first fill. Value is recomputed as
// quantity × price, never set independently. A position whose quantity
// returns to zero transitions to Closed but is kept for the audit trail.
// The updated position is returned by value.
func (l *Ledger) Apply(symbol string, quantityDelta, price float64) domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		pos = &domain.Position{
			Symbol:     symbol,
			EntryPrice: price,
		}
		l.positions[symbol] = pos
	}

	// Re-entering a closed position establishes a fresh entry price.
	if pos.Status == domain.PositionStatusClosed && quantityDelta != 0 {
		pos.EntryPrice = price
	}

	pos.Quantity += quantityDelta
	if math.Abs(pos.Quantity) < 1e-9 {
		pos.Quantity = 0
	}
	pos.Value = pos.Quantity * price
	pos.UpdatedAt = time.Now()

	if pos.Quantity == 0 {
		pos.Status = domain.PositionStatusClosed
	} else {
		pos.Status = domain.PositionStatusOpen
	}

	return *pos
}

// SetStopLoss records the stop-loss level for an existing position. It is a
// no-op for unknown symbols.
func (l *Ledger) SetStopLoss(symbol string, stopLoss float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pos, ok := l.positions[symbol]; ok {
		pos.StopLoss = stopLoss
	}
}

// Get returns a copy of the position for symbol.
func (l *Ledger) Get(symbol string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// TotalExposure returns Σ|value| over open positions, consistent with the
// state at the time of the call. Two calls with no intervening updates
// return identical values.
func (l *Ledger) TotalExposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalExposureLocked()
}

func (l *Ledger) totalExposureLocked() float64 {
	var exposure float64
	for _, pos := range l.positions {
		if pos.Status == domain.PositionStatusOpen {
			exposure += math.Abs(pos.Value)
		}
	}
	return exposure
}

// Snapshot returns copies of all positions (open and closed), sorted by
// symbol for determinism.
func (l *Ledger) Snapshot() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Open returns copies of the open positions only, sorted by symbol.
func (l *Ledger) Open() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		if pos.Status == domain.PositionStatusOpen {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Delta is one per-symbol difference found during reconciliation.
type Delta struct {
	Symbol         string
	LocalQuantity  float64
	RemoteQuantity float64
}

// Replace atomically overwrites the ledger with external ground-truth
// positions and returns the per-symbol quantity deltas between the prior
// local state and the external state. Symbols absent from external are
// closed, not deleted. Running under the same lock as Apply serializes
// reconciliation with in-flight fills.
func (l *Ledger) Replace(external []domain.Position) []Delta {
	l.mu.Lock()
	defer l.mu.Unlock()

	remote := make(map[string]domain.Position, len(external))
	for _, pos := range external {
		remote[pos.Symbol] = pos
	}

	var deltas []Delta
	now := time.Now()

	// Local symbols missing or differing remotely.
	for symbol, pos := range l.positions {
		ext, ok := remote[symbol]
		if !ok {
			if pos.Quantity != 0 {
				deltas = append(deltas, Delta{Symbol: symbol, LocalQuantity: pos.Quantity})
			}
			pos.Quantity = 0
			pos.Value = 0
			pos.Status = domain.PositionStatusClosed
			pos.UpdatedAt = now
			continue
		}
		if pos.Quantity != ext.Quantity {
			deltas = append(deltas, Delta{Symbol: symbol, LocalQuantity: pos.Quantity, RemoteQuantity: ext.Quantity})
		}
	}

	// Remote symbols, including ones the ledger has never seen.
	for symbol, ext := range remote {
		pos, ok := l.positions[symbol]
		if !ok {
			deltas = append(deltas, Delta{Symbol: symbol, RemoteQuantity: ext.Quantity})
			pos = &domain.Position{Symbol: symbol}
			l.positions[symbol] = pos
		}
		pos.Quantity = ext.Quantity
		pos.Value = ext.Value
		pos.EntryPrice = ext.EntryPrice
		pos.StopLoss = ext.StopLoss
		pos.UpdatedAt = now
		if pos.Quantity == 0 {
			pos.Status = domain.PositionStatusClosed
		} else {
			pos.Status = domain.PositionStatusOpen
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Symbol < deltas[j].Symbol })
	return deltas
}
