// Package marketdata provides the bounded, thread-safe buffer of recent
// normalized ticks that feeds risk and execution calculations.
package marketdata

import (
	"math"
	"sync"

	"tradecore/internal/domain"
)

// Buffer is a fixed-capacity FIFO ring of the most recent ticks. When full,
// a push evicts the oldest entry; overflow is normal steady-state behavior,
// not a failure. The buffer is one of the two shared mutable structures in
// the engine and owns its lock entirely: callers only ever see copies.
type Buffer struct {
	mu       sync.Mutex
	ticks    []domain.Tick
	capacity int
	start    int // index of oldest element
	length   int
}

// NewBuffer creates a Buffer holding at most capacity ticks. Capacity values
// below 1 are clamped to 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		ticks:    make([]domain.Tick, capacity),
		capacity: capacity,
	}
}

// Push appends a tick, evicting the oldest entry first when the buffer is
// at capacity. O(1).
func (b *Buffer) Push(tick domain.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.length < b.capacity {
		b.ticks[(b.start+b.length)%b.capacity] = tick
		b.length++
		return
	}
	// Full: overwrite the oldest slot and advance the start.
	b.ticks[b.start] = tick
	b.start = (b.start + 1) % b.capacity
}

// Len returns the number of buffered ticks.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Snapshot returns a copy of the current contents in arrival order. The
// live structure is never exposed.
func (b *Buffer) Snapshot() []domain.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Tick, b.length)
	for i := 0; i < b.length; i++ {
		out[i] = b.ticks[(b.start+i)%b.capacity]
	}
	return out
}

// Last returns the most recent tick for the given symbol, or false when the
// buffer holds none.
func (b *Buffer) Last(symbol string) (domain.Tick, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := b.length - 1; i >= 0; i-- {
		t := b.ticks[(b.start+i)%b.capacity]
		if t.Symbol == symbol {
			return t, true
		}
	}
	return domain.Tick{}, false
}

// Returns computes up to n log-returns over the buffered prices for symbol,
// oldest first. Ticks with non-positive prices are skipped. The result is
// the input to the risk gate's VaR calculation.
func (b *Buffer) Returns(symbol string, n int) []float64 {
	b.mu.Lock()
	prices := make([]float64, 0, b.length)
	for i := 0; i < b.length; i++ {
		t := b.ticks[(b.start+i)%b.capacity]
		if t.Symbol == symbol && t.Price > 0 {
			prices = append(prices, t.Price)
		}
	}
	b.mu.Unlock()

	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, math.Log(prices[i])-math.Log(prices[i-1]))
	}
	if n > 0 && len(returns) > n {
		returns = returns[len(returns)-n:]
	}
	return returns
}
