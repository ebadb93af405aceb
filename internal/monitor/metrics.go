package monitor

import (
	"sync"
	"time"
)

// TimingStats summarizes observed durations for one named call site.
type TimingStats struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Max   time.Duration `json:"max"`
}

// Mean returns the average observed duration.
func (s TimingStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// TradeStats summarizes trade outcomes.
type TradeStats struct {
	Executed int     `json:"executed"`
	Winning  int     `json:"winning"`
	Losing   int     `json:"losing"`
	WinRate  float64 `json:"win_rate"`
}

// Metrics aggregates execution timings and trade performance. It implements
// util.DurationSink; call sites feed it explicitly via util.Timed.
type Metrics struct {
	mu      sync.Mutex
	timings map[string]*TimingStats
	trades  TradeStats
}

// NewMetrics creates an empty aggregator.
func NewMetrics() *Metrics {
	return &Metrics{timings: make(map[string]*TimingStats)}
}

// ObserveDuration records one measured call duration under name.
func (m *Metrics) ObserveDuration(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.timings[name]
	if !ok {
		s = &TimingStats{}
		m.timings[name] = s
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

// RecordTrade updates trade performance with one realized P&L outcome.
func (m *Metrics) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades.Executed++
	if pnl > 0 {
		m.trades.Winning++
	} else {
		m.trades.Losing++
	}
	m.trades.WinRate = float64(m.trades.Winning) / float64(m.trades.Executed) * 100
}

// Timings returns a copy of the per-call timing stats.
func (m *Metrics) Timings() map[string]TimingStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]TimingStats, len(m.timings))
	for name, s := range m.timings {
		out[name] = *s
	}
	return out
}

// Trades returns a copy of the trade performance stats.
func (m *Metrics) Trades() TradeStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trades
}
