// Package builtins ships the strategies bundled with the engine.
package builtins

import (
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/risk"
	"tradecore/internal/strategy"
)

// Default crossover windows.
const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

// SMACrossover trades simple moving average crossovers: long when the
// short-window average is above the long-window average, flat or short
// otherwise.
type SMACrossover struct {
	ShortWindow int
	LongWindow  int
	RiskPct     float64 // percent of balance risked per entry
}

var _ strategy.Strategy = (*SMACrossover)(nil)

// NewSMACrossover creates the crossover strategy with the given windows.
// Non-positive windows fall back to the defaults; a short window at or
// above the long one is widened to keep the crossover meaningful.
func NewSMACrossover(shortWindow, longWindow int, riskPct float64) *SMACrossover {
	if shortWindow <= 0 {
		shortWindow = DefaultShortWindow
	}
	if longWindow <= 0 {
		longWindow = DefaultLongWindow
	}
	if shortWindow >= longWindow {
		longWindow = shortWindow * 2
	}
	if riskPct <= 0 {
		riskPct = 2
	}
	return &SMACrossover{ShortWindow: shortWindow, LongWindow: longWindow, RiskPct: riskPct}
}

// Register adds the strategy to a registry under the name "sma-crossover".
func Register(r *strategy.Registry) {
	r.Register("sma-crossover", func() strategy.Strategy {
		return NewSMACrossover(DefaultShortWindow, DefaultLongWindow, 2)
	})
}

func (s *SMACrossover) Name() string { return "sma-crossover" }

// GenerateSignals emits one signal per symbol with enough history: buy when
// the short average is above the long average, sell otherwise. Strength is
// the relative distance between the averages, clamped to [0, 1].
func (s *SMACrossover) GenerateSignals(ticks []domain.Tick) []domain.Signal {
	now := time.Now()
	var signals []domain.Signal
	for _, symbol := range symbols(ticks) {
		prices := pricesFor(ticks, symbol)
		if len(prices) < s.LongWindow {
			continue
		}
		shortSMA := mean(prices[len(prices)-s.ShortWindow:])
		longSMA := mean(prices[len(prices)-s.LongWindow:])
		if longSMA == 0 {
			continue
		}

		side := domain.SignalSideSell
		if shortSMA > longSMA {
			side = domain.SignalSideBuy
		}
		strength := (shortSMA - longSMA) / longSMA
		if strength < 0 {
			strength = -strength
		}
		if strength > 1 {
			strength = 1
		}
		signals = append(signals, domain.Signal{
			Strategy:  s.Name(),
			Symbol:    symbol,
			Side:      side,
			Strength:  strength,
			CreatedAt: now,
		})
	}
	return signals
}

// PositionSize risks RiskPct of the balance between entry and stop.
func (s *SMACrossover) PositionSize(balance, entryPrice, stopLoss float64) (float64, error) {
	return risk.CalculatePositionSize(entryPrice, stopLoss, balance, s.RiskPct)
}

// EntryCondition holds when any symbol currently signals a buy.
func (s *SMACrossover) EntryCondition(ticks []domain.Tick) bool {
	for _, sig := range s.GenerateSignals(ticks) {
		if sig.Side == domain.SignalSideBuy {
			return true
		}
	}
	return false
}

// ExitCondition holds for a long position when the averages cross back
// down, and for a short position when they cross back up.
func (s *SMACrossover) ExitCondition(ticks []domain.Tick, pos domain.Position) bool {
	for _, sig := range s.GenerateSignals(ticks) {
		if sig.Symbol != pos.Symbol {
			continue
		}
		if pos.Quantity > 0 && sig.Side == domain.SignalSideSell {
			return true
		}
		if pos.Quantity < 0 && sig.Side == domain.SignalSideBuy {
			return true
		}
	}
	return false
}

// symbols returns the distinct symbols in first-seen order.
func symbols(ticks []domain.Tick) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range ticks {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	return out
}

// pricesFor extracts the price series for one symbol in arrival order.
func pricesFor(ticks []domain.Tick, symbol string) []float64 {
	var prices []float64
	for _, t := range ticks {
		if t.Symbol == symbol {
			prices = append(prices, t.Price)
		}
	}
	return prices
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
