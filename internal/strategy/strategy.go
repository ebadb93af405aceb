// Package strategy defines the capability interface trading strategies
// implement and a name-keyed factory registry for constructing them.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tradecore/internal/domain"
)

// ErrNotRegistered is returned when creating a strategy under an unknown name.
var ErrNotRegistered = errors.New("strategy not registered")

// Strategy is the capability surface a trading strategy implements. All
// methods receive market data as tick snapshots in arrival order; none of
// them may mutate shared state.
type Strategy interface {
	// Name identifies the strategy in signals and logs.
	Name() string

	// GenerateSignals derives trade intents from a tick snapshot.
	GenerateSignals(ticks []domain.Tick) []domain.Signal

	// PositionSize sizes an entry given account balance and stop placement.
	PositionSize(balance, entryPrice, stopLoss float64) (float64, error)

	// EntryCondition reports whether the strategy would open a position now.
	EntryCondition(ticks []domain.Tick) bool

	// ExitCondition reports whether the given open position should close.
	ExitCondition(ticks []domain.Tick, pos domain.Position) bool
}

// Factory constructs a fresh strategy instance.
type Factory func() Strategy

// Registry maps strategy names to factories. Strategies are registered at
// startup and created by name from configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create instantiates the strategy registered under name.
func (r *Registry) Create(name string) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return f(), nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
