package strategy

import (
	"errors"
	"testing"

	"tradecore/internal/domain"
)

type noopStrategy struct{ name string }

func (s *noopStrategy) Name() string                                  { return s.name }
func (s *noopStrategy) GenerateSignals([]domain.Tick) []domain.Signal { return nil }
func (s *noopStrategy) PositionSize(float64, float64, float64) (float64, error) {
	return 0, nil
}
func (s *noopStrategy) EntryCondition([]domain.Tick) bool                 { return false }
func (s *noopStrategy) ExitCondition([]domain.Tick, domain.Position) bool { return false }

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("noop", func() Strategy { return &noopStrategy{name: "noop"} })

	s, err := r.Create("noop")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Name() != "noop" {
		t.Errorf("Name() = %q, want noop", s.Name())
	}

	// Each Create returns a fresh instance.
	s2, _ := r.Create("noop")
	if s == s2 {
		t.Error("Create returned the same instance twice")
	}
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("momentum"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Create(momentum) error = %v, want ErrNotRegistered", err)
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", func() Strategy { return &noopStrategy{name: "zeta"} })
	r.Register("alpha", func() Strategy { return &noopStrategy{name: "alpha"} })

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Names() = %v, want [alpha zeta]", names)
	}
}
