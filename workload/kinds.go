package workload

import (
	"fmt"
	"math/rand"
)

// OpKind is the closed set of synthetic operation kinds
type OpKind int

const (
	OpCreateOrder OpKind = iota
	OpReadOrder
	OpUpdateOrder
	OpAnalytics

	numOpKinds
)

func (k OpKind) String() string {
	switch k {
	case OpCreateOrder:
		return "create_order"
	case OpReadOrder:
		return "read_order"
	case OpUpdateOrder:
		return "update_order"
	case OpAnalytics:
		return "analytics"
	}
	return "unknown"
}

// ParseOpKind maps a configuration key onto an OpKind
func ParseOpKind(s string) (OpKind, error) {
	for k := OpKind(0); k < numOpKinds; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind: %q", s)
}

// Mix holds the relative selection weights for each operation kind.
// Immutable once built; a new Mix is constructed per run.
type Mix struct {
	weights [numOpKinds]float64
	total   float64
}

// NewMix validates and builds a mix from configured weights. Weights are
// non-negative and may be fractional; they need not sum to 100, selection
// probability is weight/total.
func NewMix(weights map[string]float64) (Mix, error) {
	var m Mix
	for name, w := range weights {
		kind, err := ParseOpKind(name)
		if err != nil {
			return Mix{}, err
		}
		if w < 0 {
			return Mix{}, fmt.Errorf("weight for %s must be >= 0", name)
		}
		m.weights[kind] = w
		m.total += w
	}
	if m.total <= 0 {
		return Mix{}, fmt.Errorf("workload mix weights must sum to a positive total")
	}
	return m, nil
}

// Total returns the sum of all weights
func (m Mix) Total() float64 {
	return m.total
}

// Select maps a draw in (0, Total()] onto an operation kind by walking the
// cumulative weight table in fixed kind order. Out-of-range draws fall
// through to the last kind so selection can never fail.
func (m Mix) Select(draw float64) OpKind {
	cumulative := 0.0
	for k := OpKind(0); k < numOpKinds; k++ {
		cumulative += m.weights[k]
		if m.weights[k] > 0 && draw <= cumulative {
			return k
		}
	}
	return numOpKinds - 1
}

// Pick draws uniformly over the weight range and selects a kind
func (m Mix) Pick(rng *rand.Rand) OpKind {
	return m.Select(rng.Float64() * m.total)
}
