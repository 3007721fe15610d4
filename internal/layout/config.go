// Package layout computes 2D node positions for a topology graph with a
// force-directed simulation accelerated by a Barnes-Hut quadtree.
//
// An Engine is owned by one caller at a time; it is not safe for concurrent
// use. Each engine carries its own CancelToken.
package layout

import (
	"fmt"
	"strings"
)

// Strategy selects how positions are initialized
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyCircular   Strategy = "circular"
	StrategyRandom     Strategy = "random"
)

// ParseStrategy converts a string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyStructured, "":
		return StrategyStructured, nil
	case StrategyCircular:
		return StrategyCircular, nil
	case StrategyRandom:
		return StrategyRandom, nil
	}
	return "", fmt.Errorf("unknown layout strategy %q", s)
}

// Config holds physics constants and convergence limits
type Config struct {
	Repulsion      float64 // Coulomb-like constant, force = Repulsion / d^2
	SpringLength   float64 // rest length of an edge
	SpringStrength float64 // Hooke constant
	Gravity        float64 // pull toward the origin per unit distance
	Damping        float64 // velocity multiplier per step, (0,1]
	StepSize       float64 // integration time step
	MaxVelocity    float64 // per-step displacement cap, 0 disables
	Theta          float64 // Barnes-Hut width/distance threshold

	PreventOverlap  bool
	MinSeparation   float64
	OverlapStrength float64

	MaxIterations int
	Threshold     float64 // stable once max delta falls below this

	NodeSpacing float64 // spacing used by the initial placements
	RowSpacing  float64
	Seed        uint64 // 0 picks a time-based seed
}

// DefaultConfig returns constants tuned for graphs of a few hundred nodes
func DefaultConfig() Config {
	return Config{
		Repulsion:       8000,
		SpringLength:    100,
		SpringStrength:  0.05,
		Gravity:         0.01,
		Damping:         0.85,
		StepSize:        1.0,
		MaxVelocity:     50,
		Theta:           0.5,
		PreventOverlap:  true,
		MinSeparation:   30,
		OverlapStrength: 0.5,
		MaxIterations:   500,
		Threshold:       0.5,
		NodeSpacing:     80,
		RowSpacing:      120,
	}
}

// Validate rejects constants that would make the simulation diverge
func (c Config) Validate() error {
	switch {
	case c.Damping <= 0 || c.Damping > 1:
		return fmt.Errorf("damping %.3f not in (0,1]", c.Damping)
	case c.StepSize <= 0:
		return fmt.Errorf("step size must be positive")
	case c.Theta < 0:
		return fmt.Errorf("theta must not be negative")
	case c.MaxIterations < 1:
		return fmt.Errorf("max iterations must be at least 1")
	case c.Repulsion < 0 || c.SpringStrength < 0 || c.Gravity < 0:
		return fmt.Errorf("force constants must not be negative")
	}
	return nil
}
