package domain

import "math"

// Position is a 2D coordinate in layout space
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + o
func (p Position) Add(o Position) Position { return Position{p.X + o.X, p.Y + o.Y} }

// Sub returns p - o
func (p Position) Sub(o Position) Position { return Position{p.X - o.X, p.Y - o.Y} }

// Scale returns p * k
func (p Position) Scale(k float64) Position { return Position{p.X * k, p.Y * k} }

// Len returns the euclidean length of p
func (p Position) Len() float64 { return math.Hypot(p.X, p.Y) }

// IsFinite reports whether both coordinates are finite numbers
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// NodePosition represents the position and pinning state of a node in the visualization
type NodePosition struct {
	IP     string  `json:"ip"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned"`
}
