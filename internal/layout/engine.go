package layout

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"lanscope/internal/domain"
	"lanscope/internal/topology"
)

// spawnRadius bounds where previously unseen nodes appear
const spawnRadius = 50.0

// Engine owns per-node positions and velocities, indexed like the graph
type Engine struct {
	cfg    Config
	cancel *domain.CancelToken
	rng    *rand.Rand
	log    *logrus.Entry

	ips    []string
	index  map[string]int
	types  []domain.DeviceType
	adj    [][]int
	pos    []domain.Position
	vel    []domain.Position
	pinned []bool

	stable     bool
	iterations int
}

// NewEngine creates an engine with its own cancellation token when cancel is nil
func NewEngine(cfg Config, cancel *domain.CancelToken) *Engine {
	if cancel == nil {
		cancel = domain.NewCancelToken()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{
		cfg:    cfg,
		cancel: cancel,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:    logrus.WithField("component", "layout"),
		index:  make(map[string]int),
	}
}

// CancelToken returns the token polled by Compute
func (e *Engine) CancelToken() *domain.CancelToken { return e.cancel }

// Config returns the engine's physics constants
func (e *Engine) Config() Config { return e.cfg }

// Len returns the number of nodes under layout
func (e *Engine) Len() int { return len(e.ips) }

// Stable reports whether the last step moved every node less than the threshold
func (e *Engine) Stable() bool { return e.stable }

// Iterations returns how many steps the last Compute ran
func (e *Engine) Iterations() int { return e.iterations }

// Sync loads the graph's nodes and edges into the engine. Positions are taken
// from existing first, then from the engine's own state; unseen nodes are
// placed randomly near the origin. Pin state survives for known nodes.
func (e *Engine) Sync(g *topology.Graph, existing map[string]domain.Position) {
	nodes := g.Nodes()
	n := len(nodes)

	ips := make([]string, n)
	index := make(map[string]int, n)
	types := make([]domain.DeviceType, n)
	pos := make([]domain.Position, n)
	vel := make([]domain.Position, n)
	pinned := make([]bool, n)

	for i, node := range nodes {
		ips[i] = node.IP
		index[node.IP] = i
		types[i] = node.DeviceType

		old, known := e.index[node.IP]
		switch p, ok := existing[node.IP]; {
		case ok && p.IsFinite():
			pos[i] = p
		case known:
			pos[i] = e.pos[old]
		default:
			pos[i] = e.randomInDisk(spawnRadius)
		}
		if known {
			vel[i] = e.vel[old]
			pinned[i] = e.pinned[old]
		}
	}

	adj := make([][]int, n)
	for i := range nodes {
		for _, nb := range g.Neighbors(topology.NodeIndex(i)) {
			adj[i] = append(adj[i], int(nb))
		}
	}

	e.ips, e.index, e.types, e.adj = ips, index, types, adj
	e.pos, e.vel, e.pinned = pos, vel, pinned
	e.stable = false
}

// Initialize loads the graph and discards all previous positions, placing
// every node with the given strategy.
func (e *Engine) Initialize(g *topology.Graph, strategy Strategy) {
	e.index = make(map[string]int)
	e.Sync(g, nil)

	switch strategy {
	case StrategyCircular:
		e.placeCircular()
	case StrategyRandom:
		e.placeRandom()
	default:
		e.placeStructured()
	}
	for i := range e.vel {
		e.vel[i] = domain.Position{}
	}
	e.stable = false
}

// Compute syncs the graph and steps until stable, cancelled, or the
// iteration cap. It returns the number of steps run.
func (e *Engine) Compute(g *topology.Graph, existing map[string]domain.Position) int {
	e.Sync(g, existing)

	e.iterations = 0
	for e.iterations < e.cfg.MaxIterations {
		if e.cancel.Cancelled() {
			e.log.WithField("iterations", e.iterations).Debug("Layout: compute cancelled")
			break
		}
		delta := e.Step()
		e.iterations++
		if delta < e.cfg.Threshold {
			break
		}
	}
	e.log.WithFields(logrus.Fields{
		"nodes":      len(e.ips),
		"iterations": e.iterations,
		"stable":     e.stable,
	}).Debug("Layout: compute finished")
	return e.iterations
}

// Tick advances one step unless the layout is already stable. It is meant to
// be called once per rendered frame.
func (e *Engine) Tick() (stable bool, maxDelta float64) {
	if e.stable {
		return true, 0
	}
	d := e.Step()
	return e.stable, d
}

// Step runs one physics iteration and returns the largest displacement
func (e *Engine) Step() float64 {
	n := len(e.pos)
	if n == 0 {
		e.stable = true
		return 0
	}

	tree := buildQuadTree(e.pos)
	forces := make([]domain.Position, n)

	for i := 0; i < n; i++ {
		if e.pinned[i] {
			continue
		}
		f := tree.repulsion(i, e.cfg.Repulsion, e.cfg.Theta)
		f = f.Add(e.springForce(i))
		f = f.Add(e.pos[i].Scale(-e.cfg.Gravity))
		forces[i] = f
	}
	if e.cfg.PreventOverlap && e.cfg.MinSeparation > 0 {
		e.addOverlapForces(forces)
	}

	maxDelta := 0.0
	for i := 0; i < n; i++ {
		if e.pinned[i] {
			e.vel[i] = domain.Position{}
			continue
		}
		v := e.vel[i].Add(forces[i].Scale(e.cfg.StepSize)).Scale(e.cfg.Damping)
		if e.cfg.MaxVelocity > 0 {
			if l := v.Len(); l > e.cfg.MaxVelocity {
				v = v.Scale(e.cfg.MaxVelocity / l)
			}
		}
		next := e.pos[i].Add(v)
		if !v.IsFinite() || !next.IsFinite() {
			e.vel[i] = domain.Position{}
			continue
		}
		e.vel[i] = v
		e.pos[i] = next
		maxDelta = math.Max(maxDelta, v.Len())
	}

	e.stable = maxDelta < e.cfg.Threshold
	return maxDelta
}

func (e *Engine) springForce(i int) domain.Position {
	var f domain.Position
	p := e.pos[i]
	for _, j := range e.adj[i] {
		d := e.pos[j].Sub(p)
		dist := d.Len()
		if dist < minDistance {
			continue
		}
		f = f.Add(d.Scale(e.cfg.SpringStrength * (dist - e.cfg.SpringLength) / dist))
	}
	return f
}

// addOverlapForces pushes apart every pair closer than MinSeparation,
// proportional to penetration depth. A uniform grid with MinSeparation cells
// limits the pair checks to neighboring cells.
func (e *Engine) addOverlapForces(forces []domain.Position) {
	sep := e.cfg.MinSeparation
	type cell struct{ x, y int }
	grid := make(map[cell][]int, len(e.pos))
	cellOf := func(p domain.Position) cell {
		return cell{int(math.Floor(p.X / sep)), int(math.Floor(p.Y / sep))}
	}
	for i, p := range e.pos {
		c := cellOf(p)
		grid[c] = append(grid[c], i)
	}

	for i, p := range e.pos {
		c := cellOf(p)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, j := range grid[cell{c.x + dx, c.y + dy}] {
					if j <= i {
						continue
					}
					d := p.Sub(e.pos[j])
					dist := d.Len()
					if dist >= sep {
						continue
					}
					var dir domain.Position
					if dist < minDistance {
						dir = separation(i, j)
					} else {
						dir = d.Scale(1 / dist)
					}
					push := dir.Scale(e.cfg.OverlapStrength * (sep - dist))
					if !e.pinned[i] {
						forces[i] = forces[i].Add(push)
					}
					if !e.pinned[j] {
						forces[j] = forces[j].Sub(push)
					}
				}
			}
		}
	}
}

// SetPosition forces a node to p, zeroes its velocity and clears the
// stable flag. It reports false for unknown nodes or non-finite input.
func (e *Engine) SetPosition(ip string, p domain.Position) bool {
	i, ok := e.index[ip]
	if !ok || !p.IsFinite() {
		return false
	}
	e.pos[i] = p
	e.vel[i] = domain.Position{}
	e.stable = false
	return true
}

// Pin excludes a node from integration, or releases it
func (e *Engine) Pin(ip string, pinned bool) bool {
	i, ok := e.index[ip]
	if !ok {
		return false
	}
	e.pinned[i] = pinned
	e.vel[i] = domain.Position{}
	e.stable = false
	return true
}

// Position returns the current position of a node
func (e *Engine) Position(ip string) (domain.Position, bool) {
	i, ok := e.index[ip]
	if !ok {
		return domain.Position{}, false
	}
	return e.pos[i], true
}

// Velocity returns the current velocity of a node
func (e *Engine) Velocity(ip string) (domain.Position, bool) {
	i, ok := e.index[ip]
	if !ok {
		return domain.Position{}, false
	}
	return e.vel[i], true
}

// IsPinned reports whether a node is pinned
func (e *Engine) IsPinned(ip string) bool {
	i, ok := e.index[ip]
	return ok && e.pinned[i]
}

// Positions returns a copy of every node position keyed by IP
func (e *Engine) Positions() map[string]domain.Position {
	out := make(map[string]domain.Position, len(e.ips))
	for i, ip := range e.ips {
		out[ip] = e.pos[i]
	}
	return out
}

// NodePositions returns positions with pin state, in graph order
func (e *Engine) NodePositions() []domain.NodePosition {
	out := make([]domain.NodePosition, len(e.ips))
	for i, ip := range e.ips {
		out[i] = domain.NodePosition{IP: ip, X: e.pos[i].X, Y: e.pos[i].Y, Pinned: e.pinned[i]}
	}
	return out
}

func (e *Engine) randomInDisk(radius float64) domain.Position {
	r := radius * math.Sqrt(e.rng.Float64())
	theta := 2 * math.Pi * e.rng.Float64()
	return domain.Position{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}
