package layout

import (
	"math"

	"lanscope/internal/domain"
)

// maxTreeDepth bounds subdivision so coincident points share a bucket
const maxTreeDepth = 24

type quadNode struct {
	cx, cy, half float64 // square cell: center and half width
	mass         float64
	comX, comY   float64 // center of mass
	points       []int   // leaf contents
	children     *[4]*quadNode
	depth        int
}

// quadTree is rebuilt from scratch on every step
type quadTree struct {
	root *quadNode
	pos  []domain.Position
}

func buildQuadTree(pos []domain.Position) *quadTree {
	t := &quadTree{pos: pos}
	if len(pos) == 0 {
		return t
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pos {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	half := math.Max(maxX-minX, maxY-minY)/2 + 1
	t.root = &quadNode{cx: (minX + maxX) / 2, cy: (minY + maxY) / 2, half: half}

	for i := range pos {
		t.insert(t.root, i)
	}
	return t
}

func (t *quadTree) insert(n *quadNode, i int) {
	p := t.pos[i]

	total := n.mass + 1
	n.comX = (n.comX*n.mass + p.X) / total
	n.comY = (n.comY*n.mass + p.Y) / total
	n.mass = total

	if n.children == nil {
		if len(n.points) == 0 || n.depth >= maxTreeDepth {
			n.points = append(n.points, i)
			return
		}
		n.children = &[4]*quadNode{}
		existing := n.points
		n.points = nil
		for _, j := range existing {
			t.insertChild(n, j)
		}
	}
	t.insertChild(n, i)
}

func (t *quadTree) insertChild(n *quadNode, i int) {
	p := t.pos[i]
	q := 0
	h := n.half / 2
	cx, cy := n.cx-h, n.cy-h
	if p.X >= n.cx {
		q |= 1
		cx = n.cx + h
	}
	if p.Y >= n.cy {
		q |= 2
		cy = n.cy + h
	}
	child := n.children[q]
	if child == nil {
		child = &quadNode{cx: cx, cy: cy, half: h, depth: n.depth + 1}
		n.children[q] = child
	}
	t.insert(child, i)
}

// repulsion returns the total repulsive force on point i
func (t *quadTree) repulsion(i int, k, theta float64) domain.Position {
	if t.root == nil {
		return domain.Position{}
	}
	var f domain.Position
	t.accumulate(t.root, i, k, theta, &f)
	return f
}

func (t *quadTree) accumulate(n *quadNode, i int, k, theta float64, f *domain.Position) {
	p := t.pos[i]

	if n.children == nil {
		for _, j := range n.points {
			if j == i {
				continue
			}
			addRepulsion(f, p, t.pos[j], 1, k, i, j)
		}
		return
	}

	dx, dy := p.X-n.comX, p.Y-n.comY
	dist := math.Hypot(dx, dy)
	if dist > 0 && (2*n.half)/dist < theta && !n.contains(p) {
		addRepulsion(f, p, domain.Position{X: n.comX, Y: n.comY}, n.mass, k, i, -1)
		return
	}
	for _, c := range n.children {
		if c != nil {
			t.accumulate(c, i, k, theta, f)
		}
	}
}

func (n *quadNode) contains(p domain.Position) bool {
	return math.Abs(p.X-n.cx) <= n.half && math.Abs(p.Y-n.cy) <= n.half
}

// minDistance keeps forces finite for coincident points
const minDistance = 0.01

func addRepulsion(f *domain.Position, p, src domain.Position, mass, k float64, i, j int) {
	d := p.Sub(src)
	dist := d.Len()
	if dist < minDistance {
		d = separation(i, j)
		dist = minDistance
	} else {
		d = d.Scale(1 / dist)
	}
	mag := k * mass / (dist * dist)
	*f = f.Add(d.Scale(mag))
}

// separation returns a deterministic unit vector for coincident points so
// that the pair pushes apart in opposite directions.
func separation(i, j int) domain.Position {
	a, b := min(i, j), max(i, j)
	h := (a*7919 + b*104729) % 360
	if h < 0 {
		h += 360
	}
	angle := float64(h) * math.Pi / 180
	if i > j {
		angle += math.Pi
	}
	return domain.Position{X: math.Cos(angle), Y: math.Sin(angle)}
}
