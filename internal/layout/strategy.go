package layout

import (
	"math"
	"sort"

	"lanscope/internal/classify"
	"lanscope/internal/domain"
)

// placeStructured puts the Internet at the top, infrastructure in a centered
// row beneath it and everything else in wrapped rows below the hub.
func (e *Engine) placeStructured() {
	n := len(e.ips)
	if n == 0 {
		return
	}
	spacing, row := e.cfg.NodeSpacing, e.cfg.RowSpacing

	internet := -1
	var infra, rest []int
	for i := range e.ips {
		switch {
		case e.types[i] == domain.DeviceInternet || e.ips[i] == domain.InternetIP:
			internet = i
		case e.types[i].IsInfrastructure():
			infra = append(infra, i)
		default:
			rest = append(rest, i)
		}
	}

	hub := domain.Position{}
	switch {
	case len(infra) > 0:
		e.placeRow(infra, 0, spacing)
		hub = e.pos[infra[0]]
	case internet >= 0:
		// no infrastructure: rows hang below the sentinel
	default:
		gw := -1
		for _, i := range rest {
			if classify.IsLikelyGateway(e.ips[i]) {
				gw = i
				break
			}
		}
		if gw < 0 {
			e.placeGrid(rest, spacing)
			return
		}
		e.pos[gw] = domain.Position{}
		rest = without(rest, gw)
	}

	if internet >= 0 {
		e.pos[internet] = domain.Position{X: hub.X, Y: -row}
		if len(infra) == 0 {
			hub = e.pos[internet]
		}
	}

	perRow := max(8, int(math.Ceil(math.Sqrt(float64(len(rest))))))
	for start := 0; start < len(rest); start += perRow {
		end := min(start+perRow, len(rest))
		y := hub.Y + row*float64(start/perRow+1)
		e.placeRowAt(rest[start:end], hub.X, y, spacing)
	}
}

func (e *Engine) placeRow(idx []int, y, spacing float64) {
	e.placeRowAt(idx, 0, y, spacing)
}

// placeRowAt centers idx horizontally on cx
func (e *Engine) placeRowAt(idx []int, cx, y, spacing float64) {
	width := float64(len(idx)-1) * spacing
	for k, i := range idx {
		e.pos[i] = domain.Position{X: cx - width/2 + float64(k)*spacing, Y: y}
	}
}

func (e *Engine) placeGrid(idx []int, spacing float64) {
	cols := max(1, int(math.Ceil(math.Sqrt(float64(len(idx))))))
	offset := float64(cols-1) * spacing / 2
	for k, i := range idx {
		e.pos[i] = domain.Position{
			X: float64(k%cols)*spacing - offset,
			Y: float64(k/cols)*spacing - offset,
		}
	}
}

// placeCircular spaces nodes evenly on a circle, grouped by device type
func (e *Engine) placeCircular() {
	n := len(e.ips)
	if n == 0 {
		return
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ta, tb := e.types[order[a]], e.types[order[b]]
		if ta != tb {
			return ta < tb
		}
		return domain.CompareIP(e.ips[order[a]], e.ips[order[b]]) < 0
	})

	radius := math.Max(e.cfg.NodeSpacing, float64(n)*e.cfg.NodeSpacing/(2*math.Pi))
	for k, i := range order {
		angle := 2 * math.Pi * float64(k) / float64(n)
		e.pos[i] = domain.Position{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
}

// placeRandom scatters nodes uniformly within a disk
func (e *Engine) placeRandom() {
	radius := e.cfg.NodeSpacing * math.Sqrt(float64(max(1, len(e.ips))))
	for i := range e.pos {
		e.pos[i] = e.randomInDisk(radius)
	}
}

func without(idx []int, drop int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if i != drop {
			out = append(out, i)
		}
	}
	return out
}
