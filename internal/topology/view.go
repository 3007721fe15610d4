package topology

import "lanscope/internal/domain"

// NodeView is a node as served to renderers, with its layout position
type NodeView struct {
	domain.NodeData
	Label    string           `json:"label"`
	Color    string           `json:"color"`
	Icon     string           `json:"icon"`
	Position *domain.Position `json:"position,omitempty"`
	Pinned   bool             `json:"pinned,omitempty"`
}

// EdgeView is an edge keyed by endpoint IPs
type EdgeView struct {
	Source string `json:"source"`
	Target string `json:"target"`
	domain.EdgeData
}

// GraphView is the read-only serialized form of a Graph
type GraphView struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// PositionSource supplies layout coordinates for nodes
type PositionSource interface {
	Position(ip string) (domain.Position, bool)
	IsPinned(ip string) bool
}

// View renders the graph for serialization. positions may be nil.
func View(g *Graph, positions PositionSource) GraphView {
	v := GraphView{
		Nodes: make([]NodeView, 0, g.NodeCount()),
		Edges: make([]EdgeView, 0, g.EdgeCount()),
	}
	for _, n := range g.nodes {
		info := n.DeviceType.Info()
		nv := NodeView{
			NodeData: n,
			Label:    n.Label(),
			Color:    info.Color,
			Icon:     info.Icon,
		}
		if positions != nil {
			if p, ok := positions.Position(n.IP); ok {
				nv.Position = &p
				nv.Pinned = positions.IsPinned(n.IP)
			}
		}
		v.Nodes = append(v.Nodes, nv)
	}
	for _, e := range g.edges {
		v.Edges = append(v.Edges, EdgeView{
			Source:   g.nodes[e.Source].IP,
			Target:   g.nodes[e.Target].IP,
			EdgeData: e.Data,
		})
	}
	return v
}
