// Package topology builds the undirected network graph from a discovery
// result and derives risk scores and summary statistics from it.
//
// Graph is index based: nodes and edges live in slices and are addressed by
// NodeIndex / EdgeIndex handles. A Graph is not safe for concurrent mutation;
// callers sharing one across goroutines must serialize access.
package topology

import (
	"lanscope/internal/domain"
)

// NodeIndex is an opaque handle to a graph node
type NodeIndex int

// EdgeIndex is an opaque handle to a graph edge
type EdgeIndex int

// InvalidIndex is returned when no node or edge exists
const InvalidIndex = -1

// Edge joins two nodes by index
type Edge struct {
	Source NodeIndex
	Target NodeIndex
	Data   domain.EdgeData
}

type pairKey struct{ a, b NodeIndex }

func makePair(a, b NodeIndex) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Graph is an undirected graph with at most one edge per unordered node pair
// and exactly one node per IP.
type Graph struct {
	nodes []domain.NodeData
	edges []Edge
	adj   [][]NodeIndex
	byIP  map[string]NodeIndex
	pairs map[pairKey]EdgeIndex
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		byIP:  make(map[string]NodeIndex),
		pairs: make(map[pairKey]EdgeIndex),
	}
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int { return len(g.edges) }

// AddNode inserts a node, or returns the existing index when the IP is
// already present. The boolean reports whether a node was created.
func (g *Graph) AddNode(data domain.NodeData) (NodeIndex, bool) {
	if idx, ok := g.byIP[data.IP]; ok {
		return idx, false
	}
	if data.Ports == nil {
		data.Ports = []domain.PortInfo{}
	}
	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, data)
	g.adj = append(g.adj, nil)
	g.byIP[data.IP] = idx
	return idx, true
}

// Lookup returns the index of the node with the given IP
func (g *Graph) Lookup(ip string) (NodeIndex, bool) {
	idx, ok := g.byIP[ip]
	return idx, ok
}

// Node returns a pointer to the node's data for in-place updates.
// It returns nil for an out-of-range index.
func (g *Graph) Node(idx NodeIndex) *domain.NodeData {
	if idx < 0 || int(idx) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[idx]
}

// Nodes returns node data in insertion order. The slice is shared with the graph.
func (g *Graph) Nodes() []domain.NodeData {
	return g.nodes
}

// Edges returns edges in insertion order. The slice is shared with the graph.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// AddEdge connects a and b. Adding an edge between an already connected pair
// keeps the existing edge and reports false. Self loops and unknown indices
// are rejected.
func (g *Graph) AddEdge(a, b NodeIndex, data domain.EdgeData) (EdgeIndex, bool) {
	if a == b || g.Node(a) == nil || g.Node(b) == nil {
		return InvalidIndex, false
	}
	key := makePair(a, b)
	if existing, ok := g.pairs[key]; ok {
		return existing, false
	}
	idx := EdgeIndex(len(g.edges))
	g.edges = append(g.edges, Edge{Source: a, Target: b, Data: data})
	g.pairs[key] = idx
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return idx, true
}

// AddEdgeByIP connects two nodes identified by IP
func (g *Graph) AddEdgeByIP(a, b string, data domain.EdgeData) (EdgeIndex, bool) {
	ia, ok := g.byIP[a]
	if !ok {
		return InvalidIndex, false
	}
	ib, ok := g.byIP[b]
	if !ok {
		return InvalidIndex, false
	}
	return g.AddEdge(ia, ib, data)
}

// FindEdge returns the edge between a and b in either direction
func (g *Graph) FindEdge(a, b NodeIndex) (EdgeIndex, bool) {
	idx, ok := g.pairs[makePair(a, b)]
	return idx, ok
}

// Edge returns the edge at idx
func (g *Graph) Edge(idx EdgeIndex) (Edge, bool) {
	if idx < 0 || int(idx) >= len(g.edges) {
		return Edge{}, false
	}
	return g.edges[idx], true
}

// Neighbors returns the nodes adjacent to idx
func (g *Graph) Neighbors(idx NodeIndex) []NodeIndex {
	if idx < 0 || int(idx) >= len(g.adj) {
		return nil
	}
	return g.adj[idx]
}

// Degree returns the number of edges touching idx
func (g *Graph) Degree(idx NodeIndex) int {
	return len(g.Neighbors(idx))
}
