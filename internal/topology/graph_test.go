package topology

import (
	"testing"
	"time"

	"lanscope/internal/domain"
)

func TestGraphAddNodeDeduplicates(t *testing.T) {
	g := NewGraph()
	now := time.Now()

	a, created := g.AddNode(domain.NewNodeData("10.0.0.1", domain.DeviceRouter, now))
	if !created {
		t.Fatal("first AddNode should create")
	}
	b, created := g.AddNode(domain.NewNodeData("10.0.0.1", domain.DeviceServer, now))
	if created || a != b {
		t.Errorf("duplicate AddNode = (%d, %v), want (%d, false)", b, created, a)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
	if g.Node(a).DeviceType != domain.DeviceRouter {
		t.Error("existing node data should not be overwritten")
	}
}

func TestGraphEdgeUniqueness(t *testing.T) {
	g := NewGraph()
	now := time.Now()
	a, _ := g.AddNode(domain.NewNodeData("10.0.0.1", domain.DeviceRouter, now))
	b, _ := g.AddNode(domain.NewNodeData("10.0.0.2", domain.DeviceServer, now))

	first, added := g.AddEdge(a, b, domain.NewEdgeData(domain.ConnectionLocalSubnet))
	if !added {
		t.Fatal("first AddEdge should add")
	}
	second, added := g.AddEdge(a, b, domain.NewEdgeData(domain.ConnectionManual))
	if added || second != first {
		t.Errorf("repeat AddEdge = (%d, %v), want (%d, false)", second, added, first)
	}
	if _, added := g.AddEdge(b, a, domain.NewEdgeData(domain.ConnectionManual)); added {
		t.Error("reverse direction should be the same edge")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
	e, _ := g.Edge(first)
	if e.Data.Type != domain.ConnectionLocalSubnet {
		t.Errorf("edge type = %s, want existing local_subnet", e.Data.Type)
	}
	if g.Degree(a) != 1 || g.Degree(b) != 1 {
		t.Errorf("degrees = %d, %d; want 1, 1", g.Degree(a), g.Degree(b))
	}
}

func TestGraphRejectsInvalidEdges(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(domain.NewNodeData("10.0.0.1", domain.DeviceRouter, time.Now()))

	if _, added := g.AddEdge(a, a, domain.NewEdgeData(domain.ConnectionManual)); added {
		t.Error("self loop should be rejected")
	}
	if _, added := g.AddEdge(a, 42, domain.NewEdgeData(domain.ConnectionManual)); added {
		t.Error("unknown index should be rejected")
	}
	if _, added := g.AddEdgeByIP("10.0.0.1", "10.0.0.9", domain.NewEdgeData(domain.ConnectionManual)); added {
		t.Error("unknown IP should be rejected")
	}
}
