package layout

import (
	"fmt"
	"math"
	"testing"
	"time"

	"lanscope/internal/domain"
	"lanscope/internal/topology"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}

// starGraph builds an Internet node, one router and n-2 hosts on the router
func starGraph(t *testing.T, n int) *topology.Graph {
	t.Helper()
	g := topology.NewGraph()
	now := time.Now()
	inet, _ := g.AddNode(domain.NewInternetNode(now))
	if n == 1 {
		return g
	}
	router, _ := g.AddNode(domain.NewNodeData("10.0.0.1", domain.DeviceRouter, now))
	g.AddEdge(router, inet, domain.NewEdgeData(domain.ConnectionInferred))
	for i := 2; i < n; i++ {
		ip := fmt.Sprintf("10.0.%d.%d", i/250, i%250)
		idx, _ := g.AddNode(domain.NewNodeData(ip, domain.DeviceServer, now))
		g.AddEdge(idx, router, domain.NewEdgeData(domain.ConnectionInferred))
	}
	return g
}

func assertFinite(t *testing.T, e *Engine) {
	t.Helper()
	for ip, p := range e.Positions() {
		if !p.IsFinite() {
			t.Fatalf("position of %s is not finite: %+v", ip, p)
		}
	}
}

func TestComputeFinite(t *testing.T) {
	for _, n := range []int{1, 2, 3, 50, 500} {
		t.Run(fmt.Sprintf("%d nodes", n), func(t *testing.T) {
			g := starGraph(t, n)
			e := NewEngine(testConfig(), nil)
			e.Initialize(g, StrategyStructured)
			iters := e.Compute(g, nil)
			if iters < 1 || iters > e.Config().MaxIterations {
				t.Errorf("iterations = %d", iters)
			}
			if len(e.Positions()) != n {
				t.Errorf("positions = %d, want %d", len(e.Positions()), n)
			}
			assertFinite(t, e)
		})
	}
}

func TestComputeCoincidentNodes(t *testing.T) {
	g := starGraph(t, 20)
	existing := make(map[string]domain.Position)
	for _, n := range g.Nodes() {
		existing[n.IP] = domain.Position{X: 5, Y: 5}
	}
	e := NewEngine(testConfig(), nil)
	e.Compute(g, existing)
	assertFinite(t, e)

	a, _ := e.Position("10.0.0.2")
	b, _ := e.Position("10.0.0.3")
	if a == b {
		t.Error("coincident nodes should separate")
	}
}

func TestComputePreservesExisting(t *testing.T) {
	g := starGraph(t, 10)
	cfg := testConfig()
	cfg.MaxIterations = 1
	e := NewEngine(cfg, nil)

	existing := map[string]domain.Position{"10.0.0.2": {X: 1000, Y: -1000}}
	e.Compute(g, existing)

	p, _ := e.Position("10.0.0.2")
	if math.Hypot(p.X-1000, p.Y+1000) > cfg.MaxVelocity+1 {
		t.Errorf("existing position not kept: %+v", p)
	}
	for _, n := range g.Nodes() {
		if n.IP == "10.0.0.2" {
			continue
		}
		p, _ := e.Position(n.IP)
		if p.Len() > spawnRadius+cfg.MaxVelocity+1 {
			t.Errorf("new node %s spawned far from origin: %+v", n.IP, p)
		}
	}
}

func TestComputeKeepsOwnStateAcrossGraphs(t *testing.T) {
	g := starGraph(t, 10)
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyCircular)
	before, _ := e.Position("10.0.0.5")

	g2 := starGraph(t, 12)
	e.Sync(g2, nil)
	after, _ := e.Position("10.0.0.5")
	if before != after {
		t.Errorf("known node moved on sync: %+v -> %+v", before, after)
	}
	if e.Len() != 12 {
		t.Errorf("Len = %d, want 12", e.Len())
	}
}

func TestComputeCancelled(t *testing.T) {
	g := starGraph(t, 30)
	cancel := domain.NewCancelToken()
	cancel.Cancel()
	e := NewEngine(testConfig(), cancel)
	if iters := e.Compute(g, nil); iters != 0 {
		t.Errorf("cancelled compute ran %d iterations", iters)
	}

	other := NewEngine(testConfig(), nil)
	if other.Compute(g, nil) == 0 {
		t.Error("a separate engine must not observe another engine's cancellation")
	}
}

func TestSetPositionDrag(t *testing.T) {
	g := starGraph(t, 20)
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyStructured)
	e.Compute(g, nil)

	before, _ := e.Position("10.0.0.4")
	target := before.Add(domain.Position{X: 400, Y: 300})
	if !e.SetPosition("10.0.0.4", target) {
		t.Fatal("SetPosition returned false")
	}
	if v, _ := e.Velocity("10.0.0.4"); v != (domain.Position{}) {
		t.Errorf("velocity after drag = %+v, want zero", v)
	}
	if e.Stable() {
		t.Error("drag must clear the stable flag")
	}

	e.Step()
	after, _ := e.Position("10.0.0.4")
	if after.Sub(target).Len() > e.Config().MaxVelocity+1e-9 {
		t.Errorf("node moved %.1f in one step after drag", after.Sub(target).Len())
	}
	if after.Sub(before).Len() < 100 {
		t.Errorf("node snapped back toward %+v: now %+v", before, after)
	}

	if e.SetPosition("10.9.9.9", target) {
		t.Error("SetPosition on unknown node should fail")
	}
	if e.SetPosition("10.0.0.4", domain.Position{X: math.NaN()}) {
		t.Error("SetPosition with NaN should fail")
	}
}

func TestPinnedNodeDoesNotMove(t *testing.T) {
	g := starGraph(t, 10)
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyRandom)
	e.Pin("10.0.0.1", true)
	before, _ := e.Position("10.0.0.1")
	for i := 0; i < 10; i++ {
		e.Step()
	}
	after, _ := e.Position("10.0.0.1")
	if before != after {
		t.Errorf("pinned node moved: %+v -> %+v", before, after)
	}
	if !e.IsPinned("10.0.0.1") {
		t.Error("IsPinned = false")
	}
}

func TestTickReachesStable(t *testing.T) {
	g := starGraph(t, 8)
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyCircular)

	stable := false
	for i := 0; i < 5000 && !stable; i++ {
		stable, _ = e.Tick()
	}
	if !stable {
		t.Fatal("layout never became stable")
	}
	if s, d := e.Tick(); !s || d != 0 {
		t.Errorf("Tick on stable layout = (%v, %v), want (true, 0)", s, d)
	}
}

func TestStructuredPlacement(t *testing.T) {
	g := starGraph(t, 6)
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyStructured)

	inet, _ := e.Position(domain.InternetIP)
	router, _ := e.Position("10.0.0.1")
	host, _ := e.Position("10.0.0.2")
	if !(inet.Y < router.Y && router.Y < host.Y) {
		t.Errorf("expected Internet above router above hosts: %v %v %v", inet.Y, router.Y, host.Y)
	}
}

func TestStructuredPlacementWithoutHub(t *testing.T) {
	g := topology.NewGraph()
	now := time.Now()
	for i := 2; i < 11; i++ {
		g.AddNode(domain.NewNodeData(fmt.Sprintf("10.0.0.%d", i), domain.DeviceServer, now))
	}
	e := NewEngine(testConfig(), nil)
	e.Initialize(g, StrategyStructured)

	seen := make(map[domain.Position]bool)
	for _, p := range e.Positions() {
		if seen[p] {
			t.Fatalf("grid placement produced duplicate position %+v", p)
		}
		seen[p] = true
	}
}

func TestCircularPlacement(t *testing.T) {
	g := starGraph(t, 12)
	cfg := testConfig()
	e := NewEngine(cfg, nil)
	e.Initialize(g, StrategyCircular)

	want := math.Max(cfg.NodeSpacing, 12*cfg.NodeSpacing/(2*math.Pi))
	for ip, p := range e.Positions() {
		if math.Abs(p.Len()-want) > 1e-6 {
			t.Errorf("%s radius = %.3f, want %.3f", ip, p.Len(), want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"structured", StrategyStructured, false},
		{"", StrategyStructured, false},
		{"Circular", StrategyCircular, false},
		{"random", StrategyRandom, false},
		{"spiral", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.Damping = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("damping > 1 should be rejected")
	}
}
