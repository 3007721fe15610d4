package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lanscope/internal/discovery"
	"lanscope/internal/domain"
	"lanscope/internal/layout"
	"lanscope/internal/metrics"
	"lanscope/internal/service"
	"lanscope/internal/topology"
)

type stubDiscoverer struct {
	block chan struct{}
}

func (s *stubDiscoverer) Run(ctx context.Context, _ string, _ *domain.CancelToken, progress discovery.ProgressFunc) (*domain.DiscoveryResult, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	if progress != nil {
		progress(1)
	}
	r := domain.NewDiscoveryResult()
	r.MergeHost(domain.NewProbedHost("10.0.0.1", []uint16{53, 80}))
	r.MergeHost(domain.NewProbedHost("10.0.0.5", []uint16{22, 80, 443}))
	return r, nil
}

func newTestServer(t *testing.T, d service.Discoverer, enabled bool) (*httptest.Server, *service.TopologyService, *metrics.Metrics) {
	t.Helper()
	cfg := layout.DefaultConfig()
	cfg.MaxIterations = 30
	cfg.Seed = 11
	m := metrics.New()
	svc := service.NewTopologyService(d, topology.NewBuilder(nil), service.NewEventBus(), service.Options{
		Subnet:           "10.0.0.0/29",
		Layout:           cfg,
		DiscoveryEnabled: enabled,
	}, service.WithRecorder(m))

	srv := httptest.NewServer(NewRouter(NewTopologyHandler(svc), nil, m.Handler()))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return srv, svc, m
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("NewRequest error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	return resp, data
}

func TestGetGraphEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubDiscoverer{}, true)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/graph", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view topology.GraphView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if len(view.Nodes) != 0 || len(view.Edges) != 0 {
		t.Errorf("graph = %+v, want empty", view)
	}

	for _, path := range []string{"/api/result", "/api/discover"} {
		if resp, _ := do(t, http.MethodGet, srv.URL+path, ""); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestDiscoveryFlow(t *testing.T) {
	srv, svc, _ := newTestServer(t, &stubDiscoverer{}, true)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/discover", `{"subnet":"10.0.0.0/30"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var started service.RunStatus
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if started.Subnet != "10.0.0.0/30" || started.ID == "" {
		t.Errorf("started = %+v", started)
	}
	svc.Wait()

	resp, body = do(t, http.MethodGet, srv.URL+"/api/discover", "")
	var status service.RunStatus
	if err := json.Unmarshal(body, &status); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/discover = %d %v", resp.StatusCode, err)
	}
	if status.State != service.RunCompleted || status.Hosts != 2 {
		t.Errorf("status = %+v", status)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/stats", "")
	var stats domain.TopologyStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("unmarshal stats error = %v", err)
	}
	if stats.NodeCount != 3 {
		t.Errorf("node_count = %d, want 3", stats.NodeCount)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/graph", "")
	var view topology.GraphView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("unmarshal graph error = %v", err)
	}
	if len(view.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(view.Nodes))
	}
	for _, n := range view.Nodes {
		if n.Position == nil {
			t.Errorf("node %s has no position", n.IP)
		}
	}

	if resp, _ := do(t, http.MethodGet, srv.URL+"/api/result", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/result status = %d", resp.StatusCode)
	}
}

func TestStartDiscoveryErrors(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		body    string
		want    int
	}{
		{"invalid subnet", true, `{"subnet":"nope"}`, http.StatusBadRequest},
		{"ipv6 subnet", true, `{"subnet":"fd00::/120"}`, http.StatusBadRequest},
		{"malformed body", true, `{"subnet":`, http.StatusBadRequest},
		{"passive mode", false, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, &stubDiscoverer{}, tt.enabled)
			resp, body := do(t, http.MethodPost, srv.URL+"/api/discover", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
			var e ErrorResponse
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Errorf("error body = %s", body)
			}
		})
	}
}

func TestDiscoveryConflictAndCancel(t *testing.T) {
	block := make(chan struct{})
	srv, svc, _ := newTestServer(t, &stubDiscoverer{block: block}, true)

	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/discover/cancel", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancel without run status = %d, want 404", resp.StatusCode)
	}

	if resp, body := do(t, http.MethodPost, srv.URL+"/api/discover", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first start status = %d body = %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/discover", ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/discover/cancel", ""); resp.StatusCode != http.StatusAccepted {
		t.Errorf("cancel status = %d, want 202", resp.StatusCode)
	}
	close(block)
	svc.Wait()
}

func TestLayoutEndpoints(t *testing.T) {
	srv, svc, _ := newTestServer(t, &stubDiscoverer{}, true)
	svc.ApplyResult(mustRun(t))
	svc.Wait()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown strategy", `{"strategy":"spiral"}`, http.StatusBadRequest},
		{"circular", `{"strategy":"circular"}`, http.StatusAccepted},
		{"default", "", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/api/layout", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
			svc.Wait()
		})
	}

	resp, body := do(t, http.MethodPost, srv.URL+"/api/layout/step", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("step status = %d", resp.StatusCode)
	}
	var step service.StepResult
	if err := json.Unmarshal(body, &step); err != nil {
		t.Fatalf("unmarshal step error = %v", err)
	}
	if len(step.Positions) != 3 {
		t.Errorf("positions = %d, want 3", len(step.Positions))
	}
}

func TestUpdatePosition(t *testing.T) {
	srv, svc, _ := newTestServer(t, &stubDiscoverer{}, true)
	svc.ApplyResult(mustRun(t))
	svc.Wait()

	tests := []struct {
		name string
		ip   string
		body string
		want int
	}{
		{"drag and pin", "10.0.0.5", `{"x":10,"y":-20,"pinned":true}`, http.StatusNoContent},
		{"unknown node", "10.0.0.9", `{"x":1,"y":1}`, http.StatusNotFound},
		{"bad body", "10.0.0.5", `{"x":"left"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPut, srv.URL+"/api/positions/"+tt.ip, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
		})
	}

	for _, n := range svc.Graph().Nodes {
		if n.IP == "10.0.0.5" && (n.Position == nil || n.Position.X != 10 || n.Position.Y != -20 || !n.Pinned) {
			t.Errorf("node after drag = %+v pinned=%v", n.Position, n.Pinned)
		}
	}
}

func TestMiddlewareAndMetrics(t *testing.T) {
	srv, svc, _ := newTestServer(t, &stubDiscoverer{}, true)
	svc.ApplyResult(mustRun(t))
	svc.Wait()

	resp, _ := do(t, http.MethodOptions, srv.URL+"/api/graph", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	for _, want := range []string{"lanscope_graph_nodes 3", "lanscope_layout_iterations"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	if resp, _ := do(t, http.MethodDelete, srv.URL+"/api/graph", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/graph status = %d, want 405", resp.StatusCode)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover, Logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func mustRun(t *testing.T) *domain.DiscoveryResult {
	t.Helper()
	r, err := (&stubDiscoverer{}).Run(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("stub run error = %v", err)
	}
	return r
}
