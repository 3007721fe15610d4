package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lanscope/internal/discovery"
	"lanscope/internal/domain"
	"lanscope/internal/layout"
	"lanscope/internal/metrics"
	"lanscope/internal/topology"
)

var (
	ErrDiscoveryRunning  = errors.New("discovery already running")
	ErrDiscoveryDisabled = errors.New("discovery disabled in passive mode")
	ErrNoDiscovery       = errors.New("no discovery running")
	ErrInvalidSubnet     = errors.New("invalid subnet")
	ErrUnknownNode       = errors.New("unknown node")
	ErrInvalidPosition   = errors.New("position must be finite")
)

// Discoverer runs one discovery pass over a subnet
type Discoverer interface {
	Run(ctx context.Context, subnet string, cancel *domain.CancelToken, progress discovery.ProgressFunc) (*domain.DiscoveryResult, error)
}

// GraphBuilder turns a discovery result into a topology graph
type GraphBuilder interface {
	Build(result *domain.DiscoveryResult) *topology.Graph
}

// Recorder receives run and layout measurements
type Recorder interface {
	RecordRun(outcome string, duration time.Duration)
	RecordLayout(iterations int, duration time.Duration)
	SetGraphSize(nodes int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, time.Duration)  {}
func (nopRecorder) RecordLayout(int, time.Duration) {}
func (nopRecorder) SetGraphSize(int)                {}

// Run states reported in RunStatus
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// RunStatus describes a discovery run
type RunStatus struct {
	ID         string     `json:"id"`
	Subnet     string     `json:"subnet"`
	State      string     `json:"state"`
	Progress   float32    `json:"progress"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Hosts      int        `json:"hosts"`
	Error      string     `json:"error,omitempty"`
}

// Options configures a TopologyService
type Options struct {
	Subnet           string          // used when a run names no subnet
	Strategy         layout.Strategy // initial placement for the first graph
	Layout           layout.Config
	DiscoveryEnabled bool
}

// Option customizes a TopologyService
type Option func(*TopologyService)

// WithRecorder sets the metrics sink
func WithRecorder(r Recorder) Option {
	return func(s *TopologyService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *TopologyService) { s.now = now }
}

type activeRun struct {
	status RunStatus
	cancel *domain.CancelToken
}

// TopologyService owns the current graph and its layout. Graph and engine are
// not safe for concurrent use, so every access goes through mu. Discovery and
// full layout computation run on background goroutines.
type TopologyService struct {
	discoverer Discoverer
	builder    GraphBuilder
	eventBus   *EventBus
	recorder   Recorder
	opts       Options
	now        func() time.Time
	log        *logrus.Entry

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu           sync.Mutex
	graph        *topology.Graph
	result       *domain.DiscoveryResult
	engine       *layout.Engine
	run          *activeRun
	last         *RunStatus
	layoutGen    uint64
	layoutCancel *domain.CancelToken
	computing    bool
	// drags made while a computation runs, replayed onto its engine
	overrides map[string]positionOverride

	beforeSwap func()
}

type positionOverride struct {
	pos    domain.Position
	pinned *bool
}

// NewTopologyService creates a service with an empty graph
func NewTopologyService(d Discoverer, b GraphBuilder, eventBus *EventBus, opts Options, options ...Option) *TopologyService {
	if opts.Strategy == "" {
		opts.Strategy = layout.StrategyStructured
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &TopologyService{
		discoverer: d,
		builder:    b,
		eventBus:   eventBus,
		recorder:   nopRecorder{},
		opts:       opts,
		now:        time.Now,
		log:        logrus.WithField("component", "service"),
		ctx:        ctx,
		stop:       stop,
		graph:      topology.NewGraph(),
	}
	for _, o := range options {
		o(s)
	}
	s.engine = layout.NewEngine(opts.Layout, nil)
	return s
}

// StartDiscovery launches a discovery run in the background. An empty subnet
// falls back to the configured default.
func (s *TopologyService) StartDiscovery(subnet string) (RunStatus, error) {
	if !s.opts.DiscoveryEnabled {
		return RunStatus{}, ErrDiscoveryDisabled
	}
	if subnet == "" {
		subnet = s.opts.Subnet
	}
	if _, err := discovery.ExpandSubnet(subnet); err != nil {
		return RunStatus{}, fmt.Errorf("%w: %v", ErrInvalidSubnet, err)
	}

	s.mu.Lock()
	if s.run != nil {
		s.mu.Unlock()
		return RunStatus{}, ErrDiscoveryRunning
	}
	run := &activeRun{
		status: RunStatus{
			ID:        uuid.NewString(),
			Subnet:    subnet,
			State:     RunRunning,
			StartedAt: s.now(),
		},
		cancel: domain.NewCancelToken(),
	}
	s.run = run
	status := run.status
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"run_id": status.ID, "subnet": subnet}).Info("Discovery: run started")
	s.eventBus.Publish(Event{Type: EventDiscoveryStarted, Payload: status})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(run)
	}()
	return status, nil
}

func (s *TopologyService) execute(run *activeRun) {
	started := time.Now()
	var lastPublished float32 = -1

	progress := func(f float32) {
		s.mu.Lock()
		run.status.Progress = f
		publish := f-lastPublished >= 0.01 || f >= 1
		if publish {
			lastPublished = f
		}
		s.mu.Unlock()
		if publish {
			s.eventBus.Publish(Event{
				Type:    EventDiscoveryProgress,
				Payload: map[string]any{"run_id": run.status.ID, "progress": f},
			})
		}
	}

	result, err := s.discoverer.Run(s.ctx, run.status.Subnet, run.cancel, progress)

	outcome, eventType := RunCompleted, EventDiscoveryComplete
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		outcome, eventType = RunCancelled, EventDiscoveryCancelled
	case err != nil:
		outcome, eventType = RunFailed, EventDiscoveryFailed
	case result != nil && result.Stats.Cancelled:
		outcome, eventType = RunCancelled, EventDiscoveryCancelled
	}

	if result != nil {
		result.RunID = run.status.ID
		s.ApplyResult(result)
	}

	finished := s.now()
	s.mu.Lock()
	run.status.State = outcome
	run.status.FinishedAt = &finished
	if result != nil {
		run.status.Hosts = len(result.ProbedHosts)
	}
	if err != nil {
		run.status.Error = err.Error()
	}
	status := run.status
	s.run = nil
	s.last = &status
	s.mu.Unlock()

	s.recorder.RecordRun(metricOutcome(outcome), time.Since(started))
	entry := s.log.WithFields(logrus.Fields{
		"run_id": status.ID,
		"state":  outcome,
		"hosts":  status.Hosts,
	})
	if err != nil {
		entry.WithError(err).Warn("Discovery: run failed")
	} else {
		entry.Info("Discovery: run finished")
	}
	s.eventBus.Publish(Event{Type: eventType, Payload: status})
}

func metricOutcome(state string) string {
	switch state {
	case RunCancelled:
		return metrics.OutcomeCancelled
	case RunFailed:
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeCompleted
}

// CancelDiscovery sets the running discovery's cancellation flag. Work
// already in flight finishes; the partial result is still applied.
func (s *TopologyService) CancelDiscovery() (RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return RunStatus{}, ErrNoDiscovery
	}
	s.run.cancel.Cancel()
	s.log.WithField("run_id", s.run.status.ID).Info("Discovery: cancellation requested")
	return s.run.status, nil
}

// Status returns the running discovery, or the last finished one
func (s *TopologyService) Status() (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		return s.run.status, true
	}
	if s.last != nil {
		return *s.last, true
	}
	return RunStatus{}, false
}

// ApplyResult builds a graph from result, replaces the current one and
// starts a layout computation that keeps positions of known nodes.
func (s *TopologyService) ApplyResult(result *domain.DiscoveryResult) *topology.Graph {
	g := s.builder.Build(result)

	s.mu.Lock()
	first := s.engine.Len() == 0
	s.graph = g
	s.result = result
	// new nodes get a seed position until the computation lands
	s.engine.Sync(g, nil)
	s.mu.Unlock()

	stats := topology.Stats(g)
	s.recorder.SetGraphSize(g.NodeCount())
	s.eventBus.Publish(Event{Type: EventGraphUpdated, Payload: stats})

	strategy := layout.Strategy("")
	if first {
		strategy = s.opts.Strategy
	}
	s.startLayout(strategy)
	return g
}

// ResetLayout discards all positions and pins and recomputes the layout
// from the given initial placement.
func (s *TopologyService) ResetLayout(strategy string) (layout.Strategy, error) {
	st, err := layout.ParseStrategy(strategy)
	if err != nil {
		return "", err
	}
	s.startLayout(st)
	return st, nil
}

// startLayout computes on a private engine and swaps it in when done. An
// empty strategy keeps existing positions. A newer computation cancels and
// supersedes an older one.
func (s *TopologyService) startLayout(strategy layout.Strategy) {
	s.mu.Lock()
	if s.layoutCancel != nil {
		s.layoutCancel.Cancel()
	}
	s.layoutGen++
	gen := s.layoutGen
	token := domain.NewCancelToken()
	s.layoutCancel = token
	s.computing = true
	s.overrides = make(map[string]positionOverride)
	g := s.graph
	existing := s.engine.NodePositions()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.computeLayout(g, existing, strategy, token, gen)
	}()
}

func (s *TopologyService) computeLayout(g *topology.Graph, existing []domain.NodePosition,
	strategy layout.Strategy, token *domain.CancelToken, gen uint64) {
	started := time.Now()
	eng := layout.NewEngine(s.opts.Layout, token)

	var iterations int
	if strategy != "" {
		eng.Initialize(g, strategy)
		iterations = eng.Compute(g, nil)
	} else {
		positions := make(map[string]domain.Position, len(existing))
		for _, p := range existing {
			positions[p.IP] = domain.Position{X: p.X, Y: p.Y}
		}
		eng.Sync(g, positions)
		for _, p := range existing {
			if p.Pinned {
				eng.Pin(p.IP, true)
			}
		}
		iterations = eng.Compute(g, nil)
	}
	elapsed := time.Since(started)
	if s.beforeSwap != nil {
		s.beforeSwap()
	}

	s.mu.Lock()
	if gen != s.layoutGen {
		s.mu.Unlock()
		s.log.WithField("generation", gen).Debug("Layout: superseded computation discarded")
		return
	}
	for ip, o := range s.overrides {
		eng.SetPosition(ip, o.pos)
		if o.pinned != nil {
			eng.Pin(ip, *o.pinned)
		}
	}
	s.engine = eng
	s.computing = false
	s.layoutCancel = nil
	s.overrides = nil
	positions := eng.NodePositions()
	stable := eng.Stable()
	s.mu.Unlock()

	s.recorder.RecordLayout(iterations, elapsed)
	s.log.WithFields(logrus.Fields{
		"nodes":      len(positions),
		"iterations": iterations,
		"stable":     stable,
		"duration":   elapsed,
	}).Info("Layout: computation finished")
	s.eventBus.Publish(Event{
		Type: EventLayoutUpdated,
		Payload: map[string]any{
			"iterations": iterations,
			"stable":     stable,
			"positions":  positions,
		},
	})
}

// StepResult is the outcome of one incremental layout step
type StepResult struct {
	Stable    bool                  `json:"stable"`
	MaxDelta  float64               `json:"max_delta"`
	Positions []domain.NodePosition `json:"positions"`
}

// Step advances the current layout by one iteration
func (s *TopologyService) Step() StepResult {
	s.mu.Lock()
	stable, delta := s.engine.Tick()
	res := StepResult{Stable: stable, MaxDelta: delta, Positions: s.engine.NodePositions()}
	s.mu.Unlock()
	return res
}

// SetPosition moves a node as a drag would and optionally pins or releases it
func (s *TopologyService) SetPosition(ip string, p domain.Position, pinned *bool) error {
	if !p.IsFinite() {
		return ErrInvalidPosition
	}
	s.mu.Lock()
	if !s.engine.SetPosition(ip, p) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownNode, ip)
	}
	if pinned != nil {
		s.engine.Pin(ip, *pinned)
	}
	if s.computing {
		o := s.overrides[ip]
		o.pos = p
		if pinned != nil {
			v := *pinned
			o.pinned = &v
		}
		s.overrides[ip] = o
	}
	np := domain.NodePosition{IP: ip, X: p.X, Y: p.Y, Pinned: s.engine.IsPinned(ip)}
	s.mu.Unlock()

	s.eventBus.Publish(Event{Type: EventPositionsUpdated, Payload: []domain.NodePosition{np}})
	return nil
}

// Graph returns the current graph with layout positions
func (s *TopologyService) Graph() topology.GraphView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topology.View(s.graph, s.engine)
}

// Stats summarizes the current graph
func (s *TopologyService) Stats() domain.TopologyStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topology.Stats(s.graph)
}

// Result returns the last applied discovery result, if any
func (s *TopologyService) Result() (*domain.DiscoveryResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// LayoutComputing reports whether a background layout computation is pending
func (s *TopologyService) LayoutComputing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computing
}

// Wait blocks until background discovery and layout work has finished
func (s *TopologyService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running work and waits for it, bounded by ctx
func (s *TopologyService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.run != nil {
		s.run.cancel.Cancel()
	}
	if s.layoutCancel != nil {
		s.layoutCancel.Cancel()
	}
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
