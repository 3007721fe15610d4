package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lanscope/internal/classify"
	"lanscope/internal/domain"
)

// ProgressFunc receives a non-decreasing completion fraction in [0,1].
// The final call is not guaranteed to be exactly 1.
type ProgressFunc func(fraction float32)

// NeighborReader reads the OS neighbor table
type NeighborReader interface {
	ReadNeighbors(ctx context.Context) []domain.ArpEntry
}

// HostProber probes one host for open ports
type HostProber interface {
	Probe(ctx context.Context, ip string, ports []uint16) *domain.ProbedHost
}

// Traceroute walks the path to one target
type Traceroute interface {
	Trace(ctx context.Context, target string, cancel *domain.CancelToken) domain.TracerouteResult
}

// HostnameResolver maps IPs to hostnames
type HostnameResolver interface {
	Resolve(ctx context.Context, ips []string) map[string]string
}

// PortScanner is a full external port scanner
type PortScanner interface {
	Scan(ctx context.Context, targets []string) ([]*domain.ProbedHost, error)
}

// Recorder receives per-task observations, typically for metrics
type Recorder interface {
	HostProbed(openPorts int)
	TracerouteDone(completed bool)
}

// Options controls a discovery run
type Options struct {
	CandidatePorts  []uint16
	SweepPorts      []uint16
	ProbeTimeout    time.Duration
	SweepTimeout    time.Duration
	MaxConcurrent   int
	SweepConcurrent int
	Traceroute      bool
	ICMPSweep       bool
	SNMP            bool
}

// DefaultOptions returns balanced settings for a home or office /24
func DefaultOptions() Options {
	return Options{
		CandidatePorts:  DefaultCandidatePorts,
		SweepPorts:      SweepPorts,
		ProbeTimeout:    DefaultProbeTimeout,
		SweepTimeout:    150 * time.Millisecond,
		MaxConcurrent:   32,
		SweepConcurrent: 128,
		Traceroute:      true,
	}
}

// Stage weights of the overall progress fraction
const (
	weightNeighbors  = 0.05
	weightSweep      = 0.25
	weightRefresh    = 0.05
	weightProbe      = 0.45
	weightTraceroute = 0.20
)

// Orchestrator runs the discovery stages
type Orchestrator struct {
	opts      Options
	neighbors NeighborReader
	prober    HostProber
	sweeper   HostProber
	tracer    Traceroute
	resolver  HostnameResolver
	scanner   PortScanner
	pinger    Pinger
	snmp      SNMPQuerier
	gateway   func() (string, error)
	recorder  Recorder
	log       *logrus.Entry
}

// Option sets an orchestrator collaborator
type Option func(*Orchestrator)

// WithNeighborReader replaces the OS neighbor table reader
func WithNeighborReader(r NeighborReader) Option { return func(o *Orchestrator) { o.neighbors = r } }

// WithProber replaces the host prober for both the sweep and the main probe
func WithProber(p HostProber) Option {
	return func(o *Orchestrator) { o.prober, o.sweeper = p, p }
}

// WithTracer replaces the traceroute engine
func WithTracer(t Traceroute) Option { return func(o *Orchestrator) { o.tracer = t } }

// WithResolver sets the hostname resolver
func WithResolver(r HostnameResolver) Option { return func(o *Orchestrator) { o.resolver = r } }

// WithPortScanner sets the external port scanner
func WithPortScanner(s PortScanner) Option { return func(o *Orchestrator) { o.scanner = s } }

// WithPinger sets the ICMP pinger used by the sweep when Options.ICMPSweep is set
func WithPinger(p Pinger) Option { return func(o *Orchestrator) { o.pinger = p } }

// WithSNMP sets the SNMP querier used on gateway candidates when Options.SNMP is set
func WithSNMP(q SNMPQuerier) Option { return func(o *Orchestrator) { o.snmp = q } }

// WithGatewayFunc replaces default gateway detection
func WithGatewayFunc(f func() (string, error)) Option { return func(o *Orchestrator) { o.gateway = f } }

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

// NewOrchestrator creates an orchestrator with OS-backed defaults
func NewOrchestrator(opts Options, options ...Option) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.SweepConcurrent <= 0 {
		opts.SweepConcurrent = opts.MaxConcurrent
	}
	o := &Orchestrator{
		opts:      opts,
		neighbors: NewSystemNeighbors(),
		prober:    NewProber(opts.ProbeTimeout),
		sweeper:   NewProber(opts.SweepTimeout),
		tracer:    NewTracer(nil, DefaultMaxHops, DefaultHopTimeout),
		gateway:   DefaultGateway,
		log:       logrus.WithField("component", "discovery"),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Options returns the run options
func (o *Orchestrator) Options() Options { return o.opts }

// Run discovers the hosts of subnet. Cancellation through cancel or ctx stops
// new tasks from being scheduled and yields a partial result; only an invalid
// subnet is an error.
func (o *Orchestrator) Run(ctx context.Context, subnet string, cancel *domain.CancelToken, progress ProgressFunc) (*domain.DiscoveryResult, error) {
	targets, dropped, err := expandSubnet(subnet)
	if err != nil {
		return nil, fmt.Errorf("expand subnet: %w", err)
	}
	if dropped > 0 {
		o.log.WithFields(logrus.Fields{
			"subnet":  subnet,
			"targets": len(targets),
			"dropped": dropped,
		}).Warn("Discovery: subnet exceeds target cap; probing the first addresses only")
	}
	if cancel == nil {
		cancel = domain.NewCancelToken()
	}

	result := domain.NewDiscoveryResult()
	prog := newProgressTracker(progress)
	stopped := func() bool { return cancel.Cancelled() || ctx.Err() != nil }

	o.log.WithFields(logrus.Fields{"subnet": subnet, "targets": len(targets)}).Info("Discovery: run started")
	start := time.Now()

	// Stage 1: neighbor table
	prog.stage(weightNeighbors, 1)
	result.ArpEntries = o.neighbors.ReadNeighbors(ctx)
	prog.done()
	o.log.Infof("Phase 1: read %d neighbor entries", len(result.ArpEntries))

	// Stage 2: sweep to warm the neighbor cache
	if !stopped() {
		prog.stage(weightSweep, len(targets))
		sem := semaphore.NewWeighted(int64(o.opts.SweepConcurrent))
		var live int
		result.Stats.SweepsStarted = runBounded(ctx, cancel, sem, targets,
			func(ctx context.Context, ip string) *domain.ProbedHost {
				host := o.sweeper.Probe(ctx, ip, o.opts.SweepPorts)
				if host == nil && o.opts.ICMPSweep && o.pinger != nil && o.pinger.Ping(ctx, ip) {
					host = domain.NewProbedHost(ip, nil)
				}
				return host
			},
			func(h *domain.ProbedHost) {
				if h != nil {
					live++
					if len(h.Ports) > 0 {
						result.MergeHost(h)
					}
				}
				prog.done()
			})
		o.log.Infof("Phase 2: sweep found %d responsive addresses", live)
	}

	// Stage 3: refresh the neighbor table
	if !stopped() {
		prog.stage(weightRefresh, 1)
		result.ArpEntries = mergeArp(result.ArpEntries, o.neighbors.ReadNeighbors(ctx))
		prog.done()
		o.log.Infof("Phase 3: %d neighbor entries after sweep", len(result.ArpEntries))
	}

	// Stage 4: full probe, with hostname resolution and the external scanner alongside
	if !stopped() {
		o.probeStage(ctx, cancel, targets, result, prog)
	}

	// Stage 5: traceroutes
	if o.opts.Traceroute && !stopped() {
		o.tracerouteStage(ctx, cancel, result, prog)
	}

	result.Stats.Cancelled = stopped()
	o.log.WithFields(logrus.Fields{
		"hosts":       len(result.ProbedHosts),
		"traceroutes": len(result.Traceroutes),
		"cancelled":   result.Stats.Cancelled,
		"elapsed":     time.Since(start).Round(time.Millisecond),
	}).Info("Discovery: run finished")
	return result, nil
}

func (o *Orchestrator) probeStage(ctx context.Context, cancel *domain.CancelToken, targets []string, result *domain.DiscoveryResult, prog *progressTracker) {
	var (
		hostnames map[string]string
		scanned   []*domain.ProbedHost
	)
	g, gctx := errgroup.WithContext(ctx)
	if o.resolver != nil {
		g.Go(func() error {
			hostnames = o.resolver.Resolve(gctx, targets)
			return nil
		})
	}
	if o.scanner != nil {
		g.Go(func() error {
			hosts, err := o.scanner.Scan(gctx, targets)
			if err != nil {
				return fmt.Errorf("port scanner: %w", err)
			}
			scanned = hosts
			return nil
		})
	}

	prog.stage(weightProbe, len(targets))
	sem := semaphore.NewWeighted(int64(o.opts.MaxConcurrent))
	result.Stats.ProbesStarted = runBounded(ctx, cancel, sem, targets,
		func(ctx context.Context, ip string) *domain.ProbedHost {
			return o.prober.Probe(ctx, ip, o.opts.CandidatePorts)
		},
		func(h *domain.ProbedHost) {
			if h != nil {
				result.MergeHost(h)
				if o.recorder != nil {
					o.recorder.HostProbed(len(h.Ports))
				}
			}
			prog.done()
		})
	o.log.Infof("Phase 4: %d hosts with open ports", len(result.ProbedHosts))

	if err := g.Wait(); err != nil {
		o.log.WithError(err).Warn("Discovery: external collaborator failed")
	}
	for _, h := range scanned {
		if h != nil && len(h.Ports) > 0 {
			result.MergeHost(h)
		}
	}

	for ip, h := range result.ProbedHosts {
		if h.Hostname == "" {
			h.Hostname = hostnames[ip]
		}
		if h.MAC == "" {
			h.MAC, _ = result.ArpMAC(ip)
		}
	}

	if o.gateway != nil {
		if gw, err := o.gateway(); err == nil {
			if h, ok := result.ProbedHosts[gw]; ok {
				h.IsGateway = true
			}
		} else {
			o.log.WithError(err).Debug("Discovery: default gateway unknown")
		}
	}

	if o.opts.SNMP && o.snmp != nil {
		for _, h := range result.SortedHosts() {
			if !h.IsGateway && !classify.IsLikelyGateway(h.IP) {
				continue
			}
			if cancel.Cancelled() || ctx.Err() != nil {
				break
			}
			if info, ok := o.snmp.Query(ctx, h.IP); ok {
				h.Merge(info)
			}
		}
	}
}

func (o *Orchestrator) tracerouteStage(ctx context.Context, cancel *domain.CancelToken, result *domain.DiscoveryResult, prog *progressTracker) {
	var targets []string
	for _, h := range result.SortedHosts() {
		if len(h.Ports) > 0 {
			targets = append(targets, h.IP)
		}
	}

	prog.stage(weightTraceroute, len(targets))
	sem := semaphore.NewWeighted(int64(max(1, o.opts.MaxConcurrent/2)))
	result.Stats.TraceroutesStarted = runBounded(ctx, cancel, sem, targets,
		func(ctx context.Context, ip string) domain.TracerouteResult {
			return o.tracer.Trace(ctx, ip, cancel)
		},
		func(tr domain.TracerouteResult) {
			result.Traceroutes = append(result.Traceroutes, tr)
			if o.recorder != nil {
				o.recorder.TracerouteDone(tr.Completed)
			}
			prog.done()
		})

	sort.Slice(result.Traceroutes, func(i, j int) bool {
		return domain.CompareIP(result.Traceroutes[i].Target, result.Traceroutes[j].Target) < 0
	})
	o.log.Infof("Phase 5: %d traceroutes", len(result.Traceroutes))
}

// runBounded schedules fn over items under sem. The cancellation flag and ctx
// are checked before each acquisition; tasks already started always finish.
// Results are handed to merge one at a time on the calling goroutine. It
// returns the number of tasks started.
func runBounded[T any](ctx context.Context, cancel *domain.CancelToken, sem *semaphore.Weighted,
	items []string, fn func(context.Context, string) T, merge func(T)) int {

	results := make(chan T)
	started := 0

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()
		for _, item := range items {
			if cancel.Cancelled() || ctx.Err() != nil {
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			started++
			wg.Add(1)
			go func(item string) {
				defer wg.Done()
				defer sem.Release(1)
				// in-flight tasks outlive a cancelled run context
				results <- fn(context.WithoutCancel(ctx), item)
			}(item)
		}
	}()

	for r := range results {
		merge(r)
	}
	return started
}

// mergeArp appends entries for IPs not yet present, keeping first-seen MACs
func mergeArp(existing, fresh []domain.ArpEntry) []domain.ArpEntry {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.IP] = true
	}
	for _, e := range fresh {
		if !seen[e.IP] {
			seen[e.IP] = true
			existing = append(existing, e)
		}
	}
	return existing
}

// progressTracker maps per-stage completion onto the overall fraction
type progressTracker struct {
	fn    ProgressFunc
	base  float64
	width float64
	total int
	count int
	last  float32
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn}
}

// stage closes the current stage and opens one covering weight
func (p *progressTracker) stage(weight float64, total int) {
	p.base += p.width
	p.width = weight
	p.total = total
	p.count = 0
	if total == 0 {
		p.report(p.base + weight)
	}
}

func (p *progressTracker) done() {
	p.count++
	if p.total == 0 {
		return
	}
	p.report(p.base + p.width*float64(min(p.count, p.total))/float64(p.total))
}

func (p *progressTracker) report(f float64) {
	if p.fn == nil {
		return
	}
	v := float32(min(max(f, 0), 1))
	if v < p.last {
		v = p.last
	}
	p.last = v
	p.fn(v)
}
