package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"lanscope/internal/adapter"
	"lanscope/internal/classify"
	"lanscope/internal/config"
	"lanscope/internal/discovery"
	"lanscope/internal/domain"
	"lanscope/internal/handler"
	"lanscope/internal/hub"
	"lanscope/internal/metrics"
	"lanscope/internal/preflight"
	"lanscope/internal/repository/sqlite"
	"lanscope/internal/service"
	"lanscope/internal/topology"
	"lanscope/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default: search LANSCOPE_CONFIG, ./lanscope.yaml, user config dir)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	subnet := flag.String("subnet", "", "Subnet to discover in CIDR form, at most /24 (default: config or primary interface)")
	once := flag.Bool("once", false, "Run one discovery, print the graph as JSON and exit")
	strategy := flag.String("strategy", "", "Initial layout: structured, circular or random (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *subnet != "" {
		cfg.Discovery.Subnet = *subnet
	}
	if *strategy != "" {
		cfg.Layout.Strategy = *strategy
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	setupLogging(cfg.Log)

	log := logrus.WithField("component", "server")
	if path != "" {
		log.WithField("path", path).Info("Config loaded")
	}
	log.Info(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.Reference.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open reference database")
	}
	defer store.Close()
	if err := loadReference(ctx, store, cfg); err != nil {
		log.WithError(err).Fatal("Failed to load reference data")
	}

	target := cfg.Discovery.Subnet
	if target == "" {
		target, err = discovery.DetectLocalSubnet()
		if err != nil {
			log.WithError(err).Warn("Could not detect local subnet; discovery requests must name one")
		} else {
			log.WithField("subnet", target).Info("Detected local subnet")
		}
	}

	m := metrics.New()
	eventBus := service.NewEventBus()

	caps := preflight.Probe()
	caps.Log(logrus.WithField("component", "preflight"))

	orch := buildOrchestrator(ctx, cfg, caps, eventBus, m)
	classifier, err := loadClassifier(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to load classifier rules")
	}
	ttl := cfg.ReferenceCacheTTL()
	builder := topology.NewBuilder(classifier,
		topology.WithVendorLookup(adapter.NewVendorLookup(store, ttl)),
		topology.WithGeoLocator(adapter.NewGeoLookup(store, ttl)),
	)
	layoutCfg, initial, err := cfg.LayoutSettings()
	if err != nil {
		log.WithError(err).Fatal("Invalid layout settings")
	}

	svc := service.NewTopologyService(orch, builder, eventBus, service.Options{
		Subnet:           target,
		Strategy:         initial,
		Layout:           layoutCfg,
		DiscoveryEnabled: cfg.EffectiveMode().Allows(config.ModeMonitor),
	}, service.WithRecorder(m))

	if *once {
		if err := runOnce(ctx, svc, orch, target); err != nil {
			log.WithError(err).Fatal("Discovery failed")
		}
		return
	}

	watchFiles(ctx, cfg, classifier, store)
	if err := serve(ctx, cfg.Server.Addr, svc, eventBus, m); err != nil {
		log.WithError(err).Fatal("Server error")
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func setupLogging(c config.LogConfig) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// loadReference seeds built-in vendors and imports optional CSV files
func loadReference(ctx context.Context, store *sqlite.Store, cfg *config.Config) error {
	log := logrus.WithField("component", "reference")
	seeded, err := store.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed vendors: %w", err)
	}
	log.WithField("vendors", seeded).Debug("Reference: built-in vendors seeded")

	imports := []struct {
		name string
		path string
		fn   func(context.Context, io.Reader) (int, error)
	}{
		{"oui", cfg.Reference.OUIFile, store.ImportOUI},
		{"geo", cfg.Reference.GeoFile, store.ImportGeo},
	}
	for _, imp := range imports {
		if imp.path == "" {
			continue
		}
		f, err := os.Open(imp.path)
		if err != nil {
			return fmt.Errorf("open %s file: %w", imp.name, err)
		}
		n, err := imp.fn(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("import %s file %s: %w", imp.name, imp.path, err)
		}
		log.WithFields(logrus.Fields{"kind": imp.name, "rows": n, "path": imp.path}).Info("Reference: CSV imported")
	}

	vendors, ranges, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"vendors": vendors, "geo_ranges": ranges}).Info("Reference: store ready")
	return nil
}

// buildOrchestrator wires the discovery collaborators the config enables
func buildOrchestrator(ctx context.Context, cfg *config.Config, caps preflight.Report, pub adapter.EventPublisher, m *metrics.Metrics) *discovery.Orchestrator {
	log := logrus.WithField("component", "server")
	opts := cfg.DiscoveryOptions()
	behavior := cfg.EffectiveBehavior()

	options := []discovery.Option{
		discovery.WithNeighborReader(discovery.NewSystemNeighbors()),
		discovery.WithTracer(discovery.NewTracer(nil, behavior.MaxHops, behavior.HopTimeout)),
		discovery.WithGatewayFunc(discovery.DefaultGateway),
		discovery.WithRecorder(m),
	}

	var resolvers []discovery.HostnameResolver
	if cfg.CapabilityEnabled("mdns") {
		resolvers = append(resolvers, adapter.NewMDNSResolver(cfg.MDNSTimeout()))
	}
	if cfg.CapabilityEnabled("ptr") {
		resolvers = append(resolvers, adapter.NewPTRResolver(cfg.Resolver.PTRServer, cfg.PTRTimeout()))
	}
	if len(resolvers) > 0 {
		options = append(options, discovery.WithResolver(adapter.NewChainResolver(cfg.ResolverCacheTTL(), resolvers...)))
	}

	if cfg.CapabilityEnabled("nmap") {
		nmapOpts := []adapter.NmapOption{adapter.WithPublisher(pub)}
		if cfg.Discovery.NmapPorts != "" {
			nmapOpts = append(nmapOpts, adapter.WithPortRange(cfg.Discovery.NmapPorts))
		}
		scanner := adapter.NewNmapScanner(nmapOpts...)
		if scanner.Available(ctx) {
			options = append(options, discovery.WithPortScanner(scanner))
		} else {
			log.Warn("nmap capability enabled but the nmap binary is not available")
		}
	}
	if opts.ICMPSweep && !caps.CanPing() {
		log.Warn("icmp_sweep enabled but no ICMP socket can be opened; sweeping with TCP only")
		opts.ICMPSweep = false
	}
	if opts.ICMPSweep {
		options = append(options, discovery.WithPinger(discovery.ICMPPinger{
			Timeout:    behavior.ProbeTimeout,
			Privileged: caps.RawICMP,
		}))
	}
	if opts.SNMP {
		options = append(options, discovery.WithSNMP(discovery.NewSNMPEnricher(cfg.Discovery.SNMPCommunity, behavior.ProbeTimeout)))
	}

	return discovery.NewOrchestrator(opts, options...)
}

func loadClassifier(cfg *config.Config) (*classify.Classifier, error) {
	if cfg.Classifier.RulesFile == "" {
		return classify.New(nil), nil
	}
	rules, err := classify.LoadRules(cfg.Classifier.RulesFile)
	if err != nil {
		return nil, err
	}
	return classify.New(rules), nil
}

// watchFiles reloads classifier rules and re-imports reference CSVs when
// they change. Bad edits are logged and the previous data stays in use.
func watchFiles(ctx context.Context, cfg *config.Config, classifier *classify.Classifier, store *sqlite.Store) {
	log := logrus.WithField("component", "watcher")

	if path := cfg.Classifier.RulesFile; path != "" {
		w := watcher.New(path, func() {
			rules, err := classify.LoadRules(path)
			if err != nil {
				log.WithError(err).Warn("Rejected classifier rules; keeping previous table")
				return
			}
			classifier.SetRules(rules)
			log.WithField("path", path).Info("Classifier rules reloaded; applies to the next discovery run")
		})
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("Rules watcher stopped")
			}
		}()
	}

	importers := make(map[string]func(context.Context, io.Reader) (int, error))
	if cfg.Reference.OUIFile != "" {
		importers[absPath(cfg.Reference.OUIFile)] = store.ImportOUI
	}
	if cfg.Reference.GeoFile != "" {
		importers[absPath(cfg.Reference.GeoFile)] = store.ImportGeo
	}
	if len(importers) == 0 {
		return
	}
	paths := make([]string, 0, len(importers))
	for p := range importers {
		paths = append(paths, p)
	}
	go func() {
		err := watcher.WatchMultiple(ctx, paths, func(path string) {
			imp, ok := importers[path]
			if !ok {
				return
			}
			f, err := os.Open(path)
			if err != nil {
				log.WithError(err).Warn("Cannot reopen reference file")
				return
			}
			defer f.Close()
			n, err := imp(ctx, f)
			if err != nil {
				log.WithError(err).WithField("path", path).Warn("Reference re-import failed")
				return
			}
			log.WithFields(logrus.Fields{"path": path, "rows": n}).Info("Reference: CSV re-imported")
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("Reference watcher stopped")
		}
	}()
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// runOnce performs a single blocking discovery, waits for the layout and
// writes the positioned graph to stdout.
func runOnce(ctx context.Context, svc *service.TopologyService, orch *discovery.Orchestrator, subnet string) error {
	if subnet == "" {
		return discovery.ErrNoSubnet
	}
	log := logrus.WithField("component", "cli")

	cancel := domain.NewCancelToken()
	go func() {
		<-ctx.Done()
		cancel.Cancel()
	}()

	started := time.Now()
	lastLogged := -10
	result, err := orch.Run(context.WithoutCancel(ctx), subnet, cancel, func(f float32) {
		if pct := int(f * 100); pct/10 != lastLogged/10 {
			lastLogged = pct
			log.WithField("progress", fmt.Sprintf("%d%%", pct)).Info("Discovery: progress")
		}
	})
	if err != nil {
		return err
	}

	g := svc.ApplyResult(result)
	svc.Wait()

	stats := topology.Stats(g)
	fmt.Fprintf(os.Stderr, "Discovered %s hosts on %s in %s (%s tasks%s)\n",
		humanize.Comma(int64(len(result.ProbedHosts))), subnet,
		time.Since(started).Round(time.Millisecond),
		humanize.Comma(int64(result.Stats.TasksStarted())),
		cancelledNote(result.Stats.Cancelled))
	fmt.Fprintf(os.Stderr, "Graph: %s nodes, %s edges, %d infrastructure, %d endpoints, %d IoT, %d high risk\n",
		humanize.Comma(int64(stats.NodeCount)), humanize.Comma(int64(stats.EdgeCount)),
		stats.Infrastructure, stats.Endpoints, stats.IoT, stats.HighRisk)
	for _, line := range deviceBreakdown(stats) {
		fmt.Fprintln(os.Stderr, line)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Graph())
}

func cancelledNote(cancelled bool) string {
	if cancelled {
		return ", cancelled"
	}
	return ""
}

func deviceBreakdown(stats domain.TopologyStats) []string {
	types := make([]domain.DeviceType, 0, len(stats.ByDeviceType))
	for t := range stats.ByDeviceType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if stats.ByDeviceType[types[i]] != stats.ByDeviceType[types[j]] {
			return stats.ByDeviceType[types[i]] > stats.ByDeviceType[types[j]]
		}
		return types[i] < types[j]
	})
	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("  %-16s %d", t.Info().Label, stats.ByDeviceType[t]))
	}
	return lines
}

func serve(ctx context.Context, addr string, svc *service.TopologyService, eventBus *service.EventBus, m *metrics.Metrics) error {
	log := logrus.WithField("component", "server")

	sseHub := hub.New()
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go hub.Forward[service.Event](ctx, sseHub, eventChan)

	server := &http.Server{
		Addr:        addr,
		Handler:     handler.NewRouter(handler.NewTopologyHandler(svc), sseHub, m.Handler()),
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: it would cut SSE streams
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Background work did not finish")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown error")
	}
	log.Info("Server stopped")
	return nil
}
