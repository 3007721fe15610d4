package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"lanscope/internal/layout"
)

func TestModeLevel(t *testing.T) {
	tests := []struct {
		mode  Mode
		level int
	}{
		{ModePassive, 0},
		{ModeMonitor, 1},
		{ModeDiscovery, 2},
	}

	for _, tt := range tests {
		if got := tt.mode.Level(); got != tt.level {
			t.Errorf("Mode(%s).Level() = %d, want %d", tt.mode, got, tt.level)
		}
	}
}

func TestModeAllows(t *testing.T) {
	tests := []struct {
		current  Mode
		required Mode
		allowed  bool
	}{
		{ModeDiscovery, ModePassive, true},
		{ModeDiscovery, ModeMonitor, true},
		{ModeDiscovery, ModeDiscovery, true},
		{ModeMonitor, ModePassive, true},
		{ModeMonitor, ModeMonitor, true},
		{ModeMonitor, ModeDiscovery, false},
		{ModePassive, ModePassive, true},
		{ModePassive, ModeMonitor, false},
		{ModePassive, ModeDiscovery, false},
	}

	for _, tt := range tests {
		if got := tt.current.Allows(tt.required); got != tt.allowed {
			t.Errorf("Mode(%s).Allows(%s) = %v, want %v",
				tt.current, tt.required, got, tt.allowed)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"passive", ModePassive},
		{"monitor", ModeMonitor},
		{"discovery", ModeDiscovery},
		{"invalid", ModeDiscovery}, // Default
		{"", ModeDiscovery},        // Default
	}

	for _, tt := range tests {
		if got := ParseMode(tt.input); got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestPostureGetProfile(t *testing.T) {
	postures := []Posture{PostureStealth, PostureCautious, PostureBalanced, PostureAggressive}

	for _, p := range postures {
		profile := p.GetProfile()
		if profile.ProbeTimeout == 0 {
			t.Errorf("Posture(%s).GetProfile().ProbeTimeout should not be 0", p)
		}
		if profile.MaxConcurrentProbes == 0 || profile.MaxHops == 0 {
			t.Errorf("Posture(%s) profile has zero limits: %+v", p, profile)
		}
	}

	// stealth should be slowest, aggressive fastest
	stealth := PostureStealth.GetProfile()
	aggressive := PostureAggressive.GetProfile()

	if stealth.ProbeTimeout <= aggressive.ProbeTimeout {
		t.Error("Stealth should have longer probe timeout than aggressive")
	}
	if stealth.MaxConcurrentProbes >= aggressive.MaxConcurrentProbes {
		t.Error("Stealth should have fewer concurrent probes than aggressive")
	}

	if got := Posture("unknown").GetProfile(); got != PostureBalanced.GetProfile() {
		t.Error("unknown posture should fall back to balanced")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Posture != PostureBalanced {
		t.Errorf("Posture = %s, want %s", cfg.Posture, PostureBalanced)
	}
	if cfg.Reference.Path == "" {
		t.Error("Reference.Path should not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEffectiveMode(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.EffectiveMode(); got != ModeDiscovery {
		t.Errorf("EffectiveMode() = %s, want %s (default)", got, ModeDiscovery)
	}

	mode := ModePassive
	cfg.Mode = &mode
	if got := cfg.EffectiveMode(); got != ModePassive {
		t.Errorf("EffectiveMode() = %s, want %s (override)", got, ModePassive)
	}
}

func TestEffectiveBehavior(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Posture = PostureBalanced

	behavior := cfg.EffectiveBehavior()
	expected := PostureBalanced.GetProfile()

	if behavior != expected {
		t.Errorf("behavior = %+v, want %+v", behavior, expected)
	}

	override := 10 * time.Second
	hops := 8
	cfg.Behavior = &BehaviorOverride{
		ProbeTimeout: (*Duration)(&override),
		MaxHops:      &hops,
	}
	behavior = cfg.EffectiveBehavior()

	if behavior.ProbeTimeout != override {
		t.Errorf("ProbeTimeout = %s, want %s (override)", behavior.ProbeTimeout, override)
	}
	if behavior.MaxHops != 8 {
		t.Errorf("MaxHops = %d, want 8 (override)", behavior.MaxHops)
	}
	// Other fields should still be from posture
	if behavior.MaxConcurrentProbes != expected.MaxConcurrentProbes {
		t.Errorf("MaxConcurrentProbes = %d, want %d (posture default)",
			behavior.MaxConcurrentProbes, expected.MaxConcurrentProbes)
	}
}

func TestCapabilitiesIsEnabled(t *testing.T) {
	cfg := DefaultConfig()
	caps := &cfg.Capabilities

	if !caps.IsEnabled("mdns", ModeMonitor) {
		t.Error("mdns should be enabled in monitor mode")
	}
	if caps.IsEnabled("mdns", ModePassive) {
		t.Error("mdns should not be enabled in passive mode")
	}
	if !caps.IsEnabled("traceroute", ModeDiscovery) {
		t.Error("traceroute should be enabled in discovery mode")
	}
	if caps.IsEnabled("traceroute", ModeMonitor) {
		t.Error("traceroute should not be enabled in monitor mode")
	}
	if caps.IsEnabled("nmap", ModeDiscovery) {
		t.Error("nmap should not be enabled (disabled by default)")
	}
	if caps.IsEnabled("does-not-exist", ModeDiscovery) {
		t.Error("unknown capability should be disabled")
	}
}

func TestDiscoveryOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Posture = PostureCautious
	cfg.Discovery.CandidatePorts = []uint16{22, 80}
	cfg.Capabilities.SNMP.Enabled = true

	opts := cfg.DiscoveryOptions()
	profile := PostureCautious.GetProfile()
	if opts.ProbeTimeout != profile.ProbeTimeout || opts.MaxConcurrent != profile.MaxConcurrentProbes {
		t.Errorf("options do not follow posture: %+v", opts)
	}
	if !slices.Equal(opts.CandidatePorts, []uint16{22, 80}) {
		t.Errorf("CandidatePorts = %v", opts.CandidatePorts)
	}
	if len(opts.SweepPorts) == 0 {
		t.Error("SweepPorts should keep the default list")
	}
	if !opts.Traceroute || !opts.SNMP || opts.ICMPSweep {
		t.Errorf("capability flags = traceroute %v snmp %v icmp %v", opts.Traceroute, opts.SNMP, opts.ICMPSweep)
	}

	mode := ModeMonitor
	cfg.Mode = &mode
	if opts := cfg.DiscoveryOptions(); opts.Traceroute || opts.SNMP {
		t.Error("monitor mode should disable discovery-level capabilities")
	}
}

func TestLayoutSettings(t *testing.T) {
	cfg := DefaultConfig()
	iters := 50
	theta := 0.8
	seed := uint64(7)
	cfg.Layout = LayoutConfig{Strategy: "circular", MaxIterations: &iters, Theta: &theta, Seed: &seed}

	lc, strategy, err := cfg.LayoutSettings()
	if err != nil {
		t.Fatalf("LayoutSettings() error: %v", err)
	}
	if strategy != layout.StrategyCircular {
		t.Errorf("strategy = %s", strategy)
	}
	if lc.MaxIterations != 50 || lc.Theta != 0.8 || lc.Seed != 7 {
		t.Errorf("overrides not applied: %+v", lc)
	}
	if lc.Repulsion != layout.DefaultConfig().Repulsion {
		t.Error("unset fields should keep engine defaults")
	}

	cfg.Layout = LayoutConfig{Strategy: "spiral"}
	if _, _, err := cfg.LayoutSettings(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"posture", func(c *Config) { c.Posture = "reckless" }},
		{"mode", func(c *Config) { m := Mode("godmode"); c.Mode = &m }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"subnet", func(c *Config) { c.Discovery.Subnet = "10.0.0.0/33" }},
		{"layout", func(c *Config) { zero := 0; c.Layout.MaxIterations = &zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Posture = PostureAggressive
	mode := ModeMonitor
	cfg.Mode = &mode
	cfg.Discovery.Subnet = "192.168.1.0/24"
	ttl := Duration(30 * time.Second)
	cfg.Resolver.CacheTTL = &ttl

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	if loaded.Posture != PostureAggressive {
		t.Errorf("Posture = %s, want %s", loaded.Posture, PostureAggressive)
	}
	if loaded.Mode == nil || *loaded.Mode != ModeMonitor {
		t.Error("Mode should be monitor")
	}
	if loaded.Discovery.Subnet != "192.168.1.0/24" {
		t.Errorf("Discovery.Subnet = %q", loaded.Discovery.Subnet)
	}
	if loaded.ResolverCacheTTL() != 30*time.Second {
		t.Errorf("ResolverCacheTTL() = %s", loaded.ResolverCacheTTL())
	}
}

func TestLoadPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	data := `posture: stealth
capabilities:
  nmap:
    enabled: true
behavior:
  max_hops: 12
layout:
  strategy: random
`
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Server, cfg.Log)
	}
	if !cfg.CapabilityEnabled("nmap") {
		t.Error("nmap should be enabled with its default min_mode")
	}
	if !cfg.CapabilityEnabled("mdns") {
		t.Error("unlisted capabilities should keep their defaults")
	}
	if cfg.EffectiveBehavior().MaxHops != 12 {
		t.Errorf("MaxHops = %d, want 12", cfg.EffectiveBehavior().MaxHops)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("posture: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("expected parse error")
	}
	if _, _, err := LoadFromPath(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Chdir(tmpDir)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	// Explicit path wins when it exists
	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found = FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestSearchPathsOrder(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("user config dir is platform specific")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvConfigPath, "/srv/scan.yaml")

	got := SearchPaths()
	want := []string{
		"/srv/scan.yaml",
		ConfigFileName,
		filepath.Join(xdg, "lanscope", "config.yaml"),
		"/etc/lanscope/config.yaml",
	}
	if len(got) != len(want) {
		t.Fatalf("SearchPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SearchPaths()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	t.Setenv(EnvConfigPath, "")
	if got := SearchPaths(); got[0] != ConfigFileName {
		t.Errorf("without override first candidate = %s, want %s", got[0], ConfigFileName)
	}
}

func TestFindConfigPathSkipsDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	if err := os.Mkdir(ConfigFileName, 0o755); err != nil {
		t.Fatal(err)
	}
	if found := FindConfigPath(); found == filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("FindConfigPath() returned a directory: %s", found)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
