// Package config provides configuration management for lanscope.
//
// Config file locations (priority order):
//  1. $LANSCOPE_CONFIG
//  2. ./lanscope.yaml
//  3. $XDG_CONFIG_HOME/lanscope/config.yaml
//  4. ~/.config/lanscope/config.yaml
//  5. /etc/lanscope/config.yaml
//
// A missing file is not an error; defaults apply. The posture picks timing
// and concurrency defaults, and explicit behavior overrides win over it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"lanscope/internal/discovery"
	"lanscope/internal/layout"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:      1,
		Posture:      PostureBalanced,
		Reference:    ReferenceConfig{Path: "./lanscope.db"},
		Capabilities: DefaultCapabilities(),
		Server:       ServerConfig{Addr: ":8080"},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	if c.Reference.Path == "" {
		c.Reference.Path = "./lanscope.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	defaults := DefaultCapabilities()
	fillMinMode(&c.Capabilities.Traceroute, defaults.Traceroute)
	fillMinMode(&c.Capabilities.ICMPSweep, defaults.ICMPSweep)
	fillMinMode(&c.Capabilities.Nmap, defaults.Nmap)
	fillMinMode(&c.Capabilities.MDNS, defaults.MDNS)
	fillMinMode(&c.Capabilities.PTR, defaults.PTR)
	fillMinMode(&c.Capabilities.SNMP, defaults.SNMP)
}

func fillMinMode(c *CapabilityConfig, def CapabilityConfig) {
	if c.MinMode == "" {
		c.MinMode = def.MinMode
	}
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if _, ok := PostureProfiles[c.Posture]; !ok {
		return fmt.Errorf("unknown posture %q", c.Posture)
	}
	if c.Mode != nil && ParseMode(string(*c.Mode)) != *c.Mode {
		return fmt.Errorf("unknown mode %q", *c.Mode)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Discovery.Subnet != "" {
		if _, err := discovery.ExpandSubnet(c.Discovery.Subnet); err != nil {
			return fmt.Errorf("discovery subnet: %w", err)
		}
	}
	if _, _, err := c.LayoutSettings(); err != nil {
		return err
	}
	return nil
}

// EffectiveMode returns the mode to use (override > default)
func (c *Config) EffectiveMode() Mode {
	if c.Mode != nil {
		return *c.Mode
	}
	return ModeDiscovery
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Behavior == nil {
		return base
	}

	base.ProbeTimeout = durationOr(c.Behavior.ProbeTimeout, base.ProbeTimeout)
	base.SweepTimeout = durationOr(c.Behavior.SweepTimeout, base.SweepTimeout)
	base.HopTimeout = durationOr(c.Behavior.HopTimeout, base.HopTimeout)
	if c.Behavior.MaxConcurrentProbes != nil {
		base.MaxConcurrentProbes = *c.Behavior.MaxConcurrentProbes
	}
	if c.Behavior.MaxConcurrentSweeps != nil {
		base.MaxConcurrentSweeps = *c.Behavior.MaxConcurrentSweeps
	}
	if c.Behavior.MaxHops != nil {
		base.MaxHops = *c.Behavior.MaxHops
	}

	return base
}

// CapabilityEnabled reports whether an optional capability may run
func (c *Config) CapabilityEnabled(name string) bool {
	return c.Capabilities.IsEnabled(name, c.EffectiveMode())
}

// DiscoveryOptions builds orchestrator options from posture, overrides and capabilities
func (c *Config) DiscoveryOptions() discovery.Options {
	behavior := c.EffectiveBehavior()
	opts := discovery.DefaultOptions()

	if len(c.Discovery.CandidatePorts) > 0 {
		opts.CandidatePorts = c.Discovery.CandidatePorts
	}
	if len(c.Discovery.SweepPorts) > 0 {
		opts.SweepPorts = c.Discovery.SweepPorts
	}
	opts.ProbeTimeout = behavior.ProbeTimeout
	opts.SweepTimeout = behavior.SweepTimeout
	opts.MaxConcurrent = behavior.MaxConcurrentProbes
	opts.SweepConcurrent = behavior.MaxConcurrentSweeps
	opts.Traceroute = c.CapabilityEnabled("traceroute")
	opts.ICMPSweep = c.CapabilityEnabled("icmp_sweep")
	opts.SNMP = c.CapabilityEnabled("snmp")
	return opts
}

// LayoutSettings builds the layout engine config and initial strategy
func (c *Config) LayoutSettings() (layout.Config, layout.Strategy, error) {
	strategy, err := layout.ParseStrategy(c.Layout.Strategy)
	if err != nil {
		return layout.Config{}, "", fmt.Errorf("layout: %w", err)
	}

	cfg := layout.DefaultConfig()
	l := c.Layout
	setInt(&cfg.MaxIterations, l.MaxIterations)
	setFloat(&cfg.Threshold, l.Threshold)
	setFloat(&cfg.Repulsion, l.Repulsion)
	setFloat(&cfg.SpringLength, l.SpringLength)
	setFloat(&cfg.SpringStrength, l.SpringStrength)
	setFloat(&cfg.Gravity, l.Gravity)
	setFloat(&cfg.Damping, l.Damping)
	setFloat(&cfg.Theta, l.Theta)
	if l.PreventOverlap != nil {
		cfg.PreventOverlap = *l.PreventOverlap
	}
	if l.Seed != nil {
		cfg.Seed = *l.Seed
	}

	if err := cfg.Validate(); err != nil {
		return layout.Config{}, "", fmt.Errorf("layout: %w", err)
	}
	return cfg, strategy, nil
}

// ReferenceCacheTTL is how long vendor and geo answers are cached
func (c *Config) ReferenceCacheTTL() time.Duration {
	return durationOr(c.Reference.CacheTTL, time.Hour)
}

// ResolverCacheTTL is how long resolved hostnames are cached
func (c *Config) ResolverCacheTTL() time.Duration {
	return durationOr(c.Resolver.CacheTTL, 10*time.Minute)
}

// MDNSTimeout is how long multicast DNS browsing runs per discovery
func (c *Config) MDNSTimeout() time.Duration {
	return durationOr(c.Resolver.MDNSTimeout, 3*time.Second)
}

// PTRTimeout bounds each reverse DNS query
func (c *Config) PTRTimeout() time.Duration {
	return durationOr(c.Resolver.PTRTimeout, time.Second)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	mode := c.EffectiveMode()
	behavior := c.EffectiveBehavior()

	summary := fmt.Sprintf("Mode: %s, Posture: %s\n", mode, c.Posture)
	summary += fmt.Sprintf("Probe timeout: %s, Concurrency: %d, Max hops: %d\n",
		behavior.ProbeTimeout, behavior.MaxConcurrentProbes, behavior.MaxHops)
	summary += "Enabled capabilities:"
	for _, cap := range c.Capabilities.ListCapabilities() {
		if cap.Enabled && mode.Allows(cap.MinMode) {
			summary += fmt.Sprintf(" %s", cap.Name)
		}
	}

	return summary
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
