package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version      int                `yaml:"version"`
	Mode         *Mode              `yaml:"mode,omitempty"` // nil = discovery
	Posture      Posture            `yaml:"posture"`
	Behavior     *BehaviorOverride  `yaml:"behavior,omitempty"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Layout       LayoutConfig       `yaml:"layout"`
	Reference    ReferenceConfig    `yaml:"reference"`
	Resolver     ResolverConfig     `yaml:"resolver"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	ProbeTimeout        *Duration `yaml:"probe_timeout,omitempty"`
	SweepTimeout        *Duration `yaml:"sweep_timeout,omitempty"`
	HopTimeout          *Duration `yaml:"hop_timeout,omitempty"`
	MaxConcurrentProbes *int      `yaml:"max_concurrent_probes,omitempty"`
	MaxConcurrentSweeps *int      `yaml:"max_concurrent_sweeps,omitempty"`
	MaxHops             *int      `yaml:"max_hops,omitempty"`
}

// DiscoveryConfig holds the scan target and port lists
type DiscoveryConfig struct {
	Subnet         string   `yaml:"subnet,omitempty"` // empty = detect from the primary interface
	CandidatePorts []uint16 `yaml:"candidate_ports,omitempty"`
	SweepPorts     []uint16 `yaml:"sweep_ports,omitempty"`
	SNMPCommunity  string   `yaml:"snmp_community,omitempty"`
	NmapPorts      string   `yaml:"nmap_ports,omitempty"` // nmap -p syntax
}

// LayoutConfig overrides layout physics; nil fields keep engine defaults
type LayoutConfig struct {
	Strategy       string   `yaml:"strategy,omitempty"`
	MaxIterations  *int     `yaml:"max_iterations,omitempty"`
	Threshold      *float64 `yaml:"threshold,omitempty"`
	Repulsion      *float64 `yaml:"repulsion,omitempty"`
	SpringLength   *float64 `yaml:"spring_length,omitempty"`
	SpringStrength *float64 `yaml:"spring_strength,omitempty"`
	Gravity        *float64 `yaml:"gravity,omitempty"`
	Damping        *float64 `yaml:"damping,omitempty"`
	Theta          *float64 `yaml:"theta,omitempty"`
	PreventOverlap *bool    `yaml:"prevent_overlap,omitempty"`
	Seed           *uint64  `yaml:"seed,omitempty"`
}

// ReferenceConfig locates the vendor and geolocation store
type ReferenceConfig struct {
	Path     string    `yaml:"path"`
	OUIFile  string    `yaml:"oui_file,omitempty"` // CSV imported at startup
	GeoFile  string    `yaml:"geo_file,omitempty"` // CSV imported at startup
	CacheTTL *Duration `yaml:"cache_ttl,omitempty"`
}

// ResolverConfig holds hostname resolution settings
type ResolverConfig struct {
	MDNSTimeout *Duration `yaml:"mdns_timeout,omitempty"`
	PTRServer   string    `yaml:"ptr_server,omitempty"` // empty = resolv.conf
	PTRTimeout  *Duration `yaml:"ptr_timeout,omitempty"`
	CacheTTL    *Duration `yaml:"cache_ttl,omitempty"`
}

// ClassifierConfig points at an optional rule table
type ClassifierConfig struct {
	RulesFile string `yaml:"rules_file,omitempty"` // empty = built-in rules
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// durationOr returns the override when set, else def
func durationOr(d *Duration, def time.Duration) time.Duration {
	if d == nil {
		return def
	}
	return d.Duration()
}
