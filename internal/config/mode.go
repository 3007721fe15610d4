package config

import "time"

// Mode defines the capability ceiling of the process
type Mode string

const (
	ModePassive   Mode = "passive"   // HTTP server only, discovery runs refused
	ModeMonitor   Mode = "monitor"   // + TCP probing, neighbor table, hostname resolution
	ModeDiscovery Mode = "discovery" // + traceroute, nmap, SNMP, ICMP sweep
)

// ParseMode converts a string to Mode, defaulting to ModeDiscovery
func ParseMode(s string) Mode {
	switch s {
	case "passive":
		return ModePassive
	case "monitor":
		return ModeMonitor
	case "discovery":
		return ModeDiscovery
	default:
		return ModeDiscovery
	}
}

// Level returns numeric level for comparison (higher = more capabilities)
func (m Mode) Level() int {
	switch m {
	case ModePassive:
		return 0
	case ModeMonitor:
		return 1
	case ModeDiscovery:
		return 2
	default:
		return 2
	}
}

// Allows returns true if this mode allows the given mode's capabilities
func (m Mode) Allows(required Mode) bool {
	return m.Level() >= required.Level()
}

// Posture defines behavioral aggressiveness
type Posture string

const (
	PostureStealth    Posture = "stealth"    // Minimal footprint, slow, few parallel probes
	PostureCautious   Posture = "cautious"   // Conservative, gentle on small devices
	PostureBalanced   Posture = "balanced"   // Default home/office behavior
	PostureAggressive Posture = "aggressive" // Fast, wide fan-out
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "stealth":
		return PostureStealth
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// BehaviorProfile defines timing and concurrency settings of a discovery run
type BehaviorProfile struct {
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	SweepTimeout        time.Duration `yaml:"sweep_timeout"`
	HopTimeout          time.Duration `yaml:"hop_timeout"`
	MaxConcurrentProbes int           `yaml:"max_concurrent_probes"`
	MaxConcurrentSweeps int           `yaml:"max_concurrent_sweeps"`
	MaxHops             int           `yaml:"max_hops"`
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureStealth: {
		ProbeTimeout:        3 * time.Second,
		SweepTimeout:        500 * time.Millisecond,
		HopTimeout:          3 * time.Second,
		MaxConcurrentProbes: 4,
		MaxConcurrentSweeps: 8,
		MaxHops:             15,
	},
	PostureCautious: {
		ProbeTimeout:        2 * time.Second,
		SweepTimeout:        300 * time.Millisecond,
		HopTimeout:          2 * time.Second,
		MaxConcurrentProbes: 16,
		MaxConcurrentSweeps: 32,
		MaxHops:             20,
	},
	PostureBalanced: {
		ProbeTimeout:        1 * time.Second,
		SweepTimeout:        150 * time.Millisecond,
		HopTimeout:          1 * time.Second,
		MaxConcurrentProbes: 32,
		MaxConcurrentSweeps: 128,
		MaxHops:             30,
	},
	PostureAggressive: {
		ProbeTimeout:        500 * time.Millisecond,
		SweepTimeout:        100 * time.Millisecond,
		HopTimeout:          500 * time.Millisecond,
		MaxConcurrentProbes: 128,
		MaxConcurrentSweeps: 256,
		MaxHops:             30,
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
