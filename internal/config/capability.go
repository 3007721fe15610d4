package config

// CapabilityConfig defines settings for a single optional capability
type CapabilityConfig struct {
	Enabled bool `yaml:"enabled"`
	MinMode Mode `yaml:"min_mode,omitempty"` // Minimum mode required
}

// CapabilitiesConfig holds the optional discovery collaborators
type CapabilitiesConfig struct {
	Traceroute CapabilityConfig `yaml:"traceroute"`
	ICMPSweep  CapabilityConfig `yaml:"icmp_sweep"`
	Nmap       CapabilityConfig `yaml:"nmap"`
	MDNS       CapabilityConfig `yaml:"mdns"`
	PTR        CapabilityConfig `yaml:"ptr"`
	SNMP       CapabilityConfig `yaml:"snmp"`
}

// DefaultCapabilities returns the default capability configuration
func DefaultCapabilities() CapabilitiesConfig {
	return CapabilitiesConfig{
		Traceroute: CapabilityConfig{Enabled: true, MinMode: ModeDiscovery},
		ICMPSweep:  CapabilityConfig{Enabled: false, MinMode: ModeDiscovery}, // Needs raw sockets
		Nmap:       CapabilityConfig{Enabled: false, MinMode: ModeDiscovery}, // Requires nmap binary
		MDNS:       CapabilityConfig{Enabled: true, MinMode: ModeMonitor},
		PTR:        CapabilityConfig{Enabled: true, MinMode: ModeMonitor},
		SNMP:       CapabilityConfig{Enabled: false, MinMode: ModeDiscovery},
	}
}

// CapabilityInfo provides runtime info about a capability
type CapabilityInfo struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	MinMode     Mode   `json:"min_mode"`
	Description string `json:"description"`
}

// ListCapabilities returns info about all capabilities
func (c *CapabilitiesConfig) ListCapabilities() []CapabilityInfo {
	return []CapabilityInfo{
		{
			Name:        "traceroute",
			Enabled:     c.Traceroute.Enabled,
			MinMode:     c.Traceroute.MinMode,
			Description: "UDP/TTL path discovery to responsive hosts",
		},
		{
			Name:        "icmp_sweep",
			Enabled:     c.ICMPSweep.Enabled,
			MinMode:     c.ICMPSweep.MinMode,
			Description: "ICMP echo during the warm-up sweep",
		},
		{
			Name:        "nmap",
			Enabled:     c.Nmap.Enabled,
			MinMode:     c.Nmap.MinMode,
			Description: "Port scanning via the nmap binary",
		},
		{
			Name:        "mdns",
			Enabled:     c.MDNS.Enabled,
			MinMode:     c.MDNS.MinMode,
			Description: "Hostnames from multicast DNS announcements",
		},
		{
			Name:        "ptr",
			Enabled:     c.PTR.Enabled,
			MinMode:     c.PTR.MinMode,
			Description: "Hostnames from reverse DNS",
		},
		{
			Name:        "snmp",
			Enabled:     c.SNMP.Enabled,
			MinMode:     c.SNMP.MinMode,
			Description: "sysName/sysDescr of gateway candidates",
		},
	}
}

// IsEnabled checks if a capability is enabled for the given mode
func (c *CapabilitiesConfig) IsEnabled(name string, currentMode Mode) bool {
	for _, cap := range c.ListCapabilities() {
		if cap.Name == name {
			return cap.Enabled && currentMode.Allows(cap.MinMode)
		}
	}
	return false
}
