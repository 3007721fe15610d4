package domain

import (
	"net/netip"
	"slices"
	"sort"
)

// OSInfo is an operating system guess with an accuracy percentage
type OSInfo struct {
	Family   string `json:"os_family"`
	Accuracy int    `json:"accuracy"`
}

// ProbedHost is a host that answered on at least one probed port.
// Empty strings stand for unknown optional fields.
type ProbedHost struct {
	IP         string     `json:"ip"`
	Ports      []uint16   `json:"ports"`
	Hostname   string     `json:"hostname,omitempty"`
	MAC        string     `json:"mac,omitempty"`
	Vendor     string     `json:"vendor,omitempty"`
	OS         *OSInfo    `json:"os_info,omitempty"`
	DeviceType DeviceType `json:"device_type"`
	IsGateway  bool       `json:"is_gateway"`
}

// NewProbedHost creates a host record with a normalized port set
func NewProbedHost(ip string, ports []uint16) *ProbedHost {
	h := &ProbedHost{IP: ip}
	h.AddPorts(ports...)
	return h
}

// AddPorts merges ports into the host, keeping them unique and sorted
func (h *ProbedHost) AddPorts(ports ...uint16) {
	merged := append(slices.Clone(h.Ports), ports...)
	slices.Sort(merged)
	h.Ports = slices.Compact(merged)
	if h.Ports == nil {
		h.Ports = []uint16{}
	}
}

// HasPort reports whether the port is open on the host
func (h *ProbedHost) HasPort(port uint16) bool {
	_, found := slices.BinarySearch(h.Ports, port)
	return found
}

// Merge fills fields that are still unset from other. Ports are unioned;
// every other field keeps its first-written value.
func (h *ProbedHost) Merge(other *ProbedHost) {
	if other == nil {
		return
	}
	h.AddPorts(other.Ports...)
	if h.Hostname == "" {
		h.Hostname = other.Hostname
	}
	if h.MAC == "" {
		h.MAC = other.MAC
	}
	if h.Vendor == "" {
		h.Vendor = other.Vendor
	}
	if h.OS == nil && other.OS != nil {
		os := *other.OS
		h.OS = &os
	}
	if h.DeviceType == DeviceUnknown {
		h.DeviceType = other.DeviceType
	}
	h.IsGateway = h.IsGateway || other.IsGateway
}

// ArpEntryType is the kind of neighbor-table entry
type ArpEntryType string

const (
	ArpDynamic ArpEntryType = "dynamic"
	ArpStatic  ArpEntryType = "static"
	ArpUnknown ArpEntryType = "unknown"
)

// ArpEntry is one IP to MAC association from the OS neighbor table
type ArpEntry struct {
	IP   string       `json:"ip"`
	MAC  string       `json:"mac"`
	Type ArpEntryType `json:"entry_type"`
}

// Hop is one TTL step of a traceroute. An empty IP with IsTimeout set
// is a hop that never answered.
type Hop struct {
	Number    int    `json:"hop_number"`
	IP        string `json:"ip,omitempty"`
	LatencyUS *int64 `json:"latency_us,omitempty"`
	IsPrivate bool   `json:"is_private"`
	IsTimeout bool   `json:"is_timeout"`
}

// LatencyMS returns the hop latency in milliseconds, if measured
func (h Hop) LatencyMS() (float64, bool) {
	if h.LatencyUS == nil {
		return 0, false
	}
	return float64(*h.LatencyUS) / 1000.0, true
}

// TracerouteResult is the ordered hop list toward one target
type TracerouteResult struct {
	Target      string `json:"target"`
	Hops        []Hop  `json:"hops"`
	Completed   bool   `json:"completed"`
	TotalTimeMS int64  `json:"total_time_ms"`
}

// RunStats counts the work scheduled during a discovery run
type RunStats struct {
	ProbesStarted      int  `json:"probes_started"`
	SweepsStarted      int  `json:"sweeps_started"`
	TraceroutesStarted int  `json:"traceroutes_started"`
	Cancelled          bool `json:"cancelled"`
}

// TasksStarted is the total number of per-host tasks that were scheduled
func (s RunStats) TasksStarted() int {
	return s.ProbesStarted + s.SweepsStarted + s.TraceroutesStarted
}

// DiscoveryResult is the output of one discovery run
type DiscoveryResult struct {
	RunID       string                 `json:"run_id,omitempty"`
	ArpEntries  []ArpEntry             `json:"arp_entries"`
	ProbedHosts map[string]*ProbedHost `json:"probed_hosts"`
	Traceroutes []TracerouteResult     `json:"traceroutes"`
	Stats       RunStats               `json:"stats"`
}

// NewDiscoveryResult creates an empty result
func NewDiscoveryResult() *DiscoveryResult {
	return &DiscoveryResult{
		ArpEntries:  []ArpEntry{},
		ProbedHosts: make(map[string]*ProbedHost),
		Traceroutes: []TracerouteResult{},
	}
}

// MergeHost records a host, filling fields of an existing record first-write-wins
func (r *DiscoveryResult) MergeHost(h *ProbedHost) {
	if h == nil || h.IP == "" {
		return
	}
	if existing, ok := r.ProbedHosts[h.IP]; ok {
		existing.Merge(h)
		return
	}
	r.ProbedHosts[h.IP] = h
}

// ArpMAC returns the MAC recorded for ip in the ARP entries
func (r *DiscoveryResult) ArpMAC(ip string) (string, bool) {
	for _, e := range r.ArpEntries {
		if e.IP == ip {
			return e.MAC, true
		}
	}
	return "", false
}

// SortedHosts returns the probed hosts ordered by numeric IP
func (r *DiscoveryResult) SortedHosts() []*ProbedHost {
	hosts := make([]*ProbedHost, 0, len(r.ProbedHosts))
	for _, h := range r.ProbedHosts {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool {
		return CompareIP(hosts[i].IP, hosts[j].IP) < 0
	})
	return hosts
}

// CompareIP orders addresses numerically, falling back to string order
// for values that do not parse.
func CompareIP(a, b string) int {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA == nil && errB == nil {
		return pa.Compare(pb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// IsPrivateIP reports whether ip is in a private, loopback or link-local range
func IsPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

// LastOctet returns the final IPv4 octet of ip
func LastOctet(ip string) (byte, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return b[3], true
}

func (t ArpEntryType) String() string { return string(t) }
