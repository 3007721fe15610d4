package topology

import (
	"time"

	"github.com/sirupsen/logrus"

	"lanscope/internal/classify"
	"lanscope/internal/domain"
)

// Classifier assigns a device role to a host
type Classifier interface {
	Classify(ports []uint16, hostname, osFamily string) (domain.DeviceType, float64)
}

// VendorLookup resolves a MAC address to a vendor name
type VendorLookup interface {
	LookupVendor(mac string) (string, bool)
}

// GeoLocator resolves a public IP to a location
type GeoLocator interface {
	Locate(ip string) (domain.GeoLocation, bool)
}

// Builder turns a DiscoveryResult into a Graph
type Builder struct {
	classifier Classifier
	vendors    VendorLookup
	geo        GeoLocator
	now        func() time.Time
	log        *logrus.Entry
}

// Option configures a Builder
type Option func(*Builder)

// WithVendorLookup sets the MAC vendor resolver
func WithVendorLookup(v VendorLookup) Option {
	return func(b *Builder) { b.vendors = v }
}

// WithGeoLocator sets the geolocation source
func WithGeoLocator(g GeoLocator) Option {
	return func(b *Builder) { b.geo = g }
}

// WithClock overrides the timestamp source for FirstSeen/LastSeen
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger used for build summaries
func WithLogger(l *logrus.Entry) Option {
	return func(b *Builder) { b.log = l }
}

// NewBuilder creates a builder. A nil classifier uses the default rule set.
func NewBuilder(c Classifier, opts ...Option) *Builder {
	if c == nil {
		c = classify.New(nil)
	}
	b := &Builder{
		classifier: c,
		now:        time.Now,
		log:        logrus.WithField("component", "topology"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs the topology graph. It is a pure function of the result
// and the builder's collaborators, apart from timestamps.
func (b *Builder) Build(result *domain.DiscoveryResult) *Graph {
	g := NewGraph()
	now := b.now()

	internet, _ := g.AddNode(domain.NewInternetNode(now))

	if result == nil {
		return g
	}

	b.addNeighbors(g, result, now)
	b.addHosts(g, result, internet, now)
	connectOrphans(g, internet)
	b.addTraceroutes(g, result, internet, now)

	b.log.WithFields(logrus.Fields{
		"nodes": g.NodeCount(),
		"edges": g.EdgeCount(),
	}).Debug("Topology: graph built")
	return g
}

// addNeighbors adds a node for every ARP entry with a known vendor
func (b *Builder) addNeighbors(g *Graph, result *domain.DiscoveryResult, now time.Time) {
	for _, e := range result.ArpEntries {
		vendor, ok := b.lookupVendor(e.MAC)
		if !ok {
			continue
		}
		dt := domain.DeviceUnknown
		if classify.IsLikelyGateway(e.IP) {
			dt = domain.DeviceRouter
		}
		node := domain.NewNodeData(e.IP, dt, now)
		node.MAC = e.MAC
		node.Vendor = vendor
		g.AddNode(node)
	}
}

func (b *Builder) addHosts(g *Graph, result *domain.DiscoveryResult, internet NodeIndex, now time.Time) {
	for _, h := range result.SortedHosts() {
		if octet, ok := domain.LastOctet(h.IP); ok && (octet == 0 || octet == 255) {
			continue
		}

		mac := h.MAC
		if mac == "" {
			mac, _ = result.ArpMAC(h.IP)
		}
		vendor := h.Vendor
		if vendor == "" && mac != "" {
			vendor, _ = b.lookupVendor(mac)
		}

		osFamily := ""
		if h.OS != nil {
			osFamily = h.OS.Family
		}
		dt, _ := b.classifier.Classify(h.Ports, h.Hostname, osFamily)

		gateway := classify.IsLikelyGateway(h.IP) || h.IsGateway
		switch {
		case gateway:
			dt = domain.DeviceRouter
		case dt == domain.DeviceRouter && h.HasPort(53):
			dt = domain.DeviceDNS
		case dt == domain.DeviceRouter:
			dt = domain.DeviceServer
		}

		idx, created := g.AddNode(domain.NewNodeData(h.IP, dt, now))
		node := g.Node(idx)
		if !created {
			node.DeviceType = dt
		}
		if node.MAC == "" {
			node.MAC = mac
		}
		if node.Vendor == "" {
			node.Vendor = vendor
		}
		if node.Hostname == "" {
			node.Hostname = h.Hostname
		}
		node.Ports = domain.PortInfos(h.Ports)
		node.RiskScore = RiskScore(h.Ports)
		if loc, ok := b.locate(h.IP); ok {
			node.GeoLocation = &loc
		}

		if classify.IsLikelyGateway(h.IP) {
			g.AddEdge(idx, internet, domain.NewEdgeData(domain.ConnectionInferred).WithHopCount(1))
		}
	}
}

func (b *Builder) addTraceroutes(g *Graph, result *domain.DiscoveryResult, internet NodeIndex, now time.Time) {
	for _, tr := range result.Traceroutes {
		prev := NodeIndex(InvalidIndex)
		linkedInternet := false

		for _, hop := range tr.Hops {
			if hop.IsTimeout || hop.IP == "" {
				continue
			}

			cur, found := g.Lookup(hop.IP)
			if !found {
				node := domain.NewNodeData(hop.IP, domain.DeviceRouter, now)
				if loc, ok := b.locate(hop.IP); ok {
					node.GeoLocation = &loc
				}
				cur, _ = g.AddNode(node)
			}

			if !hop.IsPrivate && !linkedInternet {
				g.AddEdge(cur, internet, domain.NewEdgeData(domain.ConnectionTracerouteHop))
				linkedInternet = true
			}

			if prev != InvalidIndex && prev != cur {
				data := domain.NewEdgeData(domain.ConnectionTracerouteHop).WithHopCount(hop.Number)
				if ms, ok := hop.LatencyMS(); ok {
					data = data.WithLatency(ms)
				}
				g.AddEdge(prev, cur, data)
			}
			prev = cur
		}
	}
}

// connectOrphans links every node without edges to a single hub: the first
// router or firewall, else the first .1 address, else the Internet node. A hub
// that has no edges of its own is first linked to the Internet node.
func connectOrphans(g *Graph, internet NodeIndex) {
	hub := findHub(g, internet)
	if hub != internet && g.Degree(hub) == 0 {
		g.AddEdge(hub, internet, domain.NewEdgeData(domain.ConnectionInferred))
	}
	for i := range g.nodes {
		idx := NodeIndex(i)
		if idx == hub || g.Degree(idx) > 0 {
			continue
		}
		g.AddEdge(idx, hub, domain.NewEdgeData(domain.ConnectionInferred))
	}
}

func findHub(g *Graph, internet NodeIndex) NodeIndex {
	for i, n := range g.nodes {
		if n.DeviceType == domain.DeviceRouter || n.DeviceType == domain.DeviceFirewall {
			return NodeIndex(i)
		}
	}
	for i, n := range g.nodes {
		if octet, ok := domain.LastOctet(n.IP); ok && octet == 1 {
			return NodeIndex(i)
		}
	}
	return internet
}

func (b *Builder) lookupVendor(mac string) (string, bool) {
	if b.vendors == nil || mac == "" {
		return "", false
	}
	v, ok := b.vendors.LookupVendor(mac)
	return v, ok && v != ""
}

// locate never consults the geo source for private addresses
func (b *Builder) locate(ip string) (domain.GeoLocation, bool) {
	if b.geo == nil || domain.IsPrivateIP(ip) || ip == domain.InternetIP {
		return domain.GeoLocation{}, false
	}
	loc, ok := b.geo.Locate(ip)
	if !ok || loc.IsZero() {
		return domain.GeoLocation{}, false
	}
	return loc, true
}
