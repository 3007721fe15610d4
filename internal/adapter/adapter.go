package adapter

import (
	"lanscope/internal/discovery"
	"lanscope/internal/topology"
)

// EventPublisher allows adapters to publish progress events
type EventPublisher interface {
	PublishDiscoveryEvent(eventType string, payload any)
}

// Discovery event types emitted by adapters
const (
	EventScanStarted  = "scan-started"
	EventHostScanned  = "host-scanned"
	EventScanComplete = "scan-complete"
)

var (
	_ discovery.PortScanner      = (*NmapScanner)(nil)
	_ discovery.HostnameResolver = (*ChainResolver)(nil)
	_ discovery.HostnameResolver = (*MDNSResolver)(nil)
	_ discovery.HostnameResolver = (*PTRResolver)(nil)
	_ topology.VendorLookup      = (*VendorLookup)(nil)
	_ topology.GeoLocator        = (*GeoLookup)(nil)
)
