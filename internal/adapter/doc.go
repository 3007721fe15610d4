// Package adapter implements the external collaborators of a discovery run.
//
// Each adapter satisfies one of the small interfaces declared by the
// discovery and topology packages, so the orchestrator and builder never
// depend on a concrete tool.
//
// # Port Scanning
//
// NmapScanner drives the nmap binary for a deeper port scan than the
// built-in TCP prober. Its per-host open ports and best OS match are merged
// into the run result; ports are unioned and the first OS guess wins.
//
// # Hostname Resolution
//
// MDNSResolver browses common multicast DNS service types and PTRResolver
// issues reverse lookups against a unicast DNS server. ChainResolver tries
// them in order and caches answers for a configurable TTL.
//
// # Reference Data
//
// VendorLookup and GeoLookup put an expiring cache in front of the SQLite
// reference store for MAC vendor and IPv4 geolocation lookups.
//
// # Event System
//
// Adapters publish discovery progress through an EventPublisher so the UI
// gets per-host feedback while a scan is still running.
package adapter
