// Package domain defines the core data model for lanscope network discovery.
//
// # Discovery
//
// ProbedHost, ArpEntry, Hop and TracerouteResult are the single-shot records
// produced by one discovery run and collected in a DiscoveryResult. They are
// discarded once the topology graph has been built.
//
// # Topology
//
// NodeData and EdgeData are the vertex and edge payloads of the topology graph.
// Exactly one node exists per IP; the Internet is represented by a sentinel
// node at InternetIP.
//
// DeviceType is a closed enumeration of host roles. Presentation metadata
// (label, color, icon) is kept in a table indexed by the enumeration.
//
// # Layout
//
// Position is a 2D coordinate produced by the layout engine. CancelToken is the
// cooperative cancellation flag shared by discovery runs and layout engines.
package domain
