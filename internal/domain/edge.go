package domain

// ConnectionType is how an edge was learned
type ConnectionType string

const (
	ConnectionLocalSubnet   ConnectionType = "local_subnet"
	ConnectionTracerouteHop ConnectionType = "traceroute_hop"
	ConnectionInferred      ConnectionType = "inferred"
	ConnectionManual        ConnectionType = "manual"
	ConnectionUnknown       ConnectionType = "unknown"
)

// EdgeData is the payload of an undirected topology edge
type EdgeData struct {
	Type      ConnectionType `json:"connection_type"`
	LatencyMS *float64       `json:"latency_ms,omitempty"`
	HopCount  *int           `json:"hop_count,omitempty"`
}

// NewEdgeData creates edge data of the given type
func NewEdgeData(t ConnectionType) EdgeData {
	return EdgeData{Type: t}
}

// WithLatency sets the latency in milliseconds
func (e EdgeData) WithLatency(ms float64) EdgeData {
	e.LatencyMS = &ms
	return e
}

// WithHopCount sets the hop count
func (e EdgeData) WithHopCount(n int) EdgeData {
	e.HopCount = &n
	return e
}
