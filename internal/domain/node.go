package domain

import "time"

// InternetIP is the reserved address of the Internet sentinel node
const InternetIP = "0.0.0.0"

// PortInfo describes one open port on a node
type PortInfo struct {
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
	Service  string `json:"service,omitempty"`
}

// GeoLocation is a geographic position for a public address
type GeoLocation struct {
	Country   string  `json:"country,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the record carries no information
func (g GeoLocation) IsZero() bool {
	return g.Country == "" && g.City == "" && g.Latitude == 0 && g.Longitude == 0
}

// NodeData is a vertex of the topology graph
type NodeData struct {
	IP          string       `json:"ip"`
	MAC         string       `json:"mac,omitempty"`
	Hostname    string       `json:"hostname,omitempty"`
	Vendor      string       `json:"vendor,omitempty"`
	DeviceType  DeviceType   `json:"device_type"`
	Ports       []PortInfo   `json:"ports"`
	RiskScore   uint8        `json:"risk_score"`
	GeoLocation *GeoLocation `json:"geo_location,omitempty"`
	FirstSeen   time.Time    `json:"first_seen"`
	LastSeen    time.Time    `json:"last_seen"`
}

// NewNodeData creates a node with both timestamps set to now
func NewNodeData(ip string, deviceType DeviceType, now time.Time) NodeData {
	return NodeData{
		IP:         ip,
		DeviceType: deviceType,
		Ports:      []PortInfo{},
		FirstSeen:  now,
		LastSeen:   now,
	}
}

// NewInternetNode creates the Internet sentinel
func NewInternetNode(now time.Time) NodeData {
	n := NewNodeData(InternetIP, DeviceInternet, now)
	n.Hostname = "Internet"
	return n
}

// IsInternet reports whether the node is the Internet sentinel
func (n *NodeData) IsInternet() bool {
	return n.IP == InternetIP
}

// Label returns the hostname when known, otherwise the IP
func (n *NodeData) Label() string {
	if n.Hostname != "" {
		return n.Hostname
	}
	return n.IP
}

// PortNumbers returns the bare port numbers of the node
func (n *NodeData) PortNumbers() []uint16 {
	out := make([]uint16, 0, len(n.Ports))
	for _, p := range n.Ports {
		out = append(out, p.Port)
	}
	return out
}

// PortInfos builds PortInfo records for TCP ports
func PortInfos(ports []uint16) []PortInfo {
	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{Port: p, Protocol: "tcp", Service: ServiceName(p)})
	}
	return out
}
