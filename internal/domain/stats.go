package domain

// HighRiskThreshold is the risk score at or above which a host counts as high risk
const HighRiskThreshold = 50

// TopologyStats summarizes a topology graph by coarse category
type TopologyStats struct {
	NodeCount      int                    `json:"node_count"`
	EdgeCount      int                    `json:"edge_count"`
	Infrastructure int                    `json:"infrastructure"`
	Endpoints      int                    `json:"endpoints"`
	IoT            int                    `json:"iot"`
	Unknown        int                    `json:"unknown"`
	HighRisk       int                    `json:"high_risk"`
	ByDeviceType   map[DeviceType]int     `json:"by_device_type"`
	ByConnection   map[ConnectionType]int `json:"by_connection"`
}

// NewTopologyStats creates empty stats with initialized maps
func NewTopologyStats() TopologyStats {
	return TopologyStats{
		ByDeviceType: make(map[DeviceType]int),
		ByConnection: make(map[ConnectionType]int),
	}
}
