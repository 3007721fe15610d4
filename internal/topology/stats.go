package topology

import "lanscope/internal/domain"

// Stats summarizes the graph by coarse category. The Internet node counts
// toward NodeCount only.
func Stats(g *Graph) domain.TopologyStats {
	s := domain.NewTopologyStats()
	s.NodeCount = g.NodeCount()
	s.EdgeCount = g.EdgeCount()

	for _, n := range g.nodes {
		if n.IsInternet() {
			continue
		}
		s.ByDeviceType[n.DeviceType]++
		switch {
		case n.DeviceType.IsInfrastructure():
			s.Infrastructure++
		case n.DeviceType.IsIoT():
			s.IoT++
		case n.DeviceType == domain.DeviceUnknown:
			s.Unknown++
		default:
			s.Endpoints++
		}
		if n.RiskScore >= domain.HighRiskThreshold {
			s.HighRisk++
		}
	}

	for _, e := range g.edges {
		s.ByConnection[e.Data.Type]++
	}
	return s
}
