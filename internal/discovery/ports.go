package discovery

// DefaultCandidatePorts is the port set checked by the full host probe
var DefaultCandidatePorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 135, 139, 143,
	161, 443, 445, 515, 548, 554, 631, 993, 995, 1433,
	1883, 1900, 3306, 3389, 5000, 5001, 5060, 5351, 5432, 5900,
	6379, 8006, 8008, 8009, 8080, 8443, 9100, 27017, 32400, 62078,
}

// SweepPorts is the small always-probed set used to populate the neighbor cache
var SweepPorts = []uint16{22, 80, 443, 445}
