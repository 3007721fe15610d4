package adapter

import "time"

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		n.timeout = d
	}
}

// WithPortRange sets the ports to scan
// Format: "80,443,8080" or "1-1000" or "22,80-443,8080"
func WithPortRange(ports string) NmapOption {
	return func(n *NmapScanner) {
		if validated, err := parsePorts(ports); err == nil {
			n.portRange = validated
		}
	}
}

// WithPorts sets the ports to scan from a port list
func WithPorts(ports []uint16) NmapOption {
	return WithPortRange(joinPorts(ports))
}

// WithServiceDetection enables or disables service version detection (-sV)
func WithServiceDetection(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.serviceDetection = enabled
	}
}

// WithOSDetection enables or disables OS detection (-O)
// Note: OS detection requires root privileges
func WithOSDetection(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.osDetection = enabled
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
// Useful for networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapScanner) {
		n.skipHostDiscovery = skip
	}
}

// WithPublisher sets the event publisher for per-host progress
func WithPublisher(pub EventPublisher) NmapOption {
	return func(n *NmapScanner) {
		n.publisher = pub
	}
}

// WithFastScan enables fast scan mode (fewer ports, quicker results)
func WithFastScan() NmapOption {
	return func(n *NmapScanner) {
		n.portRange = "22,80,443"
		n.serviceDetection = false
		n.timeout = 2 * time.Minute
	}
}

// WithAggressiveScan enables aggressive scan mode (more ports, service detection, OS detection)
// Note: Requires root for OS detection
func WithAggressiveScan() NmapOption {
	return func(n *NmapScanner) {
		n.portRange = "1-65535"
		n.serviceDetection = true
		n.osDetection = true
		n.timeout = 30 * time.Minute
	}
}
