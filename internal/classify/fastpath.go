package classify

import (
	"lanscope/internal/domain"
)

// osSignature maps a single open port to an OS family guess
type osSignature struct {
	port     uint16
	family   string
	accuracy int
}

var osSignatures = []osSignature{
	{22, "Linux/Unix", 70},
	{3389, "Windows", 80},
	{135, "Windows", 65},
	{445, "Windows", 60},
	{548, "macOS", 60},
	{62078, "iOS", 85},
	{5555, "Android", 70},
}

// GuessOS returns the most accurate OS family suggested by the open ports,
// or nil if no signature matches.
func GuessOS(ports []uint16) *domain.OSInfo {
	var best *domain.OSInfo
	for _, sig := range osSignatures {
		if !hasPort(ports, sig.port) {
			continue
		}
		if best == nil || sig.accuracy > best.Accuracy {
			best = &domain.OSInfo{Family: sig.family, Accuracy: sig.accuracy}
		}
	}
	return best
}

// FastClassify is the cheap single-signal classifier used by the prober.
// It checks a handful of unambiguous ports in priority order.
func FastClassify(ports []uint16) domain.DeviceType {
	switch {
	case hasPort(ports, 9100), hasPort(ports, 515), hasPort(ports, 631):
		return domain.DevicePrinter
	case hasPort(ports, 554):
		return domain.DeviceCamera
	case hasPort(ports, 62078):
		return domain.DevicePhone
	case hasPort(ports, 8006):
		return domain.DeviceHypervisor
	case hasPort(ports, 53):
		return domain.DeviceDNS
	case hasPort(ports, 3389):
		return domain.DeviceWorkstation
	case hasPort(ports, 22), hasPort(ports, 80), hasPort(ports, 443):
		return domain.DeviceServer
	}
	return domain.DeviceUnknown
}

// IsLikelyGateway flags addresses whose last IPv4 octet is 1 or 254.
// It deliberately ignores ports and hostname.
func IsLikelyGateway(ip string) bool {
	octet, ok := domain.LastOctet(ip)
	return ok && (octet == 1 || octet == 254)
}

func hasPort(ports []uint16, port uint16) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}
