package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/jackpal/gateway"
)

var (
	ErrInvalidCIDR = errors.New("invalid cidr")
	ErrIPv4Only    = errors.New("only IPv4 ranges are supported")
	ErrNoSubnet    = errors.New("no local subnet detected")
)

// MaxTargets caps the number of addresses probed in one run
const MaxTargets = 256

// ExpandSubnet returns the addresses of an IPv4 CIDR, network and broadcast
// included, in ascending order. A bare address expands to itself. Larger
// ranges are cut to their first MaxTargets addresses.
func ExpandSubnet(cidr string) ([]string, error) {
	ips, _, err := expandSubnet(cidr)
	return ips, err
}

// expandSubnet also reports how many addresses the cap left out
func expandSubnet(cidr string) ([]string, int, error) {
	raw := strings.TrimSpace(cidr)
	if raw == "" {
		return nil, 0, fmt.Errorf("%w: empty", ErrInvalidCIDR)
	}
	if !strings.Contains(raw, "/") {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidCIDR, err)
		}
		if !addr.Is4() {
			return nil, 0, ErrIPv4Only
		}
		return []string{addr.String()}, 0, nil
	}

	prefix, err := netip.ParsePrefix(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidCIDR, err)
	}
	if !prefix.Addr().Is4() {
		return nil, 0, ErrIPv4Only
	}
	prefix = prefix.Masked()

	total := uint64(1) << (32 - prefix.Bits())
	limit := min(total, MaxTargets)

	ips := make([]string, 0, limit)
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		ips = append(ips, addr.String())
		if uint64(len(ips)) == limit {
			break
		}
	}
	return ips, int(total - limit), nil
}

// DetectLocalSubnet infers the /24 of the primary outbound interface. No
// packet is sent; the UDP dial only selects a route.
func DetectLocalSubnet() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSubnet, err)
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", ErrNoSubnet
	}
	return subnetFor(local.IP)
}

func subnetFor(ip net.IP) (string, error) {
	ip4 := ip.To4()
	if ip4 == nil || ip4.IsLoopback() {
		return "", ErrNoSubnet
	}
	return fmt.Sprintf("%d.%d.%d.0/24", ip4[0], ip4[1], ip4[2]), nil
}

// DefaultGateway returns the OS default gateway address
func DefaultGateway() (string, error) {
	ip, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	return ip.String(), nil
}
