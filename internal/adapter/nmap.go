package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/sirupsen/logrus"

	"lanscope/internal/classify"
	"lanscope/internal/discovery"
	"lanscope/internal/domain"
)

// NmapScanner runs nmap against the run's targets and reports open ports
type NmapScanner struct {
	timeout           time.Duration
	portRange         string
	serviceDetection  bool
	osDetection       bool
	skipHostDiscovery bool
	publisher         EventPublisher
	log               *logrus.Entry
}

// NewNmapScanner creates an nmap-backed port scanner
func NewNmapScanner(opts ...NmapOption) *NmapScanner {
	scanner := &NmapScanner{
		timeout:           10 * time.Minute,
		portRange:         joinPorts(discovery.DefaultCandidatePorts),
		serviceDetection:  false,
		osDetection:       false, // Requires root
		skipHostDiscovery: true,
		log:               logrus.WithField("component", "nmap"),
	}

	for _, opt := range opts {
		opt(scanner)
	}

	return scanner
}

// Available checks that the nmap binary can run
func (n *NmapScanner) Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}

	_, _, err = scanner.Run()
	return err == nil
}

// Scan runs one nmap invocation over all targets. Hosts without open ports
// are left out of the result.
func (n *NmapScanner) Scan(ctx context.Context, targets []string) ([]*domain.ProbedHost, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.publish(EventScanStarted, map[string]any{
		"total":   len(targets),
		"message": fmt.Sprintf("Starting nmap scan of %d targets", len(targets)),
		"phase":   "nmap_scan",
	})

	scanner, err := nmap.NewScanner(ctx, n.scanOptions(targets)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.log.Infof("Nmap: scanning %d targets (ports=%s)", len(targets), n.portRange)
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		n.log.Debugf("Nmap: warnings: %v", *warnings)
	}

	hosts, err := n.processResults(result)
	if err != nil {
		return nil, err
	}

	n.publish(EventScanComplete, map[string]any{
		"total":      len(targets),
		"discovered": len(hosts),
		"message":    fmt.Sprintf("Nmap scan complete: %d hosts with open ports", len(hosts)),
	})
	n.log.Infof("Nmap: scan complete, %d hosts with open ports", len(hosts))
	return hosts, nil
}

func (n *NmapScanner) scanOptions(targets []string) []nmap.Option {
	opts := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPorts(n.portRange),
	}
	if n.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	if n.osDetection {
		opts = append(opts, nmap.WithOSDetection())
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}
	return opts
}

func (n *NmapScanner) publish(eventType string, payload any) {
	if n.publisher != nil {
		n.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// processResults converts nmap hosts that are up and have open ports
func (n *NmapScanner) processResults(result *nmap.Run) ([]*domain.ProbedHost, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	var hosts []*domain.ProbedHost
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}
		h := hostFromNmap(host)
		if h == nil {
			continue
		}

		n.publish(EventHostScanned, map[string]any{
			"ip":      h.IP,
			"ports":   h.Ports,
			"message": fmt.Sprintf("Discovered %s: %d open ports", h.IP, len(h.Ports)),
			"phase":   "nmap_scan",
		})
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// hostFromNmap converts one nmap host, or returns nil when it has no IPv4
// address or no open ports
func hostFromNmap(host nmap.Host) *domain.ProbedHost {
	var ip string
	for _, addr := range host.Addresses {
		if addr.AddrType == "ipv4" {
			ip = addr.Addr
			break
		}
	}
	if ip == "" {
		return nil
	}

	var open []uint16
	for _, port := range host.Ports {
		if port.State.State == "open" && port.Protocol == "tcp" {
			open = append(open, port.ID)
		}
	}
	if len(open) == 0 {
		return nil
	}

	h := domain.NewProbedHost(ip, open)
	for _, addr := range host.Addresses {
		if addr.AddrType != "mac" {
			continue
		}
		if mac, ok := discovery.NormalizeMAC(addr.Addr); ok {
			h.MAC = mac
			h.Vendor = addr.Vendor
		}
	}
	if len(host.Hostnames) > 0 {
		h.Hostname = strings.TrimSuffix(host.Hostnames[0].Name, ".")
	}
	h.OS = extractOSInfo(host.OS)
	h.DeviceType = classify.FastClassify(h.Ports)
	return h
}

// extractOSInfo returns the best OS match, preferring its class family
func extractOSInfo(os nmap.OS) *domain.OSInfo {
	if len(os.Matches) == 0 {
		return nil
	}
	match := os.Matches[0]
	family := match.Name
	for _, class := range match.Classes {
		if class.Family != "" {
			family = class.Family
			break
		}
	}
	return &domain.OSInfo{Family: family, Accuracy: int(match.Accuracy)}
}

// joinPorts formats a port list for nmap's -p flag
func joinPorts(ports []uint16) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, strconv.Itoa(int(p)))
	}
	return strings.Join(parts, ",")
}

// parsePorts validates a port range string in nmap format
func parsePorts(portRange string) (string, error) {
	// Supported: "80,443,8080" or "1-1000" or "22,80-443,8080"
	if strings.TrimSpace(portRange) == "" {
		return "", fmt.Errorf("empty port range")
	}
	parts := strings.Split(portRange, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return "", fmt.Errorf("invalid port range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[1])
			}
		} else {
			port, err := strconv.Atoi(part)
			if err != nil || port < 1 || port > 65535 {
				return "", fmt.Errorf("invalid port number: %s", part)
			}
		}
	}
	return portRange, nil
}
