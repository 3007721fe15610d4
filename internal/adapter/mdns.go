package adapter

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

// DefaultMDNSServices are the service types browsed for hostnames
var DefaultMDNSServices = []string{
	"_workstation._tcp",
	"_googlecast._tcp",
	"_airplay._tcp",
	"_printer._tcp",
	"_ipp._tcp",
	"_spotify-connect._tcp",
	"_hap._tcp", // HomeKit
	"_http._tcp",
	"_smb._tcp",
	"_ssh._tcp",
}

// MDNSResolver names hosts from multicast DNS service announcements
type MDNSResolver struct {
	Timeout  time.Duration
	Services []string
	log      *logrus.Entry
}

// NewMDNSResolver creates a resolver that browses for timeout
func NewMDNSResolver(timeout time.Duration) *MDNSResolver {
	return &MDNSResolver{
		Timeout:  timeout,
		Services: DefaultMDNSServices,
		log:      logrus.WithField("component", "mdns"),
	}
}

// Resolve browses every service type concurrently until the timeout and
// keeps the names announced for the requested addresses
func (m *MDNSResolver) Resolve(ctx context.Context, ips []string) map[string]string {
	want := make(map[string]bool, len(ips))
	for _, ip := range ips {
		want[ip] = true
	}

	var (
		mu    sync.Mutex
		names = make(map[string]string)
		wg    sync.WaitGroup
	)
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	for _, service := range m.Services {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			m.log.WithError(err).Debug("mDNS: resolver unavailable")
			return names
		}

		entries := make(chan *zeroconf.ServiceEntry, 16)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case entry, ok := <-entries:
					if !ok {
						return
					}
					mu.Lock()
					recordEntry(entry, want, names)
					mu.Unlock()
				}
			}
		}()

		if err := resolver.Browse(ctx, service, "local.", entries); err != nil {
			m.log.WithError(err).Debugf("mDNS: browse %s failed", service)
		}
	}

	<-ctx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	m.log.Debugf("mDNS: named %d of %d addresses", len(names), len(ips))
	return names
}

// recordEntry stores the first name seen for each wanted IPv4 address
func recordEntry(entry *zeroconf.ServiceEntry, want map[string]bool, names map[string]string) {
	if entry == nil {
		return
	}
	name := mdnsName(entry)
	if name == "" {
		return
	}
	for _, addr := range entry.AddrIPv4 {
		ip := addr.String()
		if want[ip] && names[ip] == "" {
			names[ip] = name
		}
	}
}

// mdnsName prefers the announced host name, falling back to the instance
// name without any "@host" suffix
func mdnsName(entry *zeroconf.ServiceEntry) string {
	if host := strings.TrimSuffix(entry.HostName, "."); host != "" {
		return host
	}
	name := entry.Instance
	if idx := strings.Index(name, "@"); idx != -1 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
