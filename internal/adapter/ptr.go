package adapter

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PTRResolver names hosts with reverse DNS lookups against one server
type PTRResolver struct {
	Server      string
	Timeout     time.Duration
	Concurrency int
	log         *logrus.Entry
}

// NewPTRResolver creates a reverse resolver. An empty server falls back to
// the first nameserver in /etc/resolv.conf.
func NewPTRResolver(server string, timeout time.Duration) *PTRResolver {
	return &PTRResolver{
		Server:      server,
		Timeout:     timeout,
		Concurrency: 16,
		log:         logrus.WithField("component", "ptr"),
	}
}

// Resolve looks up every address concurrently; failures are left out
func (p *PTRResolver) Resolve(ctx context.Context, ips []string) map[string]string {
	names := make(map[string]string)
	server, err := p.server()
	if err != nil {
		p.log.WithError(err).Debug("PTR: no nameserver")
		return names
	}

	client := &dns.Client{Net: "udp", Timeout: p.Timeout}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Concurrency))
	for _, ip := range ips {
		g.Go(func() error {
			name, err := p.lookup(gctx, client, server, ip)
			if err != nil {
				p.log.Debugf("PTR: %s: %v", ip, err)
				return nil
			}
			mu.Lock()
			names[ip] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}

func (p *PTRResolver) lookup(ctx context.Context, client *dns.Client, server, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", err
	}
	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	r, _, err := client.ExchangeContext(ctx, m, server)
	if err != nil {
		return "", err
	}
	if r.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("rcode %s", dns.RcodeToString[r.Rcode])
	}
	for _, rr := range r.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", fmt.Errorf("no PTR record")
}

func (p *PTRResolver) server() (string, error) {
	if p.Server != "" {
		if _, _, err := net.SplitHostPort(p.Server); err != nil {
			return net.JoinHostPort(p.Server, "53"), nil
		}
		return p.Server, nil
	}
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", err
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("resolv.conf lists no nameservers")
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}
