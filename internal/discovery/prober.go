package discovery

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"lanscope/internal/classify"
	"lanscope/internal/domain"
)

// DefaultProbeTimeout is the per-port connect timeout of the full probe
const DefaultProbeTimeout = 1 * time.Second

// Prober checks a fixed list of TCP ports on one host
type Prober struct {
	Timeout time.Duration
	Dialer  *net.Dialer
}

// NewProber creates a prober with the given per-port timeout
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{Timeout: timeout, Dialer: &net.Dialer{}}
}

// Probe connects to every port concurrently. A port is open when the connect
// completes within the timeout; errors count as closed. It returns nil when
// ports is non-empty and none opened.
func (p *Prober) Probe(ctx context.Context, ip string, ports []uint16) *domain.ProbedHost {
	open := p.openPorts(ctx, ip, ports)
	if len(ports) > 0 && len(open) == 0 {
		return nil
	}

	host := domain.NewProbedHost(ip, open)
	host.OS = classify.GuessOS(host.Ports)
	host.DeviceType = classify.FastClassify(host.Ports)
	return host
}

func (p *Prober) openPorts(ctx context.Context, ip string, ports []uint16) []uint16 {
	var (
		mu   sync.Mutex
		open []uint16
		wg   sync.WaitGroup
	)
	for _, port := range ports {
		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()
			if p.dial(ctx, ip, port) {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}
		}(port)
	}
	wg.Wait()
	return open
}

func (p *Prober) dial(ctx context.Context, ip string, port uint16) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	dialer := p.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(ip, strconv.Itoa(int(port))))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
