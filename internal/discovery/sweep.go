package discovery

import (
	"context"
	"time"

	"github.com/go-ping/ping"
)

// Pinger answers whether a host replies to ICMP echo
type Pinger interface {
	Ping(ctx context.Context, ip string) bool
}

// ICMPPinger sends a single echo request per host
type ICMPPinger struct {
	Timeout    time.Duration
	Privileged bool
}

// Ping implements Pinger. Any setup failure counts as no reply.
func (p ICMPPinger) Ping(ctx context.Context, ip string) bool {
	pinger, err := ping.NewPinger(ip)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = 500 * time.Millisecond
	}
	pinger.SetPrivileged(p.Privileged)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
