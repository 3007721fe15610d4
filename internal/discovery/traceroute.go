package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"lanscope/internal/domain"
)

const (
	// DefaultMaxHops bounds a traceroute walk
	DefaultMaxHops = 30
	// DefaultHopTimeout is how long one TTL probe waits for an ICMP reply
	DefaultHopTimeout = 1 * time.Second

	traceBasePort = 33434
	protocolICMP  = 1
)

// HopErrorKind classifies a local failure while sending one probe
type HopErrorKind int

const (
	BindFailed HopErrorKind = iota
	SetTTLFailed
	SendFailed
	ListenFailed
)

func (k HopErrorKind) String() string {
	switch k {
	case BindFailed:
		return "bind failed"
	case SetTTLFailed:
		return "set ttl failed"
	case SendFailed:
		return "send failed"
	case ListenFailed:
		return "listen failed"
	}
	return "unknown"
}

// HopError is a local socket failure for one hop. The tracer records it as a
// timed-out hop and carries on.
type HopError struct {
	Kind HopErrorKind
	TTL  int
	Err  error
}

func (e *HopError) Error() string {
	return fmt.Sprintf("hop %d: %s: %v", e.TTL, e.Kind, e.Err)
}

func (e *HopError) Unwrap() error { return e.Err }

// errNoReply marks a hop that did not answer before its deadline
var errNoReply = errors.New("no reply")

// HopProber sends one probe with the given TTL and returns the responding
// address, or an error when nothing answered.
type HopProber interface {
	ProbeHop(ctx context.Context, target net.IP, ttl int, timeout time.Duration) (net.IP, error)
}

// Tracer walks increasing TTLs toward a target
type Tracer struct {
	Prober  HopProber
	MaxHops int
	Timeout time.Duration
	log     *logrus.Entry
}

// NewTracer creates a tracer. A nil prober uses UDP probes with ICMP replies.
func NewTracer(prober HopProber, maxHops int, timeout time.Duration) *Tracer {
	if prober == nil {
		prober = UDPHopProber{}
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if timeout <= 0 {
		timeout = DefaultHopTimeout
	}
	return &Tracer{
		Prober:  prober,
		MaxHops: maxHops,
		Timeout: timeout,
		log:     logrus.WithField("component", "traceroute"),
	}
}

// Trace records one hop per TTL until the target answers, the hop limit is
// reached or cancel is set. Hop failures never abort the walk.
func (t *Tracer) Trace(ctx context.Context, target string, cancel *domain.CancelToken) (result domain.TracerouteResult) {
	result = domain.TracerouteResult{Target: target, Hops: []domain.Hop{}}
	start := time.Now()
	defer func() { result.TotalTimeMS = time.Since(start).Milliseconds() }()

	dst := net.ParseIP(target).To4()
	if dst == nil {
		return result
	}

	for ttl := 1; ttl <= t.MaxHops; ttl++ {
		if cancel.Cancelled() || ctx.Err() != nil {
			break
		}

		hopStart := time.Now()
		ip, err := t.Prober.ProbeHop(ctx, dst, ttl, t.Timeout)
		elapsed := time.Since(hopStart)

		hop := domain.Hop{Number: ttl}
		if err != nil || ip == nil {
			var hopErr *HopError
			if errors.As(err, &hopErr) {
				t.log.WithError(err).WithField("target", target).Debug("Traceroute: hop failed")
			}
			hop.IsTimeout = true
			result.Hops = append(result.Hops, hop)
			continue
		}

		us := elapsed.Microseconds()
		hop.IP = ip.String()
		hop.LatencyUS = &us
		hop.IsPrivate = domain.IsPrivateIP(hop.IP)
		result.Hops = append(result.Hops, hop)

		if ip.Equal(dst) {
			break
		}
	}

	if n := len(result.Hops); n > 0 {
		result.Completed = result.Hops[n-1].IP == dst.String()
	}
	return result
}

// UDPHopProber sends a UDP datagram with a limited TTL and listens for the
// ICMP Time Exceeded or Port Unreachable it triggers. It needs a raw ICMP
// socket, which usually means root or CAP_NET_RAW.
type UDPHopProber struct{}

// ProbeHop implements HopProber
func (UDPHopProber) ProbeHop(ctx context.Context, target net.IP, ttl int, timeout time.Duration) (net.IP, error) {
	listener, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, &HopError{Kind: ListenFailed, TTL: ttl, Err: err}
	}
	defer listener.Close()

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, &HopError{Kind: BindFailed, TTL: ttl, Err: err}
	}
	defer conn.Close()

	if err := ipv4.NewPacketConn(conn).SetTTL(ttl); err != nil {
		return nil, &HopError{Kind: SetTTLFailed, TTL: ttl, Err: err}
	}

	port := traceBasePort + ttl
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := listener.SetReadDeadline(deadline); err != nil {
		return nil, &HopError{Kind: ListenFailed, TTL: ttl, Err: err}
	}

	if _, err := conn.WriteTo([]byte("lanscope"), &net.UDPAddr{IP: target, Port: port}); err != nil {
		return nil, &HopError{Kind: SendFailed, TTL: ttl, Err: err}
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := listener.ReadFrom(buf)
		if err != nil {
			return nil, errNoReply
		}
		msg, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}

		var inner []byte
		switch body := msg.Body.(type) {
		case *icmp.TimeExceeded:
			inner = body.Data
		case *icmp.DstUnreach:
			inner = body.Data
		default:
			continue
		}
		if !matchesProbe(inner, target, port) {
			continue
		}
		if addr, ok := peer.(*net.IPAddr); ok {
			return addr.IP, nil
		}
	}
}

// matchesProbe checks that the quoted datagram in an ICMP error is ours:
// same destination address and UDP destination port.
func matchesProbe(quoted []byte, target net.IP, port int) bool {
	if len(quoted) < 20 {
		return false
	}
	ihl := int(quoted[0]&0x0f) * 4
	if ihl < 20 || len(quoted) < ihl+4 || quoted[9] != 17 {
		return false
	}
	if !net.IP(quoted[16:20]).Equal(target) {
		return false
	}
	return int(binary.BigEndian.Uint16(quoted[ihl+2:ihl+4])) == port
}
