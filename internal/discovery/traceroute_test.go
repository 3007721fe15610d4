package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"lanscope/internal/domain"
)

type fakeHops struct {
	replies map[int]string
	errs    map[int]error
	calls   []int
	onCall  func(ttl int)
}

func (f *fakeHops) ProbeHop(_ context.Context, _ net.IP, ttl int, _ time.Duration) (net.IP, error) {
	f.calls = append(f.calls, ttl)
	if f.onCall != nil {
		f.onCall(ttl)
	}
	if err, ok := f.errs[ttl]; ok {
		return nil, err
	}
	if ip, ok := f.replies[ttl]; ok {
		return net.ParseIP(ip), nil
	}
	return nil, errNoReply
}

func TestTraceReachesTarget(t *testing.T) {
	hops := &fakeHops{
		replies: map[int]string{1: "192.168.1.1", 3: "100.64.0.1", 4: "8.8.8.8", 5: "9.9.9.9"},
		errs:    map[int]error{2: &HopError{Kind: BindFailed, TTL: 2, Err: syscall.EADDRINUSE}},
	}
	tr := NewTracer(hops, 10, time.Millisecond).Trace(context.Background(), "8.8.8.8", nil)

	if !tr.Completed {
		t.Error("trace should be completed")
	}
	if len(tr.Hops) != 4 {
		t.Fatalf("hops = %d, want 4 (stop at target)", len(tr.Hops))
	}
	for i, h := range tr.Hops {
		if h.Number != i+1 {
			t.Errorf("hop %d number = %d", i, h.Number)
		}
	}
	if !tr.Hops[1].IsTimeout || tr.Hops[1].IP != "" {
		t.Errorf("failed hop = %+v, want timeout", tr.Hops[1])
	}
	if !tr.Hops[0].IsPrivate || tr.Hops[3].IsPrivate {
		t.Error("privacy flags wrong")
	}
	if tr.Hops[0].LatencyUS == nil {
		t.Error("answered hop should carry latency")
	}
}

func TestTraceNotCompleted(t *testing.T) {
	hops := &fakeHops{replies: map[int]string{1: "192.168.1.1"}}
	tr := NewTracer(hops, 3, time.Millisecond).Trace(context.Background(), "8.8.8.8", nil)
	if tr.Completed {
		t.Error("trace should not be completed")
	}
	if len(tr.Hops) != 3 || !tr.Hops[2].IsTimeout {
		t.Errorf("hops = %+v", tr.Hops)
	}
}

func TestTraceCancel(t *testing.T) {
	cancel := domain.NewCancelToken()
	hops := &fakeHops{onCall: func(ttl int) {
		if ttl == 2 {
			cancel.Cancel()
		}
	}}
	tr := NewTracer(hops, 30, time.Millisecond).Trace(context.Background(), "8.8.8.8", cancel)
	if len(hops.calls) != 2 || len(tr.Hops) != 2 {
		t.Errorf("calls = %v, hops = %d; want 2 each", hops.calls, len(tr.Hops))
	}
}

func TestTraceInvalidTarget(t *testing.T) {
	hops := &fakeHops{}
	tr := NewTracer(hops, 5, time.Millisecond).Trace(context.Background(), "not-an-ip", nil)
	if len(tr.Hops) != 0 || len(hops.calls) != 0 {
		t.Errorf("invalid target probed: %+v", tr)
	}
}

func TestHopErrorUnwrap(t *testing.T) {
	err := error(&HopError{Kind: SetTTLFailed, TTL: 3, Err: syscall.EPERM})
	var hopErr *HopError
	if !errors.As(err, &hopErr) || hopErr.Kind != SetTTLFailed {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !errors.Is(err, syscall.EPERM) {
		t.Error("HopError should unwrap to its cause")
	}
	if err.Error() != "hop 3: set ttl failed: operation not permitted" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestMatchesProbe(t *testing.T) {
	target := net.ParseIP("8.8.8.8").To4()
	quoted := make([]byte, 28)
	quoted[0] = 0x45
	quoted[9] = 17
	copy(quoted[16:20], target)
	binary.BigEndian.PutUint16(quoted[22:24], 33437)

	if !matchesProbe(quoted, target, 33437) {
		t.Error("expected match")
	}
	if matchesProbe(quoted, target, 33438) {
		t.Error("port mismatch should not match")
	}
	if matchesProbe(quoted, net.ParseIP("1.1.1.1").To4(), 33437) {
		t.Error("target mismatch should not match")
	}
	if matchesProbe(quoted[:10], target, 33437) {
		t.Error("short packet should not match")
	}
}
