// Package preflight probes what the current process is allowed to do before
// discovery starts, so optional collaborators that would only fail can be
// switched off up front.
package preflight

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Report is the outcome of one probe pass
type Report struct {
	IsRoot bool `json:"is_root"`
	// RawICMP means a SOCK_RAW ICMP socket could be opened (root or CAP_NET_RAW)
	RawICMP bool `json:"raw_icmp"`
	// DgramICMP means unprivileged ICMP is allowed via net.ipv4.ping_group_range
	DgramICMP     bool   `json:"dgram_icmp"`
	NeighborTable bool   `json:"neighbor_table"`
	NmapPath      string `json:"nmap_path,omitempty"`
}

// CanPing reports whether any ICMP echo socket is available
func (r Report) CanPing() bool {
	return r.RawICMP || r.DgramICMP
}

// Prober holds the probe functions; tests replace them
type Prober struct {
	Geteuid    func() int
	OpenSocket func(typ int) error
	ReadFile   func(path string) ([]byte, error)
	LookPath   func(file string) (string, error)
	ARPPath    string
}

// NewProber returns a prober backed by the running system
func NewProber() *Prober {
	return &Prober{
		Geteuid:    os.Geteuid,
		OpenSocket: openICMPSocket,
		ReadFile:   os.ReadFile,
		LookPath:   exec.LookPath,
		ARPPath:    "/proc/net/arp",
	}
}

// Probe runs every check. Individual failures are recorded, never returned.
func (p *Prober) Probe() Report {
	var r Report
	r.IsRoot = p.Geteuid() == 0
	r.RawICMP = p.OpenSocket(syscall.SOCK_RAW) == nil
	r.DgramICMP = p.OpenSocket(syscall.SOCK_DGRAM) == nil
	if _, err := p.ReadFile(p.ARPPath); err == nil {
		r.NeighborTable = true
	}
	if path, err := p.LookPath("nmap"); err == nil {
		r.NmapPath = path
	}
	return r
}

// Probe runs the checks against the running system
func Probe() Report {
	return NewProber().Probe()
}

// Log writes the report at info level and warns about missing capabilities
func (r Report) Log(log *logrus.Entry) {
	log.WithFields(logrus.Fields{
		"root":           r.IsRoot,
		"raw_icmp":       r.RawICMP,
		"dgram_icmp":     r.DgramICMP,
		"neighbor_table": r.NeighborTable,
		"nmap":           r.NmapPath != "",
	}).Info("Preflight: capabilities probed")

	if !r.RawICMP {
		log.Warn("Preflight: no raw ICMP socket; traceroute hops will time out (run as root or grant CAP_NET_RAW)")
	}
	if !r.NeighborTable {
		log.Warn("Preflight: neighbor table unreadable; MAC addresses will be missing")
	}
}
