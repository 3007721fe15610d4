package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"lanscope/internal/domain"
)

// ErrNeighborTableUnsupported is returned on platforms without a known
// neighbor table source
var ErrNeighborTableUnsupported = errors.New("neighbor table not supported on this platform")

// SystemNeighbors reads the OS neighbor (ARP) table. It never fails: an
// unreadable or unsupported table yields an empty list.
type SystemNeighbors struct {
	log *logrus.Entry
}

// NewSystemNeighbors creates a reader for the local OS table
func NewSystemNeighbors() *SystemNeighbors {
	return &SystemNeighbors{log: logrus.WithField("component", "neighbors")}
}

// ReadNeighbors returns the current table entries
func (s *SystemNeighbors) ReadNeighbors(ctx context.Context) []domain.ArpEntry {
	entries, err := readNeighborTable(ctx)
	if err != nil {
		s.log.WithError(err).Debug("Neighbors: table unavailable")
		return []domain.ArpEntry{}
	}
	return entries
}

// NormalizeMAC converts a colon, dash or single-digit MAC form to upper-case
// colon-separated octets. All-zero and broadcast addresses are rejected.
func NormalizeMAC(raw string) (string, bool) {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return r == ':' || r == '-'
	})
	if len(parts) != 6 {
		return "", false
	}
	var b strings.Builder
	zero, bcast := true, true
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return "", false
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return "", false
		}
		if v != 0 {
			zero = false
		}
		if v != 0xff {
			bcast = false
		}
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	if zero || bcast {
		return "", false
	}
	return b.String(), true
}

func validIPv4(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return "", false
	}
	return addr.String(), true
}

// ParseProcNetARP parses the Linux /proc/net/arp format. Malformed lines and
// incomplete entries are skipped.
func ParseProcNetARP(r io.Reader) []domain.ArpEntry {
	entries := []domain.ArpEntry{}
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "IP address") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		ip, ok := validIPv4(fields[0])
		if !ok {
			continue
		}
		mac, ok := NormalizeMAC(fields[3])
		if !ok {
			continue
		}
		entryType := domain.ArpUnknown
		switch strings.ToLower(fields[2]) {
		case "0x2":
			entryType = domain.ArpDynamic
		case "0x6":
			entryType = domain.ArpStatic
		case "0x0":
			continue
		}
		entries = append(entries, domain.ArpEntry{IP: ip, MAC: mac, Type: entryType})
	}
	return entries
}

var (
	// ? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
	bsdArpLine = regexp.MustCompile(`\((\d+\.\d+\.\d+\.\d+)\) at ([0-9A-Fa-f:]+)(.*)$`)
	// 192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
	winArpLine = regexp.MustCompile(`^\s*(\d+\.\d+\.\d+\.\d+)\s+([0-9A-Fa-f-]{11,17})\s+(\w+)`)
)

// ParseArpA parses `arp -a` output from macOS/BSD and Windows
func ParseArpA(output string) []domain.ArpEntry {
	entries := []domain.ArpEntry{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		var ipRaw, macRaw, kind string
		if m := bsdArpLine.FindStringSubmatch(line); m != nil {
			ipRaw, macRaw = m[1], m[2]
			kind = domain.ArpDynamic.String()
			if strings.Contains(m[3], "permanent") {
				kind = domain.ArpStatic.String()
			}
		} else if m := winArpLine.FindStringSubmatch(line); m != nil {
			ipRaw, macRaw, kind = m[1], m[2], strings.ToLower(m[3])
		} else {
			continue
		}

		ip, ok := validIPv4(ipRaw)
		if !ok || seen[ip] {
			continue
		}
		mac, ok := NormalizeMAC(macRaw)
		if !ok {
			continue
		}
		entryType := domain.ArpUnknown
		switch kind {
		case "dynamic":
			entryType = domain.ArpDynamic
		case "static":
			entryType = domain.ArpStatic
		}
		seen[ip] = true
		entries = append(entries, domain.ArpEntry{IP: ip, MAC: mac, Type: entryType})
	}
	return entries
}
