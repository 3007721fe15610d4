package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"lanscope/internal/domain"
)

const (
	oidSysDescr = ".1.3.6.1.2.1.1.1.0"
	oidSysName  = ".1.3.6.1.2.1.1.5.0"
)

// SNMPQuerier fetches identity hints from an SNMP agent
type SNMPQuerier interface {
	Query(ctx context.Context, ip string) (*domain.ProbedHost, bool)
}

// SNMPEnricher reads sysName and sysDescr with SNMP v2c
type SNMPEnricher struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// NewSNMPEnricher creates an enricher for the given community
func NewSNMPEnricher(community string, timeout time.Duration) *SNMPEnricher {
	if community == "" {
		community = "public"
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &SNMPEnricher{Community: community, Port: 161, Timeout: timeout}
}

// Query returns a partial host with Hostname from sysName and an OS hint from
// sysDescr. It reports false when the agent does not answer.
func (s *SNMPEnricher) Query(ctx context.Context, ip string) (*domain.ProbedHost, bool) {
	sn := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      s.Port,
		Community: s.Community,
		Version:   gosnmp.Version2c,
		Timeout:   s.Timeout,
		Retries:   s.Retries,
		Context:   ctx,
	}
	if err := sn.Connect(); err != nil {
		return nil, false
	}
	defer sn.Conn.Close()

	pkt, err := sn.Get([]string{oidSysName, oidSysDescr})
	if err != nil || len(pkt.Variables) == 0 {
		return nil, false
	}

	host := &domain.ProbedHost{IP: ip}
	for _, v := range pkt.Variables {
		val := snmpString(v)
		switch v.Name {
		case oidSysName:
			host.Hostname = strings.TrimSpace(val)
		case oidSysDescr:
			if family := osHint(val); family != "" {
				host.OS = &domain.OSInfo{Family: family, Accuracy: 90}
			}
		}
	}
	if host.Hostname == "" && host.OS == nil {
		return nil, false
	}
	return host, true
}

func snmpString(v gosnmp.SnmpPDU) string {
	switch val := v.Value.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v.Value)
}

// osHint keeps the first line of sysDescr, bounded in length
func osHint(descr string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(descr), "\n")
	line = strings.TrimSpace(line)
	if len(line) > 64 {
		line = line[:64]
	}
	return line
}
