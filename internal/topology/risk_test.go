package topology

import (
	"slices"
	"testing"
)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name  string
		ports []uint16
		want  uint8
	}{
		{"empty", nil, 0},
		{"ssh", []uint16{22}, 20},
		{"ssh and smb", []uint16{22, 445}, 40},
		{"web", []uint16{80, 443}, 20},
		{"telnet", []uint16{23}, 30},
		{"upnp", []uint16{1900}, 25},
		{"unlisted", []uint16{12345, 23456}, 2},
		{"clamped", []uint16{21, 23, 3389, 5900, 1900}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskScore(tt.ports); got != tt.want {
				t.Errorf("RiskScore(%v) = %d, want %d", tt.ports, got, tt.want)
			}
		})
	}
}

func TestRiskScoreOrderIndependent(t *testing.T) {
	ports := []uint16{445, 22, 80, 9100, 3306}
	want := RiskScore(ports)

	reversed := slices.Clone(ports)
	slices.Reverse(reversed)
	sorted := slices.Clone(ports)
	slices.Sort(sorted)

	for _, p := range [][]uint16{reversed, sorted} {
		if got := RiskScore(p); got != want {
			t.Errorf("RiskScore(%v) = %d, want %d", p, got, want)
		}
	}
}
