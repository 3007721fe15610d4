package classify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lanscope/internal/domain"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		ports    []uint16
		hostname string
		os       string
		want     domain.DeviceType
	}{
		{"router ports", []uint16{22, 23, 80}, "", "", domain.DeviceRouter},
		{"printer port", []uint16{9100}, "", "", domain.DevicePrinter},
		{"server ports", []uint16{22, 80, 443}, "", "", domain.DeviceServer},
		{"mail ports", []uint16{25, 587, 993}, "", "", domain.DeviceMailServer},
		{"hostname only", nil, "Living-Room-Roku", "", domain.DeviceMediaPlayer},
		{"os only", nil, "", "MikroTik RouterOS 7", domain.DeviceRouter},
		{"camera rtsp", []uint16{554}, "", "", domain.DeviceCamera},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := c.Classify(tt.ports, tt.hostname, tt.os)
			if got != tt.want {
				t.Errorf("Classify(%v, %q, %q) = %s, want %s", tt.ports, tt.hostname, tt.os, got, tt.want)
			}
			if conf <= 0 || conf > 1 {
				t.Errorf("confidence = %v, want (0,1]", conf)
			}
		})
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := New(nil)
	got, conf := c.Classify([]uint16{12345}, "", "")
	if got != domain.DeviceUnknown || conf != 0 {
		t.Errorf("Classify = (%s, %v), want (unknown, 0)", got, conf)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil)
	first, firstConf := c.Classify([]uint16{80, 22, 443, 445}, "nas-01", "Linux/Unix")
	for i := 0; i < 20; i++ {
		got, conf := c.Classify([]uint16{445, 443, 22, 80}, "nas-01", "Linux/Unix")
		if got != first || conf != firstConf {
			t.Fatalf("run %d: got (%s, %v), want (%s, %v)", i, got, conf, first, firstConf)
		}
	}
}

func TestClassifyStrengthScalesWithMatches(t *testing.T) {
	rules, err := ParseRules([]byte(`
port_rules:
  - {device: server, ports: [22, 80, 443, 8080], min_count: 2, confidence: 0.4}
`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	c := New(rules)

	_, two := c.Classify([]uint16{22, 80}, "", "")
	_, four := c.Classify([]uint16{22, 80, 443, 8080}, "", "")
	if two != 0.4 {
		t.Errorf("two matches = %v, want 0.4", two)
	}
	if four != 0.8 {
		t.Errorf("four matches = %v, want 0.8", four)
	}

	if got, _ := c.Classify([]uint16{22}, "", ""); got != domain.DeviceUnknown {
		t.Errorf("below min_count = %s, want unknown", got)
	}
}

func TestClassifyAveragesScores(t *testing.T) {
	rules, err := ParseRules([]byte(`
hostname_rules:
  - {device: nas, pattern: box, confidence: 0.9}
  - {device: nas, pattern: store, confidence: 0.1}
  - {device: printer, pattern: store, confidence: 0.6}
`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	got, conf := New(rules).Classify(nil, "STOREBOX", "")
	// nas averages 0.5, printer 0.6
	if got != domain.DevicePrinter || conf != 0.6 {
		t.Errorf("Classify = (%s, %v), want (printer, 0.6)", got, conf)
	}
}

func TestParseRulesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"min count too large", `port_rules: [{device: server, ports: [22], min_count: 2, confidence: 0.5}]`},
		{"no ports", `port_rules: [{device: server, ports: [], min_count: 1, confidence: 0.5}]`},
		{"zero confidence", `hostname_rules: [{device: nas, pattern: nas, confidence: 0}]`},
		{"empty pattern", `os_rules: [{device: server, pattern: " ", confidence: 0.5}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("ParseRules error = %v, want ErrInvalidRule", err)
			}
		})
	}

	if _, err := ParseRules([]byte(`port_rules: [{device: toaster, ports: [1], min_count: 1, confidence: 0.5}]`)); err == nil {
		t.Error("expected error for unknown device type")
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "hostname_rules:\n  - {device: camera, pattern: DOORBELL, confidence: 0.9}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.HostnameRules[0].Pattern != "doorbell" {
		t.Errorf("pattern = %q, want lower-cased", rules.HostnameRules[0].Pattern)
	}
	if got, _ := New(rules).Classify(nil, "front-doorbell", ""); got != domain.DeviceCamera {
		t.Errorf("Classify = %s, want camera", got)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSetRulesSwapsTable(t *testing.T) {
	c := New(nil)
	if got, _ := c.Classify(nil, "front-doorbell", ""); got == domain.DeviceCamera {
		t.Skip("default rules already know doorbells")
	}

	rules, err := ParseRules([]byte("hostname_rules:\n  - {device: camera, pattern: doorbell, confidence: 0.9}\n"))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	c.SetRules(rules)
	if got, _ := c.Classify(nil, "front-doorbell", ""); got != domain.DeviceCamera {
		t.Errorf("Classify after SetRules = %s, want camera", got)
	}

	c.SetRules(nil)
	if c.Rules() != rules {
		t.Error("SetRules(nil) replaced the table")
	}
}
