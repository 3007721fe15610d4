package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lanscope/internal/domain"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ErrInvalidRule is returned when a rule set fails validation
var ErrInvalidRule = errors.New("invalid classification rule")

// PortRule fires when at least MinCount of Ports are open
type PortRule struct {
	Device     domain.DeviceType `yaml:"device"`
	Ports      []uint16          `yaml:"ports"`
	MinCount   int               `yaml:"min_count"`
	Confidence float64           `yaml:"confidence"`
}

// PatternRule fires when Pattern is a case-insensitive substring of the signal
type PatternRule struct {
	Device     domain.DeviceType `yaml:"device"`
	Pattern    string            `yaml:"pattern"`
	Confidence float64           `yaml:"confidence"`
}

// RuleSet is the data-driven rule table used by Classifier
type RuleSet struct {
	PortRules     []PortRule    `yaml:"port_rules"`
	HostnameRules []PatternRule `yaml:"hostname_rules"`
	OSRules       []PatternRule `yaml:"os_rules"`
}

// DefaultRules returns the embedded rule table
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded classifier rules: %v", err))
	}
	return rs
}

// LoadRules reads and validates a YAML rule file
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ParseRules decodes and validates a YAML rule table
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks every rule and lower-cases patterns in place
func (rs *RuleSet) Validate() error {
	for i, r := range rs.PortRules {
		if len(r.Ports) == 0 {
			return fmt.Errorf("%w: port rule %d (%s) has no ports", ErrInvalidRule, i, r.Device)
		}
		if r.MinCount < 1 || r.MinCount > len(r.Ports) {
			return fmt.Errorf("%w: port rule %d (%s) min_count %d out of range", ErrInvalidRule, i, r.Device, r.MinCount)
		}
		if err := checkConfidence(r.Confidence); err != nil {
			return fmt.Errorf("port rule %d (%s): %w", i, r.Device, err)
		}
	}
	if err := validatePatterns("hostname", rs.HostnameRules); err != nil {
		return err
	}
	return validatePatterns("os", rs.OSRules)
}

func validatePatterns(kind string, rules []PatternRule) error {
	for i := range rules {
		r := &rules[i]
		r.Pattern = strings.ToLower(strings.TrimSpace(r.Pattern))
		if r.Pattern == "" {
			return fmt.Errorf("%w: %s rule %d (%s) has empty pattern", ErrInvalidRule, kind, i, r.Device)
		}
		if err := checkConfidence(r.Confidence); err != nil {
			return fmt.Errorf("%s rule %d (%s): %w", kind, i, r.Device, err)
		}
	}
	return nil
}

func checkConfidence(c float64) error {
	if c <= 0 || c > 1 {
		return fmt.Errorf("%w: confidence %.2f not in (0,1]", ErrInvalidRule, c)
	}
	return nil
}
