// Package classify assigns device roles to hosts from open ports, hostname
// and OS fingerprint.
//
// The weighted Classifier is driven by a RuleSet loaded from YAML. The
// fast-path helpers (FastClassify, GuessOS, IsLikelyGateway) are cheap,
// rule-free heuristics used while probing.
package classify

import (
	"slices"
	"strings"
	"sync/atomic"

	"lanscope/internal/domain"
)

// Classifier scores device types from three independent signal tables
type Classifier struct {
	rules atomic.Pointer[RuleSet]
}

// New creates a classifier over rules, falling back to the embedded defaults
func New(rules *RuleSet) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{}
	c.rules.Store(rules)
	return c
}

// Rules returns the rule table in use
func (c *Classifier) Rules() *RuleSet {
	return c.rules.Load()
}

// SetRules swaps the rule table. Classifications already running keep the
// table they started with.
func (c *Classifier) SetRules(rules *RuleSet) {
	if rules != nil {
		c.rules.Store(rules)
	}
}

type tally struct {
	score   float64
	matches int
}

// Classify returns the device type with the highest average rule score and
// that average clamped to [0,1]. With no matching rule it returns
// (DeviceUnknown, 0).
func (c *Classifier) Classify(ports []uint16, hostname, osFamily string) (domain.DeviceType, float64) {
	rules := c.rules.Load()
	scores := make(map[domain.DeviceType]*tally)
	add := func(t domain.DeviceType, v float64) {
		s, ok := scores[t]
		if !ok {
			s = &tally{}
			scores[t] = s
		}
		s.score += v
		s.matches++
	}

	for _, r := range rules.PortRules {
		matched := 0
		for _, p := range r.Ports {
			if slices.Contains(ports, p) {
				matched++
			}
		}
		if matched >= r.MinCount {
			add(r.Device, r.Confidence*float64(matched)/float64(r.MinCount))
		}
	}

	if h := strings.ToLower(hostname); h != "" {
		for _, r := range rules.HostnameRules {
			if strings.Contains(h, r.Pattern) {
				add(r.Device, r.Confidence)
			}
		}
	}

	if o := strings.ToLower(osFamily); o != "" {
		for _, r := range rules.OSRules {
			if strings.Contains(o, r.Pattern) {
				add(r.Device, r.Confidence)
			}
		}
	}

	best, bestAvg := domain.DeviceUnknown, 0.0
	// Declaration order makes ties deterministic.
	for _, t := range domain.AllDeviceTypes() {
		s, ok := scores[t]
		if !ok {
			continue
		}
		avg := s.score / float64(s.matches)
		if avg > bestAvg {
			best, bestAvg = t, avg
		}
	}
	if bestAvg == 0 {
		return domain.DeviceUnknown, 0
	}
	return best, min(bestAvg, 1.0)
}
