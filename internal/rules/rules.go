// Package rules loads the external rule set: the ordered list of extraction
// patterns, per-event reward overrides, and headshot keywords.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultHeadshotKeywords are matched against the raw line (case-insensitive)
// when a KILL pattern has no explicit headshot capture.
var DefaultHeadshotKeywords = []string{"HEADSHOT", "HS"}

// patternEntry is the on-disk shape of one pattern. Patterns are a list, not
// a map, because declaration order decides match precedence.
type patternEntry struct {
	Type    string `mapstructure:"type"`
	Pattern string `mapstructure:"pattern"`
}

// Rule is one compiled extraction pattern bound to its event type.
type Rule struct {
	Type   string
	Regexp *regexp.Regexp
}

// RuleSet is the fully loaded and compiled rule configuration.
type RuleSet struct {
	// Rules in declared order; the first match wins.
	Rules []Rule
	// Rewards overrides the default per-event XP table, keyed by event type.
	Rewards map[string]int64
	// HeadshotKeywords mark a kill line as a headshot when present.
	HeadshotKeywords []string
}

// Load reads and compiles a YAML rule set from the given file.
func Load(path string) (*RuleSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading rules file: %w", err)
	}

	var entries []patternEntry
	if err := v.UnmarshalKey("patterns", &entries); err != nil {
		return nil, fmt.Errorf("error parsing patterns: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("rules file %s declares no patterns", path)
	}

	rs := &RuleSet{
		Rules:            make([]Rule, 0, len(entries)),
		Rewards:          make(map[string]int64),
		HeadshotKeywords: DefaultHeadshotKeywords,
	}

	seen := make(map[string]bool)
	for i, e := range entries {
		eventType := strings.ToUpper(strings.TrimSpace(e.Type))
		if eventType == "" {
			return nil, fmt.Errorf("pattern %d has no event type", i)
		}
		if seen[eventType] {
			return nil, fmt.Errorf("duplicate pattern for event type %s", eventType)
		}
		seen[eventType] = true

		if e.Pattern == "" {
			return nil, fmt.Errorf("pattern for %s is empty", eventType)
		}
		rx, err := regexp.Compile(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for %s: %w", eventType, err)
		}
		rs.Rules = append(rs.Rules, Rule{Type: eventType, Regexp: rx})
	}

	var rewards map[string]int64
	if err := v.UnmarshalKey("rewards", &rewards); err != nil {
		return nil, fmt.Errorf("error parsing rewards: %w", err)
	}
	for k, xp := range rewards {
		rs.Rewards[strings.ToUpper(k)] = xp
	}

	if kw := v.GetStringSlice("headshot_keywords"); len(kw) > 0 {
		rs.HeadshotKeywords = kw
	}

	return rs, nil
}
