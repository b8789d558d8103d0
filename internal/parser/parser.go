// Package parser converts raw log lines into typed gameplay events using the
// configured rule set. Parsing is pure: one line in, zero or one Event out.
package parser

import (
	"strings"
	"time"

	"github.com/fikahub/raidtrack/internal/rules"
)

// Well-known event types with dedicated payload shapes. Any other type
// declared in the rule set is passed through generically.
const (
	EventKill    = "KILL"
	EventDeath   = "DEATH"
	EventExtract = "EXTRACT"
	EventSurvive = "SURVIVE"
	EventDogtag  = "DOGTAG"
)

// timestampLayouts is the ordered ladder tried against the ts capture.
// Time-only layouts are merged with today's UTC date.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var timeOnlyLayouts = []string{
	"15:04:05",
}

// Event is a single typed gameplay occurrence derived from one log line.
type Event struct {
	Time     time.Time
	Type     string
	GameName string
	Payload  map[string]any
}

// Parser matches lines against the rule set, first match wins.
type Parser struct {
	rules *rules.RuleSet

	// now supplies the fallback timestamp; overridable in tests.
	now func() time.Time
}

// New creates a parser over a loaded rule set.
func New(rs *rules.RuleSet) *Parser {
	return &Parser{
		rules: rs,
		now:   time.Now,
	}
}

// Parse matches one line against the rules in declared order and returns the
// event for the first matching pattern. The second return is false when no
// pattern matched or the match carried no usable subject; such lines are
// simply skipped.
func (p *Parser) Parse(line string) (Event, bool) {
	for _, rule := range p.rules.Rules {
		m := rule.Regexp.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		captures := make(map[string]string)
		for i, name := range rule.Regexp.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			captures[name] = strings.TrimSpace(m[i])
		}

		ev, ok := p.buildEvent(rule.Type, line, captures)
		if !ok {
			return Event{}, false
		}
		return ev, true
	}
	return Event{}, false
}

// buildEvent shapes the payload per event type.
func (p *Parser) buildEvent(eventType, line string, captures map[string]string) (Event, bool) {
	ev := Event{
		Time:    p.parseTimestamp(captures["ts"]),
		Type:    eventType,
		Payload: map[string]any{},
	}

	killer := captures["killer"]
	victim := captures["victim"]
	name := captures["name"]

	switch eventType {
	case EventKill:
		ev.GameName = killer
		ev.Payload["victim"] = victim
		ev.Payload["headshot"] = p.isHeadshot(line, captures)

	case EventDeath:
		ev.GameName = victim
		ev.Payload["killer"] = killer

	case EventExtract, EventSurvive:
		ev.GameName = name

	case EventDogtag:
		ev.GameName = firstNonEmpty(name, killer, victim)
		if victim != "" {
			ev.Payload["victim"] = victim
		}
		if lvl := captures["level"]; lvl != "" {
			ev.Payload["level"] = lvl
		}

	default:
		ev.GameName = firstNonEmpty(name, killer, victim)
		for k, v := range captures {
			if k == "ts" || v == "" {
				continue
			}
			ev.Payload[k] = v
		}
	}

	if ev.GameName == "" {
		return Event{}, false
	}
	return ev, true
}

// parseTimestamp tries the layout ladder against the captured text and falls
// back to ingestion wall-clock time. A bad timestamp never fails the line.
func (p *Parser) parseTimestamp(raw string) time.Time {
	if raw == "" {
		return p.now().UTC()
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}

	for _, layout := range timeOnlyLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			today := p.now().UTC()
			return time.Date(today.Year(), today.Month(), today.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	}

	return p.now().UTC()
}

// isHeadshot reports whether a kill line carries a headshot marker, either as
// a non-empty named capture or as a configured keyword anywhere in the line.
func (p *Parser) isHeadshot(line string, captures map[string]string) bool {
	if captures["headshot"] != "" || captures["hs"] != "" {
		return true
	}
	upper := strings.ToUpper(line)
	for _, kw := range p.rules.HeadshotKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
