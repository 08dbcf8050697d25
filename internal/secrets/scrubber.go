// Package secrets redacts credentials from text that leaves the runner:
// pull request comments and step summaries built from engine output.
package secrets

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultRedaction replaces every detected secret.
const DefaultRedaction = "[REDACTED]"

// Rule detects one kind of secret.
type Rule struct {
	ID      string
	Pattern string
	// Keywords, when set, must appear (case-insensitively) somewhere in
	// the text before the pattern is tried.
	Keywords []string
}

type compiledRule struct {
	id       string
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// Scrubber redacts secrets matched by a fixed rule set. It is safe for
// concurrent use.
type Scrubber struct {
	rules     []compiledRule
	redaction string
}

// Result is the outcome of Scrub.
type Result struct {
	Text   string         // Text with secrets replaced
	ByRule map[string]int // Matches per rule id
}

// Found reports whether anything was redacted.
func (r Result) Found() bool {
	return len(r.ByRule) > 0
}

// RuleIDs returns the ids of the rules that matched, sorted.
func (r Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// New compiles rules. A nil rules slice selects DefaultRules.
func New(rules []Rule) (*Scrubber, error) {
	if rules == nil {
		rules = DefaultRules()
	}

	s := &Scrubber{redaction: DefaultRedaction}
	for i, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil || rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: invalid pattern %q: %v", rule.ID, rule.Pattern, err)
		}

		cr := compiledRule{id: rule.ID, pattern: pattern}
		for _, kw := range rule.Keywords {
			cr.keywords = append(cr.keywords, regexp.MustCompile("(?i)"+regexp.QuoteMeta(kw)))
		}
		s.rules = append(s.rules, cr)
	}
	return s, nil
}

// MustNew is New that panics on invalid rules.
func MustNew(rules []Rule) *Scrubber {
	s, err := New(rules)
	if err != nil {
		panic(err)
	}
	return s
}

type span struct{ start, end int }

// Scrub replaces every match of every rule. Overlapping matches collapse
// into a single redaction.
func (s *Scrubber) Scrub(text string) Result {
	res := Result{Text: text, ByRule: map[string]int{}}
	if s == nil {
		return res
	}

	var spans []span
	for _, rule := range s.rules {
		if !rule.applies(text) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(text, -1) {
			if m[0] == m[1] {
				continue
			}
			spans = append(spans, span{m[0], m[1]})
			res.ByRule[rule.id]++
		}
	}
	if len(spans) == 0 {
		return res
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	out := make([]byte, 0, len(text))
	prev := 0
	for _, sp := range merged {
		out = append(out, text[prev:sp.start]...)
		out = append(out, s.redaction...)
		prev = sp.end
	}
	out = append(out, text[prev:]...)
	res.Text = string(out)
	return res
}

func (r compiledRule) applies(text string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(text) {
			return true
		}
	}
	return false
}
