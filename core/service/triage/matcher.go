// Package triage implements the tiered triage decision pipeline: rule
// matching, confidence-gated model classification, batch grouping and the
// scheduled learning loop.
package triage

import (
	"regexp"
	"strings"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// Matches reports whether an item satisfies a rule's trigger. Pure, no
// I/O. All specified trigger fields are ANDed.
//
// Guidance rules never match. A nil trigger matches nothing; an all-empty
// trigger matches everything (vacuous AND). An unparseable regex pattern
// is a non-match, never an error.
func Matches(rule *domain.Rule, item *domain.Item) bool {
	if rule == nil || item == nil {
		return false
	}
	if rule.Type == domain.RuleTypeGuidance {
		return false
	}
	t := rule.Trigger
	if t == nil {
		return false
	}

	if t.Connector != "" && t.Connector != item.Connector {
		return false
	}
	if t.Sender != "" && t.Sender != item.Sender {
		return false
	}
	if t.SenderDomain != "" {
		d := item.SenderDomain()
		if d == "" || !strings.EqualFold(t.SenderDomain, d) {
			return false
		}
	}
	if t.SubjectContains != "" && !containsFold(item.Subject, t.SubjectContains) {
		return false
	}
	if t.ContentContains != "" && !containsFold(item.Content, t.ContentContains) {
		return false
	}
	if t.Pattern != "" {
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return false
		}
		if !re.MatchString(item.Subject) && !re.MatchString(item.Content) {
			return false
		}
	}
	return true
}

// FirstMatch returns the first active structured rule whose trigger
// matches the item, or nil.
func FirstMatch(rules []*domain.Rule, item *domain.Item) *domain.Rule {
	for _, rule := range rules {
		if rule.Status != domain.RuleStatusActive {
			continue
		}
		if Matches(rule, item) {
			return rule
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
