package triage

import (
	"testing"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

func structuredRule(trigger *domain.RuleTrigger) *domain.Rule {
	return &domain.Rule{
		ID:      1,
		Type:    domain.RuleTypeStructured,
		Name:    "test rule",
		Status:  domain.RuleStatusActive,
		Trigger: trigger,
		Action:  &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "newsletters"},
	}
}

func TestMatches(t *testing.T) {
	item := &domain.Item{
		Connector: "gmail",
		Sender:    "digest@News.Example.COM",
		Subject:   "Your Weekly Digest",
		Content:   "Top stories this week. Unsubscribe at the bottom.",
	}

	tests := []struct {
		name string
		rule *domain.Rule
		want bool
	}{
		{
			name: "nil trigger matches nothing",
			rule: structuredRule(nil),
			want: false,
		},
		{
			name: "empty trigger matches everything",
			rule: structuredRule(&domain.RuleTrigger{}),
			want: true,
		},
		{
			name: "guidance rule never matches",
			rule: &domain.Rule{
				Type:    domain.RuleTypeGuidance,
				Status:  domain.RuleStatusActive,
				Trigger: &domain.RuleTrigger{},
			},
			want: false,
		},
		{
			name: "connector exact match",
			rule: structuredRule(&domain.RuleTrigger{Connector: "gmail"}),
			want: true,
		},
		{
			name: "connector mismatch",
			rule: structuredRule(&domain.RuleTrigger{Connector: "slack"}),
			want: false,
		},
		{
			name: "sender exact match is case sensitive",
			rule: structuredRule(&domain.RuleTrigger{Sender: "digest@news.example.com"}),
			want: false,
		},
		{
			name: "sender domain matches case insensitively",
			rule: structuredRule(&domain.RuleTrigger{SenderDomain: "news.example.com"}),
			want: true,
		},
		{
			name: "subject substring is case insensitive",
			rule: structuredRule(&domain.RuleTrigger{SubjectContains: "weekly digest"}),
			want: true,
		},
		{
			name: "content substring is case insensitive",
			rule: structuredRule(&domain.RuleTrigger{ContentContains: "UNSUBSCRIBE"}),
			want: true,
		},
		{
			name: "all specified fields are ANDed",
			rule: structuredRule(&domain.RuleTrigger{
				Connector:       "gmail",
				SubjectContains: "digest",
				ContentContains: "payroll",
			}),
			want: false,
		},
		{
			name: "pattern matches subject",
			rule: structuredRule(&domain.RuleTrigger{Pattern: `(?i)weekly\s+digest`}),
			want: true,
		},
		{
			name: "pattern matches content when subject misses",
			rule: structuredRule(&domain.RuleTrigger{Pattern: `Top stories`}),
			want: true,
		},
		{
			name: "invalid pattern is a non-match",
			rule: structuredRule(&domain.RuleTrigger{Pattern: `([`}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rule, item); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesSenderWithoutDomain(t *testing.T) {
	item := &domain.Item{Connector: "slack", Sender: "U024BE7LH"}
	rule := structuredRule(&domain.RuleTrigger{SenderDomain: "example.com"})
	if Matches(rule, item) {
		t.Error("sender without a domain must not match a domain trigger")
	}
}

func TestFirstMatch(t *testing.T) {
	item := &domain.Item{Connector: "gmail", Sender: "bot@ci.example.com", Subject: "build failed"}

	inactive := structuredRule(&domain.RuleTrigger{SubjectContains: "build"})
	inactive.ID = 10
	inactive.Status = domain.RuleStatusInactive

	second := structuredRule(&domain.RuleTrigger{SenderDomain: "ci.example.com"})
	second.ID = 20

	third := structuredRule(&domain.RuleTrigger{})
	third.ID = 30

	got := FirstMatch([]*domain.Rule{inactive, second, third}, item)
	if got == nil || got.ID != 20 {
		t.Fatalf("FirstMatch returned %+v, want rule 20", got)
	}

	if FirstMatch(nil, item) != nil {
		t.Error("FirstMatch over no rules must return nil")
	}
}
