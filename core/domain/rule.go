package domain

import (
	"time"
)

// RuleType distinguishes deterministic rules from free-text guidance.
type RuleType string

const (
	// RuleTypeStructured rules carry a field-based trigger and are matched
	// deterministically before any model call.
	RuleTypeStructured RuleType = "structured"
	// RuleTypeGuidance rules carry only free text. They never match
	// deterministically; their text is injected into model prompts.
	RuleTypeGuidance RuleType = "guidance"
)

// RuleStatus is the lifecycle state of a rule. Rules referenced by
// historical classifications are never hard-deleted, only deactivated.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// RuleSource records where a rule came from.
type RuleSource string

const (
	RuleSourceSeed     RuleSource = "seed"
	RuleSourceUser     RuleSource = "user"
	RuleSourceLearning RuleSource = "learning"
)

// RuleTrigger is the predicate of a structured rule. All non-empty fields
// are ANDed. An all-empty trigger matches every item (vacuous AND); a nil
// trigger on the rule matches nothing.
type RuleTrigger struct {
	Connector       string `json:"connector,omitempty"`        // exact match
	Sender          string `json:"sender,omitempty"`           // exact match on address
	SenderDomain    string `json:"sender_domain,omitempty"`    // match after last '@'
	SubjectContains string `json:"subject_contains,omitempty"` // case-insensitive substring
	ContentContains string `json:"content_contains,omitempty"` // case-insensitive substring
	Pattern         string `json:"pattern,omitempty"`          // regex on subject OR content
}

// RuleActionBatch is the only action type the triage core executes itself.
const RuleActionBatch = "batch"

// RuleAction is what a matching rule does with an item.
type RuleAction struct {
	Type      string `json:"type"`
	BatchType string `json:"batch_type,omitempty"`
}

// Rule is one triage rule, structured or guidance.
type Rule struct {
	ID   int64    `json:"id"`
	Type RuleType `json:"type"`
	Name string   `json:"name"`

	Trigger  *RuleTrigger `json:"trigger,omitempty"`
	Action   *RuleAction  `json:"action,omitempty"`
	Guidance *string      `json:"guidance,omitempty"`

	Status RuleStatus `json:"status"`
	Source RuleSource `json:"source"`

	MatchCount    int64      `json:"match_count"`
	LastMatchedAt *time.Time `json:"last_matched_at,omitempty"`
	Version       int        `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchType returns the batch label this rule assigns, or "" when the rule
// has no batch action.
func (r *Rule) BatchType() string {
	if r.Action == nil || r.Action.Type != RuleActionBatch {
		return ""
	}
	return r.Action.BatchType
}

// RuleSuggestionKind tags a learning-loop proposal.
type RuleSuggestionKind string

const (
	SuggestionNewRule    RuleSuggestionKind = "new_rule"
	SuggestionRefineRule RuleSuggestionKind = "refine_rule"
)

// RuleSuggestion is one learning-loop proposal, surfaced for human
// approval. Suggestions never become rules automatically.
type RuleSuggestion struct {
	Kind       RuleSuggestionKind `json:"kind"`
	RuleType   RuleType           `json:"rule_type"`
	Name       string             `json:"name"`
	Trigger    *RuleTrigger       `json:"trigger,omitempty"`
	Action     *RuleAction        `json:"action,omitempty"`
	Guidance   string             `json:"guidance,omitempty"`
	RefinesID  *int64             `json:"refines_id,omitempty"`
	Confidence float64            `json:"confidence"`
	Rationale  string             `json:"rationale"`
}
