package domain

import (
	"strings"
	"time"
)

// Tier indicates which stage of the fallback chain produced a
// classification.
type Tier string

const (
	TierRule  Tier = "rule"  // deterministic rule match, no model call
	TierFast  Tier = "fast"  // local/cheap model
	TierCloud Tier = "cloud" // full-context cloud model
)

// TriagePath records how a human ultimately resolved an item. It feeds the
// decision history that informs later classifications.
type TriagePath string

const (
	TriagePathBulk    TriagePath = "bulk"    // resolved via a batch card
	TriagePathQuick   TriagePath = "quick"   // archived/dismissed individually
	TriagePathEngaged TriagePath = "engaged" // read, replied, acted on
)

// TriagePaths lists all paths in rendering order.
var TriagePaths = []TriagePath{TriagePathBulk, TriagePathQuick, TriagePathEngaged}

// declassifiedPrefix marks a classification reason written when a user
// pulls an item out of a batch. Rule-only reclassification must not
// re-batch such items.
const declassifiedPrefix = "user removed from"

// Classification is the triage verdict stamped onto an item. A nil
// BatchType always means "keep for individual review".
type Classification struct {
	Tier        Tier        `json:"tier"`
	BatchType   *string     `json:"batch_type,omitempty"`
	Confidence  float64     `json:"confidence"`
	Reason      string      `json:"reason"`
	RuleID      *int64      `json:"rule_id,omitempty"`
	BatchCardID *int64      `json:"batch_card_id,omitempty"`
	TriagePath  *TriagePath `json:"triage_path,omitempty"`

	ClassifiedAt time.Time `json:"classified_at"`
}

// Declassified reports whether this record was written by a user pulling
// the item out of a batch.
func (c *Classification) Declassified() bool {
	return c != nil && strings.HasPrefix(c.Reason, declassifiedPrefix)
}

// Declassify returns the record written when a user removes an item from a
// batch: no batch type, no card, and a sentinel reason that suppresses
// rule-only re-matching.
func Declassify(batchType string, now time.Time) *Classification {
	return &Classification{
		Tier:         TierRule,
		Confidence:   0,
		Reason:       declassifiedPrefix + " " + batchType,
		ClassifiedAt: now,
	}
}

// FallbackClassification is the safe terminal outcome when every tier
// fails: the item stays in individual review.
func FallbackClassification(now time.Time) *Classification {
	return &Classification{
		Tier:         TierCloud,
		Confidence:   0,
		Reason:       "classification failed",
		ClassifiedAt: now,
	}
}

// ClampConfidence forces a confidence into [0,1]. Out-of-range values from
// external classifiers are clamped rather than rejected.
func ClampConfidence(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
