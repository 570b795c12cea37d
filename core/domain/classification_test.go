package domain

import (
	"math"
	"testing"
	"time"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"in range", 0.85, 0.85},
		{"zero", 0, 0},
		{"one", 1, 1},
		{"negative", -0.3, 0},
		{"above one", 42, 1},
		{"NaN", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampConfidence(tt.in); got != tt.want {
				t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeclassify(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	c := Declassify("newsletters", now)

	if c.BatchType != nil {
		t.Error("declassified record must carry no batch type")
	}
	if c.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", c.Confidence)
	}
	if !c.Declassified() {
		t.Errorf("reason %q not recognized as declassified", c.Reason)
	}
	if c.Reason != "user removed from newsletters" {
		t.Errorf("reason = %q", c.Reason)
	}

	var nilC *Classification
	if nilC.Declassified() {
		t.Error("nil classification must not read as declassified")
	}
	if (&Classification{Reason: "matched rule \"x\""}).Declassified() {
		t.Error("an ordinary reason must not read as declassified")
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"alice@example.com", "example.com"},
		{"\"odd@name\"@example.org", "example.org"},
		{"U024BE7LH", ""},
		{"", ""},
		{"trailing@", ""},
	}
	for _, tt := range tests {
		if got := SenderDomain(tt.sender); got != tt.want {
			t.Errorf("SenderDomain(%q) = %q, want %q", tt.sender, got, tt.want)
		}
	}
}

func TestEnrichmentMerge(t *testing.T) {
	summary := "old summary"
	newSummary := "new summary"
	priority := Priority(0.7)

	base := &Enrichment{Summary: &summary, Tags: []string{"a"}}

	merged := base.Merge(&Enrichment{Priority: &priority})
	if merged.Summary == nil || *merged.Summary != "old summary" {
		t.Error("unset field must not overwrite an existing value")
	}
	if merged.Priority == nil || *merged.Priority != priority {
		t.Error("set field must land")
	}
	if len(merged.Tags) != 1 {
		t.Error("empty tags must not clear existing tags")
	}

	merged = base.Merge(&Enrichment{Summary: &newSummary, Tags: []string{"b", "c"}})
	if *merged.Summary != "new summary" || len(merged.Tags) != 2 {
		t.Errorf("merge = %+v", merged)
	}

	var nilE *Enrichment
	if got := nilE.Merge(&Enrichment{Summary: &summary}); got == nil || got.Summary == nil {
		t.Error("merging into nil must produce a copy of the update")
	}
	if got := base.Merge(nil); got != base {
		t.Error("nil update must return the receiver")
	}
}
