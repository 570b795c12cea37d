package domain

import (
	"testing"
)

func TestDecisionSummaryRender(t *testing.T) {
	tests := []struct {
		name    string
		summary DecisionSummary
		want    string
	}{
		{
			name:    "no history",
			summary: DecisionSummary{Sender: "x@example.com", SenderDomain: "example.com"},
			want:    "No prior history for this sender.",
		},
		{
			name: "sender only",
			summary: DecisionSummary{
				Sender:        "digest@news.example.com",
				SenderDomain:  "news.example.com",
				SenderBuckets: map[TriagePath]int{TriagePathBulk: 11, TriagePathEngaged: 1},
			},
			want: "Sender digest@news.example.com: bulk 11/12, engaged 1/12",
		},
		{
			name: "sender and domain",
			summary: DecisionSummary{
				Sender:        "digest@news.example.com",
				SenderDomain:  "news.example.com",
				SenderBuckets: map[TriagePath]int{TriagePathBulk: 2},
				DomainBuckets: map[TriagePath]int{TriagePathBulk: 40, TriagePathQuick: 5},
			},
			want: "Sender digest@news.example.com: bulk 2/2\nDomain news.example.com: bulk 40/45, quick 5/45",
		},
		{
			name: "domain only for a first-time sender",
			summary: DecisionSummary{
				Sender:        "new@news.example.com",
				SenderDomain:  "news.example.com",
				DomainBuckets: map[TriagePath]int{TriagePathQuick: 3},
			},
			want: "Domain news.example.com: quick 3/3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.summary.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
