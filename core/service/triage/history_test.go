package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

func TestHistoryAggregator(t *testing.T) {
	items := newFakeItemRepo()
	items.bySender = map[domain.TriagePath]int{domain.TriagePathBulk: 11, domain.TriagePathEngaged: 1}
	items.byDomain = map[domain.TriagePath]int{domain.TriagePathBulk: 40, domain.TriagePathQuick: 5}

	agg := NewHistoryAggregator(items)
	summary, err := agg.History(context.Background(), "digest@news.example.com")
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if summary.Sender != "digest@news.example.com" || summary.SenderDomain != "news.example.com" {
		t.Errorf("summary identity = %q / %q", summary.Sender, summary.SenderDomain)
	}
	if summary.SenderTotal() != 12 {
		t.Errorf("sender total = %d, want 12", summary.SenderTotal())
	}
	if summary.DomainTotal() != 45 {
		t.Errorf("domain total = %d, want 45", summary.DomainTotal())
	}
}

func TestHistoryAggregatorError(t *testing.T) {
	items := newFakeItemRepo()
	items.historyErr = errors.New("db down")

	agg := NewHistoryAggregator(items)
	if _, err := agg.History(context.Background(), "x@example.com"); err == nil {
		t.Error("expected the repository error to surface")
	}
}
