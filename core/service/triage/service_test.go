package triage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

func newTestService(items *fakeItemRepo, rules *fakeRuleSource, cloud *fakeCloud) *Service {
	pipeline := newTestPipeline(rules, nil, cloud, nil, nil)
	cards := newFakeCardRepo()
	return NewService(
		items,
		pipeline,
		rules,
		NewAssigner(items, cards, zerolog.Nop()),
		NewResolver(items, cards, zerolog.Nop()),
		nil,
		0,
		zerolog.Nop(),
	)
}

func TestRunBatchPass(t *testing.T) {
	rule := structuredRule(&domain.RuleTrigger{SenderDomain: "github.com"})
	rule.ID = 1
	rules := &fakeRuleSource{rules: []*domain.Rule{rule}}
	cloud := &fakeCloud{output: `{"batch_type":null,"confidence":0.5,"reason":"personal","summary":"A question"}`}

	items := newFakeItemRepo(
		&domain.Item{ID: 1, Connector: "gmail", Sender: "notifications@github.com", Status: domain.ItemStatusNew},
		&domain.Item{ID: 2, Connector: "gmail", Sender: "alice@example.com", Status: domain.ItemStatusNew},
		classifiedItem(3, "newsletters"), // already classified, untouched
	)
	svc := newTestService(items, rules, cloud)

	report, err := svc.RunBatchPass(context.Background())
	if err != nil {
		t.Fatalf("RunBatchPass: %v", err)
	}
	if report.Classified != 2 || report.Errors != 0 {
		t.Fatalf("report = %+v, want 2 classified, 0 errors", report)
	}
	if report.ByTier[domain.TierRule] != 1 || report.ByTier[domain.TierCloud] != 1 {
		t.Errorf("by tier = %v", report.ByTier)
	}

	if got := items.get(1).Classification; got == nil || got.Tier != domain.TierRule {
		t.Errorf("item 1 classification = %+v", got)
	}
	item2 := items.get(2)
	if item2.Classification == nil || item2.Classification.Tier != domain.TierCloud {
		t.Errorf("item 2 classification = %+v", item2.Classification)
	}
	if item2.Enrichment == nil || item2.Enrichment.Summary == nil {
		t.Error("item 2 enrichment was not merged")
	}
	if cloud.calls != 1 {
		t.Errorf("cloud calls = %d, want 1", cloud.calls)
	}
}

func TestRunBatchPassIdempotent(t *testing.T) {
	rules := &fakeRuleSource{}
	cloud := &fakeCloud{output: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`}
	items := newFakeItemRepo(&domain.Item{ID: 1, Sender: "x@example.com", Status: domain.ItemStatusNew})
	svc := newTestService(items, rules, cloud)

	if _, err := svc.RunBatchPass(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := svc.RunBatchPass(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.Classified != 0 {
		t.Errorf("second pass classified %d items, want 0", report.Classified)
	}
	if cloud.calls != 1 {
		t.Errorf("cloud calls = %d, want 1", cloud.calls)
	}
}

func TestRunBatchPassContinuesPastFailures(t *testing.T) {
	rules := &fakeRuleSource{}
	cloud := &fakeCloud{output: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`}
	items := newFakeItemRepo(
		&domain.Item{ID: 1, Sender: "a@example.com", Status: domain.ItemStatusNew},
		&domain.Item{ID: 2, Sender: "b@example.com", Status: domain.ItemStatusNew},
	)
	items.failUpdateClassification = map[int64]bool{1: true}
	svc := newTestService(items, rules, cloud)

	report, err := svc.RunBatchPass(context.Background())
	if err != nil {
		t.Fatalf("RunBatchPass: %v", err)
	}
	if report.Errors != 1 || report.Classified != 1 {
		t.Errorf("report = %+v, want 1 classified, 1 error", report)
	}
}

func TestReclassify(t *testing.T) {
	rule := structuredRule(&domain.RuleTrigger{SenderDomain: "ci.example.com"})
	rule.ID = 5
	rule.Name = "CI noise"
	rule.Action = &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "notifications"}
	rules := &fakeRuleSource{rules: []*domain.Rule{rule}}

	// In review with no batch type; the new rule now matches it.
	reviewItem := &domain.Item{
		ID: 1, Sender: "bot@ci.example.com", Status: domain.ItemStatusNew,
		Classification: &domain.Classification{Tier: domain.TierCloud, Confidence: 0.4, Reason: "unsure"},
	}
	// Explicitly pulled out of a batch; must stay put.
	removed := &domain.Item{
		ID: 2, Sender: "bot@ci.example.com", Status: domain.ItemStatusNew,
		Classification: domain.Declassify("notifications", testTime()),
	}
	// No matching rule; stays in review.
	unmatched := &domain.Item{
		ID: 3, Sender: "alice@example.com", Status: domain.ItemStatusNew,
		Classification: &domain.Classification{Tier: domain.TierCloud, Confidence: 0.4, Reason: "unsure"},
	}

	items := newFakeItemRepo(reviewItem, removed, unmatched)
	svc := newTestService(items, rules, &fakeCloud{})

	moved, err := svc.Reclassify(context.Background())
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	got := items.get(1).Classification
	if got.BatchType == nil || *got.BatchType != "notifications" {
		t.Errorf("item 1 batch type = %v, want notifications", got.BatchType)
	}
	if got.RuleID == nil || *got.RuleID != 5 {
		t.Errorf("item 1 rule id = %v, want 5", got.RuleID)
	}
	if items.get(2).Classification.BatchType != nil {
		t.Error("a user-removed item must never be re-batched by rules")
	}
	if items.get(3).Classification.BatchType != nil {
		t.Error("an unmatched item must stay in review")
	}
	if recorded := rules.recordedIDs(); len(recorded) != 1 || recorded[0] != 5 {
		t.Errorf("recorded matches = %v, want [5]", recorded)
	}

	// Running again is a no-op: item 1 now has a batch type and leaves
	// the review pool.
	moved, err = svc.Reclassify(context.Background())
	if err != nil {
		t.Fatalf("second Reclassify: %v", err)
	}
	if moved != 0 {
		t.Errorf("second pass moved %d items, want 0", moved)
	}
}

func TestClassifyDoesNotPersist(t *testing.T) {
	rules := &fakeRuleSource{}
	cloud := &fakeCloud{output: `{"batch_type":"newsletters","confidence":0.9,"reason":"digest"}`}
	item := &domain.Item{ID: 1, Sender: "digest@news.example.com", Status: domain.ItemStatusNew}
	items := newFakeItemRepo(item)
	svc := newTestService(items, rules, cloud)

	result := svc.Classify(context.Background(), item)
	if result.Classification == nil {
		t.Fatal("expected a classification")
	}
	if items.get(1).Classification != nil {
		t.Error("Classify must not write to the repository")
	}
}
