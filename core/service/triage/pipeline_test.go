package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

func newTestPipeline(rules *fakeRuleSource, local *fakeLocal, cloud *fakeCloud, memctx *fakeMemctx, items *fakeItemRepo) *Pipeline {
	var history *HistoryAggregator
	if items != nil {
		history = NewHistoryAggregator(items)
	}
	var localPort out.LocalClassifier
	if local != nil {
		localPort = local
	}
	var cloudPort out.CloudClassifier
	if cloud != nil {
		cloudPort = cloud
	}
	var ctxPort out.ContextProvider
	if memctx != nil {
		ctxPort = memctx
	}
	return NewPipeline(rules, history, ctxPort, localPort, cloudPort, DefaultPipelineConfig(), zerolog.Nop())
}

func TestPipelineConnectorOverride(t *testing.T) {
	rules := &fakeRuleSource{rules: []*domain.Rule{structuredRule(&domain.RuleTrigger{})}}
	local := &fakeLocal{available: true}
	cloud := &fakeCloud{}
	p := newTestPipeline(rules, local, cloud, nil, nil)

	result := p.Classify(context.Background(), &domain.Item{ID: 1, Connector: "granola", Sender: "noreply@granola.ai"})

	c := result.Classification
	if c.Tier != domain.TierRule || c.BatchType != nil || c.Confidence != 1 {
		t.Fatalf("override classification = %+v", c)
	}
	if local.calls != 0 || cloud.calls != 0 {
		t.Error("connector override must not call any model")
	}
	if len(rules.recordedIDs()) != 0 {
		t.Error("connector override must not record a rule match")
	}
}

func TestPipelineRuleTier(t *testing.T) {
	rule := structuredRule(&domain.RuleTrigger{SenderDomain: "github.com"})
	rule.ID = 7
	rule.Name = "GitHub notifications"
	rule.Action = &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "notifications"}

	rules := &fakeRuleSource{rules: []*domain.Rule{rule}}
	local := &fakeLocal{available: true}
	cloud := &fakeCloud{}
	p := newTestPipeline(rules, local, cloud, nil, nil)

	result := p.Classify(context.Background(), &domain.Item{ID: 1, Connector: "gmail", Sender: "notifications@github.com"})

	c := result.Classification
	if c.Tier != domain.TierRule {
		t.Fatalf("tier = %s, want rule", c.Tier)
	}
	if c.BatchType == nil || *c.BatchType != "notifications" {
		t.Errorf("batch type = %v, want notifications", c.BatchType)
	}
	if c.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", c.Confidence)
	}
	if c.RuleID == nil || *c.RuleID != 7 {
		t.Errorf("rule id = %v, want 7", c.RuleID)
	}
	if got := rules.recordedIDs(); len(got) != 1 || got[0] != 7 {
		t.Errorf("recorded matches = %v, want [7]", got)
	}
	if local.calls != 0 || cloud.calls != 0 {
		t.Error("a rule match must stop before any model tier")
	}
}

func TestPipelineRuleWithoutBatchActionStillTerminates(t *testing.T) {
	rule := structuredRule(&domain.RuleTrigger{Sender: "boss@example.com"})
	rule.Action = nil

	rules := &fakeRuleSource{rules: []*domain.Rule{rule}}
	cloud := &fakeCloud{}
	p := newTestPipeline(rules, nil, cloud, nil, nil)

	result := p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "boss@example.com"})
	if result.Classification.BatchType != nil {
		t.Error("a rule with no batch action keeps the item individual")
	}
	if cloud.calls != 0 {
		t.Error("a matching rule is terminal even without a batch action")
	}
}

func TestPipelineFastTier(t *testing.T) {
	tests := []struct {
		name       string
		sender     string
		local      *fakeLocal
		wantTier   domain.Tier
		wantLocal  int
		wantCloud  int
		wantBatch  string
		cloudReply string
	}{
		{
			name:      "confident fast answer accepted",
			sender:    "noreply@shop.example.com",
			local:     &fakeLocal{available: true, output: `{"batch_type":"receipts","confidence":0.9,"reason":"order receipt"}`},
			wantTier:  domain.TierFast,
			wantLocal: 1,
			wantBatch: "receipts",
		},
		{
			name:       "low confidence falls through to cloud",
			sender:     "noreply@shop.example.com",
			local:      &fakeLocal{available: true, output: `{"batch_type":"receipts","confidence":0.6,"reason":"maybe a receipt"}`},
			wantTier:   domain.TierCloud,
			wantLocal:  1,
			wantCloud:  1,
			wantBatch:  "receipts",
			cloudReply: `{"batch_type":"receipts","confidence":0.7,"reason":"order receipt"}`,
		},
		{
			name:       "human-looking sender skips the fast tier",
			sender:     "alice@example.com",
			local:      &fakeLocal{available: true, output: `{"batch_type":"receipts","confidence":0.99,"reason":"never asked"}`},
			wantTier:   domain.TierCloud,
			wantLocal:  0,
			wantCloud:  1,
			cloudReply: `{"batch_type":null,"confidence":0.5,"reason":"personal"}`,
		},
		{
			name:       "unavailable local model falls through",
			sender:     "noreply@shop.example.com",
			local:      &fakeLocal{available: false},
			wantTier:   domain.TierCloud,
			wantLocal:  0,
			wantCloud:  1,
			cloudReply: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`,
		},
		{
			name:       "unparseable fast output falls through",
			sender:     "noreply@shop.example.com",
			local:      &fakeLocal{available: true, output: "cannot say"},
			wantTier:   domain.TierCloud,
			wantLocal:  1,
			wantCloud:  1,
			cloudReply: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`,
		},
		{
			name:       "fast call error falls through",
			sender:     "noreply@shop.example.com",
			local:      &fakeLocal{available: true, err: errors.New("connection refused")},
			wantTier:   domain.TierCloud,
			wantLocal:  1,
			wantCloud:  1,
			cloudReply: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := &fakeRuleSource{}
			cloud := &fakeCloud{output: tt.cloudReply}
			p := newTestPipeline(rules, tt.local, cloud, nil, nil)

			result := p.Classify(context.Background(), &domain.Item{ID: 1, Connector: "gmail", Sender: tt.sender})

			if result.Classification.Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", result.Classification.Tier, tt.wantTier)
			}
			if tt.local.calls != tt.wantLocal {
				t.Errorf("local calls = %d, want %d", tt.local.calls, tt.wantLocal)
			}
			if cloud.calls != tt.wantCloud {
				t.Errorf("cloud calls = %d, want %d", cloud.calls, tt.wantCloud)
			}
			if tt.wantBatch != "" {
				if result.Classification.BatchType == nil || *result.Classification.BatchType != tt.wantBatch {
					t.Errorf("batch type = %v, want %s", result.Classification.BatchType, tt.wantBatch)
				}
			}
		})
	}
}

func TestPipelineCloudContext(t *testing.T) {
	items := newFakeItemRepo()
	items.bySender = map[domain.TriagePath]int{domain.TriagePathBulk: 4}
	items.byDomain = map[domain.TriagePath]int{domain.TriagePathBulk: 9, domain.TriagePathEngaged: 1}

	rules := &fakeRuleSource{guidance: []string{"Real people stay individual."}}
	cloud := &fakeCloud{output: `{"batch_type":"newsletters","confidence":0.7,"reason":"digest"}`}
	p := newTestPipeline(rules, nil, cloud, &fakeMemctx{context: "prefers terse updates"}, items)

	p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "digest@news.example.com"})

	req := cloud.lastReq
	if req == nil {
		t.Fatal("cloud tier was never called")
	}
	if len(req.GuidanceTexts) != 1 {
		t.Errorf("guidance = %v", req.GuidanceTexts)
	}
	if req.History == "" || req.History == "No prior history for this sender." {
		t.Errorf("history = %q, want rendered buckets", req.History)
	}
	if req.MemoryContext != "prefers terse updates" {
		t.Errorf("memory context = %q", req.MemoryContext)
	}
}

func TestPipelineCloudEnrichment(t *testing.T) {
	rules := &fakeRuleSource{}
	cloud := &fakeCloud{output: `{"batch_type":null,"confidence":0.6,"reason":"personal","summary":"Quick question about Q3","priority":0.7,"tags":["question"]}`}
	p := newTestPipeline(rules, nil, cloud, nil, nil)

	result := p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "alice@example.com"})

	if result.Enrichment == nil {
		t.Fatal("expected enrichment from the cloud tier")
	}
	if result.Enrichment.Summary == nil || *result.Enrichment.Summary != "Quick question about Q3" {
		t.Errorf("summary = %v", result.Enrichment.Summary)
	}
	if result.Enrichment.Priority == nil || *result.Enrichment.Priority != domain.Priority(0.7) {
		t.Errorf("priority = %v", result.Enrichment.Priority)
	}
}

func TestPipelineFallback(t *testing.T) {
	tests := []struct {
		name  string
		cloud *fakeCloud
	}{
		{name: "cloud call fails", cloud: &fakeCloud{err: errors.New("rate limited")}},
		{name: "cloud output unparseable", cloud: &fakeCloud{output: "I refuse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(&fakeRuleSource{}, nil, tt.cloud, nil, nil)
			result := p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "x@example.com"})

			c := result.Classification
			if c.Tier != domain.TierCloud || c.BatchType != nil || c.Confidence != 0 {
				t.Errorf("fallback = %+v", c)
			}
			if c.Reason != "classification failed" {
				t.Errorf("reason = %q", c.Reason)
			}
		})
	}
}

func TestPipelineNoTiersConfigured(t *testing.T) {
	p := newTestPipeline(&fakeRuleSource{}, nil, nil, nil, nil)
	result := p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "x@example.com"})
	if result.Classification.Reason != "classification failed" {
		t.Errorf("with no model tiers the outcome must be the safe fallback, got %+v", result.Classification)
	}
}

func TestPipelineRuleListErrorStillClassifies(t *testing.T) {
	rules := &fakeRuleSource{listErr: errors.New("db down")}
	cloud := &fakeCloud{output: `{"batch_type":null,"confidence":0.5,"reason":"fine"}`}
	p := newTestPipeline(rules, nil, cloud, nil, nil)

	result := p.Classify(context.Background(), &domain.Item{ID: 1, Sender: "x@example.com"})
	if result.Classification.Tier != domain.TierCloud {
		t.Errorf("tier = %s, want cloud", result.Classification.Tier)
	}
}
