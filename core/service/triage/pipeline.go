package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/metrics"
)

// FastConfidenceThreshold gates the fast tier: a local-model answer below
// it is treated as a miss and falls through to the cloud tier.
const FastConfidenceThreshold = 0.85

// RuleSource is the pipeline's view of the rule store.
type RuleSource interface {
	ListActive(ctx context.Context) ([]*domain.Rule, error)
	GuidanceTexts(ctx context.Context) ([]string, error)
	// RecordMatch is best-effort; it must never block or fail the
	// classification path.
	RecordMatch(ruleID int64)
}

// Result is the outcome of classifying one item: the classification
// record plus any enrichment the cloud tier produced alongside it.
type Result struct {
	Classification *domain.Classification
	Enrichment     *domain.Enrichment
}

// PipelineConfig tunes the pipeline. Zero values get defaults.
type PipelineConfig struct {
	// IndividualConnectors always short-circuit to individual review
	// (meeting-record sources; a small model has nothing useful to add).
	IndividualConnectors []string

	// AutomatedSenderHints are substrings marking machine senders; the
	// fast tier only ever sees items matching one of them.
	AutomatedSenderHints []string
}

// DefaultPipelineConfig returns the stock connector override table and
// automated-sender pre-filter.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		IndividualConnectors: []string{"granola", "notetaker"},
		AutomatedSenderHints: []string{
			"noreply", "no-reply", "donotreply", "do-not-reply",
			"notifications@", "notification@", "mailer-daemon",
			"newsletter@", "news@", "updates@", "digest@", "alerts@",
			"marketing@", "hello@", "info@", "support@", "bounce",
		},
	}
}

// tierHandler is one stage of the fallback chain. It returns its result
// and whether it accepted the item; a pass moves on to the next tier.
type tierHandler struct {
	tier domain.Tier
	run  func(ctx context.Context, item *domain.Item, rules []*domain.Rule) (*Result, bool)
}

// Pipeline orchestrates the tiered triage decision: rule tier, fast/local
// tier, cloud tier, each gated by applicability and confidence. Classify
// never returns an error; total failure degrades to a safe fallback that
// keeps the item in individual review.
type Pipeline struct {
	rules   RuleSource
	history *HistoryAggregator
	memctx  out.ContextProvider
	local   out.LocalClassifier
	cloud   out.CloudClassifier

	cfg   PipelineConfig
	tiers []tierHandler
	now   func() time.Time
	log   zerolog.Logger
}

// NewPipeline assembles the tier chain. local, cloud and memctx may be
// nil; a nil tier is simply never applicable.
func NewPipeline(
	rules RuleSource,
	history *HistoryAggregator,
	memctx out.ContextProvider,
	local out.LocalClassifier,
	cloud out.CloudClassifier,
	cfg PipelineConfig,
	log zerolog.Logger,
) *Pipeline {
	if len(cfg.IndividualConnectors) == 0 && len(cfg.AutomatedSenderHints) == 0 {
		cfg = DefaultPipelineConfig()
	}
	p := &Pipeline{
		rules:   rules,
		history: history,
		memctx:  memctx,
		local:   local,
		cloud:   cloud,
		cfg:     cfg,
		now:     time.Now,
		log:     log.With().Str("component", "pipeline").Logger(),
	}
	// The chain is an ordered list so adding or removing a tier is a list
	// edit, not a branching refactor.
	p.tiers = []tierHandler{
		{tier: domain.TierRule, run: p.connectorOverride},
		{tier: domain.TierRule, run: p.ruleTier},
		{tier: domain.TierFast, run: p.fastTier},
		{tier: domain.TierCloud, run: p.cloudTier},
	}
	return p
}

// Classify runs an item through the tier chain and always produces a
// terminal outcome. A nil batch type in the result means "keep for
// individual review".
func (p *Pipeline) Classify(ctx context.Context, item *domain.Item) *Result {
	rules, err := p.rules.ListActive(ctx)
	if err != nil {
		p.log.Warn().Err(err).Int64("item_id", item.ID).Msg("active rules unavailable, continuing without rule tier")
		rules = nil
	}

	for _, handler := range p.tiers {
		if result, ok := handler.run(ctx, item, rules); ok {
			return result
		}
	}

	return &Result{Classification: domain.FallbackClassification(p.now())}
}

// connectorOverride short-circuits connectors whose items are always
// individual (meeting records). No model call, full confidence.
func (p *Pipeline) connectorOverride(_ context.Context, item *domain.Item, _ []*domain.Rule) (*Result, bool) {
	for _, connector := range p.cfg.IndividualConnectors {
		if item.Connector == connector {
			return &Result{Classification: &domain.Classification{
				Tier:         domain.TierRule,
				Confidence:   1,
				Reason:       fmt.Sprintf("%s items are always reviewed individually", connector),
				ClassifiedAt: p.now(),
			}}, true
		}
	}
	return nil, false
}

// ruleTier takes the first active structured rule whose trigger matches.
func (p *Pipeline) ruleTier(_ context.Context, item *domain.Item, rules []*domain.Rule) (*Result, bool) {
	rule := FirstMatch(rules, item)
	if rule == nil {
		return nil, false
	}

	p.rules.RecordMatch(rule.ID)

	ruleID := rule.ID
	c := &domain.Classification{
		Tier:         domain.TierRule,
		Confidence:   1,
		Reason:       fmt.Sprintf("matched rule %q", rule.Name),
		RuleID:       &ruleID,
		ClassifiedAt: p.now(),
	}
	if bt := rule.BatchType(); bt != "" {
		c.BatchType = &bt
	}
	return &Result{Classification: c}, true
}

// fastTier asks the local model, but only for items that look automated:
// real-person correspondence skips it entirely so a small model never
// misjudges a nuanced human message. The answer is accepted only at or
// above FastConfidenceThreshold.
func (p *Pipeline) fastTier(ctx context.Context, item *domain.Item, _ []*domain.Rule) (*Result, bool) {
	if p.local == nil || !p.local.Available() {
		return nil, false
	}
	if !p.looksAutomated(item) {
		return nil, false
	}

	guidance, err := p.rules.GuidanceTexts(ctx)
	if err != nil {
		guidance = nil
	}

	start := time.Now()
	output, err := p.local.Classify(ctx, &out.ClassifyRequest{
		Connector:     item.Connector,
		Sender:        item.Sender,
		Subject:       item.Subject,
		Content:       item.Content,
		GuidanceTexts: guidance,
	})
	metrics.RecordLatency("classify.fast", time.Since(start))
	if err != nil {
		p.log.Debug().Err(err).Int64("item_id", item.ID).Msg("fast tier unavailable for item")
		return nil, false
	}

	decision, err := parseDecision(output)
	if err != nil {
		p.log.Debug().Err(err).Int64("item_id", item.ID).Msg("fast tier output unparseable")
		return nil, false
	}
	if decision.Confidence < FastConfidenceThreshold {
		return nil, false
	}

	return &Result{Classification: &domain.Classification{
		Tier:         domain.TierFast,
		BatchType:    decision.BatchType,
		Confidence:   decision.Confidence,
		Reason:       decision.Reason,
		ClassifiedAt: p.now(),
	}}, true
}

// cloudTier is the terminal model tier: full context, always accepted
// regardless of confidence, because nothing comes after it. Failures
// degrade to the safe fallback rather than erroring.
func (p *Pipeline) cloudTier(ctx context.Context, item *domain.Item, _ []*domain.Rule) (*Result, bool) {
	if p.cloud == nil {
		return nil, false
	}

	req := &out.ClassifyRequest{
		Connector: item.Connector,
		Sender:    item.Sender,
		Subject:   item.Subject,
		Content:   item.Content,
	}
	if guidance, err := p.rules.GuidanceTexts(ctx); err == nil {
		req.GuidanceTexts = guidance
	}
	if p.history != nil {
		if summary, err := p.history.History(ctx, item.Sender); err == nil {
			req.History = summary.Render()
		}
	}
	if p.memctx != nil {
		req.MemoryContext = p.memctx.ContextFor(ctx, item.Sender)
	}

	start := time.Now()
	output, err := p.cloud.Classify(ctx, req)
	metrics.RecordLatency("classify.cloud", time.Since(start))
	if err != nil {
		p.log.Warn().Err(err).Int64("item_id", item.ID).Msg("cloud tier call failed")
		return &Result{Classification: domain.FallbackClassification(p.now())}, true
	}

	decision, err := parseDecision(output)
	if err != nil {
		p.log.Warn().Err(err).Int64("item_id", item.ID).Msg("cloud tier output unparseable")
		return &Result{Classification: domain.FallbackClassification(p.now())}, true
	}

	result := &Result{Classification: &domain.Classification{
		Tier:         domain.TierCloud,
		BatchType:    decision.BatchType,
		Confidence:   decision.Confidence,
		Reason:       decision.Reason,
		ClassifiedAt: p.now(),
	}}
	if decision.Summary != "" || decision.Priority != nil || len(decision.Tags) > 0 {
		enrichment := &domain.Enrichment{Priority: decision.Priority, Tags: decision.Tags}
		if decision.Summary != "" {
			summary := decision.Summary
			enrichment.Summary = &summary
		}
		result.Enrichment = enrichment
	}
	return result, true
}

// looksAutomated reports whether the sender reads like a machine.
func (p *Pipeline) looksAutomated(item *domain.Item) bool {
	sender := strings.ToLower(item.Sender)
	for _, hint := range p.cfg.AutomatedSenderHints {
		if strings.Contains(sender, hint) {
			return true
		}
	}
	return false
}
