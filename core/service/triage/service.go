package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// PassReport summarizes one classification batch pass.
type PassReport struct {
	Classified int                 `json:"classified"`
	ByTier     map[domain.Tier]int `json:"by_tier"`
	Errors     int                 `json:"errors"`
}

// Service is the triage surface exposed to the rest of the system:
// classify one item, run the scheduled passes, resolve a batch card, run
// the learning loop.
type Service struct {
	items    out.ItemRepository
	pipeline *Pipeline
	rules    RuleSource
	assigner *Assigner
	resolver *Resolver
	learning *LearningLoop

	passLimit int
	now       func() time.Time
	log       zerolog.Logger
}

// NewService wires the triage surface.
func NewService(
	items out.ItemRepository,
	pipeline *Pipeline,
	rules RuleSource,
	assigner *Assigner,
	resolver *Resolver,
	learning *LearningLoop,
	passLimit int,
	log zerolog.Logger,
) *Service {
	if passLimit <= 0 {
		passLimit = 200
	}
	return &Service{
		items:     items,
		pipeline:  pipeline,
		rules:     rules,
		assigner:  assigner,
		resolver:  resolver,
		learning:  learning,
		passLimit: passLimit,
		now:       time.Now,
		log:       log.With().Str("component", "triage").Logger(),
	}
}

// Classify runs one item through the pipeline without persisting.
// Classification is advisory metadata: it never gates direct user actions
// on the item.
func (s *Service) Classify(ctx context.Context, item *domain.Item) *Result {
	return s.pipeline.Classify(ctx, item)
}

// RunBatchPass scans for unclassified items and classifies each one
// independently. A per-item failure is logged and counted; the pass
// always continues. Re-running the pass over unchanged data is a no-op:
// already-classified items are never touched.
func (s *Service) RunBatchPass(ctx context.Context) (*PassReport, error) {
	items, err := s.items.ListUnclassified(ctx, s.passLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified items: %w", err)
	}

	report := &PassReport{ByTier: make(map[domain.Tier]int)}
	for _, item := range items {
		result := s.pipeline.Classify(ctx, item)

		if err := s.items.UpdateClassification(ctx, item.ID, result.Classification); err != nil {
			report.Errors++
			s.log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to persist classification")
			continue
		}
		if result.Enrichment != nil {
			if err := s.items.MergeEnrichment(ctx, item.ID, result.Enrichment); err != nil {
				// Enrichment is secondary metadata; the classification
				// itself already landed.
				s.log.Warn().Err(err).Int64("item_id", item.ID).Msg("failed to merge enrichment")
			}
		}

		report.Classified++
		report.ByTier[result.Classification.Tier]++
	}

	s.log.Info().
		Int("classified", report.Classified).
		Int("errors", report.Errors).
		Interface("by_tier", report.ByTier).
		Msg("classification pass complete")
	return report, nil
}

// Reclassify re-checks items sitting in individual review against the
// current rule set, with no model calls, so newly authored rules
// retroactively catch previously-ambiguous items. Items a user explicitly
// pulled out of a batch are skipped. Running it twice yields the same
// final state.
func (s *Service) Reclassify(ctx context.Context) (int, error) {
	items, err := s.items.ListReviewPool(ctx, s.passLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list review pool: %w", err)
	}
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active rules: %w", err)
	}

	moved := 0
	for _, item := range items {
		if item.Classification.Declassified() {
			continue
		}
		rule := FirstMatch(rules, item)
		if rule == nil {
			continue
		}
		bt := rule.BatchType()
		if bt == "" {
			continue
		}

		ruleID := rule.ID
		c := &domain.Classification{
			Tier:         domain.TierRule,
			BatchType:    &bt,
			Confidence:   1,
			Reason:       fmt.Sprintf("matched rule %q", rule.Name),
			RuleID:       &ruleID,
			ClassifiedAt: s.now(),
		}
		if err := s.items.UpdateClassification(ctx, item.ID, c); err != nil {
			s.log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to persist reclassification")
			continue
		}
		s.rules.RecordMatch(rule.ID)
		moved++
	}

	if moved > 0 {
		s.log.Info().Int("moved", moved).Msg("rule-only reclassification pass complete")
	}
	return moved, nil
}

// AssignBatches groups classified, unassigned items into pending batch
// cards.
func (s *Service) AssignBatches(ctx context.Context) (*AssignReport, error) {
	return s.assigner.Assign(ctx)
}

// ResolveBatch applies a user's bulk decision over a batch card.
func (s *Service) ResolveBatch(ctx context.Context, cardID int64, accepted, rejected []int64) error {
	return s.resolver.Resolve(ctx, cardID, accepted, rejected)
}

// RunLearning mines the trailing decision window for rule proposals.
// Without a cloud classifier the loop is disabled and reports zero
// suggestions.
func (s *Service) RunLearning(ctx context.Context) (*LearningReport, error) {
	if s.learning == nil {
		return &LearningReport{}, nil
	}
	return s.learning.Run(ctx)
}
