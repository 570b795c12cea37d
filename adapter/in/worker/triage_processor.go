package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/service/triage"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/apperr"
)

// TriageProcessor executes triage jobs against the triage service.
type TriageProcessor struct {
	service *triage.Service
	items   out.ItemRepository
	log     zerolog.Logger
}

// NewTriageProcessor creates a triage job processor.
func NewTriageProcessor(service *triage.Service, items out.ItemRepository, log zerolog.Logger) *TriageProcessor {
	return &TriageProcessor{
		service: service,
		items:   items,
		log:     log.With().Str("component", "triage_processor").Logger(),
	}
}

// ProcessItem classifies a single item by ID and persists the outcome.
// An already-classified item is a no-op so redelivered jobs are safe.
func (p *TriageProcessor) ProcessItem(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[TriageItemPayload](msg)
	if err != nil {
		return apperr.InvalidInput("payload", err.Error())
	}
	if payload.ItemID == 0 {
		return apperr.MissingField("item_id")
	}

	item, err := p.items.GetByID(ctx, payload.ItemID)
	if err != nil {
		return fmt.Errorf("failed to load item %d: %w", payload.ItemID, err)
	}
	if item == nil {
		p.log.Warn().Int64("item_id", payload.ItemID).Msg("triage.item for unknown item")
		return nil
	}
	if item.Classification != nil {
		return nil
	}

	result := p.service.Classify(ctx, item)
	if err := p.items.UpdateClassification(ctx, item.ID, result.Classification); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}
	if result.Enrichment != nil {
		if err := p.items.MergeEnrichment(ctx, item.ID, result.Enrichment); err != nil {
			p.log.Warn().Err(err).Int64("item_id", item.ID).Msg("failed to merge enrichment")
		}
	}
	return nil
}

// ProcessPass sweeps unclassified items.
func (p *TriageProcessor) ProcessPass(ctx context.Context, _ *Message) error {
	report, err := p.service.RunBatchPass(ctx)
	if err != nil {
		return err
	}
	if report.Errors > 0 {
		p.log.Warn().Int("errors", report.Errors).Msg("classification pass finished with item errors")
	}
	return nil
}

// ProcessReclassify re-checks the individual review pool against rules.
func (p *TriageProcessor) ProcessReclassify(ctx context.Context, _ *Message) error {
	_, err := p.service.Reclassify(ctx)
	return err
}

// ProcessAssign groups classified items onto pending batch cards.
func (p *TriageProcessor) ProcessAssign(ctx context.Context, _ *Message) error {
	_, err := p.service.AssignBatches(ctx)
	return err
}

// ProcessLearning runs one learning loop iteration.
func (p *TriageProcessor) ProcessLearning(ctx context.Context, _ *Message) error {
	_, err := p.service.RunLearning(ctx)
	return err
}
