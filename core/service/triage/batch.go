package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// AssignReport summarizes one assignment pass.
type AssignReport struct {
	Assigned int            `json:"assigned"`
	PerType  map[string]int `json:"per_type"`
}

// Assigner groups classified items into pending batch cards. The pass is
// idempotent: it only ever touches items with no card linkage, and the
// single pending card per batch type is enforced by the repository's
// atomic get-or-create.
type Assigner struct {
	items out.ItemRepository
	cards out.CardRepository
	now   func() time.Time
	log   zerolog.Logger
}

// NewAssigner creates a batch assigner.
func NewAssigner(items out.ItemRepository, cards out.CardRepository, log zerolog.Logger) *Assigner {
	return &Assigner{
		items: items,
		cards: cards,
		now:   time.Now,
		log:   log.With().Str("component", "batch_assigner").Logger(),
	}
}

// Assign finds items with a batch type but no card, groups them by batch
// type, stamps each group onto the single pending card for that type and
// accumulates the card's item count.
func (a *Assigner) Assign(ctx context.Context) (*AssignReport, error) {
	items, err := a.items.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unassigned items: %w", err)
	}

	groups := make(map[string][]*domain.Item)
	for _, item := range items {
		if item.Classification == nil || item.Classification.BatchType == nil {
			continue
		}
		bt := *item.Classification.BatchType
		groups[bt] = append(groups[bt], item)
	}

	report := &AssignReport{PerType: make(map[string]int)}
	for batchType, group := range groups {
		card, created, err := a.cards.GetOrCreatePending(ctx, domain.CardPatternBatch, batchType, &domain.Card{
			Pattern: domain.CardPatternBatch,
			Status:  domain.CardStatusPending,
			Title:   fmt.Sprintf("Review %s", batchType),
			Data: domain.CardData{
				BatchType:   batchType,
				Action:      domain.CardActionArchive,
				Explanation: fmt.Sprintf("Items classified as %s, grouped for one decision.", batchType),
			},
		})
		if err != nil {
			a.log.Error().Err(err).Str("batch_type", batchType).Msg("failed to get or create batch card")
			continue
		}
		if created {
			a.log.Info().Str("batch_type", batchType).Int64("card_id", card.ID).Msg("pending batch card created")
		}

		stamped := 0
		for _, item := range group {
			if err := a.items.SetBatchCard(ctx, item.ID, card.ID); err != nil {
				a.log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to stamp batch card")
				continue
			}
			stamped++
		}
		if stamped == 0 {
			continue
		}
		if err := a.cards.AddItemCount(ctx, card.ID, stamped); err != nil {
			a.log.Error().Err(err).Int64("card_id", card.ID).Msg("failed to bump card item count")
		}
		report.Assigned += stamped
		report.PerType[batchType] += stamped
	}

	return report, nil
}

// Resolver applies a user's bulk decision over a batch card: the card's
// configured action for accepted items, declassification for rejected
// ones. One item failing never aborts the rest.
type Resolver struct {
	items out.ItemRepository
	cards out.CardRepository
	now   func() time.Time
	log   zerolog.Logger
}

// NewResolver creates a batch resolver.
func NewResolver(items out.ItemRepository, cards out.CardRepository, log zerolog.Logger) *Resolver {
	return &Resolver{
		items: items,
		cards: cards,
		now:   time.Now,
		log:   log.With().Str("component", "batch_resolver").Logger(),
	}
}

// Resolve executes the card's action on accepted items, returns rejected
// items to individual review, and confirms the card with an audit
// payload. Further items of the same batch type will open a new card.
func (r *Resolver) Resolve(ctx context.Context, cardID int64, accepted, rejected []int64) error {
	card, err := r.cards.GetByID(ctx, cardID)
	if err != nil {
		return fmt.Errorf("failed to load card %d: %w", cardID, err)
	}
	if card == nil {
		return fmt.Errorf("card %d not found", cardID)
	}

	action := card.Data.Action
	if action == "" {
		action = domain.CardActionArchive
	}

	acceptedOK := 0
	for _, id := range accepted {
		if err := r.acceptItem(ctx, id, action); err != nil {
			r.log.Error().Err(err).Int64("item_id", id).Msg("failed to resolve accepted item")
			continue
		}
		acceptedOK++
	}

	rejectedOK := 0
	for _, id := range rejected {
		if err := r.rejectItem(ctx, id, card.Data.BatchType); err != nil {
			r.log.Error().Err(err).Int64("item_id", id).Msg("failed to declassify rejected item")
			continue
		}
		rejectedOK++
	}

	resolvedAt := r.now()
	data := card.Data
	data.AcceptedCount = acceptedOK
	data.RejectedCount = rejectedOK
	data.ResolvedAt = &resolvedAt
	if err := r.cards.Confirm(ctx, cardID, data); err != nil {
		return fmt.Errorf("failed to confirm card %d: %w", cardID, err)
	}

	r.log.Info().
		Int64("card_id", cardID).
		Str("action", action).
		Int("accepted", acceptedOK).
		Int("rejected", rejectedOK).
		Msg("batch card resolved")
	return nil
}

// acceptItem records the bulk triage path and applies the card action.
func (r *Resolver) acceptItem(ctx context.Context, id int64, action string) error {
	item, err := r.items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %d not found", id)
	}

	if item.Classification != nil {
		path := domain.TriagePathBulk
		c := *item.Classification
		c.TriagePath = &path
		if err := r.items.UpdateClassification(ctx, id, &c); err != nil {
			return err
		}
	}

	switch action {
	case domain.CardActionArchive:
		return r.items.UpdateStatus(ctx, id, domain.ItemStatusArchived)
	default:
		// Unknown actions are delivered by connector-side executors; the
		// triage core only records the decision.
		return r.items.UpdateStatus(ctx, id, domain.ItemStatusActioned)
	}
}

// rejectItem clears the item's batch classification, leaving the sentinel
// that stops rule-only reclassification from re-batching it.
func (r *Resolver) rejectItem(ctx context.Context, id int64, batchType string) error {
	return r.items.UpdateClassification(ctx, id, domain.Declassify(batchType, r.now()))
}
