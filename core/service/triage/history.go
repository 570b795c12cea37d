package triage

import (
	"context"
	"fmt"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// HistoryAggregator summarizes a sender's and sender-domain's past triage
// outcomes into the compact text injected into cloud-tier prompts.
type HistoryAggregator struct {
	items out.ItemRepository
}

// NewHistoryAggregator creates an aggregator over item history.
func NewHistoryAggregator(items out.ItemRepository) *HistoryAggregator {
	return &HistoryAggregator{items: items}
}

// History counts already-resolved items (status != new) for the exact
// sender and for the sender's domain, bucketed by recorded triage path.
func (a *HistoryAggregator) History(ctx context.Context, sender string) (*domain.DecisionSummary, error) {
	senderDomain := domain.SenderDomain(sender)
	bySender, byDomain, err := a.items.HistoryBuckets(ctx, sender, senderDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate decision history: %w", err)
	}
	return &domain.DecisionSummary{
		Sender:        sender,
		SenderDomain:  senderDomain,
		SenderBuckets: bySender,
		DomainBuckets: byDomain,
	}, nil
}
