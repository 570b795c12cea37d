// Package out defines outbound ports (driven ports) for the triage core.
// These interfaces are the only view the core has of persistence and of
// the model-calling collaborators.
package out

import (
	"context"
	"time"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// ItemRepository is the persistence port for inbox items. The triage core
// reads items and writes only their classification state and status.
type ItemRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)

	// ListUnclassified returns items with no classification record, oldest
	// first, up to limit.
	ListUnclassified(ctx context.Context, limit int) ([]*domain.Item, error)

	// ListReviewPool returns classified items with a nil batch type, the
	// candidates for rule-only reclassification.
	ListReviewPool(ctx context.Context, limit int) ([]*domain.Item, error)

	// ListUnassigned returns items with a non-nil batch type and no batch
	// card linkage.
	ListUnassigned(ctx context.Context) ([]*domain.Item, error)

	// UpdateClassification replaces the item's classification record.
	UpdateClassification(ctx context.Context, id int64, c *domain.Classification) error

	// SetBatchCard stamps the card linkage onto an already-classified item.
	SetBatchCard(ctx context.Context, id int64, cardID int64) error

	// UpdateStatus transitions the item's lifecycle status.
	UpdateStatus(ctx context.Context, id int64, status domain.ItemStatus) error

	// MergeEnrichment merges derived metadata onto the item, keeping
	// existing values for fields the update leaves unset.
	MergeEnrichment(ctx context.Context, id int64, e *domain.Enrichment) error

	// HistoryBuckets counts resolved items (status != new) for the exact
	// sender and for the sender's domain, bucketed by triage path.
	HistoryBuckets(ctx context.Context, sender, senderDomain string) (bySender, byDomain map[domain.TriagePath]int, err error)
}

// RuleRepository is the persistence port for triage rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.Rule) error
	Update(ctx context.Context, rule *domain.Rule) error
	GetByID(ctx context.Context, id int64) (*domain.Rule, error)
	GetByName(ctx context.Context, name string) (*domain.Rule, error)
	ListActive(ctx context.Context) ([]*domain.Rule, error)
	ListAll(ctx context.Context) ([]*domain.Rule, error)
	SetStatus(ctx context.Context, id int64, status domain.RuleStatus) error
	IncrementMatchCount(ctx context.Context, id int64) error
}

// CardRepository is the persistence port for pending cards.
type CardRepository interface {
	// GetOrCreatePending atomically returns the single pending card for
	// (pattern, batchType), creating it from the template when absent.
	// Concurrent callers observe the same card. created reports whether
	// this call inserted it.
	GetOrCreatePending(ctx context.Context, pattern domain.CardPattern, batchType string, template *domain.Card) (card *domain.Card, created bool, err error)

	Create(ctx context.Context, card *domain.Card) error
	GetByID(ctx context.Context, id int64) (*domain.Card, error)

	// AddItemCount adds n to the card's running item count.
	AddItemCount(ctx context.Context, id int64, n int) error

	// Confirm transitions the card to confirmed with its audit payload.
	Confirm(ctx context.Context, id int64, data domain.CardData) error
}

// DecisionRepository exposes the trailing window of resolved triage
// decisions the learning loop mines.
type DecisionRepository interface {
	ListSince(ctx context.Context, since time.Time) ([]*domain.TriageDecision, error)
}
