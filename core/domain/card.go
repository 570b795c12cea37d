package domain

import (
	"time"
)

// CardPattern distinguishes the kinds of pending cards surfaced for a
// human decision.
type CardPattern string

const (
	// CardPatternBatch groups items sharing a batch type for one bulk
	// decision.
	CardPatternBatch CardPattern = "batch"
	// CardPatternLearning carries rule suggestions mined from recent
	// decisions, awaiting approval.
	CardPatternLearning CardPattern = "learning"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusPending   CardStatus = "pending"
	CardStatusConfirmed CardStatus = "confirmed"
)

// CardData is the payload of a card. Batch cards use BatchType, Action,
// ItemCount and Explanation; learning cards use Suggestions.
type CardData struct {
	BatchType   string `json:"batch_type,omitempty"`
	Action      string `json:"action,omitempty"`
	ItemCount   int    `json:"item_count,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	Suggestions []RuleSuggestion `json:"suggestions,omitempty"`

	// Resolution audit, written when the card is confirmed.
	AcceptedCount int        `json:"accepted_count,omitempty"`
	RejectedCount int        `json:"rejected_count,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// Card is a single pending grouping object awaiting one human resolution.
// At most one pending batch card exists per batch type at any time.
type Card struct {
	ID      int64       `json:"id"`
	Pattern CardPattern `json:"pattern"`
	Status  CardStatus  `json:"status"`
	Title   string      `json:"title"`
	Data    CardData    `json:"data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CardActionArchive is the default bulk action applied to accepted items.
const CardActionArchive = "archive"
