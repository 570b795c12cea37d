package domain

import (
	"time"
)

// ItemStatus represents the lifecycle state of an inbox item.
type ItemStatus string

const (
	ItemStatusNew      ItemStatus = "new"
	ItemStatusArchived ItemStatus = "archived"
	ItemStatusSnoozed  ItemStatus = "snoozed"
	ItemStatusActioned ItemStatus = "actioned"
)

// Priority represents item priority as a score from 0.0 to 1.0.
//
// Score ranges:
//   - 0.80 ~ 1.00: Urgent (requires immediate action)
//   - 0.60 ~ 0.79: High (important, should address soon)
//   - 0.40 ~ 0.59: Normal (relevant, worth reading)
//   - 0.20 ~ 0.39: Low (can be deferred)
//   - 0.00 ~ 0.19: Lowest (background noise)
type Priority float64

const (
	PriorityLowest Priority = 0.10
	PriorityLow    Priority = 0.30
	PriorityNormal Priority = 0.50
	PriorityHigh   Priority = 0.70
	PriorityUrgent Priority = 0.90
)

// String returns the human-readable priority level.
func (p Priority) String() string {
	switch {
	case p >= 0.80:
		return "urgent"
	case p >= 0.60:
		return "high"
	case p >= 0.40:
		return "normal"
	case p >= 0.20:
		return "low"
	default:
		return "lowest"
	}
}

// Item is one unit of triage: a message, notification or meeting record
// pulled in by a connector. The triage pipeline only reads items and
// incrementally updates Classification and Enrichment; everything else is
// owned by the ingestion side.
type Item struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Connector  string `json:"connector"`

	Sender     string  `json:"sender"`
	SenderName *string `json:"sender_name,omitempty"`
	Subject    string  `json:"subject"`
	Content    string  `json:"content"`

	Status   ItemStatus `json:"status"`
	Priority Priority   `json:"priority"`
	Tags     []string   `json:"tags,omitempty"`

	Enrichment     *Enrichment     `json:"enrichment,omitempty"`
	Classification *Classification `json:"classification,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SenderDomain returns the part of the sender address after the last '@',
// or "" when the sender has no domain.
func (i *Item) SenderDomain() string {
	return SenderDomain(i.Sender)
}

// SenderDomain extracts the domain from a sender address. Handles with no
// '@' have no domain.
func SenderDomain(sender string) string {
	for idx := len(sender) - 1; idx >= 0; idx-- {
		if sender[idx] == '@' {
			return sender[idx+1:]
		}
	}
	return ""
}

// Enrichment holds model-derived metadata for an item. Fields are merged
// onto the item one at a time: a nil field never overwrites a value
// already present.
type Enrichment struct {
	Summary  *string   `json:"summary,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// Merge combines an update into the receiver, keeping existing values for
// fields the update leaves unset.
func (e *Enrichment) Merge(update *Enrichment) *Enrichment {
	if update == nil {
		return e
	}
	if e == nil {
		cp := *update
		return &cp
	}
	merged := *e
	if update.Summary != nil {
		merged.Summary = update.Summary
	}
	if update.Priority != nil {
		merged.Priority = update.Priority
	}
	if len(update.Tags) > 0 {
		merged.Tags = update.Tags
	}
	return &merged
}
