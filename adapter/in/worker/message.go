// Package worker runs the background triage jobs: the scheduled
// classification, assignment and learning passes, plus single-item
// classification submitted by the ingestion side.
package worker

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	// JobTriageItem classifies one freshly ingested item.
	JobTriageItem JobType = "triage.item"
	// JobTriagePass sweeps all unclassified items.
	JobTriagePass JobType = "triage.pass"
	// JobTriageReclassify re-checks individual-review items against the
	// current rule set.
	JobTriageReclassify JobType = "triage.reclassify"
	// JobBatchAssign groups classified items onto pending cards.
	JobBatchAssign JobType = "batch.assign"
	// JobLearningRun mines the trailing decision window for rule
	// proposals.
	JobLearningRun JobType = "learning.run"
)

type Message struct {
	ID        string         `json:"id"`
	Type      JobType        `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType JobType, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// TriageItemPayload identifies the item a triage.item job classifies.
type TriageItemPayload struct {
	ItemID int64 `json:"item_id"`
}
