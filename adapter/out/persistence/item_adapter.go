// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// ItemAdapter implements out.ItemRepository over the items table.
// Classification state is flattened into dedicated columns so the pass
// queries stay plain indexed lookups.
type ItemAdapter struct {
	db *sqlx.DB
}

// NewItemAdapter creates a new ItemAdapter.
func NewItemAdapter(db *sqlx.DB) *ItemAdapter {
	return &ItemAdapter{db: db}
}

// itemRow represents the database row.
type itemRow struct {
	ID           int64          `db:"id"`
	ExternalID   string         `db:"external_id"`
	Connector    string         `db:"connector"`
	Sender       string         `db:"sender"`
	SenderName   sql.NullString `db:"sender_name"`
	SenderDomain string         `db:"sender_domain"`
	Subject      string         `db:"subject"`
	Content      string         `db:"content"`
	Status       string         `db:"status"`
	Priority     float64        `db:"priority"`
	Tags         pq.StringArray `db:"tags"`
	Summary      sql.NullString `db:"summary"`

	ClassTier         sql.NullString  `db:"class_tier"`
	ClassBatchType    sql.NullString  `db:"class_batch_type"`
	ClassConfidence   sql.NullFloat64 `db:"class_confidence"`
	ClassReason       sql.NullString  `db:"class_reason"`
	ClassRuleID       sql.NullInt64   `db:"class_rule_id"`
	ClassCardID       sql.NullInt64   `db:"class_batch_card_id"`
	ClassTriagePath   sql.NullString  `db:"class_triage_path"`
	ClassClassifiedAt sql.NullTime    `db:"classified_at"`

	ReceivedAt time.Time `db:"received_at"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *itemRow) toEntity() *domain.Item {
	item := &domain.Item{
		ID:         r.ID,
		ExternalID: r.ExternalID,
		Connector:  r.Connector,
		Sender:     r.Sender,
		Subject:    r.Subject,
		Content:    r.Content,
		Status:     domain.ItemStatus(r.Status),
		Priority:   domain.Priority(r.Priority),
		Tags:       r.Tags,
		ReceivedAt: r.ReceivedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.SenderName.Valid {
		item.SenderName = &r.SenderName.String
	}
	if r.Summary.Valid || r.Priority > 0 || len(r.Tags) > 0 {
		e := &domain.Enrichment{Tags: r.Tags}
		if r.Summary.Valid {
			e.Summary = &r.Summary.String
		}
		if r.Priority > 0 {
			p := domain.Priority(r.Priority)
			e.Priority = &p
		}
		item.Enrichment = e
	}
	if r.ClassTier.Valid {
		c := &domain.Classification{
			Tier:       domain.Tier(r.ClassTier.String),
			Confidence: r.ClassConfidence.Float64,
			Reason:     r.ClassReason.String,
		}
		if r.ClassBatchType.Valid {
			c.BatchType = &r.ClassBatchType.String
		}
		if r.ClassRuleID.Valid {
			c.RuleID = &r.ClassRuleID.Int64
		}
		if r.ClassCardID.Valid {
			c.BatchCardID = &r.ClassCardID.Int64
		}
		if r.ClassTriagePath.Valid {
			path := domain.TriagePath(r.ClassTriagePath.String)
			c.TriagePath = &path
		}
		if r.ClassClassifiedAt.Valid {
			c.ClassifiedAt = r.ClassClassifiedAt.Time
		}
		item.Classification = c
	}
	return item
}

// GetByID retrieves an item by ID. A missing item is nil, not an error.
func (a *ItemAdapter) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var row itemRow
	query := `SELECT * FROM items WHERE id = $1`

	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return row.toEntity(), nil
}

// ListUnclassified retrieves items nothing has classified yet, oldest
// first.
func (a *ItemAdapter) ListUnclassified(ctx context.Context, limit int) ([]*domain.Item, error) {
	var rows []itemRow
	query := `
		SELECT * FROM items
		WHERE class_tier IS NULL AND status = $1
		ORDER BY received_at ASC
		LIMIT $2`

	if err := a.db.SelectContext(ctx, &rows, query, string(domain.ItemStatusNew), limit); err != nil {
		return nil, fmt.Errorf("failed to list unclassified items: %w", err)
	}

	return toItems(rows), nil
}

// ListReviewPool retrieves classified items with no batch type, the
// candidates for rule-only reclassification.
func (a *ItemAdapter) ListReviewPool(ctx context.Context, limit int) ([]*domain.Item, error) {
	var rows []itemRow
	query := `
		SELECT * FROM items
		WHERE class_tier IS NOT NULL AND class_batch_type IS NULL AND status = $1
		ORDER BY received_at ASC
		LIMIT $2`

	if err := a.db.SelectContext(ctx, &rows, query, string(domain.ItemStatusNew), limit); err != nil {
		return nil, fmt.Errorf("failed to list review pool: %w", err)
	}

	return toItems(rows), nil
}

// ListUnassigned retrieves batch-classified items not yet on a card.
func (a *ItemAdapter) ListUnassigned(ctx context.Context) ([]*domain.Item, error) {
	var rows []itemRow
	query := `
		SELECT * FROM items
		WHERE class_batch_type IS NOT NULL AND class_batch_card_id IS NULL AND status = $1
		ORDER BY received_at ASC`

	if err := a.db.SelectContext(ctx, &rows, query, string(domain.ItemStatusNew)); err != nil {
		return nil, fmt.Errorf("failed to list unassigned items: %w", err)
	}

	return toItems(rows), nil
}

// UpdateClassification replaces the item's classification columns.
func (a *ItemAdapter) UpdateClassification(ctx context.Context, id int64, c *domain.Classification) error {
	query := `
		UPDATE items SET
			class_tier = $2,
			class_batch_type = $3,
			class_confidence = $4,
			class_reason = $5,
			class_rule_id = $6,
			class_batch_card_id = $7,
			class_triage_path = $8,
			classified_at = $9,
			updated_at = NOW()
		WHERE id = $1`

	var path *string
	if c.TriagePath != nil {
		p := string(*c.TriagePath)
		path = &p
	}

	result, err := a.db.ExecContext(ctx, query, id,
		string(c.Tier), c.BatchType, c.Confidence, c.Reason,
		c.RuleID, c.BatchCardID, path, c.ClassifiedAt)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	return requireRow(result, "item", id)
}

// SetBatchCard stamps the card linkage onto an already-classified item.
func (a *ItemAdapter) SetBatchCard(ctx context.Context, id int64, cardID int64) error {
	query := `
		UPDATE items SET class_batch_card_id = $2, updated_at = NOW()
		WHERE id = $1 AND class_tier IS NOT NULL`

	result, err := a.db.ExecContext(ctx, query, id, cardID)
	if err != nil {
		return fmt.Errorf("failed to set batch card: %w", err)
	}
	return requireRow(result, "item", id)
}

// UpdateStatus transitions the item's lifecycle status.
func (a *ItemAdapter) UpdateStatus(ctx context.Context, id int64, status domain.ItemStatus) error {
	query := `UPDATE items SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}
	return requireRow(result, "item", id)
}

// MergeEnrichment merges derived metadata onto the item. Unset fields
// keep their stored values.
func (a *ItemAdapter) MergeEnrichment(ctx context.Context, id int64, e *domain.Enrichment) error {
	if e == nil {
		return nil
	}
	query := `
		UPDATE items SET
			summary = COALESCE($2, summary),
			priority = COALESCE($3, priority),
			tags = COALESCE($4, tags),
			updated_at = NOW()
		WHERE id = $1`

	var priority *float64
	if e.Priority != nil {
		p := float64(*e.Priority)
		priority = &p
	}
	var tags interface{}
	if len(e.Tags) > 0 {
		tags = pq.Array(e.Tags)
	}

	result, err := a.db.ExecContext(ctx, query, id, e.Summary, priority, tags)
	if err != nil {
		return fmt.Errorf("failed to merge enrichment: %w", err)
	}
	return requireRow(result, "item", id)
}

// HistoryBuckets counts resolved items for the exact sender and for the
// sender's domain, bucketed by recorded triage path.
func (a *ItemAdapter) HistoryBuckets(ctx context.Context, sender, senderDomain string) (map[domain.TriagePath]int, map[domain.TriagePath]int, error) {
	type bucketRow struct {
		Path  string `db:"path"`
		Count int    `db:"count"`
	}

	query := `
		SELECT class_triage_path AS path, COUNT(*) AS count
		FROM items
		WHERE sender = $1 AND status <> $2 AND class_triage_path IS NOT NULL
		GROUP BY class_triage_path`

	var rows []bucketRow
	if err := a.db.SelectContext(ctx, &rows, query, sender, string(domain.ItemStatusNew)); err != nil {
		return nil, nil, fmt.Errorf("failed to bucket sender history: %w", err)
	}
	bySender := make(map[domain.TriagePath]int, len(rows))
	for _, row := range rows {
		bySender[domain.TriagePath(row.Path)] = row.Count
	}

	byDomain := make(map[domain.TriagePath]int)
	if senderDomain != "" {
		query = `
			SELECT class_triage_path AS path, COUNT(*) AS count
			FROM items
			WHERE sender_domain = $1 AND status <> $2 AND class_triage_path IS NOT NULL
			GROUP BY class_triage_path`

		rows = rows[:0]
		if err := a.db.SelectContext(ctx, &rows, query, senderDomain, string(domain.ItemStatusNew)); err != nil {
			return nil, nil, fmt.Errorf("failed to bucket domain history: %w", err)
		}
		for _, row := range rows {
			byDomain[domain.TriagePath(row.Path)] = row.Count
		}
	}

	return bySender, byDomain, nil
}

func toItems(rows []itemRow) []*domain.Item {
	items := make([]*domain.Item, len(rows))
	for i := range rows {
		items[i] = rows[i].toEntity()
	}
	return items
}
