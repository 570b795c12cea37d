package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// DecisionAdapter implements out.DecisionRepository as a read-only view
// over resolved items. A decision exists once an item carries a recorded
// triage path.
type DecisionAdapter struct {
	db *sqlx.DB
}

// NewDecisionAdapter creates a new DecisionAdapter.
func NewDecisionAdapter(db *sqlx.DB) *DecisionAdapter {
	return &DecisionAdapter{db: db}
}

// decisionRow represents one resolved item.
type decisionRow struct {
	ItemID    int64          `db:"id"`
	Connector string         `db:"connector"`
	Sender    string         `db:"sender"`
	Subject   string         `db:"subject"`
	BatchType sql.NullString `db:"class_batch_type"`
	Tier      string         `db:"class_tier"`
	Path      string         `db:"class_triage_path"`
	DecidedAt time.Time      `db:"updated_at"`
}

func (r *decisionRow) toEntity() *domain.TriageDecision {
	decision := &domain.TriageDecision{
		ItemID:    r.ItemID,
		Connector: r.Connector,
		Sender:    r.Sender,
		Subject:   r.Subject,
		Tier:      domain.Tier(r.Tier),
		Path:      domain.TriagePath(r.Path),
		DecidedAt: r.DecidedAt,
	}
	if r.BatchType.Valid {
		decision.BatchType = &r.BatchType.String
	}
	return decision
}

// ListSince retrieves decisions resolved at or after the given time,
// oldest first.
func (a *DecisionAdapter) ListSince(ctx context.Context, since time.Time) ([]*domain.TriageDecision, error) {
	var rows []decisionRow
	query := `
		SELECT id, connector, sender, subject, class_batch_type, class_tier, class_triage_path, updated_at
		FROM items
		WHERE class_triage_path IS NOT NULL AND updated_at >= $1
		ORDER BY updated_at ASC`

	if err := a.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to list triage decisions: %w", err)
	}

	decisions := make([]*domain.TriageDecision, len(rows))
	for i := range rows {
		decisions[i] = rows[i].toEntity()
	}
	return decisions, nil
}
