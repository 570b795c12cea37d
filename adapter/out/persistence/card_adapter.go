package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// CardAdapter implements out.CardRepository. The single-pending-card
// invariant lives in the schema: a partial unique index on
// (pattern, batch_type) WHERE status = 'pending' makes the get-or-create
// race-free across concurrent assignment passes.
type CardAdapter struct {
	db *sqlx.DB
}

// NewCardAdapter creates a new CardAdapter.
func NewCardAdapter(db *sqlx.DB) *CardAdapter {
	return &CardAdapter{db: db}
}

// cardRow represents the database row.
type cardRow struct {
	ID        int64           `db:"id"`
	Pattern   string          `db:"pattern"`
	Status    string          `db:"status"`
	Title     string          `db:"title"`
	BatchType string          `db:"batch_type"`
	Data      json.RawMessage `db:"data"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r *cardRow) toEntity() (*domain.Card, error) {
	card := &domain.Card{
		ID:        r.ID,
		Pattern:   domain.CardPattern(r.Pattern),
		Status:    domain.CardStatus(r.Status),
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &card.Data); err != nil {
			return nil, fmt.Errorf("failed to decode card data: %w", err)
		}
	}
	return card, nil
}

// GetOrCreatePending returns the single pending card for
// (pattern, batchType), inserting it from the template when absent. The
// insert ignores the unique-index conflict, so whichever caller loses the
// race falls through to the select and sees the winner's card.
func (a *CardAdapter) GetOrCreatePending(ctx context.Context, pattern domain.CardPattern, batchType string, template *domain.Card) (*domain.Card, bool, error) {
	data, err := json.Marshal(template.Data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode card data: %w", err)
	}

	insert := `
		INSERT INTO cards (pattern, status, title, batch_type, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pattern, batch_type) WHERE status = 'pending' AND pattern = 'batch' DO NOTHING
		RETURNING id`

	var id int64
	err = a.db.QueryRowxContext(ctx, insert,
		string(pattern), string(domain.CardStatusPending), template.Title, batchType, data).Scan(&id)
	created := err == nil
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to insert pending card: %w", err)
	}

	var row cardRow
	query := `
		SELECT * FROM cards
		WHERE pattern = $1 AND batch_type = $2 AND status = $3`

	if err := a.db.GetContext(ctx, &row, query, string(pattern), batchType, string(domain.CardStatusPending)); err != nil {
		return nil, false, fmt.Errorf("failed to load pending card: %w", err)
	}

	card, err := row.toEntity()
	if err != nil {
		return nil, false, err
	}
	return card, created, nil
}

// Create inserts a card unconditionally, filling in its assigned ID.
// Learning cards use this: each run proposes a fresh card.
func (a *CardAdapter) Create(ctx context.Context, card *domain.Card) error {
	data, err := json.Marshal(card.Data)
	if err != nil {
		return fmt.Errorf("failed to encode card data: %w", err)
	}

	query := `
		INSERT INTO cards (pattern, status, title, batch_type, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	row := a.db.QueryRowxContext(ctx, query,
		string(card.Pattern), string(card.Status), card.Title, card.Data.BatchType, data)
	if err := row.Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetByID retrieves a card. A missing card is nil, not an error.
func (a *CardAdapter) GetByID(ctx context.Context, id int64) (*domain.Card, error) {
	var row cardRow
	query := `SELECT * FROM cards WHERE id = $1`

	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return row.toEntity()
}

// AddItemCount adds n to the card's running item count inside its JSONB
// payload.
func (a *CardAdapter) AddItemCount(ctx context.Context, id int64, n int) error {
	query := `
		UPDATE cards SET
			data = jsonb_set(data, '{item_count}',
				to_jsonb(COALESCE((data->>'item_count')::int, 0) + $2)),
			updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, id, n)
	if err != nil {
		return fmt.Errorf("failed to add card item count: %w", err)
	}
	return requireRow(result, "card", id)
}

// Confirm transitions the card to confirmed with its audit payload.
func (a *CardAdapter) Confirm(ctx context.Context, id int64, data domain.CardData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode card data: %w", err)
	}

	query := `
		UPDATE cards SET status = $2, data = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, id, string(domain.CardStatusConfirmed), encoded)
	if err != nil {
		return fmt.Errorf("failed to confirm card: %w", err)
	}
	return requireRow(result, "card", id)
}
