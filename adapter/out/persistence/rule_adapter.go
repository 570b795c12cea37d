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

// RuleAdapter implements out.RuleRepository. Trigger and action are
// stored as JSONB: the core matches rules in memory, so the database
// never needs to query inside them.
type RuleAdapter struct {
	db *sqlx.DB
}

// NewRuleAdapter creates a new RuleAdapter.
func NewRuleAdapter(db *sqlx.DB) *RuleAdapter {
	return &RuleAdapter{db: db}
}

// ruleRow represents the database row.
type ruleRow struct {
	ID            int64           `db:"id"`
	Type          string          `db:"type"`
	Name          string          `db:"name"`
	Trigger       json.RawMessage `db:"trigger"`
	Action        json.RawMessage `db:"action"`
	Guidance      sql.NullString  `db:"guidance"`
	Status        string          `db:"status"`
	Source        string          `db:"source"`
	MatchCount    int64           `db:"match_count"`
	LastMatchedAt sql.NullTime    `db:"last_matched_at"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *ruleRow) toEntity() (*domain.Rule, error) {
	rule := &domain.Rule{
		ID:         r.ID,
		Type:       domain.RuleType(r.Type),
		Name:       r.Name,
		Status:     domain.RuleStatus(r.Status),
		Source:     domain.RuleSource(r.Source),
		MatchCount: r.MatchCount,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if len(r.Trigger) > 0 {
		var trigger domain.RuleTrigger
		if err := json.Unmarshal(r.Trigger, &trigger); err != nil {
			return nil, fmt.Errorf("failed to decode rule trigger: %w", err)
		}
		rule.Trigger = &trigger
	}
	if len(r.Action) > 0 {
		var action domain.RuleAction
		if err := json.Unmarshal(r.Action, &action); err != nil {
			return nil, fmt.Errorf("failed to decode rule action: %w", err)
		}
		rule.Action = &action
	}
	if r.Guidance.Valid {
		rule.Guidance = &r.Guidance.String
	}
	if r.LastMatchedAt.Valid {
		rule.LastMatchedAt = &r.LastMatchedAt.Time
	}
	return rule, nil
}

func encodeRule(rule *domain.Rule) (trigger, action []byte, err error) {
	if rule.Trigger != nil {
		trigger, err = json.Marshal(rule.Trigger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode rule trigger: %w", err)
		}
	}
	if rule.Action != nil {
		action, err = json.Marshal(rule.Action)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode rule action: %w", err)
		}
	}
	return trigger, action, nil
}

// Create inserts a rule and fills in its assigned ID.
func (a *RuleAdapter) Create(ctx context.Context, rule *domain.Rule) error {
	trigger, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rules (type, name, trigger, action, guidance, status, source, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	row := a.db.QueryRowxContext(ctx, query,
		string(rule.Type), rule.Name, nullableJSON(trigger), nullableJSON(action),
		rule.Guidance, string(rule.Status), string(rule.Source), rule.Version)
	if err := row.Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// Update replaces a rule's mutable fields.
func (a *RuleAdapter) Update(ctx context.Context, rule *domain.Rule) error {
	trigger, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE rules SET
			type = $2, name = $3, trigger = $4, action = $5, guidance = $6,
			status = $7, version = $8, updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, rule.ID,
		string(rule.Type), rule.Name, nullableJSON(trigger), nullableJSON(action),
		rule.Guidance, string(rule.Status), rule.Version)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRow(result, "rule", rule.ID)
}

// GetByID retrieves a rule by ID. A missing rule is nil, not an error.
func (a *RuleAdapter) GetByID(ctx context.Context, id int64) (*domain.Rule, error) {
	var row ruleRow
	query := `SELECT * FROM rules WHERE id = $1`

	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return row.toEntity()
}

// GetByName retrieves a rule by its unique name.
func (a *RuleAdapter) GetByName(ctx context.Context, name string) (*domain.Rule, error) {
	var row ruleRow
	query := `SELECT * FROM rules WHERE name = $1`

	if err := a.db.GetContext(ctx, &row, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule by name: %w", err)
	}

	return row.toEntity()
}

// ListActive retrieves active rules, oldest first so earlier rules win
// first-match.
func (a *RuleAdapter) ListActive(ctx context.Context) ([]*domain.Rule, error) {
	return a.list(ctx, `SELECT * FROM rules WHERE status = $1 ORDER BY id`, string(domain.RuleStatusActive))
}

// ListAll retrieves every rule regardless of status.
func (a *RuleAdapter) ListAll(ctx context.Context) ([]*domain.Rule, error) {
	return a.list(ctx, `SELECT * FROM rules ORDER BY id`)
}

func (a *RuleAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Rule, error) {
	var rows []ruleRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]*domain.Rule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SetStatus flips a rule's lifecycle status.
func (a *RuleAdapter) SetStatus(ctx context.Context, id int64, status domain.RuleStatus) error {
	query := `UPDATE rules SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to set rule status: %w", err)
	}
	return requireRow(result, "rule", id)
}

// IncrementMatchCount bumps the rule's hit counter and match timestamp.
func (a *RuleAdapter) IncrementMatchCount(ctx context.Context, id int64) error {
	query := `
		UPDATE rules SET match_count = match_count + 1, last_matched_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment match count: %w", err)
	}
	return requireRow(result, "rule", id)
}

// nullableJSON returns NULL for an absent JSON value instead of an empty
// byte slice.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
