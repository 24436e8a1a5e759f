package categorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
)

// ErrRuleNotFound is returned when a rule id does not exist for the user.
var ErrRuleNotFound = errors.New("categorization: rule not found")

// Repository persists user categorization rules.
type Repository struct {
	db db.Querier
}

// NewRepository creates a categorization repository on the given pool.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ListRules fetches all rules for a user, strongest first.
func (r *Repository) ListRules(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	query := `
		SELECT id, user_id, pattern, category, clean_name, priority, created_at
		FROM category_rules
		WHERE user_id = $1
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.Pattern,
			&rule.Category,
			&rule.CleanName,
			&rule.Priority,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// CreateRule inserts a rule, or updates the existing one when the user
// already has a rule for the same pattern: resubmitting is how users refine
// a rule, so the last submission wins.
func (r *Repository) CreateRule(ctx context.Context, rule *Rule) error {
	query := `
		INSERT INTO category_rules (user_id, pattern, category, clean_name, priority)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, pattern) DO UPDATE SET
			category = EXCLUDED.category,
			clean_name = EXCLUDED.clean_name,
			priority = EXCLUDED.priority
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		rule.UserID,
		rule.Pattern,
		rule.Category,
		rule.CleanName,
		rule.Priority,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// DeleteRule removes one rule owned by the user.
func (r *Repository) DeleteRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM category_rules WHERE id = $1 AND user_id = $2`, ruleID, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}
