package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/discount-engine/internal/domain/rule"
)

var _ rule.Repository = (*RuleRepository)(nil)

// RuleRepository implements rule.Repository backed by PostgreSQL.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// ListActive returns every active rule ordered by ID. The ordering backs the
// engine's last-wins slot semantics and must stay stable.
func (r *RuleRepository) ListActive(ctx context.Context) ([]rule.Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, active, threshold, percentage, flat_amount, category, min_quantity
		 FROM discount_rules WHERE active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list active rules")
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		var ru rule.Rule
		if err := rows.Scan(&ru.ID, &ru.Kind, &ru.Active, &ru.Threshold,
			&ru.Percentage, &ru.FlatAmount, &ru.Category, &ru.MinQuantity); err != nil {
			return nil, errors.Wrap(err, "scan rule")
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}
