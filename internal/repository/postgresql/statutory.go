package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type statutoryRepository struct {
	db *database.DB
}

func NewStatutoryRepository(db *database.DB) statutory.Catalog {
	return &statutoryRepository{db: db}
}

// GetActiveRules implements statutory.Catalog.
func (s *statutoryRepository) GetActiveRules(ctx context.Context, p period.Period) ([]statutory.Rule, error) {
	q := GetQuerier(ctx, s.db)

	// periods are stored as YYYY-MM, so text order is chronological
	query := `
		SELECT id, name, is_percentage, value, affects_net, is_active, active_from_period, created_at, updated_at
		FROM statutory_rules
		WHERE is_active = true AND active_from_period <= $1
		ORDER BY active_from_period, name
	`

	rows, err := q.Query(ctx, query, p.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list statutory rules: %w", err)
	}
	defer rows.Close()

	var rules []statutory.Rule
	for rows.Next() {
		var (
			r          statutory.Rule
			activeFrom string
		)
		if err := rows.Scan(
			&r.ID, &r.Name, &r.IsPercentage, &r.Value, &r.AffectsNet, &r.IsActive, &activeFrom, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statutory rule: %w", err)
		}
		if r.ActiveFromPeriod, err = period.Parse(activeFrom); err != nil {
			return nil, fmt.Errorf("statutory rule %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statutory rules: %w", err)
	}

	return rules, nil
}
