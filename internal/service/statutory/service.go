package statutory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

var hundred = decimal.NewFromInt(100)

type ResolverImpl struct {
	catalog statutory.Catalog
}

func NewResolver(catalog statutory.Catalog) statutory.Resolver {
	return &ResolverImpl{catalog: catalog}
}

// Resolve implements statutory.Resolver. Percentage amounts are rounded to cents.
func (r *ResolverImpl) Resolve(ctx context.Context, gross decimal.Decimal, p period.Period) (statutory.Result, error) {
	if !p.Valid() {
		return statutory.Result{}, period.ErrInvalidPeriod
	}

	rules, err := r.catalog.GetActiveRules(ctx, p)
	if err != nil {
		return statutory.Result{}, fmt.Errorf("failed to get statutory rules: %w", err)
	}

	result := statutory.Result{
		Total:         decimal.Zero,
		EmployeeLines: []statutory.Line{},
		EmployerLines: []statutory.Line{},
		EmployerTotal: decimal.Zero,
	}

	for _, rule := range rules {
		if !rule.AppliesTo(p) {
			continue
		}
		if rule.Value.IsNegative() {
			return statutory.Result{}, fmt.Errorf("%w: rule %q", statutory.ErrNegativeRuleValue, rule.Name)
		}

		line := statutory.Line{
			RuleID:       rule.ID,
			Name:         rule.Name,
			IsPercentage: rule.IsPercentage,
			Value:        rule.Value,
			AffectsNet:   rule.AffectsNet,
			Amount:       amountOf(rule, gross),
		}

		if rule.AffectsNet {
			result.EmployeeLines = append(result.EmployeeLines, line)
			result.Total = result.Total.Add(line.Amount)
		} else {
			result.EmployerLines = append(result.EmployerLines, line)
			result.EmployerTotal = result.EmployerTotal.Add(line.Amount)
		}
	}

	return result, nil
}

func amountOf(rule statutory.Rule, gross decimal.Decimal) decimal.Decimal {
	if !rule.IsPercentage {
		return rule.Value
	}
	return gross.Mul(rule.Value).Div(hundred).Round(2)
}
