package statutory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type fakeCatalog struct {
	GetActiveRulesFn func(ctx context.Context, p period.Period) ([]statutory.Rule, error)
}

func (f *fakeCatalog) GetActiveRules(ctx context.Context, p period.Period) ([]statutory.Rule, error) {
	return f.GetActiveRulesFn(ctx, p)
}

func staticRules(rules ...statutory.Rule) *fakeCatalog {
	return &fakeCatalog{GetActiveRulesFn: func(context.Context, period.Period) ([]statutory.Rule, error) {
		return rules, nil
	}}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolve_PercentageEmployeeRule(t *testing.T) {
	catalog := staticRules(statutory.Rule{
		ID: "r1", Name: "Social security", IsPercentage: true, Value: dec("12"),
		AffectsNet: true, IsActive: true, ActiveFromPeriod: period.MustParse("2025-01"),
	})

	result, err := NewResolver(catalog).Resolve(context.Background(), dec("27000"), period.MustParse("2025-06"))
	require.NoError(t, err)

	assert.True(t, dec("3240").Equal(result.Total), result.Total.String())
	require.Len(t, result.EmployeeLines, 1)
	assert.Equal(t, "Social security", result.EmployeeLines[0].Name)
	assert.Empty(t, result.EmployerLines)
}

func TestResolve_EmployerRulesAreReportedNotSubtracted(t *testing.T) {
	catalog := staticRules(
		statutory.Rule{ID: "r1", Name: "Income tax", Value: dec("500"), AffectsNet: true, IsActive: true, ActiveFromPeriod: period.MustParse("2024-01")},
		statutory.Rule{ID: "r2", Name: "Employer pension", IsPercentage: true, Value: dec("5"), IsActive: true, ActiveFromPeriod: period.MustParse("2024-01")},
	)

	result, err := NewResolver(catalog).Resolve(context.Background(), dec("10000"), period.MustParse("2025-06"))
	require.NoError(t, err)

	assert.True(t, dec("500").Equal(result.Total))
	require.Len(t, result.EmployerLines, 1)
	assert.True(t, dec("500").Equal(result.EmployerLines[0].Amount))
	assert.True(t, dec("500").Equal(result.EmployerTotal))
}

func TestResolve_ActivationMonth(t *testing.T) {
	rule := statutory.Rule{
		ID: "r1", Name: "Health levy", Value: dec("100"), AffectsNet: true,
		IsActive: true, ActiveFromPeriod: period.MustParse("2025-07"),
	}

	tests := []struct {
		period string
		want   string
	}{
		{"2025-06", "0"},
		{"2025-07", "100"},
		{"2026-01", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			result, err := NewResolver(staticRules(rule)).Resolve(context.Background(), dec("20000"), period.MustParse(tt.period))
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(result.Total), result.Total.String())
		})
	}
}

func TestResolve_InactiveRuleNeverContributes(t *testing.T) {
	catalog := staticRules(statutory.Rule{
		ID: "r1", Name: "Old levy", Value: dec("100"), AffectsNet: true,
		IsActive: false, ActiveFromPeriod: period.MustParse("2020-01"),
	})

	result, err := NewResolver(catalog).Resolve(context.Background(), dec("20000"), period.MustParse("2025-06"))
	require.NoError(t, err)
	assert.True(t, result.Total.IsZero())
	assert.Empty(t, result.EmployeeLines)
}

func TestResolve_FixedRuleAppliesOnZeroGross(t *testing.T) {
	catalog := staticRules(statutory.Rule{
		ID: "r1", Name: "Union fee", Value: dec("150"), AffectsNet: true,
		IsActive: true, ActiveFromPeriod: period.MustParse("2025-01"),
	})

	result, err := NewResolver(catalog).Resolve(context.Background(), decimal.Zero, period.MustParse("2025-06"))
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(result.Total))
}

func TestResolve_PercentageRoundsToCents(t *testing.T) {
	catalog := staticRules(statutory.Rule{
		ID: "r1", Name: "Levy", IsPercentage: true, Value: dec("1.5"), AffectsNet: true,
		IsActive: true, ActiveFromPeriod: period.MustParse("2025-01"),
	})

	result, err := NewResolver(catalog).Resolve(context.Background(), dec("333.33"), period.MustParse("2025-06"))
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(result.Total), result.Total.String())
}

func TestResolve_Errors(t *testing.T) {
	_, err := NewResolver(staticRules(statutory.Rule{
		ID: "r1", Name: "Broken", Value: dec("-1"), AffectsNet: true, IsActive: true, ActiveFromPeriod: period.MustParse("2025-01"),
	})).Resolve(context.Background(), dec("100"), period.MustParse("2025-06"))
	assert.ErrorIs(t, err, statutory.ErrNegativeRuleValue)

	boom := errors.New("catalog down")
	_, err = NewResolver(&fakeCatalog{GetActiveRulesFn: func(context.Context, period.Period) ([]statutory.Rule, error) {
		return nil, boom
	}}).Resolve(context.Background(), dec("100"), period.MustParse("2025-06"))
	assert.ErrorIs(t, err, boom)
}
