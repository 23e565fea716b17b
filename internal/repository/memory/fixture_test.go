package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
)

const sampleFixture = `
employees:
  - id: emp-1
    code: G-001
    name: Ana Guard
    role: guard
    base_salary: 30000
codes:
  - {code: P, name: Present, multiplier: 1}
  - {code: H, name: Half day, multiplier: 0.5}
attendance:
  - {employee_id: emp-1, date: 2025-06-02, code: P}
  - {employee_id: emp-1, date: 2025-06-03, code: H}
  - {employee_id: emp-1, date: 2025-07-01, code: P}
statutory_rules:
  - {id: r1, name: Social security, percentage: true, value: 12, affects_net: true, active: true, active_from: 2025-01}
advances:
  - id: loan-1
    employee_id: emp-1
    total: 5000
    remaining: 5000
    monthly: 2000
    priority: high
    expected_completion: 2025-08
skips:
  - {loan_id: loan-1, period: 2025-07, reason: medical emergency}
deduction_types:
  - {id: dt-1, name: Uniform, active: true}
`

func TestLoadFixture(t *testing.T) {
	s, err := LoadFixture(strings.NewReader(sampleFixture))
	require.NoError(t, err)
	ctx := context.Background()

	emp, err := s.Employees().GetByID(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30000).Equal(emp.BaseSalary))
	assert.True(t, emp.IsActive())

	entries, err := s.Attendance().GetEntries(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	m, err := s.Codes().GetMultiplier(ctx, "H")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.5").Equal(m))

	rules, err := s.Statutory().GetActiveRules(ctx, june)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].IsPercentage)

	loan, err := s.Loans().GetByID(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, advance.PriorityHigh, loan.PriorityLevel)
	assert.Equal(t, "2025-08", loan.ExpectedCompletionPeriod.String())

	sk, err := s.Skips().GetActive(ctx, "loan-1", june.AddMonths(1))
	require.NoError(t, err)
	assert.Equal(t, "medical emergency", sk.Reason)

	dt, err := s.DeductionTypes().GetByID(ctx, "dt-1")
	require.NoError(t, err)
	assert.True(t, dt.IsActive)
}

func TestLoadFixture_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"unknown field", "employees:\n  - id: emp-1\n    salary: 10\n"},
		{"negative salary", "employees:\n  - id: emp-1\n    base_salary: -1\n"},
		{"missing employee id", "employees:\n  - code: G-001\n"},
		{"balance above total", "advances:\n  - {id: l1, employee_id: e, total: 100, remaining: 200, monthly: 10, expected_completion: 2025-01}\n"},
		{"missing horizon", "advances:\n  - {id: l1, employee_id: e, total: 100, remaining: 50, monthly: 10}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixture(strings.NewReader(tt.fixture))
			assert.Error(t, err)
		})
	}
}

func TestLoadFixture_Empty(t *testing.T) {
	s, err := LoadFixture(strings.NewReader(""))
	require.NoError(t, err)
	got, err := s.Employees().GetActive(context.Background(), june)
	require.NoError(t, err)
	assert.Empty(t, got)
}
