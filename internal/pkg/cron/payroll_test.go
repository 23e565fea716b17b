package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
)

type fakePayrollService struct {
	payroll.PayrollService
	RunAndSaveFn func(ctx context.Context, p string) (payroll.RunAndSaveResult, error)
}

func (f *fakePayrollService) RunAndSave(ctx context.Context, p string) (payroll.RunAndSaveResult, error) {
	return f.RunAndSaveFn(ctx, p)
}

type fakeAdvanceService struct {
	advance.Service
	ListOverdueLoansFn func(ctx context.Context, current string) ([]advance.LoanResponse, error)
}

func (f *fakeAdvanceService) ListOverdueLoans(ctx context.Context, current string) ([]advance.LoanResponse, error) {
	return f.ListOverdueLoansFn(ctx, current)
}

func fixedNow(s string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return func() time.Time { return t }
}

func TestAutoGenerateSalaryRecords_UsesPreviousPeriod(t *testing.T) {
	var got string
	jobs := NewPayrollJobs(&fakePayrollService{
		RunAndSaveFn: func(_ context.Context, p string) (payroll.RunAndSaveResult, error) {
			got = p
			return payroll.RunAndSaveResult{
				Batch: payroll.BatchResult{Failed: []payroll.EmployeeFailure{{EmployeeID: "emp-3", Reason: "boom"}}},
				Save:  payroll.SaveResult{Saved: []string{"rec-1"}},
			}, nil
		},
	}, nil)
	jobs.now = fixedNow("2026-01-01T01:00:00Z")

	require.NoError(t, jobs.AutoGenerateSalaryRecords(context.Background()))
	assert.Equal(t, "2025-12", got)
}

func TestAutoGenerateSalaryRecords_PropagatesError(t *testing.T) {
	jobs := NewPayrollJobs(&fakePayrollService{
		RunAndSaveFn: func(context.Context, string) (payroll.RunAndSaveResult, error) {
			return payroll.RunAndSaveResult{}, errors.New("directory offline")
		},
	}, nil)

	err := jobs.AutoGenerateSalaryRecords(context.Background())
	assert.ErrorContains(t, err, "directory offline")
}

func TestReportOverdueAdvances(t *testing.T) {
	var got string
	jobs := NewPayrollJobs(nil, &fakeAdvanceService{
		ListOverdueLoansFn: func(_ context.Context, current string) ([]advance.LoanResponse, error) {
			got = current
			return []advance.LoanResponse{{ID: "loan-1", RemainingBalance: decimal.NewFromInt(4000), ExpectedCompletionPeriod: "2025-08"}}, nil
		},
	})
	jobs.now = fixedNow("2025-10-15T07:00:00Z")

	require.NoError(t, jobs.ReportOverdueAdvances(context.Background()))
	assert.Equal(t, "2025-10", got)
}

func TestRegisterJobs(t *testing.T) {
	s := NewScheduler(time.UTC)
	jobs := NewPayrollJobs(&fakePayrollService{}, &fakeAdvanceService{})

	require.NoError(t, jobs.RegisterJobs(s, "0 1 1 * *", ""))
	registered := s.Jobs()
	require.Len(t, registered, 1)
	assert.Equal(t, "auto_generate_salary_records", registered[0].Name)

	assert.Error(t, jobs.RegisterJobs(NewScheduler(time.UTC), "monthly", ""))
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(time.UTC)
	calls := 0
	require.NoError(t, s.AddJob("count", "@daily", func(context.Context) error {
		calls++
		return nil
	}))
	require.NoError(t, s.AddJob("fail", "@hourly", func(context.Context) error {
		return errors.New("ignored")
	}))

	s.RunOnce(context.Background())
	assert.Equal(t, 1, calls)

	s.Start()
	s.Stop()
}
