package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

var june = period.MustParse("2025-06")

func seededStore() *Store {
	s := NewStore()
	s.AddEmployee(employee.Employee{ID: "emp-1", EmployeeCode: "G-001", FullName: "Ana Guard", BaseSalary: decimal.NewFromInt(30000)})
	s.AddEmployee(employee.Employee{ID: "emp-2", EmployeeCode: "G-002", FullName: "Ben Guard", BaseSalary: decimal.NewFromInt(20000)})
	s.AddEmployee(employee.Employee{ID: "emp-3", EmployeeCode: "A-001", FullName: "Cy Admin", Status: employee.StatusInactive})
	s.AddLoan(advance.Loan{
		ID: "loan-1", EmployeeID: "emp-1",
		TotalAdvanceAmount: decimal.NewFromInt(5000), RemainingBalance: decimal.NewFromInt(5000),
		MonthlyDeductionAmount: decimal.NewFromInt(2000), ExpectedCompletionPeriod: period.MustParse("2025-08"),
	})
	return s
}

func record(employeeID string, p period.Period) payroll.SalaryRecord {
	return payroll.SalaryRecord{
		EmployeeID:         employeeID,
		Period:             p,
		CalculatedSalary:   decimal.NewFromInt(1000),
		FinalSalary:        decimal.NewFromInt(1000),
		DisbursementStatus: payroll.DisbursementPending,
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.Loans().GetByIDForUpdate(ctx, "loan-1")
		require.NoError(t, err)
		loan.RemainingBalance = decimal.NewFromInt(3000)
		require.NoError(t, s.Loans().Update(ctx, loan))

		_, err = s.Records().Create(ctx, record("emp-1", june))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loan, err := s.Loans().GetByID(ctx, "loan-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(loan.RemainingBalance))

	_, err = s.Records().FindByEmployeePeriod(ctx, "emp-1", june)
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordNotFound)
}

func TestWithinTx_CommitsAndNests(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Records().Create(ctx, record("emp-1", june))
			return err
		})
	})
	require.NoError(t, err)

	rec, err := s.Records().FindByEmployeePeriod(ctx, "emp-1", june)
	require.NoError(t, err)
	require.NotNil(t, rec.EmployeeName)
	assert.Equal(t, "Ana Guard", *rec.EmployeeName)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context) error {
			_, _ = s.Records().Create(ctx, record("emp-1", june))
			panic("unexpected")
		})
	})

	_, err := s.Records().FindByEmployeePeriod(ctx, "emp-1", june)
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordNotFound)
}

func TestRecords_UniquePerEmployeePeriod(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	first, err := s.Records().Create(ctx, record("emp-1", june))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.Records().Create(ctx, record("emp-1", june))
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordAlreadyExists)

	_, err = s.Records().Create(ctx, record("emp-1", june.AddMonths(1)))
	assert.NoError(t, err)
}

func TestRecords_MarkDisbursedOnlyOnce(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	rec, err := s.Records().Create(ctx, record("emp-1", june))
	require.NoError(t, err)

	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	ok, err := s.Records().MarkDisbursed(ctx, rec.ID, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Records().MarkDisbursed(ctx, rec.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Records().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.DisbursementDisbursed, got.DisbursementStatus)
	require.NotNil(t, got.DisbursedAt)
	assert.Equal(t, at, *got.DisbursedAt)

	_, err = s.Records().MarkDisbursed(ctx, "missing", at)
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordNotFound)
}

func TestRecords_UpdateKeepsLifecycleFields(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	rec, err := s.Records().Create(ctx, record("emp-1", june))
	require.NoError(t, err)

	rec.DisbursementStatus = payroll.DisbursementDisbursed
	rec.AdditionalBonuses = decimal.NewFromInt(50)
	rec.SetSpecificDeduction(payroll.SpecificDeduction{DeductionTypeID: "dt-1", Amount: decimal.NewFromInt(10)})
	updated, err := s.Records().Update(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, payroll.DisbursementPending, updated.DisbursementStatus)
	assert.True(t, decimal.NewFromInt(50).Equal(updated.AdditionalBonuses))
	require.Len(t, updated.SpecificDeductions, 1)
	assert.False(t, updated.SpecificDeductions[0].CreatedAt.IsZero())
}

func TestRecords_ListFiltersAndPages(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	for _, r := range []payroll.SalaryRecord{
		record("emp-1", june), record("emp-2", june), record("emp-1", june.Previous()),
	} {
		_, err := s.Records().Create(ctx, r)
		require.NoError(t, err)
	}

	p := june
	got, total, err := s.Records().List(ctx, payroll.RecordFilter{Period: &p})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "emp-1", got[0].EmployeeID)

	got, total, err = s.Records().List(ctx, payroll.RecordFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, june.Previous(), got[0].Period)

	emp := "emp-2"
	got, _, err = s.Records().List(ctx, payroll.RecordFilter{EmployeeID: &emp})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecords_Summary(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	a, err := s.Records().Create(ctx, record("emp-1", june))
	require.NoError(t, err)
	_, err = s.Records().Create(ctx, record("emp-2", june))
	require.NoError(t, err)
	_, err = s.Records().MarkDisbursed(ctx, a.ID, time.Now())
	require.NoError(t, err)

	sum, err := s.Records().Summary(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalRecords)
	assert.Equal(t, 1, sum.PendingCount)
	assert.Equal(t, 1, sum.DisbursedCount)
	assert.True(t, decimal.NewFromInt(2000).Equal(sum.TotalFinalSalary))
}

func TestEmployees_GetActiveSkipsInactive(t *testing.T) {
	s := seededStore()

	got, err := s.Employees().GetActive(context.Background(), june)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "G-001", got[0].EmployeeCode)
	assert.Equal(t, "G-002", got[1].EmployeeCode)
}

func TestSkips_ActivateDeactivate(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	_, err := s.Skips().GetActive(ctx, "loan-1", june)
	assert.ErrorIs(t, err, advance.ErrSkipRequestNotFound)

	first, err := s.Skips().Activate(ctx, advance.SkipRequest{LoanID: "loan-1", Period: june, Reason: "medical emergency"})
	require.NoError(t, err)
	assert.True(t, first.Active)

	require.NoError(t, s.Skips().Deactivate(ctx, "loan-1", june))
	assert.ErrorIs(t, s.Skips().Deactivate(ctx, "loan-1", june), advance.ErrSkipRequestNotFound)

	again, err := s.Skips().Activate(ctx, advance.SkipRequest{LoanID: "loan-1", Period: june, Reason: "family leave"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "family leave", again.Reason)
}

func TestSetFault(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	s.SetFault("records.Create", boom)
	_, err := s.Records().Create(ctx, record("emp-1", june))
	assert.ErrorIs(t, err, boom)

	s.SetFault("records.Create", nil)
	_, err = s.Records().Create(ctx, record("emp-1", june))
	assert.NoError(t, err)
}
