package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/repository/postgresql"
	advancesvc "github.com/cmlabs-hris/shift-payroll-go/internal/service/advance"
	attendancesvc "github.com/cmlabs-hris/shift-payroll-go/internal/service/attendance"
	payrollsvc "github.com/cmlabs-hris/shift-payroll-go/internal/service/payroll"
	statutorysvc "github.com/cmlabs-hris/shift-payroll-go/internal/service/statutory"
)

var june = period.MustParse("2025-06")

type seeded struct {
	employeeID      string
	loanID          string
	deductionTypeID string
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// seedScenario inserts base 30,000 with 18 shifts at 0.05, a 12% rule and a 5,000 advance.
func seedScenario(t *testing.T, setup *TestDatabaseSetup) seeded {
	t.Helper()
	ctx := context.Background()
	db := setup.DB
	s := seeded{employeeID: newID(), loanID: newID(), deductionTypeID: newID()}

	_, err := db.Exec(ctx, `
		INSERT INTO employees (id, employee_code, full_name, role, base_salary)
		VALUES ($1, 'G-001', 'Ana Guard', 'guard', 30000)
	`, s.employeeID)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `INSERT INTO attendance_codes (code, name, multiplier) VALUES ('D', 'Day shift', 0.05)`)
	require.NoError(t, err)

	for d := 1; d <= 18; d++ {
		_, err = db.Exec(ctx, `
			INSERT INTO attendance_entries (id, employee_id, work_date, status_code) VALUES ($1, $2, $3, 'D')
		`, newID(), s.employeeID, time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO statutory_rules (id, name, is_percentage, value, affects_net, active_from_period)
		VALUES ($1, 'Social security', true, 12, true, '2025-01')
	`, newID())
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		INSERT INTO advance_loans (id, employee_id, total_advance_amount, remaining_balance, monthly_deduction_amount, expected_completion_period)
		VALUES ($1, $2, 6000, 5000, 2000, '2025-08')
	`, s.loanID, s.employeeID)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `INSERT INTO deduction_types (id, name) VALUES ($1, 'Uniform')`, s.deductionTypeID)
	require.NoError(t, err)

	return s
}

type stack struct {
	tx      *postgresql.TxManager
	loans   advance.LoanRepository
	skips   advance.SkipRepository
	records payroll.SalaryRecordRepository
	types   payroll.DeductionTypeRepository
	ledger  *advancesvc.LedgerImpl
	svc     payroll.PayrollService
}

func newStack(setup *TestDatabaseSetup) stack {
	db := setup.DB
	st := stack{
		tx:      postgresql.NewTxManager(db),
		loans:   postgresql.NewAdvanceLoanRepository(db),
		skips:   postgresql.NewAdvanceSkipRepository(db),
		records: postgresql.NewSalaryRecordRepository(db),
		types:   postgresql.NewDeductionTypeRepository(db),
	}
	locker := lock.NewLocalLocker()
	employees := postgresql.NewEmployeeRepository(db)
	st.ledger = advancesvc.NewLedger(st.tx, locker, st.loans, st.skips, st.records)

	calc := payrollsvc.NewCalculator(
		employees,
		attendancesvc.NewAggregator(postgresql.NewAttendanceRepository(db), postgresql.NewAttendanceCodeRepository(db)),
		statutorysvc.NewResolver(postgresql.NewStatutoryRepository(db)),
		st.ledger,
	)
	st.svc = payrollsvc.NewPayrollService(
		calc,
		payrollsvc.NewBatchRunner(employees, calc, 2),
		payrollsvc.NewRecordStore(st.tx, locker, st.records, calc, st.ledger),
		payrollsvc.NewDeductionEngine(st.tx, locker, st.records, st.types, st.ledger),
		st.records,
		st.types,
	)
	return st
}

func TestRunAndSave_Postgres(t *testing.T) {
	setup := NewTestDatabase(t)
	seed := seedScenario(t, setup)
	st := newStack(setup)
	ctx := context.Background()

	res, err := st.svc.RunAndSave(ctx, "2025-06")
	require.NoError(t, err)
	require.Len(t, res.Save.Saved, 1)

	rec, err := st.records.GetByID(ctx, res.Save.Saved[0])
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(27000).Equal(rec.CalculatedSalary))
	assert.True(t, decimal.NewFromInt(3240).Equal(rec.StatutoryTotal))
	assert.True(t, decimal.NewFromInt(2000).Equal(rec.AdvanceSalaryDeducted))
	assert.True(t, decimal.NewFromInt(21760).Equal(rec.FinalSalary))
	assert.Equal(t, map[string]int{"D": 18}, rec.AttendanceBreakdown)
	require.NotNil(t, rec.EmployeeCode)
	assert.Equal(t, "G-001", *rec.EmployeeCode)

	loan, err := st.loans.GetByID(ctx, seed.loanID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(loan.RemainingBalance))

	again, err := st.svc.RunAndSave(ctx, "2025-06")
	require.NoError(t, err)
	assert.Empty(t, again.Save.Saved)
	require.Len(t, again.Save.Rejected, 1)

	loan, err = st.loans.GetByID(ctx, seed.loanID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(loan.RemainingBalance))
}

func TestSalaryRecordRepository_UniqueEmployeePeriod(t *testing.T) {
	setup := NewTestDatabase(t)
	seed := seedScenario(t, setup)
	st := newStack(setup)
	ctx := context.Background()

	rec := payroll.SalaryRecord{
		ID:                 newID(),
		EmployeeID:         seed.employeeID,
		Period:             june,
		DisbursementStatus: payroll.DisbursementPending,
	}
	_, err := st.records.Create(ctx, rec)
	require.NoError(t, err)

	rec.ID = newID()
	_, err = st.records.Create(ctx, rec)
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordAlreadyExists)
}

func TestTxManager_RollsBackRecordAndLedger(t *testing.T) {
	setup := NewTestDatabase(t)
	seed := seedScenario(t, setup)
	st := newStack(setup)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := st.ledger.ApplyDeduction(ctx, seed.loanID, decimal.NewFromInt(2000)); err != nil {
			return err
		}
		_, err := st.records.Create(ctx, payroll.SalaryRecord{
			ID:                 newID(),
			EmployeeID:         seed.employeeID,
			Period:             june,
			DisbursementStatus: payroll.DisbursementPending,
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loan, err := st.loans.GetByID(ctx, seed.loanID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(loan.RemainingBalance))

	_, err = st.records.FindByEmployeePeriod(ctx, seed.employeeID, june)
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordNotFound)
}

func TestSalaryRecordRepository_UpdateAndDisburse(t *testing.T) {
	setup := NewTestDatabase(t)
	seed := seedScenario(t, setup)
	st := newStack(setup)
	ctx := context.Background()

	res, err := st.svc.RunAndSave(ctx, "2025-06")
	require.NoError(t, err)
	id := res.Save.Saved[0]

	edited, err := st.svc.EditRecord(ctx, payroll.EditRecordRequest{
		ID:                 id,
		SpecificDeductions: map[string]decimal.Decimal{seed.deductionTypeID: decimal.NewFromInt(60)},
	})
	require.NoError(t, err)
	require.Len(t, edited.Record.SpecificDeductions, 1)
	assert.Equal(t, "Uniform", edited.Record.SpecificDeductions[0].DeductionTypeName)
	assert.True(t, decimal.NewFromInt(21700).Equal(edited.Record.FinalSalary))

	ok, err := st.records.MarkDisbursed(ctx, id, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.records.MarkDisbursed(ctx, id, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.records.MarkDisbursed(ctx, newID(), time.Now())
	assert.ErrorIs(t, err, payroll.ErrSalaryRecordNotFound)

	sum, err := st.records.Summary(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalRecords)
	assert.Equal(t, 1, sum.DisbursedCount)
	assert.True(t, decimal.NewFromInt(60).Equal(sum.TotalSpecificDeduction))
}

func TestAdvanceSkipRepository_ActivateDeactivate(t *testing.T) {
	setup := NewTestDatabase(t)
	seed := seedScenario(t, setup)
	st := newStack(setup)
	ctx := context.Background()

	first, err := st.skips.Activate(ctx, advance.SkipRequest{LoanID: seed.loanID, Period: june, Reason: "medical emergency"})
	require.NoError(t, err)
	assert.True(t, first.Active)

	require.NoError(t, st.skips.Deactivate(ctx, seed.loanID, june))
	_, err = st.skips.GetActive(ctx, seed.loanID, june)
	assert.ErrorIs(t, err, advance.ErrSkipRequestNotFound)
	assert.ErrorIs(t, st.skips.Deactivate(ctx, seed.loanID, june), advance.ErrSkipRequestNotFound)

	again, err := st.skips.Activate(ctx, advance.SkipRequest{LoanID: seed.loanID, Period: june, Reason: "family leave"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "family leave", again.Reason)
}
