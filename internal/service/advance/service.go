package advance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

// LedgerImpl implements both advance.Ledger and advance.Service.
type LedgerImpl struct {
	tx      database.Transactor
	locker  lock.Locker
	loans   advance.LoanRepository
	skips   advance.SkipRepository
	records payroll.SalaryRecordRepository
	now     func() time.Time
}

func NewLedger(
	tx database.Transactor,
	locker lock.Locker,
	loans advance.LoanRepository,
	skips advance.SkipRepository,
	records payroll.SalaryRecordRepository,
) *LedgerImpl {
	return &LedgerImpl{
		tx:      tx,
		locker:  locker,
		loans:   loans,
		skips:   skips,
		records: records,
		now:     time.Now,
	}
}

var (
	_ advance.Ledger  = (*LedgerImpl)(nil)
	_ advance.Service = (*LedgerImpl)(nil)
)

// ========== LEDGER ==========

func (l *LedgerImpl) GetLoan(ctx context.Context, id string) (advance.Loan, error) {
	return l.loans.GetByID(ctx, id)
}

// GetActiveLoan returns the loan driving the employee's deduction, see advance.SelectDriving.
func (l *LedgerImpl) GetActiveLoan(ctx context.Context, employeeID string) (advance.Loan, bool, error) {
	loans, err := l.loans.ListActiveByEmployee(ctx, employeeID)
	if err != nil {
		return advance.Loan{}, false, fmt.Errorf("failed to list active advances: %w", err)
	}
	if len(loans) > 1 {
		slog.Debug("Employee has several active advances, using the driving one", "employee_id", employeeID, "count", len(loans))
	}
	loan, ok := advance.SelectDriving(loans)
	return loan, ok, nil
}

// ComputeDeduction sizes the installment for p without touching the balance.
func (l *LedgerImpl) ComputeDeduction(ctx context.Context, loan advance.Loan, p period.Period) (decimal.Decimal, bool, error) {
	if !loan.IsActive() {
		return decimal.Zero, false, nil
	}

	_, err := l.skips.GetActive(ctx, loan.ID, p)
	switch {
	case err == nil:
		return decimal.Zero, true, nil
	case errors.Is(err, advance.ErrSkipRequestNotFound):
		return loan.ScheduledDeduction(), false, nil
	default:
		return decimal.Zero, false, fmt.Errorf("failed to check skip request: %w", err)
	}
}

// ApplyDeduction decrements the balance. Call it inside the transaction that persists the record.
func (l *LedgerImpl) ApplyDeduction(ctx context.Context, loanID string, amount decimal.Decimal) (advance.Loan, error) {
	loan, err := l.loans.GetByIDForUpdate(ctx, loanID)
	if err != nil {
		return advance.Loan{}, err
	}
	updated, err := loan.Apply(amount)
	if err != nil {
		return advance.Loan{}, err
	}
	if err := l.loans.Update(ctx, updated); err != nil {
		return advance.Loan{}, fmt.Errorf("failed to update advance balance: %w", err)
	}
	if loan.IsActive() && !updated.IsActive() {
		slog.Info("Advance loan completed", "loan_id", loanID, "employee_id", updated.EmployeeID)
	}
	return updated, nil
}

// ReverseDeduction credits an applied deduction back. Call it inside a transaction.
func (l *LedgerImpl) ReverseDeduction(ctx context.Context, loanID string, amount decimal.Decimal) (advance.Loan, error) {
	loan, err := l.loans.GetByIDForUpdate(ctx, loanID)
	if err != nil {
		return advance.Loan{}, err
	}
	updated, err := loan.Reverse(amount)
	if err != nil {
		return advance.Loan{}, err
	}
	if err := l.loans.Update(ctx, updated); err != nil {
		return advance.Loan{}, fmt.Errorf("failed to update advance balance: %w", err)
	}
	return updated, nil
}

// Skip suspends the deduction for p. A pending record of that period gets its deduction
// credited back to the balance; a disbursed one blocks the skip.
func (l *LedgerImpl) Skip(ctx context.Context, loanID string, p period.Period, reason string) (advance.SkipOutcome, error) {
	if validator.IsEmpty(reason) {
		return advance.SkipOutcome{}, advance.ErrSkipReasonRequired
	}
	if !p.Valid() {
		return advance.SkipOutcome{}, period.ErrInvalidPeriod
	}

	loan, err := l.loans.GetByID(ctx, loanID)
	if err != nil {
		return advance.SkipOutcome{}, err
	}

	release, err := lock.AcquireAll(ctx, l.locker, lock.SalaryKey(loan.EmployeeID, p), lock.AdvanceKey(loan.ID))
	if err != nil {
		return advance.SkipOutcome{}, fmt.Errorf("failed to lock advance: %w", err)
	}
	defer release()

	var outcome advance.SkipOutcome
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := l.loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		_, err = l.skips.GetActive(ctx, loan.ID, p)
		if err != nil && !errors.Is(err, advance.ErrSkipRequestNotFound) {
			return fmt.Errorf("failed to check skip request: %w", err)
		}
		alreadySkipped := err == nil

		rec, found, err := l.linkedRecord(ctx, loan, p)
		if err != nil {
			return err
		}
		if found && !rec.IsPending() {
			return advance.ErrPeriodAlreadyDisbursed
		}
		creditBack := found && !rec.AdvanceSkipped
		if !loan.IsActive() && !(creditBack && rec.AdvanceSalaryDeducted.IsPositive()) {
			return advance.ErrLoanNotActive
		}

		skip, err := l.skips.Activate(ctx, advance.SkipRequest{LoanID: loan.ID, Period: p, Reason: reason, Active: true})
		if err != nil {
			return fmt.Errorf("failed to save skip request: %w", err)
		}
		if !alreadySkipped {
			loan.ExpectedCompletionPeriod = loan.ExpectedCompletionPeriod.AddMonths(1)
		}

		outcome.Skip = skip
		if creditBack {
			loan, err = loan.Reverse(rec.AdvanceSalaryDeducted)
			if err != nil {
				return err
			}
			rec.AdvanceSalaryDeducted = decimal.Zero
			rec.AdvanceSkipped = true
			rec.ManuallyModified = true
			rec.AppendNote("advance deduction skipped: " + reason)
			rec.Recompute()
			if rec, err = l.records.Update(ctx, rec); err != nil {
				return fmt.Errorf("failed to update salary record: %w", err)
			}
		}
		if found {
			outcome.RecordID = &rec.ID
			outcome.Advance = rec.AdvanceSalaryDeducted
			if rec.FinalSalary.IsNegative() {
				outcome.Warnings = append(outcome.Warnings, "final salary is negative")
			}
		}

		if err := l.loans.Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update advance: %w", err)
		}
		outcome.Loan = loan
		return nil
	})
	if err != nil {
		return advance.SkipOutcome{}, err
	}

	slog.Info("Advance deduction skipped", "loan_id", loanID, "period", p.String(), "record_linked", outcome.RecordID != nil)
	return outcome, nil
}

// Unskip lifts the skip for p. A pending record gets the current scheduled installment
// re-applied; a disbursed one only has its skip flag corrected.
func (l *LedgerImpl) Unskip(ctx context.Context, loanID string, p period.Period) (advance.SkipOutcome, error) {
	if !p.Valid() {
		return advance.SkipOutcome{}, period.ErrInvalidPeriod
	}

	loan, err := l.loans.GetByID(ctx, loanID)
	if err != nil {
		return advance.SkipOutcome{}, err
	}

	release, err := lock.AcquireAll(ctx, l.locker, lock.SalaryKey(loan.EmployeeID, p), lock.AdvanceKey(loan.ID))
	if err != nil {
		return advance.SkipOutcome{}, fmt.Errorf("failed to lock advance: %w", err)
	}
	defer release()

	var outcome advance.SkipOutcome
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := l.loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		skip, err := l.skips.GetActive(ctx, loan.ID, p)
		if err != nil {
			return err
		}
		if err := l.skips.Deactivate(ctx, loan.ID, p); err != nil {
			return fmt.Errorf("failed to deactivate skip request: %w", err)
		}
		skip.Active = false
		outcome.Skip = skip
		loan.ExpectedCompletionPeriod = loan.ExpectedCompletionPeriod.AddMonths(-1)

		rec, found, err := l.linkedRecord(ctx, loan, p)
		if err != nil {
			return err
		}
		if found && rec.AdvanceSkipped {
			if rec.IsPending() {
				amount := loan.ScheduledDeduction()
				if loan, err = loan.Apply(amount); err != nil {
					return err
				}
				rec.AdvanceSalaryDeducted = amount
				rec.AdvanceSkipped = false
				rec.ManuallyModified = true
				rec.AppendNote("advance skip removed")
				rec.Recompute()
			} else {
				rec.AdvanceSkipped = false
				rec.AppendNote("advance skip removed after disbursement; balance not adjusted")
				outcome.Warnings = append(outcome.Warnings, "record already disbursed: advance balance was not adjusted")
			}
			if rec, err = l.records.Update(ctx, rec); err != nil {
				return fmt.Errorf("failed to update salary record: %w", err)
			}
		}
		if found {
			outcome.RecordID = &rec.ID
			outcome.Advance = rec.AdvanceSalaryDeducted
			if rec.FinalSalary.IsNegative() {
				outcome.Warnings = append(outcome.Warnings, "final salary is negative")
			}
		}

		if err := l.loans.Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update advance: %w", err)
		}
		outcome.Loan = loan
		return nil
	})
	if err != nil {
		return advance.SkipOutcome{}, err
	}

	slog.Info("Advance skip removed", "loan_id", loanID, "period", p.String())
	return outcome, nil
}

// linkedRecord row-locks the employee's record for p when it is tied to this loan.
// Records saved before the loan existed are not tied to it.
func (l *LedgerImpl) linkedRecord(ctx context.Context, loan advance.Loan, p period.Period) (payroll.SalaryRecord, bool, error) {
	rec, err := l.records.FindByEmployeePeriodForUpdate(ctx, loan.EmployeeID, p)
	if err != nil {
		if errors.Is(err, payroll.ErrSalaryRecordNotFound) {
			return payroll.SalaryRecord{}, false, nil
		}
		return payroll.SalaryRecord{}, false, fmt.Errorf("failed to get salary record: %w", err)
	}
	if rec.AdvanceLoanID == nil || *rec.AdvanceLoanID != loan.ID {
		return payroll.SalaryRecord{}, false, nil
	}
	return rec, true, nil
}

func (l *LedgerImpl) IsOverdue(loan advance.Loan, current period.Period) bool {
	return loan.IsOverdue(current)
}

func (l *LedgerImpl) ListOverdue(ctx context.Context, current period.Period) ([]advance.Loan, error) {
	loans, err := l.loans.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active advances: %w", err)
	}
	overdue := make([]advance.Loan, 0)
	for _, loan := range loans {
		if loan.IsOverdue(current) {
			overdue = append(overdue, loan)
		}
	}
	return overdue, nil
}

// ========== SERVICE ==========

func (l *LedgerImpl) ApplySkip(ctx context.Context, req advance.SkipPeriodRequest) (advance.SkipResponse, error) {
	if err := req.Validate(); err != nil {
		return advance.SkipResponse{}, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return advance.SkipResponse{}, err
	}

	outcome, err := l.Skip(ctx, req.LoanID, p, req.Reason)
	if err != nil {
		return advance.SkipResponse{}, err
	}
	return l.toSkipResponse(outcome, p), nil
}

func (l *LedgerImpl) RemoveSkip(ctx context.Context, req advance.RemoveSkipRequest) (advance.SkipResponse, error) {
	if err := req.Validate(); err != nil {
		return advance.SkipResponse{}, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return advance.SkipResponse{}, err
	}

	outcome, err := l.Unskip(ctx, req.LoanID, p)
	if err != nil {
		return advance.SkipResponse{}, err
	}
	return l.toSkipResponse(outcome, p), nil
}

func (l *LedgerImpl) GetLoanDetail(ctx context.Context, id string, current period.Period) (advance.LoanResponse, error) {
	loan, err := l.loans.GetByID(ctx, id)
	if err != nil {
		return advance.LoanResponse{}, err
	}
	return toLoanResponse(loan, current), nil
}

func (l *LedgerImpl) ListOverdueLoans(ctx context.Context, current string) ([]advance.LoanResponse, error) {
	p := period.Of(l.now())
	if current != "" {
		parsed, err := period.Parse(current)
		if err != nil {
			return nil, err
		}
		p = parsed
	}

	loans, err := l.ListOverdue(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := make([]advance.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		resp = append(resp, toLoanResponse(loan, p))
	}
	return resp, nil
}

func (l *LedgerImpl) toSkipResponse(o advance.SkipOutcome, p period.Period) advance.SkipResponse {
	return advance.SkipResponse{
		Loan:     toLoanResponse(o.Loan, period.Of(l.now())),
		Period:   p.String(),
		Reason:   o.Skip.Reason,
		Active:   o.Skip.Active,
		RecordID: o.RecordID,
		Advance:  o.Advance,
		Warnings: o.Warnings,
	}
}

func toLoanResponse(loan advance.Loan, current period.Period) advance.LoanResponse {
	return advance.LoanResponse{
		ID:                       loan.ID,
		EmployeeID:               loan.EmployeeID,
		TotalAdvanceAmount:       loan.TotalAdvanceAmount,
		RemainingBalance:         loan.RemainingBalance,
		MonthlyDeductionAmount:   loan.MonthlyDeductionAmount,
		Status:                   string(loan.Status),
		PriorityLevel:            string(loan.PriorityLevel),
		EmergencyAdvance:         loan.EmergencyAdvance,
		ExpectedCompletionPeriod: loan.ExpectedCompletionPeriod.String(),
		IsOverdue:                loan.IsOverdue(current),
		Reason:                   loan.Reason,
	}
}
