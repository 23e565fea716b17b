package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

// RecordStore persists breakdowns and drives the pending -> disbursed transition.
type RecordStore struct {
	tx         database.Transactor
	locker     lock.Locker
	records    payroll.SalaryRecordRepository
	calculator *Calculator
	ledger     advance.Ledger
	now        func() time.Time
}

func NewRecordStore(
	tx database.Transactor,
	locker lock.Locker,
	records payroll.SalaryRecordRepository,
	calculator *Calculator,
	ledger advance.Ledger,
) *RecordStore {
	return &RecordStore{
		tx:         tx,
		locker:     locker,
		records:    records,
		calculator: calculator,
		ledger:     ledger,
		now:        time.Now,
	}
}

func validateBreakdown(b payroll.SalaryBreakdown) error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(b.EmployeeID) {
		errs.Add("employee_id", "is required")
	}
	if !b.Period.Valid() {
		errs.Add("period", "must be a period in YYYY-MM format")
	}
	if b.BaseSalary.IsNegative() {
		errs.Add("base_salary", "must be non-negative")
	}
	if b.CalculatedSalary.IsNegative() {
		errs.Add("calculated_salary", "must be non-negative")
	}
	if b.StatutoryTotal.IsNegative() {
		errs.Add("statutory_total", "must be non-negative")
	}
	return errs.Err()
}

func sameFigures(a, b payroll.SalaryBreakdown) bool {
	return a.BaseSalary.Equal(b.BaseSalary) &&
		a.TotalMultiplier.Equal(b.TotalMultiplier) &&
		a.CalculatedSalary.Equal(b.CalculatedSalary) &&
		a.StatutoryTotal.Equal(b.StatutoryTotal)
}

// Save persists b as a pending record and applies its advance installment in the same
// transaction. Only the employee and period of b are trusted: pay figures are recalculated
// and the installment is re-derived from the ledger under the locks, so a stale or edited
// breakdown can never store wrong amounts or decrement a balance twice.
func (s *RecordStore) Save(ctx context.Context, b payroll.SalaryBreakdown) (payroll.SalaryRecord, error) {
	if err := validateBreakdown(b); err != nil {
		return payroll.SalaryRecord{}, err
	}

	loan, hasLoan, err := s.ledger.GetActiveLoan(ctx, b.EmployeeID)
	if err != nil {
		return payroll.SalaryRecord{}, persistenceError(err)
	}

	keys := []string{lock.SalaryKey(b.EmployeeID, b.Period)}
	if hasLoan {
		keys = append(keys, lock.AdvanceKey(loan.ID))
	}
	release, err := lock.AcquireAll(ctx, s.locker, keys...)
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to lock salary record: %w", err)
	}
	defer release()

	fresh, err := s.calculator.Compute(ctx, b.EmployeeID, b.Period)
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to recalculate salary: %w", err)
	}
	if !sameFigures(b, fresh) {
		slog.Warn("Breakdown differs from recalculation, saving recalculated figures",
			"employee_id", b.EmployeeID, "period", b.Period.String(),
			"calculated", b.CalculatedSalary.String(), "recalculated", fresh.CalculatedSalary.String(),
			"statutory", b.StatutoryTotal.String(), "recalculated_statutory", fresh.StatutoryTotal.String())
	}

	var saved payroll.SalaryRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.records.FindByEmployeePeriod(ctx, b.EmployeeID, b.Period)
		if err == nil {
			return payroll.ErrSalaryRecordAlreadyExists
		}
		if !errors.Is(err, payroll.ErrSalaryRecordNotFound) {
			return err
		}

		rec := payroll.SalaryRecord{
			ID:                    uuid.Must(uuid.NewV7()).String(),
			EmployeeID:            b.EmployeeID,
			Period:                b.Period,
			BaseSalary:            fresh.BaseSalary,
			TotalMultiplier:       fresh.TotalMultiplier,
			AttendanceBreakdown:   fresh.AttendanceBreakdown,
			CalculatedSalary:      fresh.CalculatedSalary,
			StatutoryTotal:        fresh.StatutoryTotal,
			StatutoryLines:        append(append([]statutory.Line(nil), fresh.StatutoryLines...), fresh.EmployerStatutory...),
			AdditionalBonuses:     decimal.Zero,
			Deductions:            decimal.Zero,
			AdvanceSalaryDeducted: decimal.Zero,
			AutoGenerated:         true,
			DisbursementStatus:    payroll.DisbursementPending,
		}

		if hasLoan {
			current, err := s.ledger.GetLoan(ctx, loan.ID)
			if err != nil {
				return err
			}
			amount, skipped, err := s.ledger.ComputeDeduction(ctx, current, b.Period)
			if err != nil {
				return err
			}
			if !amount.Equal(b.AdvanceSalaryDeducted) || skipped != b.AdvanceSkipped {
				slog.Warn("Advance deduction changed since preview",
					"employee_id", b.EmployeeID, "period", b.Period.String(),
					"preview", b.AdvanceSalaryDeducted.String(), "applied", amount.String(), "skipped", skipped)
			}
			// loan row is locked before the record row is written
			if _, err := s.ledger.ApplyDeduction(ctx, loan.ID, amount); err != nil {
				return err
			}
			loanID := loan.ID
			rec.AdvanceLoanID = &loanID
			rec.AdvanceSalaryDeducted = amount
			rec.AdvanceSkipped = skipped
		}

		rec.Recompute()
		created, err := s.records.Create(ctx, rec)
		if err != nil {
			return err
		}
		saved = created
		return nil
	})
	if err != nil {
		return payroll.SalaryRecord{}, persistenceError(err)
	}

	slog.Info("Salary record saved",
		"record_id", saved.ID, "employee_id", saved.EmployeeID, "period", saved.Period.String(),
		"advance_deducted", saved.AdvanceSalaryDeducted.String(), "final_salary", saved.FinalSalary.String())
	return saved, nil
}

// SaveAll saves every breakdown of p independently. One rejection never affects the others.
func (s *RecordStore) SaveAll(ctx context.Context, p period.Period, breakdowns []payroll.SalaryBreakdown) payroll.SaveResult {
	result := payroll.SaveResult{
		Saved:    []string{},
		Rejected: []payroll.EmployeeFailure{},
	}

	for _, b := range breakdowns {
		if b.Period != p {
			result.Rejected = append(result.Rejected, payroll.EmployeeFailure{
				EmployeeID: b.EmployeeID,
				Reason:     fmt.Sprintf("%s: %s", payroll.ErrPeriodMismatch, b.Period),
			})
			continue
		}

		rec, err := s.Save(ctx, b)
		if err != nil {
			slog.Warn("Salary record rejected", "employee_id", b.EmployeeID, "period", p.String(), "error", err)
			result.Rejected = append(result.Rejected, payroll.EmployeeFailure{EmployeeID: b.EmployeeID, Reason: err.Error()})
			continue
		}
		result.Saved = append(result.Saved, rec.ID)
	}

	slog.Info("Salary records save finished", "period", p.String(), "saved", len(result.Saved), "rejected", len(result.Rejected))
	return result
}

// Disburse moves one pending record to disbursed.
func (s *RecordStore) Disburse(ctx context.Context, id string) (payroll.SalaryRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.SalaryRecord{}, persistenceError(err)
	}

	release, err := s.locker.Acquire(ctx, lock.SalaryKey(rec.EmployeeID, rec.Period))
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to lock salary record: %w", err)
	}
	defer release()

	var disbursed payroll.SalaryRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.records.MarkDisbursed(ctx, id, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return payroll.ErrSalaryRecordAlreadyDisbursed
		}
		disbursed, err = s.records.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return payroll.SalaryRecord{}, persistenceError(err)
	}

	slog.Info("Salary record disbursed", "record_id", id, "employee_id", disbursed.EmployeeID, "period", disbursed.Period.String())
	return disbursed, nil
}

// DisburseBulk disburses each record on its own. Records that are missing, outside the
// optional period or no longer pending are reported as skipped.
func (s *RecordStore) DisburseBulk(ctx context.Context, ids []string, only *period.Period) payroll.DisburseBulkResult {
	result := payroll.DisburseBulkResult{
		Disbursed: []string{},
		Skipped:   []payroll.RecordIssue{},
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if only != nil {
			rec, err := s.records.GetByID(ctx, id)
			if err != nil {
				result.Skipped = append(result.Skipped, payroll.RecordIssue{RecordID: id, Reason: persistenceError(err).Error()})
				continue
			}
			if rec.Period != *only {
				result.Skipped = append(result.Skipped, payroll.RecordIssue{
					RecordID: id,
					Reason:   fmt.Sprintf("record belongs to period %s, not %s", rec.Period, *only),
				})
				continue
			}
		}

		if _, err := s.Disburse(ctx, id); err != nil {
			result.Skipped = append(result.Skipped, payroll.RecordIssue{RecordID: id, Reason: err.Error()})
			continue
		}
		result.Disbursed = append(result.Disbursed, id)
	}

	slog.Info("Bulk disbursement finished", "disbursed", len(result.Disbursed), "skipped", len(result.Skipped))
	return result
}
