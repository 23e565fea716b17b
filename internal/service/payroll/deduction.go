package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

const negativeFinalWarning = "final salary is negative"

// DeductionEngine applies bonuses and deductions on saved records. Final salary is
// always recomputed from the components.
type DeductionEngine struct {
	tx      database.Transactor
	locker  lock.Locker
	records payroll.SalaryRecordRepository
	types   payroll.DeductionTypeRepository
	ledger  advance.Ledger
}

func NewDeductionEngine(
	tx database.Transactor,
	locker lock.Locker,
	records payroll.SalaryRecordRepository,
	types payroll.DeductionTypeRepository,
	ledger advance.Ledger,
) *DeductionEngine {
	return &DeductionEngine{
		tx:      tx,
		locker:  locker,
		records: records,
		types:   types,
		ledger:  ledger,
	}
}

// activeType loads a deduction type and rejects inactive ones.
func (e *DeductionEngine) activeType(ctx context.Context, id string) (payroll.DeductionType, error) {
	dt, err := e.types.GetByID(ctx, id)
	if err != nil {
		return payroll.DeductionType{}, err
	}
	if !dt.IsActive {
		return payroll.DeductionType{}, fmt.Errorf("%w: %s", payroll.ErrDeductionTypeInactive, dt.Name)
	}
	return dt, nil
}

// ApplyManualAdjustment edits a pending record. A negative final salary is allowed and
// reported as a warning.
func (e *DeductionEngine) ApplyManualAdjustment(ctx context.Context, req payroll.EditRecordRequest) (payroll.SalaryRecord, []string, error) {
	if err := req.Validate(); err != nil {
		return payroll.SalaryRecord{}, nil, err
	}

	rec, err := e.records.GetByID(ctx, req.ID)
	if err != nil {
		return payroll.SalaryRecord{}, nil, persistenceError(err)
	}
	if !rec.IsPending() {
		return payroll.SalaryRecord{}, nil, payroll.ErrSalaryRecordAlreadyDisbursed
	}

	var specific []payroll.SpecificDeduction
	if req.SpecificDeductions != nil {
		specific, err = e.specificDeductions(ctx, req.SpecificDeductions)
		if err != nil {
			return payroll.SalaryRecord{}, nil, err
		}
	}

	keys := []string{lock.SalaryKey(rec.EmployeeID, rec.Period)}
	if rec.AdvanceLoanID != nil {
		keys = append(keys, lock.AdvanceKey(*rec.AdvanceLoanID))
	}
	release, err := lock.AcquireAll(ctx, e.locker, keys...)
	if err != nil {
		return payroll.SalaryRecord{}, nil, fmt.Errorf("failed to lock salary record: %w", err)
	}
	defer release()

	var (
		updated  payroll.SalaryRecord
		warnings []string
	)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		// re-read under the lock
		rec, err := e.records.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if !rec.IsPending() {
			return payroll.ErrSalaryRecordAlreadyDisbursed
		}

		if req.AdvanceOverride != nil {
			if err := e.overrideAdvance(ctx, &rec, *req.AdvanceOverride); err != nil {
				return err
			}
		}

		rec, err = e.records.GetByIDForUpdate(ctx, rec.ID)
		if err != nil {
			return err
		}
		if req.AdvanceOverride != nil && rec.AdvanceLoanID != nil {
			rec.AdvanceSalaryDeducted = *req.AdvanceOverride
		}
		if req.AdditionalBonuses != nil {
			rec.AdditionalBonuses = *req.AdditionalBonuses
		}
		if req.Deductions != nil {
			rec.Deductions = *req.Deductions
		}
		if req.SpecificDeductions != nil {
			rec.SpecificDeductions = specific
		}
		if req.Notes != nil && !validator.IsEmpty(*req.Notes) {
			rec.AppendNote(*req.Notes)
		}
		rec.ManuallyModified = true
		rec.Recompute()

		if rec.FinalSalary.IsNegative() {
			warnings = append(warnings, negativeFinalWarning)
		}

		updated, err = e.records.Update(ctx, rec)
		return err
	})
	if err != nil {
		return payroll.SalaryRecord{}, nil, persistenceError(err)
	}

	slog.Info("Salary record adjusted", "record_id", updated.ID, "final_salary", updated.FinalSalary.String(), "warnings", len(warnings))
	return updated, warnings, nil
}

// overrideAdvance moves the ledger by the difference between the recorded and the new installment.
func (e *DeductionEngine) overrideAdvance(ctx context.Context, rec *payroll.SalaryRecord, amount decimal.Decimal) error {
	if rec.AdvanceLoanID == nil {
		if amount.IsZero() {
			return nil
		}
		return payroll.ErrNoAdvanceLinked
	}
	if rec.AdvanceSkipped && amount.IsPositive() {
		var errs validator.ValidationErrors
		errs.Add("advance_override", "advance deduction is skipped for this period, remove the skip first")
		return errs
	}

	delta := amount.Sub(rec.AdvanceSalaryDeducted)
	switch delta.Sign() {
	case 1:
		_, err := e.ledger.ApplyDeduction(ctx, *rec.AdvanceLoanID, delta)
		return err
	case -1:
		_, err := e.ledger.ReverseDeduction(ctx, *rec.AdvanceLoanID, delta.Neg())
		return err
	}
	return nil
}

func (e *DeductionEngine) specificDeductions(ctx context.Context, amounts map[string]decimal.Decimal) ([]payroll.SpecificDeduction, error) {
	typeIDs := make([]string, 0, len(amounts))
	for id := range amounts {
		typeIDs = append(typeIDs, id)
	}
	sort.Strings(typeIDs)

	out := make([]payroll.SpecificDeduction, 0, len(typeIDs))
	for _, id := range typeIDs {
		amount := amounts[id]
		if amount.IsZero() {
			continue
		}
		dt, err := e.activeType(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, payroll.SpecificDeduction{
			DeductionTypeID:   dt.ID,
			DeductionTypeName: dt.Name,
			Amount:            amount,
		})
	}
	return out, nil
}

// ApplyBulkDeduction charges the same amount of one deduction type to every listed record.
// A record already charged for that type gets the amount added, with a warning. Disbursed
// records are still corrected, with a warning.
func (e *DeductionEngine) ApplyBulkDeduction(ctx context.Context, req payroll.BulkDeductionRequest) (payroll.BulkDeductionResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.BulkDeductionResult{}, err
	}

	dt, err := e.activeType(ctx, req.DeductionTypeID)
	if err != nil {
		return payroll.BulkDeductionResult{}, err
	}

	result := payroll.BulkDeductionResult{
		Updated:  []string{},
		Warnings: []payroll.RecordIssue{},
	}
	warn := func(id, reason string) {
		result.Warnings = append(result.Warnings, payroll.RecordIssue{RecordID: id, Reason: reason})
	}

	seen := make(map[string]struct{}, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec, previous, err := e.applyOne(ctx, id, dt, req.Amount, req.Notes)
		if err != nil {
			if errors.Is(err, payroll.ErrSalaryRecordNotFound) {
				warn(id, "record not found")
			} else {
				warn(id, err.Error())
			}
			continue
		}

		result.Updated = append(result.Updated, id)
		if !previous.IsZero() {
			warn(id, fmt.Sprintf("added to existing %s amount %s, now %s",
				dt.Name, previous.String(), previous.Add(req.Amount).String()))
		}
		if !rec.IsPending() {
			warn(id, "record already disbursed: the paid amount has been changed retroactively")
		}
		if rec.FinalSalary.IsNegative() {
			warn(id, negativeFinalWarning)
		}
	}

	slog.Info("Bulk deduction applied", "deduction_type", dt.Name, "amount", req.Amount.String(),
		"updated", len(result.Updated), "warnings", len(result.Warnings))
	return result, nil
}

// applyOne adds amount to the record's line for dt and returns the amount the line held before.
func (e *DeductionEngine) applyOne(ctx context.Context, id string, dt payroll.DeductionType, amount decimal.Decimal, notes *string) (payroll.SalaryRecord, decimal.Decimal, error) {
	rec, err := e.records.GetByID(ctx, id)
	if err != nil {
		return payroll.SalaryRecord{}, decimal.Zero, persistenceError(err)
	}

	release, err := e.locker.Acquire(ctx, lock.SalaryKey(rec.EmployeeID, rec.Period))
	if err != nil {
		return payroll.SalaryRecord{}, decimal.Zero, fmt.Errorf("failed to lock salary record: %w", err)
	}
	defer release()

	var (
		updated  payroll.SalaryRecord
		previous decimal.Decimal
	)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := e.records.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = rec.AddSpecificDeduction(payroll.SpecificDeduction{
			DeductionTypeID:   dt.ID,
			DeductionTypeName: dt.Name,
			Amount:            amount,
			Notes:             notes,
		})
		rec.ManuallyModified = true
		rec.Recompute()

		updated, err = e.records.Update(ctx, rec)
		return err
	})
	if err != nil {
		return payroll.SalaryRecord{}, decimal.Zero, persistenceError(err)
	}
	return updated, previous, nil
}
