package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// DisbursementStatus enum
type DisbursementStatus string

const (
	DisbursementPending   DisbursementStatus = "pending"
	DisbursementDisbursed DisbursementStatus = "disbursed"
)

// DeductionType - catalog entry for ad-hoc deductions (uniform, damages, canteen...)
type DeductionType struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SpecificDeduction - amount of one deduction type charged to a record
type SpecificDeduction struct {
	DeductionTypeID   string
	DeductionTypeName string
	Amount            decimal.Decimal
	Notes             *string
	CreatedAt         time.Time
}

// SalaryRecord - persisted pay result, one per employee and period
type SalaryRecord struct {
	ID                     string
	EmployeeID             string
	Period                 period.Period
	BaseSalary             decimal.Decimal
	TotalMultiplier        decimal.Decimal
	AttendanceBreakdown    map[string]int
	CalculatedSalary       decimal.Decimal
	StatutoryTotal         decimal.Decimal
	StatutoryLines         []statutory.Line // employee and employer scoped, see Line.AffectsNet
	AdditionalBonuses      decimal.Decimal
	Deductions             decimal.Decimal
	AdvanceLoanID          *string
	AdvanceSalaryDeducted  decimal.Decimal
	AdvanceSkipped         bool
	SpecificDeductions     []SpecificDeduction
	SpecificDeductionTotal decimal.Decimal
	FinalSalary            decimal.Decimal
	AutoGenerated          bool
	ManuallyModified       bool
	DisbursementStatus     DisbursementStatus
	DisbursedAt            *time.Time
	Notes                  *string
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

func (r SalaryRecord) IsPending() bool {
	return r.DisbursementStatus == DisbursementPending
}

// FinalSalary is always derived from the components, never patched incrementally.
func FinalSalary(calculated, statutoryTotal, advance, bonuses, deductions, specificTotal decimal.Decimal) decimal.Decimal {
	return calculated.
		Sub(statutoryTotal).
		Sub(advance).
		Add(bonuses).
		Sub(deductions).
		Sub(specificTotal)
}

// Recompute refreshes SpecificDeductionTotal and FinalSalary from the record's components.
func (r *SalaryRecord) Recompute() {
	total := decimal.Zero
	for _, d := range r.SpecificDeductions {
		total = total.Add(d.Amount)
	}
	r.SpecificDeductionTotal = total
	r.FinalSalary = FinalSalary(
		r.CalculatedSalary,
		r.StatutoryTotal,
		r.AdvanceSalaryDeducted,
		r.AdditionalBonuses,
		r.Deductions,
		r.SpecificDeductionTotal,
	)
}

// SetSpecificDeduction replaces the amount charged for a deduction type, adding it when absent.
func (r *SalaryRecord) SetSpecificDeduction(d SpecificDeduction) {
	for i := range r.SpecificDeductions {
		if r.SpecificDeductions[i].DeductionTypeID == d.DeductionTypeID {
			r.SpecificDeductions[i] = d
			return
		}
	}
	r.SpecificDeductions = append(r.SpecificDeductions, d)
}

// AddSpecificDeduction charges d.Amount on top of any amount already charged for the same
// deduction type and returns the previous amount. Notes are replaced only when d carries some.
func (r *SalaryRecord) AddSpecificDeduction(d SpecificDeduction) (previous decimal.Decimal) {
	for i := range r.SpecificDeductions {
		existing := &r.SpecificDeductions[i]
		if existing.DeductionTypeID != d.DeductionTypeID {
			continue
		}
		previous = existing.Amount
		existing.Amount = existing.Amount.Add(d.Amount)
		existing.DeductionTypeName = d.DeductionTypeName
		if d.Notes != nil {
			existing.Notes = d.Notes
		}
		return previous
	}
	r.SpecificDeductions = append(r.SpecificDeductions, d)
	return decimal.Zero
}

// AppendNote adds a line to the record's notes.
func (r *SalaryRecord) AppendNote(note string) {
	if r.Notes == nil || *r.Notes == "" {
		r.Notes = &note
		return
	}
	joined := *r.Notes + "\n" + note
	r.Notes = &joined
}

// PeriodSummary - aggregate over all records of one period
type PeriodSummary struct {
	Period                 period.Period
	TotalRecords           int
	TotalCalculatedSalary  decimal.Decimal
	TotalStatutory         decimal.Decimal
	TotalBonuses           decimal.Decimal
	TotalDeductions        decimal.Decimal
	TotalAdvanceDeducted   decimal.Decimal
	TotalSpecificDeduction decimal.Decimal
	TotalFinalSalary       decimal.Decimal
	PendingCount           int
	DisbursedCount         int
}
