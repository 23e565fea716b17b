package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

// ========== BREAKDOWN ==========

// SalaryBreakdown is the side-effect free result of a salary calculation, before it is saved.
type SalaryBreakdown struct {
	EmployeeID            string           `json:"employee_id"`
	EmployeeCode          string           `json:"employee_code,omitempty"`
	EmployeeName          string           `json:"employee_name,omitempty"`
	Period                period.Period    `json:"period"`
	BaseSalary            decimal.Decimal  `json:"base_salary"`
	TotalMultiplier       decimal.Decimal  `json:"total_multiplier"`
	AttendanceBreakdown   map[string]int   `json:"attendance_breakdown"`
	UnknownCodes          map[string]int   `json:"unknown_codes,omitempty"`
	CalculatedSalary      decimal.Decimal  `json:"calculated_salary"`
	StatutoryTotal        decimal.Decimal  `json:"statutory_total"`
	StatutoryLines        []statutory.Line `json:"statutory_lines"`
	EmployerStatutory     []statutory.Line `json:"employer_statutory"`
	AdvanceLoanID         *string          `json:"advance_loan_id,omitempty"`
	AdvanceSalaryDeducted decimal.Decimal  `json:"advance_salary_deducted"`
	AdvanceSkipped        bool             `json:"advance_skipped"`
	FinalSalary           decimal.Decimal  `json:"final_salary"`
}

// EmployeeFailure - one employee excluded from a batch or save, with a readable reason
type EmployeeFailure struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

// RecordIssue - per-record note from a bulk operation
type RecordIssue struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

type BatchResult struct {
	Period    period.Period     `json:"period"`
	Succeeded []SalaryBreakdown `json:"succeeded"`
	Failed    []EmployeeFailure `json:"failed"`
}

// ========== SAVE ==========

type SaveRecordsRequest struct {
	Period     string            `json:"period" validate:"required,period"`
	Breakdowns []SalaryBreakdown `json:"breakdowns" validate:"min=1"`
}

func (r *SaveRecordsRequest) Validate() error {
	return validator.Struct(r)
}

type SaveResult struct {
	Saved    []string          `json:"saved"`
	Rejected []EmployeeFailure `json:"rejected"`
}

type RunAndSaveResult struct {
	Batch BatchResult `json:"batch"`
	Save  SaveResult  `json:"save"`
}

// ========== EDIT ==========

// EditRecordRequest carries a manual adjustment. Nil fields are left unchanged;
// a non-nil SpecificDeductions replaces the whole set.
type EditRecordRequest struct {
	ID                 string                     `json:"-" validate:"required"`
	AdditionalBonuses  *decimal.Decimal           `json:"additional_bonuses,omitempty"`
	Deductions         *decimal.Decimal           `json:"deductions,omitempty"`
	SpecificDeductions map[string]decimal.Decimal `json:"specific_deductions,omitempty"`
	AdvanceOverride    *decimal.Decimal           `json:"advance_override,omitempty"`
	Notes              *string                    `json:"notes,omitempty"`
}

func (r *EditRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs.Add("id", "is required")
	}
	if r.AdditionalBonuses != nil && r.AdditionalBonuses.IsNegative() {
		errs.Add("additional_bonuses", "must be non-negative")
	}
	if r.Deductions != nil && r.Deductions.IsNegative() {
		errs.Add("deductions", "must be non-negative")
	}
	if r.AdvanceOverride != nil && r.AdvanceOverride.IsNegative() {
		errs.Add("advance_override", "must be non-negative")
	}
	for typeID, amount := range r.SpecificDeductions {
		if validator.IsEmpty(typeID) {
			errs.Add("specific_deductions", "deduction type id is required")
		}
		if amount.IsNegative() {
			errs.Add("specific_deductions."+typeID, "must be non-negative")
		}
	}

	return errs.Err()
}

type EditRecordResponse struct {
	Record   SalaryRecordResponse `json:"record"`
	Warnings []string             `json:"warnings,omitempty"`
}

// ========== DISBURSEMENT ==========

type DisburseBulkRequest struct {
	RecordIDs []string `json:"record_ids" validate:"min=1,dive,required"`
	Period    *string  `json:"period,omitempty" validate:"omitempty,period"`
}

func (r *DisburseBulkRequest) Validate() error {
	return validator.Struct(r)
}

type DisburseBulkResult struct {
	Disbursed []string      `json:"disbursed"`
	Skipped   []RecordIssue `json:"skipped"`
}

// ========== BULK DEDUCTION ==========

type BulkDeductionRequest struct {
	RecordIDs       []string        `json:"record_ids" validate:"min=1,dive,required"`
	DeductionTypeID string          `json:"deduction_type_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Notes           *string         `json:"notes,omitempty"`
}

func (r *BulkDeductionRequest) Validate() error {
	return validator.Struct(r)
}

type BulkDeductionResult struct {
	Updated  []string      `json:"updated"`
	Warnings []RecordIssue `json:"warnings"`
}

// ========== QUERIES ==========

type RecordFilter struct {
	Period     *period.Period
	Status     *DisbursementStatus
	EmployeeID *string
	Page       int
	Limit      int
}

type SpecificDeductionResponse struct {
	DeductionTypeID   string          `json:"deduction_type_id"`
	DeductionTypeName string          `json:"deduction_type_name"`
	Amount            decimal.Decimal `json:"amount"`
	Notes             *string         `json:"notes,omitempty"`
}

type SalaryRecordResponse struct {
	ID                     string                      `json:"id"`
	EmployeeID             string                      `json:"employee_id"`
	EmployeeName           string                      `json:"employee_name,omitempty"`
	EmployeeCode           string                      `json:"employee_code,omitempty"`
	Period                 string                      `json:"period"`
	BaseSalary             decimal.Decimal             `json:"base_salary"`
	TotalMultiplier        decimal.Decimal             `json:"total_multiplier"`
	AttendanceBreakdown    map[string]int              `json:"attendance_breakdown,omitempty"`
	CalculatedSalary       decimal.Decimal             `json:"calculated_salary"`
	StatutoryTotal         decimal.Decimal             `json:"statutory_total"`
	StatutoryLines         []statutory.Line            `json:"statutory_lines,omitempty"`
	AdditionalBonuses      decimal.Decimal             `json:"additional_bonuses"`
	Deductions             decimal.Decimal             `json:"deductions"`
	AdvanceLoanID          *string                     `json:"advance_loan_id,omitempty"`
	AdvanceSalaryDeducted  decimal.Decimal             `json:"advance_salary_deducted"`
	AdvanceSkipped         bool                        `json:"advance_skipped"`
	SpecificDeductions     []SpecificDeductionResponse `json:"specific_deductions,omitempty"`
	SpecificDeductionTotal decimal.Decimal             `json:"specific_deduction_total"`
	FinalSalary            decimal.Decimal             `json:"final_salary"`
	AutoGenerated          bool                        `json:"auto_generated"`
	ManuallyModified       bool                        `json:"manually_modified"`
	DisbursementStatus     string                      `json:"disbursement_status"`
	DisbursedAt            *string                     `json:"disbursed_at,omitempty"`
	Notes                  *string                     `json:"notes,omitempty"`
	CreatedAt              string                      `json:"created_at"`
}

type ListRecordsResponse struct {
	Data       []SalaryRecordResponse `json:"data"`
	TotalCount int64                  `json:"total_count"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
}

type PeriodSummaryResponse struct {
	Period                 string          `json:"period"`
	TotalRecords           int             `json:"total_records"`
	TotalCalculatedSalary  decimal.Decimal `json:"total_calculated_salary"`
	TotalStatutory         decimal.Decimal `json:"total_statutory"`
	TotalBonuses           decimal.Decimal `json:"total_bonuses"`
	TotalDeductions        decimal.Decimal `json:"total_deductions"`
	TotalAdvanceDeducted   decimal.Decimal `json:"total_advance_deducted"`
	TotalSpecificDeduction decimal.Decimal `json:"total_specific_deduction"`
	TotalFinalSalary       decimal.Decimal `json:"total_final_salary"`
	PendingCount           int             `json:"pending_count"`
	DisbursedCount         int             `json:"disbursed_count"`
}

type DeductionTypeResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
}
