package advance

import (
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

type SkipPeriodRequest struct {
	LoanID string `json:"-" validate:"required"`
	Period string `json:"period" validate:"required,period"`
	Reason string `json:"reason" validate:"notblank"`
}

func (r *SkipPeriodRequest) Validate() error {
	return validator.Struct(r)
}

type RemoveSkipRequest struct {
	LoanID string `json:"-" validate:"required"`
	Period string `json:"period" validate:"required,period"`
}

func (r *RemoveSkipRequest) Validate() error {
	return validator.Struct(r)
}

type LoanResponse struct {
	ID                       string          `json:"id"`
	EmployeeID               string          `json:"employee_id"`
	TotalAdvanceAmount       decimal.Decimal `json:"total_advance_amount"`
	RemainingBalance         decimal.Decimal `json:"remaining_balance"`
	MonthlyDeductionAmount   decimal.Decimal `json:"monthly_deduction_amount"`
	Status                   string          `json:"status"`
	PriorityLevel            string          `json:"priority_level"`
	EmergencyAdvance         bool            `json:"emergency_advance"`
	ExpectedCompletionPeriod string          `json:"expected_completion_period"`
	IsOverdue                bool            `json:"is_overdue"`
	Reason                   *string         `json:"reason,omitempty"`
}

type SkipResponse struct {
	Loan     LoanResponse    `json:"loan"`
	Period   string          `json:"period"`
	Reason   string          `json:"reason,omitempty"`
	Active   bool            `json:"active"`
	RecordID *string         `json:"record_id,omitempty"`
	Advance  decimal.Decimal `json:"advance_salary_deducted"`
	Warnings []string        `json:"warnings,omitempty"`
}
