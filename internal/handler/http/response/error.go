package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

// errorMapping ties a domain error to its reply. An empty message echoes the error text.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{employee.ErrEmployeeNotFound, http.StatusNotFound, CodeNotFound, "Employee not found"},
	{payroll.ErrSalaryRecordNotFound, http.StatusNotFound, CodeNotFound, "Salary record not found"},
	{payroll.ErrDeductionTypeNotFound, http.StatusNotFound, CodeNotFound, "Deduction type not found"},
	{advance.ErrLoanNotFound, http.StatusNotFound, CodeNotFound, "Advance loan not found"},
	{advance.ErrSkipRequestNotFound, http.StatusNotFound, CodeNotFound, "No active skip for this period"},

	{payroll.ErrSalaryRecordAlreadyExists, http.StatusConflict, CodeConflict, "Salary record already exists for this employee and period"},
	{payroll.ErrSalaryRecordAlreadyDisbursed, http.StatusConflict, CodeConflict, "Salary record already disbursed"},
	{advance.ErrPeriodAlreadyDisbursed, http.StatusConflict, CodeConflict, "Salary for this period is already disbursed"},
	{lock.ErrNotAcquired, http.StatusConflict, CodeConflict, "Record is being processed, retry shortly"},

	{period.ErrInvalidPeriod, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{advance.ErrSkipReasonRequired, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{advance.ErrLoanNotActive, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{advance.ErrBalanceOverdraw, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{advance.ErrInvalidDeductionAmount, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{payroll.ErrDeductionTypeInactive, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{payroll.ErrNoAdvanceLinked, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{payroll.ErrPeriodMismatch, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{employee.ErrEmployeeNotActive, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{employee.ErrNegativeBaseSalary, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{attendance.ErrMalformedEntry, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{attendance.ErrNegativeMultiplier, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
	{statutory.ErrNegativeRuleValue, http.StatusUnprocessableEntity, CodeBusinessRule, ""},
}

// HandleError maps domain errors to HTTP responses. Anything unmapped is logged and
// answered with a generic 500.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if message == "" {
			message = err.Error()
		}
		fail(w, m.status, m.code, message, nil)
		return
	}

	slog.Error("Unhandled error", "error", err)
	InternalServerError(w, "An unexpected error occurred")
}
