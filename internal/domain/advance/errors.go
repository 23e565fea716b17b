package advance

import "errors"

var (
	ErrLoanNotFound           = errors.New("advance loan not found")
	ErrLoanNotActive          = errors.New("advance loan is not active")
	ErrSkipRequestNotFound    = errors.New("no active skip request for this period")
	ErrSkipReasonRequired     = errors.New("skip reason is required")
	ErrInvalidDeductionAmount = errors.New("advance deduction amount must be non-negative")
	ErrBalanceOverdraw        = errors.New("advance balance overdraw")
	ErrPeriodAlreadyDisbursed = errors.New("salary for this period is already disbursed")
)
