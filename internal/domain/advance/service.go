package advance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// SkipOutcome describes what a skip or unskip changed.
type SkipOutcome struct {
	Loan     Loan
	Skip     SkipRequest
	RecordID *string
	Advance  decimal.Decimal // advance_salary_deducted on the period's record after the change
	Warnings []string
}

// Ledger owns advance balances. ApplyDeduction and ReverseDeduction must run inside the caller's transaction.
type Ledger interface {
	GetLoan(ctx context.Context, id string) (Loan, error)
	GetActiveLoan(ctx context.Context, employeeID string) (Loan, bool, error)
	ComputeDeduction(ctx context.Context, loan Loan, p period.Period) (amount decimal.Decimal, skipped bool, err error)
	ApplyDeduction(ctx context.Context, loanID string, amount decimal.Decimal) (Loan, error)
	ReverseDeduction(ctx context.Context, loanID string, amount decimal.Decimal) (Loan, error)
	Skip(ctx context.Context, loanID string, p period.Period, reason string) (SkipOutcome, error)
	Unskip(ctx context.Context, loanID string, p period.Period) (SkipOutcome, error)
	IsOverdue(loan Loan, current period.Period) bool
	ListOverdue(ctx context.Context, current period.Period) ([]Loan, error)
}

type Service interface {
	ApplySkip(ctx context.Context, req SkipPeriodRequest) (SkipResponse, error)
	RemoveSkip(ctx context.Context, req RemoveSkipRequest) (SkipResponse, error)
	GetLoanDetail(ctx context.Context, id string, current period.Period) (LoanResponse, error)
	ListOverdueLoans(ctx context.Context, current string) ([]LoanResponse, error)
}
