package advance

import (
	"context"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type LoanRepository interface {
	GetByID(ctx context.Context, id string) (Loan, error)
	// GetByIDForUpdate row-locks the loan for the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (Loan, error)
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]Loan, error)
	ListActive(ctx context.Context) ([]Loan, error)
	// Update persists balance, status and expected completion period.
	Update(ctx context.Context, loan Loan) error
}

type SkipRepository interface {
	GetActive(ctx context.Context, loanID string, p period.Period) (SkipRequest, error)
	// Activate creates the (loan, period) skip or re-activates it with the new reason.
	Activate(ctx context.Context, req SkipRequest) (SkipRequest, error)
	Deactivate(ctx context.Context, loanID string, p period.Period) error
}
