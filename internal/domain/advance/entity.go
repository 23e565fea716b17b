package advance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// Loan - salary advance repaid through monthly deductions
type Loan struct {
	ID                       string
	EmployeeID               string
	TotalAdvanceAmount       decimal.Decimal
	RemainingBalance         decimal.Decimal
	MonthlyDeductionAmount   decimal.Decimal
	Status                   LoanStatus
	PriorityLevel            Priority
	EmergencyAdvance         bool
	ExpectedCompletionPeriod period.Period
	Reason                   *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (l Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// ScheduledDeduction is the installment for a non-skipped period, capped so the balance never goes negative.
func (l Loan) ScheduledDeduction() decimal.Decimal {
	if !l.IsActive() || !l.RemainingBalance.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(l.MonthlyDeductionAmount, l.RemainingBalance)
}

// Apply returns the loan with amount deducted from the balance. Reaching zero completes the loan.
func (l Loan) Apply(amount decimal.Decimal) (Loan, error) {
	if amount.IsNegative() {
		return l, fmt.Errorf("%w: %s", ErrInvalidDeductionAmount, amount)
	}
	if amount.IsZero() {
		return l, nil
	}
	if !l.IsActive() {
		return l, ErrLoanNotActive
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return l, fmt.Errorf("%w: deduction %s exceeds remaining balance %s", ErrBalanceOverdraw, amount, l.RemainingBalance)
	}
	l.RemainingBalance = l.RemainingBalance.Sub(amount)
	if l.RemainingBalance.IsZero() {
		l.Status = LoanStatusCompleted
	}
	return l, nil
}

// Reverse credits a previously applied deduction back. A completed loan becomes active again.
func (l Loan) Reverse(amount decimal.Decimal) (Loan, error) {
	if amount.IsNegative() {
		return l, fmt.Errorf("%w: %s", ErrInvalidDeductionAmount, amount)
	}
	if amount.IsZero() {
		return l, nil
	}
	restored := l.RemainingBalance.Add(amount)
	if restored.GreaterThan(l.TotalAdvanceAmount) {
		return l, fmt.Errorf("%w: balance %s would exceed advance total %s", ErrBalanceOverdraw, restored, l.TotalAdvanceAmount)
	}
	l.RemainingBalance = restored
	l.Status = LoanStatusActive
	return l, nil
}

// IsOverdue reports whether an active loan has outlived its expected completion period.
func (l Loan) IsOverdue(current period.Period) bool {
	return l.IsActive() && current.After(l.ExpectedCompletionPeriod)
}

// SelectDriving picks the active loan that drives the period's deduction:
// highest priority, then emergency advances, then the oldest.
func SelectDriving(loans []Loan) (Loan, bool) {
	active := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if l.IsActive() {
			active = append(active, l)
		}
	}
	if len(active) == 0 {
		return Loan{}, false
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.PriorityLevel.rank() != b.PriorityLevel.rank() {
			return a.PriorityLevel.rank() > b.PriorityLevel.rank()
		}
		if a.EmergencyAdvance != b.EmergencyAdvance {
			return a.EmergencyAdvance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return active[0], true
}

// SkipRequest - reasoned suspension of one period's advance deduction
type SkipRequest struct {
	ID        string
	LoanID    string
	Period    period.Period
	Reason    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
