package payroll

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Calculator produces salary breakdowns. It never writes anything.
type Calculator struct {
	employees  employee.Directory
	aggregator attendance.Aggregator
	resolver   statutory.Resolver
	ledger     advance.Ledger
}

func NewCalculator(
	employees employee.Directory,
	aggregator attendance.Aggregator,
	resolver statutory.Resolver,
	ledger advance.Ledger,
) *Calculator {
	return &Calculator{
		employees:  employees,
		aggregator: aggregator,
		resolver:   resolver,
		ledger:     ledger,
	}
}

func (c *Calculator) Compute(ctx context.Context, employeeID string, p period.Period) (payroll.SalaryBreakdown, error) {
	emp, err := c.employees.GetByID(ctx, employeeID)
	if err != nil {
		return payroll.SalaryBreakdown{}, err
	}
	if !emp.IsActive() {
		return payroll.SalaryBreakdown{}, employee.ErrEmployeeNotActive
	}
	return c.ComputeFor(ctx, emp, p)
}

// ComputeFor runs the calculation steps in order: attendance, proration, statutory, advance.
// Each step feeds the next, so the order matters.
func (c *Calculator) ComputeFor(ctx context.Context, emp employee.Employee, p period.Period) (payroll.SalaryBreakdown, error) {
	if !p.Valid() {
		return payroll.SalaryBreakdown{}, period.ErrInvalidPeriod
	}
	if emp.BaseSalary.IsNegative() {
		return payroll.SalaryBreakdown{}, fmt.Errorf("%w: %s", employee.ErrNegativeBaseSalary, emp.BaseSalary)
	}

	summary, err := c.aggregator.Summarize(ctx, emp.ID, p)
	if err != nil {
		return payroll.SalaryBreakdown{}, err
	}

	calculated := emp.BaseSalary.Mul(summary.TotalMultiplier)

	stat, err := c.resolver.Resolve(ctx, calculated, p)
	if err != nil {
		return payroll.SalaryBreakdown{}, err
	}

	advanceAmount := decimal.Zero
	skipped := false
	var loanID *string

	loan, ok, err := c.ledger.GetActiveLoan(ctx, emp.ID)
	if err != nil {
		return payroll.SalaryBreakdown{}, err
	}
	if ok {
		advanceAmount, skipped, err = c.ledger.ComputeDeduction(ctx, loan, p)
		if err != nil {
			return payroll.SalaryBreakdown{}, err
		}
		id := loan.ID
		loanID = &id
	}

	return payroll.SalaryBreakdown{
		EmployeeID:            emp.ID,
		EmployeeCode:          emp.EmployeeCode,
		EmployeeName:          emp.FullName,
		Period:                p,
		BaseSalary:            emp.BaseSalary,
		TotalMultiplier:       summary.TotalMultiplier,
		AttendanceBreakdown:   summary.Breakdown,
		UnknownCodes:          summary.UnknownCodes,
		CalculatedSalary:      calculated,
		StatutoryTotal:        stat.Total,
		StatutoryLines:        stat.EmployeeLines,
		EmployerStatutory:     stat.EmployerLines,
		AdvanceLoanID:         loanID,
		AdvanceSalaryDeducted: advanceAmount,
		AdvanceSkipped:        skipped,
		FinalSalary:           payroll.FinalSalary(calculated, stat.Total, advanceAmount, decimal.Zero, decimal.Zero, decimal.Zero),
	}, nil
}
