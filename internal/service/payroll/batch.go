package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

const DefaultBatchConcurrency = 4

// BatchRunner computes every active employee of a period. Failures are collected per
// employee and never stop the rest of the batch.
type BatchRunner struct {
	employees   employee.Directory
	calculator  *Calculator
	concurrency int
}

func NewBatchRunner(employees employee.Directory, calculator *Calculator, concurrency int) *BatchRunner {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &BatchRunner{
		employees:   employees,
		calculator:  calculator,
		concurrency: concurrency,
	}
}

type employeeOutcome struct {
	breakdown payroll.SalaryBreakdown
	err       error
}

// Run is read-only, so employees are computed in parallel. Results keep directory order.
func (r *BatchRunner) Run(ctx context.Context, p period.Period) (payroll.BatchResult, error) {
	if !p.Valid() {
		return payroll.BatchResult{}, period.ErrInvalidPeriod
	}

	started := time.Now()
	employees, err := r.employees.GetActive(ctx, p)
	if err != nil {
		return payroll.BatchResult{}, fmt.Errorf("failed to list active employees: %w", err)
	}

	outcomes := make([]employeeOutcome, len(employees))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, emp := range employees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].breakdown, outcomes[i].err = r.calculator.ComputeFor(ctx, emp, p)
			return nil
		})
	}
	_ = g.Wait()

	result := payroll.BatchResult{
		Period:    p,
		Succeeded: make([]payroll.SalaryBreakdown, 0, len(employees)),
		Failed:    []payroll.EmployeeFailure{},
	}
	for i, o := range outcomes {
		if o.err != nil {
			slog.Warn("Employee excluded from payroll batch", "employee_id", employees[i].ID, "period", p.String(), "error", o.err)
			result.Failed = append(result.Failed, payroll.EmployeeFailure{
				EmployeeID: employees[i].ID,
				Reason:     failureReason(o.err),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, o.breakdown)
	}

	slog.Info("Payroll batch finished",
		"period", p.String(),
		"employees", len(employees),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"duration", time.Since(started))
	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return "employee not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "batch aborted before this employee was processed: " + err.Error()
	default:
		return err.Error()
	}
}
