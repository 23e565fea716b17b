package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type PayrollJobs struct {
	payrollService payroll.PayrollService
	advanceService advance.Service
	now            func() time.Time
}

func NewPayrollJobs(payrollService payroll.PayrollService, advanceService advance.Service) *PayrollJobs {
	return &PayrollJobs{
		payrollService: payrollService,
		advanceService: advanceService,
		now:            time.Now,
	}
}

// RegisterJobs schedules each job whose spec is non-empty.
func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, autoGenerateSpec, overdueReportSpec string) error {
	if autoGenerateSpec != "" {
		if err := scheduler.AddJob("auto_generate_salary_records", autoGenerateSpec, j.AutoGenerateSalaryRecords); err != nil {
			return err
		}
	}
	if overdueReportSpec != "" {
		if err := scheduler.AddJob("report_overdue_advances", overdueReportSpec, j.ReportOverdueAdvances); err != nil {
			return err
		}
	}
	return nil
}

// AutoGenerateSalaryRecords computes and saves the month that just closed. Employees that
// already have a record are reported as rejected, so reruns are harmless.
func (j *PayrollJobs) AutoGenerateSalaryRecords(ctx context.Context) error {
	target := period.Of(j.now()).Previous()

	slog.Info("Cron: Starting salary auto-generation", "period", target.String())

	result, err := j.payrollService.RunAndSave(ctx, target.String())
	if err != nil {
		return fmt.Errorf("auto-generate %s: %w", target, err)
	}

	for _, f := range result.Batch.Failed {
		slog.Warn("Cron: Employee skipped by salary auto-generation", "period", target.String(), "employee_id", f.EmployeeID, "reason", f.Reason)
	}

	slog.Info("Cron: Salary auto-generation completed",
		"period", target.String(),
		"computed", len(result.Batch.Succeeded),
		"failed", len(result.Batch.Failed),
		"saved", len(result.Save.Saved),
		"rejected", len(result.Save.Rejected))
	return nil
}

// ReportOverdueAdvances logs every active advance past its expected completion period.
func (j *PayrollJobs) ReportOverdueAdvances(ctx context.Context) error {
	current := period.Of(j.now())

	loans, err := j.advanceService.ListOverdueLoans(ctx, current.String())
	if err != nil {
		return fmt.Errorf("list overdue advances: %w", err)
	}

	for _, l := range loans {
		slog.Warn("Cron: Advance overdue",
			"loan_id", l.ID,
			"employee_id", l.EmployeeID,
			"remaining_balance", l.RemainingBalance.String(),
			"expected_completion_period", l.ExpectedCompletionPeriod)
	}

	slog.Info("Cron: Overdue advance report completed", "period", current.String(), "overdue", len(loans))
	return nil
}
