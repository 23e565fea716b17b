package payroll

import (
	"context"
)

type PayrollService interface {
	// Calculation
	ComputeSalary(ctx context.Context, employeeID string, period string) (SalaryBreakdown, error)
	RunBatch(ctx context.Context, period string) (BatchResult, error)
	SaveSalaryRecords(ctx context.Context, req SaveRecordsRequest) (SaveResult, error)
	RunAndSave(ctx context.Context, period string) (RunAndSaveResult, error)

	// Adjustments
	EditRecord(ctx context.Context, req EditRecordRequest) (EditRecordResponse, error)
	ApplyBulkDeduction(ctx context.Context, req BulkDeductionRequest) (BulkDeductionResult, error)

	// Disbursement
	Disburse(ctx context.Context, id string) (SalaryRecordResponse, error)
	DisburseBulk(ctx context.Context, req DisburseBulkRequest) (DisburseBulkResult, error)

	// Queries
	GetRecord(ctx context.Context, id string) (SalaryRecordResponse, error)
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordsResponse, error)
	GetPeriodSummary(ctx context.Context, period string) (PeriodSummaryResponse, error)
	ListDeductionTypes(ctx context.Context, activeOnly bool) ([]DeductionTypeResponse, error)
}
