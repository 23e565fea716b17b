package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// SalaryRecordRepository defines data access methods for salary records.
// Records are never deleted.
type SalaryRecordRepository interface {
	// Create fails with ErrSalaryRecordAlreadyExists when (employee, period) is taken.
	Create(ctx context.Context, record SalaryRecord) (SalaryRecord, error)
	GetByID(ctx context.Context, id string) (SalaryRecord, error)
	// GetByIDForUpdate row-locks the record for the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (SalaryRecord, error)
	FindByEmployeePeriod(ctx context.Context, employeeID string, p period.Period) (SalaryRecord, error)
	FindByEmployeePeriodForUpdate(ctx context.Context, employeeID string, p period.Period) (SalaryRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]SalaryRecord, int64, error)
	// Update rewrites the mutable amounts and replaces the record's specific deductions.
	Update(ctx context.Context, record SalaryRecord) (SalaryRecord, error)
	// MarkDisbursed moves a pending record to disbursed. It reports false when the record was not pending.
	MarkDisbursed(ctx context.Context, id string, at time.Time) (bool, error)
	Summary(ctx context.Context, p period.Period) (PeriodSummary, error)
}

type DeductionTypeRepository interface {
	GetByID(ctx context.Context, id string) (DeductionType, error)
	List(ctx context.Context, activeOnly bool) ([]DeductionType, error)
}
