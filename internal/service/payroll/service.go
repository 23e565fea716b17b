package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 200
)

type PayrollServiceImpl struct {
	calculator *Calculator
	batch      *BatchRunner
	store      *RecordStore
	deductions *DeductionEngine
	records    payroll.SalaryRecordRepository
	types      payroll.DeductionTypeRepository
}

func NewPayrollService(
	calculator *Calculator,
	batch *BatchRunner,
	store *RecordStore,
	deductions *DeductionEngine,
	records payroll.SalaryRecordRepository,
	types payroll.DeductionTypeRepository,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		calculator: calculator,
		batch:      batch,
		store:      store,
		deductions: deductions,
		records:    records,
		types:      types,
	}
}

// ========== CALCULATION ==========

func (s *PayrollServiceImpl) ComputeSalary(ctx context.Context, employeeID string, p string) (payroll.SalaryBreakdown, error) {
	parsed, err := period.Parse(p)
	if err != nil {
		return payroll.SalaryBreakdown{}, err
	}
	return s.calculator.Compute(ctx, employeeID, parsed)
}

func (s *PayrollServiceImpl) RunBatch(ctx context.Context, p string) (payroll.BatchResult, error) {
	parsed, err := period.Parse(p)
	if err != nil {
		return payroll.BatchResult{}, err
	}
	return s.batch.Run(ctx, parsed)
}

func (s *PayrollServiceImpl) SaveSalaryRecords(ctx context.Context, req payroll.SaveRecordsRequest) (payroll.SaveResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.SaveResult{}, err
	}
	parsed, err := period.Parse(req.Period)
	if err != nil {
		return payroll.SaveResult{}, err
	}
	return s.store.SaveAll(ctx, parsed, req.Breakdowns), nil
}

// RunAndSave computes the period and saves every successful breakdown. Employees that
// already have a record for the period are reported as rejected.
func (s *PayrollServiceImpl) RunAndSave(ctx context.Context, p string) (payroll.RunAndSaveResult, error) {
	parsed, err := period.Parse(p)
	if err != nil {
		return payroll.RunAndSaveResult{}, err
	}

	batch, err := s.batch.Run(ctx, parsed)
	if err != nil {
		return payroll.RunAndSaveResult{}, err
	}

	return payroll.RunAndSaveResult{
		Batch: batch,
		Save:  s.store.SaveAll(ctx, parsed, batch.Succeeded),
	}, nil
}

// ========== ADJUSTMENTS ==========

func (s *PayrollServiceImpl) EditRecord(ctx context.Context, req payroll.EditRecordRequest) (payroll.EditRecordResponse, error) {
	rec, warnings, err := s.deductions.ApplyManualAdjustment(ctx, req)
	if err != nil {
		return payroll.EditRecordResponse{}, err
	}
	return payroll.EditRecordResponse{
		Record:   mapToRecordResponse(rec),
		Warnings: warnings,
	}, nil
}

func (s *PayrollServiceImpl) ApplyBulkDeduction(ctx context.Context, req payroll.BulkDeductionRequest) (payroll.BulkDeductionResult, error) {
	return s.deductions.ApplyBulkDeduction(ctx, req)
}

// ========== DISBURSEMENT ==========

func (s *PayrollServiceImpl) Disburse(ctx context.Context, id string) (payroll.SalaryRecordResponse, error) {
	rec, err := s.store.Disburse(ctx, id)
	if err != nil {
		return payroll.SalaryRecordResponse{}, err
	}
	return mapToRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) DisburseBulk(ctx context.Context, req payroll.DisburseBulkRequest) (payroll.DisburseBulkResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.DisburseBulkResult{}, err
	}

	var only *period.Period
	if req.Period != nil {
		parsed, err := period.Parse(*req.Period)
		if err != nil {
			return payroll.DisburseBulkResult{}, err
		}
		only = &parsed
	}

	return s.store.DisburseBulk(ctx, req.RecordIDs, only), nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) GetRecord(ctx context.Context, id string) (payroll.SalaryRecordResponse, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.SalaryRecordResponse{}, persistenceError(err)
	}
	return mapToRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) ListRecords(ctx context.Context, filter payroll.RecordFilter) (payroll.ListRecordsResponse, error) {
	if filter.Page <= 0 {
		filter.Page = defaultPage
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)

	records, totalCount, err := s.records.List(ctx, filter)
	if err != nil {
		return payroll.ListRecordsResponse{}, persistenceError(err)
	}

	return payroll.ListRecordsResponse{
		Data:       mapToRecordResponses(records),
		TotalCount: totalCount,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetPeriodSummary(ctx context.Context, p string) (payroll.PeriodSummaryResponse, error) {
	parsed, err := period.Parse(p)
	if err != nil {
		return payroll.PeriodSummaryResponse{}, err
	}

	sum, err := s.records.Summary(ctx, parsed)
	if err != nil {
		return payroll.PeriodSummaryResponse{}, persistenceError(err)
	}

	return payroll.PeriodSummaryResponse{
		Period:                 sum.Period.String(),
		TotalRecords:           sum.TotalRecords,
		TotalCalculatedSalary:  sum.TotalCalculatedSalary,
		TotalStatutory:         sum.TotalStatutory,
		TotalBonuses:           sum.TotalBonuses,
		TotalDeductions:        sum.TotalDeductions,
		TotalAdvanceDeducted:   sum.TotalAdvanceDeducted,
		TotalSpecificDeduction: sum.TotalSpecificDeduction,
		TotalFinalSalary:       sum.TotalFinalSalary,
		PendingCount:           sum.PendingCount,
		DisbursedCount:         sum.DisbursedCount,
	}, nil
}

func (s *PayrollServiceImpl) ListDeductionTypes(ctx context.Context, activeOnly bool) ([]payroll.DeductionTypeResponse, error) {
	types, err := s.types.List(ctx, activeOnly)
	if err != nil {
		return nil, persistenceError(err)
	}

	resp := make([]payroll.DeductionTypeResponse, 0, len(types))
	for _, dt := range types {
		resp = append(resp, payroll.DeductionTypeResponse{
			ID:          dt.ID,
			Name:        dt.Name,
			Description: dt.Description,
			IsActive:    dt.IsActive,
		})
	}
	return resp, nil
}

// ========== HELPERS ==========

func mapToRecordResponse(r payroll.SalaryRecord) payroll.SalaryRecordResponse {
	var disbursedAt *string
	if r.DisbursedAt != nil {
		str := r.DisbursedAt.Format(time.RFC3339)
		disbursedAt = &str
	}

	employeeName := ""
	employeeCode := ""
	if r.EmployeeName != nil {
		employeeName = *r.EmployeeName
	}
	if r.EmployeeCode != nil {
		employeeCode = *r.EmployeeCode
	}

	specific := make([]payroll.SpecificDeductionResponse, 0, len(r.SpecificDeductions))
	for _, d := range r.SpecificDeductions {
		specific = append(specific, payroll.SpecificDeductionResponse{
			DeductionTypeID:   d.DeductionTypeID,
			DeductionTypeName: d.DeductionTypeName,
			Amount:            d.Amount,
			Notes:             d.Notes,
		})
	}

	return payroll.SalaryRecordResponse{
		ID:                     r.ID,
		EmployeeID:             r.EmployeeID,
		EmployeeName:           employeeName,
		EmployeeCode:           employeeCode,
		Period:                 r.Period.String(),
		BaseSalary:             r.BaseSalary,
		TotalMultiplier:        r.TotalMultiplier,
		AttendanceBreakdown:    r.AttendanceBreakdown,
		CalculatedSalary:       r.CalculatedSalary,
		StatutoryTotal:         r.StatutoryTotal,
		StatutoryLines:         r.StatutoryLines,
		AdditionalBonuses:      r.AdditionalBonuses,
		Deductions:             r.Deductions,
		AdvanceLoanID:          r.AdvanceLoanID,
		AdvanceSalaryDeducted:  r.AdvanceSalaryDeducted,
		AdvanceSkipped:         r.AdvanceSkipped,
		SpecificDeductions:     specific,
		SpecificDeductionTotal: r.SpecificDeductionTotal,
		FinalSalary:            r.FinalSalary,
		AutoGenerated:          r.AutoGenerated,
		ManuallyModified:       r.ManuallyModified,
		DisbursementStatus:     string(r.DisbursementStatus),
		DisbursedAt:            disbursedAt,
		Notes:                  r.Notes,
		CreatedAt:              r.CreatedAt.Format(time.RFC3339),
	}
}

func mapToRecordResponses(records []payroll.SalaryRecord) []payroll.SalaryRecordResponse {
	result := make([]payroll.SalaryRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, mapToRecordResponse(r))
	}
	return result
}
