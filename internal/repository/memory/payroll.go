package memory

import (
	"context"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func recordKey(employeeID string, p period.Period) string {
	return employeeID + "|" + p.String()
}

func cloneRecord(r payroll.SalaryRecord) payroll.SalaryRecord {
	r.AttendanceBreakdown = maps.Clone(r.AttendanceBreakdown)
	r.StatutoryLines = append([]statutory.Line(nil), r.StatutoryLines...)
	r.SpecificDeductions = append([]payroll.SpecificDeduction(nil), r.SpecificDeductions...)
	return r
}

type recordRepo struct{ s *Store }

// withEmployee fills the joined employee fields. Caller holds mu.
func (r recordRepo) withEmployee(rec payroll.SalaryRecord) payroll.SalaryRecord {
	rec = cloneRecord(rec)
	if e, ok := r.s.data.employees[rec.EmployeeID]; ok {
		name, code := e.FullName, e.EmployeeCode
		rec.EmployeeName = &name
		rec.EmployeeCode = &code
	}
	return rec
}

func (r recordRepo) Create(_ context.Context, rec payroll.SalaryRecord) (payroll.SalaryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("records.Create"); err != nil {
		return payroll.SalaryRecord{}, err
	}
	key := recordKey(rec.EmployeeID, rec.Period)
	if _, exists := r.s.data.recordIndex[key]; exists {
		return payroll.SalaryRecord{}, payroll.ErrSalaryRecordAlreadyExists
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	now := r.s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	for i := range rec.SpecificDeductions {
		if rec.SpecificDeductions[i].CreatedAt.IsZero() {
			rec.SpecificDeductions[i].CreatedAt = now
		}
	}
	r.s.data.records[rec.ID] = cloneRecord(rec)
	r.s.data.recordIndex[key] = rec.ID
	return r.withEmployee(rec), nil
}

func (r recordRepo) GetByID(_ context.Context, id string) (payroll.SalaryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("records.GetByID"); err != nil {
		return payroll.SalaryRecord{}, err
	}
	rec, ok := r.s.data.records[id]
	if !ok {
		return payroll.SalaryRecord{}, payroll.ErrSalaryRecordNotFound
	}
	return r.withEmployee(rec), nil
}

func (r recordRepo) GetByIDForUpdate(ctx context.Context, id string) (payroll.SalaryRecord, error) {
	return r.GetByID(ctx, id)
}

func (r recordRepo) FindByEmployeePeriod(_ context.Context, employeeID string, p period.Period) (payroll.SalaryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("records.FindByEmployeePeriod"); err != nil {
		return payroll.SalaryRecord{}, err
	}
	id, ok := r.s.data.recordIndex[recordKey(employeeID, p)]
	if !ok {
		return payroll.SalaryRecord{}, payroll.ErrSalaryRecordNotFound
	}
	return r.withEmployee(r.s.data.records[id]), nil
}

func (r recordRepo) FindByEmployeePeriodForUpdate(ctx context.Context, employeeID string, p period.Period) (payroll.SalaryRecord, error) {
	return r.FindByEmployeePeriod(ctx, employeeID, p)
}

func (r recordRepo) List(_ context.Context, filter payroll.RecordFilter) ([]payroll.SalaryRecord, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("records.List"); err != nil {
		return nil, 0, err
	}

	var matched []payroll.SalaryRecord
	for _, rec := range r.s.data.records {
		if filter.Period != nil && rec.Period != *filter.Period {
			continue
		}
		if filter.Status != nil && rec.DisbursementStatus != *filter.Status {
			continue
		}
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		matched = append(matched, r.withEmployee(rec))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := a.Period.Compare(b.Period); c != 0 {
			return c > 0
		}
		if ac, bc := deref(a.EmployeeCode), deref(b.EmployeeCode); ac != bc {
			return ac < bc
		}
		return a.ID < b.ID
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		start := min((page-1)*filter.Limit, len(matched))
		end := min(start+filter.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r recordRepo) Update(_ context.Context, rec payroll.SalaryRecord) (payroll.SalaryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("records.Update"); err != nil {
		return payroll.SalaryRecord{}, err
	}
	current, ok := r.s.data.records[rec.ID]
	if !ok {
		return payroll.SalaryRecord{}, payroll.ErrSalaryRecordNotFound
	}
	now := r.s.now()
	// identity, lifecycle and creation fields are not updatable
	rec.EmployeeID = current.EmployeeID
	rec.Period = current.Period
	rec.DisbursementStatus = current.DisbursementStatus
	rec.DisbursedAt = current.DisbursedAt
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = now
	for i := range rec.SpecificDeductions {
		if rec.SpecificDeductions[i].CreatedAt.IsZero() {
			rec.SpecificDeductions[i].CreatedAt = now
		}
	}
	rec.EmployeeName, rec.EmployeeCode = nil, nil
	r.s.data.records[rec.ID] = cloneRecord(rec)
	return r.withEmployee(rec), nil
}

func (r recordRepo) MarkDisbursed(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("records.MarkDisbursed"); err != nil {
		return false, err
	}
	rec, ok := r.s.data.records[id]
	if !ok {
		return false, payroll.ErrSalaryRecordNotFound
	}
	if !rec.IsPending() {
		return false, nil
	}
	rec.DisbursementStatus = payroll.DisbursementDisbursed
	rec.DisbursedAt = &at
	rec.UpdatedAt = at
	r.s.data.records[id] = rec
	return true, nil
}

func (r recordRepo) Summary(_ context.Context, p period.Period) (payroll.PeriodSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("records.Summary"); err != nil {
		return payroll.PeriodSummary{}, err
	}

	sum := payroll.PeriodSummary{
		Period:                 p,
		TotalCalculatedSalary:  decimal.Zero,
		TotalStatutory:         decimal.Zero,
		TotalBonuses:           decimal.Zero,
		TotalDeductions:        decimal.Zero,
		TotalAdvanceDeducted:   decimal.Zero,
		TotalSpecificDeduction: decimal.Zero,
		TotalFinalSalary:       decimal.Zero,
	}
	for _, rec := range r.s.data.records {
		if rec.Period != p {
			continue
		}
		sum.TotalRecords++
		sum.TotalCalculatedSalary = sum.TotalCalculatedSalary.Add(rec.CalculatedSalary)
		sum.TotalStatutory = sum.TotalStatutory.Add(rec.StatutoryTotal)
		sum.TotalBonuses = sum.TotalBonuses.Add(rec.AdditionalBonuses)
		sum.TotalDeductions = sum.TotalDeductions.Add(rec.Deductions)
		sum.TotalAdvanceDeducted = sum.TotalAdvanceDeducted.Add(rec.AdvanceSalaryDeducted)
		sum.TotalSpecificDeduction = sum.TotalSpecificDeduction.Add(rec.SpecificDeductionTotal)
		sum.TotalFinalSalary = sum.TotalFinalSalary.Add(rec.FinalSalary)
		if rec.IsPending() {
			sum.PendingCount++
		} else {
			sum.DisbursedCount++
		}
	}
	return sum, nil
}

type deductionTypeRepo struct{ s *Store }

func (r deductionTypeRepo) GetByID(_ context.Context, id string) (payroll.DeductionType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	dt, ok := r.s.data.deductionTypes[id]
	if !ok {
		return payroll.DeductionType{}, payroll.ErrDeductionTypeNotFound
	}
	return dt, nil
}

func (r deductionTypeRepo) List(_ context.Context, activeOnly bool) ([]payroll.DeductionType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]payroll.DeductionType, 0, len(r.s.data.deductionTypes))
	for _, dt := range r.s.data.deductionTypes {
		if activeOnly && !dt.IsActive {
			continue
		}
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
