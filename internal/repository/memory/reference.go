package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type employeeRepo struct{ s *Store }

func (r employeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("employees.GetByID"); err != nil {
		return employee.Employee{}, err
	}
	e, ok := r.s.data.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r employeeRepo) GetActive(_ context.Context, _ period.Period) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("employees.GetActive"); err != nil {
		return nil, err
	}
	out := make([]employee.Employee, 0, len(r.s.data.employees))
	for _, e := range r.s.data.employees {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeCode != out[j].EmployeeCode {
			return out[i].EmployeeCode < out[j].EmployeeCode
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type attendanceRepo struct{ s *Store }

func (r attendanceRepo) GetEntries(_ context.Context, employeeID string, p period.Period) ([]attendance.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("attendance.GetEntries"); err != nil {
		return nil, err
	}
	var out []attendance.Entry
	for _, e := range r.s.data.entries[employeeID] {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

type codeRepo struct{ s *Store }

func (r codeRepo) GetMultiplier(_ context.Context, code string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.codes[code]
	if !ok {
		return decimal.Zero, attendance.ErrAttendanceCodeNotFound
	}
	return c.Multiplier, nil
}

func (r codeRepo) ListCodes(_ context.Context) ([]attendance.Code, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]attendance.Code, 0, len(r.s.data.codes))
	for _, c := range r.s.data.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type statutoryRepo struct{ s *Store }

func (r statutoryRepo) GetActiveRules(_ context.Context, p period.Period) ([]statutory.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("statutory.GetActiveRules"); err != nil {
		return nil, err
	}
	var out []statutory.Rule
	for _, rule := range r.s.data.rules {
		if rule.AppliesTo(p) {
			out = append(out, rule)
		}
	}
	return out, nil
}
