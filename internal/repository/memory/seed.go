package memory

import (
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
)

// Seeding bypasses transactions and fault injection.

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Status == "" {
		e.Status = employee.StatusActive
	}
	s.data.employees[e.ID] = e
}

func (s *Store) AddEntries(entries ...attendance.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = newID()
		}
		s.data.entries[e.EmployeeID] = append(s.data.entries[e.EmployeeID], e)
	}
}

func (s *Store) AddCode(c attendance.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.codes[c.Code] = c
}

func (s *Store) AddRule(r statutory.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = newID()
	}
	s.data.rules = append(s.data.rules, r)
}

func (s *Store) AddLoan(l advance.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	if l.Status == "" {
		l.Status = advance.LoanStatusActive
	}
	if l.PriorityLevel == "" {
		l.PriorityLevel = advance.PriorityNormal
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.data.loans[l.ID] = l
}

func (s *Store) AddSkip(sr advance.SkipRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr.ID == "" {
		sr.ID = newID()
	}
	if sr.CreatedAt.IsZero() {
		sr.CreatedAt = s.now()
	}
	s.data.skips[skipKey(sr.LoanID, sr.Period)] = sr
}

func (s *Store) AddDeductionType(dt payroll.DeductionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dt.ID == "" {
		dt.ID = newID()
	}
	s.data.deductionTypes[dt.ID] = dt
}
