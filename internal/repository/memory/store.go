// Package memory keeps every engine collaborator in process memory. It backs the
// CLI's offline mode and the service tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
)

type txKey struct{}

type Store struct {
	// txMu serializes transactions, mu guards the data itself.
	txMu sync.Mutex
	mu   sync.RWMutex
	data state

	faults map[string]error
	now    func() time.Time
}

type state struct {
	employees      map[string]employee.Employee
	entries        map[string][]attendance.Entry // by employee
	codes          map[string]attendance.Code
	rules          []statutory.Rule
	loans          map[string]advance.Loan
	skips          map[string]advance.SkipRequest // by skipKey
	records        map[string]payroll.SalaryRecord
	recordIndex    map[string]string // recordKey -> record id
	deductionTypes map[string]payroll.DeductionType
}

func NewStore() *Store {
	return &Store{
		data: state{
			employees:      make(map[string]employee.Employee),
			entries:        make(map[string][]attendance.Entry),
			codes:          make(map[string]attendance.Code),
			loans:          make(map[string]advance.Loan),
			skips:          make(map[string]advance.SkipRequest),
			records:        make(map[string]payroll.SalaryRecord),
			recordIndex:    make(map[string]string),
			deductionTypes: make(map[string]payroll.DeductionType),
		},
		faults: make(map[string]error),
		now:    time.Now,
	}
}

// WithinTx implements database.Transactor. On error every write made through ctx is undone.
// Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// SetFault makes the named operation (e.g. "records.Create") fail with err until cleared with a nil err.
func (s *Store) SetFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// fault must be called with mu held.
func (s *Store) fault(op string) error {
	return s.faults[op]
}

func (s *Store) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := state{
		employees:      maps.Clone(s.data.employees),
		entries:        make(map[string][]attendance.Entry, len(s.data.entries)),
		codes:          maps.Clone(s.data.codes),
		rules:          append([]statutory.Rule(nil), s.data.rules...),
		loans:          maps.Clone(s.data.loans),
		skips:          maps.Clone(s.data.skips),
		records:        make(map[string]payroll.SalaryRecord, len(s.data.records)),
		recordIndex:    maps.Clone(s.data.recordIndex),
		deductionTypes: maps.Clone(s.data.deductionTypes),
	}
	for k, v := range s.data.entries {
		snap.entries[k] = append([]attendance.Entry(nil), v...)
	}
	for k, v := range s.data.records {
		snap.records[k] = cloneRecord(v)
	}
	return snap
}

func (s *Store) restore(snap state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}

// Repository views

func (s *Store) Employees() employee.Directory { return employeeRepo{s} }
func (s *Store) Attendance() attendance.Store { return attendanceRepo{s} }
func (s *Store) Codes() attendance.CodeCatalog { return codeRepo{s} }
func (s *Store) Statutory() statutory.Catalog { return statutoryRepo{s} }
func (s *Store) Loans() advance.LoanRepository { return loanRepo{s} }
func (s *Store) Skips() advance.SkipRepository { return skipRepo{s} }
func (s *Store) Records() payroll.SalaryRecordRepository { return recordRepo{s} }
func (s *Store) DeductionTypes() payroll.DeductionTypeRepository { return deductionTypeRepo{s} }
