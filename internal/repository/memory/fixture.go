package memory

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Fixture is the YAML layout accepted by LoadFixture.
type Fixture struct {
	Employees      []FixtureEmployee      `yaml:"employees"`
	Codes          []FixtureCode          `yaml:"codes"`
	Attendance     []FixtureEntry         `yaml:"attendance"`
	StatutoryRules []FixtureRule          `yaml:"statutory_rules"`
	Advances       []FixtureAdvance       `yaml:"advances"`
	Skips          []FixtureSkip          `yaml:"skips"`
	DeductionTypes []FixtureDeductionType `yaml:"deduction_types"`
}

type FixtureEmployee struct {
	ID         string          `yaml:"id"`
	Code       string          `yaml:"code"`
	Name       string          `yaml:"name"`
	Role       string          `yaml:"role"`
	BaseSalary decimal.Decimal `yaml:"base_salary"`
	Status     string          `yaml:"status"`
}

type FixtureCode struct {
	Code       string          `yaml:"code"`
	Name       string          `yaml:"name"`
	Multiplier decimal.Decimal `yaml:"multiplier"`
}

type FixtureEntry struct {
	EmployeeID string    `yaml:"employee_id"`
	Date       time.Time `yaml:"date"`
	Code       string    `yaml:"code"`
}

type FixtureRule struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Percentage bool            `yaml:"percentage"`
	Value      decimal.Decimal `yaml:"value"`
	AffectsNet bool            `yaml:"affects_net"`
	Active     bool            `yaml:"active"`
	ActiveFrom period.Period   `yaml:"active_from"`
}

type FixtureAdvance struct {
	ID                 string          `yaml:"id"`
	EmployeeID         string          `yaml:"employee_id"`
	Total              decimal.Decimal `yaml:"total"`
	Remaining          decimal.Decimal `yaml:"remaining"`
	Monthly            decimal.Decimal `yaml:"monthly"`
	Priority           string          `yaml:"priority"`
	Emergency          bool            `yaml:"emergency"`
	ExpectedCompletion period.Period   `yaml:"expected_completion"`
	CreatedAt          time.Time       `yaml:"created_at"`
}

type FixtureSkip struct {
	LoanID string        `yaml:"loan_id"`
	Period period.Period `yaml:"period"`
	Reason string        `yaml:"reason"`
}

type FixtureDeductionType struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Active      bool   `yaml:"active"`
}

func LoadFixtureFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture decodes a YAML fixture into a fresh Store.
func LoadFixture(r io.Reader) (*Store, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return fx.Store()
}

// Store validates the fixture and seeds a new Store with it.
func (fx Fixture) Store() (*Store, error) {
	s := NewStore()

	for _, e := range fx.Employees {
		if e.ID == "" {
			return nil, fmt.Errorf("fixture employee %q: id is required", e.Code)
		}
		if e.BaseSalary.IsNegative() {
			return nil, fmt.Errorf("fixture employee %s: %w", e.ID, employee.ErrNegativeBaseSalary)
		}
		status := employee.Status(e.Status)
		if status == "" {
			status = employee.StatusActive
		}
		s.AddEmployee(employee.Employee{
			ID:           e.ID,
			EmployeeCode: e.Code,
			FullName:     e.Name,
			Role:         employee.Role(e.Role),
			BaseSalary:   e.BaseSalary,
			Status:       status,
		})
	}

	for _, c := range fx.Codes {
		if c.Multiplier.IsNegative() {
			return nil, fmt.Errorf("fixture code %s: %w", c.Code, attendance.ErrNegativeMultiplier)
		}
		s.AddCode(attendance.Code{Code: c.Code, Name: c.Name, Multiplier: c.Multiplier})
	}

	for _, a := range fx.Attendance {
		s.AddEntries(attendance.Entry{EmployeeID: a.EmployeeID, Date: a.Date, StatusCode: a.Code})
	}

	for _, r := range fx.StatutoryRules {
		if r.Value.IsNegative() {
			return nil, fmt.Errorf("fixture rule %s: %w", r.Name, statutory.ErrNegativeRuleValue)
		}
		s.AddRule(statutory.Rule{
			ID:               r.ID,
			Name:             r.Name,
			IsPercentage:     r.Percentage,
			Value:            r.Value,
			AffectsNet:       r.AffectsNet,
			IsActive:         r.Active,
			ActiveFromPeriod: r.ActiveFrom,
		})
	}

	for _, a := range fx.Advances {
		if a.Remaining.IsNegative() || a.Remaining.GreaterThan(a.Total) {
			return nil, fmt.Errorf("fixture advance %s: remaining %s outside [0, %s]", a.ID, a.Remaining, a.Total)
		}
		if !a.ExpectedCompletion.Valid() {
			return nil, fmt.Errorf("fixture advance %s: expected_completion is required", a.ID)
		}
		status := advance.LoanStatusActive
		if a.Remaining.IsZero() {
			status = advance.LoanStatusCompleted
		}
		s.AddLoan(advance.Loan{
			ID:                       a.ID,
			EmployeeID:               a.EmployeeID,
			TotalAdvanceAmount:       a.Total,
			RemainingBalance:         a.Remaining,
			MonthlyDeductionAmount:   a.Monthly,
			Status:                   status,
			PriorityLevel:            advance.Priority(a.Priority),
			EmergencyAdvance:         a.Emergency,
			ExpectedCompletionPeriod: a.ExpectedCompletion,
			CreatedAt:                a.CreatedAt,
		})
	}

	for _, sk := range fx.Skips {
		s.AddSkip(advance.SkipRequest{LoanID: sk.LoanID, Period: sk.Period, Reason: sk.Reason, Active: true})
	}

	for _, dt := range fx.DeductionTypes {
		var desc *string
		if dt.Description != "" {
			d := dt.Description
			desc = &d
		}
		s.AddDeductionType(payroll.DeductionType{ID: dt.ID, Name: dt.Name, Description: desc, IsActive: dt.Active})
	}

	return s, nil
}
