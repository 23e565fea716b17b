package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Entry - one day of attendance for one employee
type Entry struct {
	ID         string
	EmployeeID string
	Date       time.Time
	StatusCode string
}

// Code - status code reference data, e.g. "P" full day = 1.0, "H" half day = 0.5
type Code struct {
	Code       string
	Name       string
	Multiplier decimal.Decimal
}

// Summary - aggregated attendance for one employee/period
type Summary struct {
	EmployeeID      string
	Period          period.Period
	EntryCount      int
	TotalMultiplier decimal.Decimal
	Breakdown       map[string]int // code -> count, known codes only
	UnknownCodes    map[string]int // excluded from the multiplier
}
