package lock

import "github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"

// Callers holding more than one key take them together through AcquireAll.

func SalaryKey(employeeID string, p period.Period) string {
	return "salary:" + employeeID + ":" + p.String()
}

func AdvanceKey(loanID string) string {
	return "advance:" + loanID
}
