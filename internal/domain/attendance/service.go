package attendance

import (
	"context"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type Aggregator interface {
	// Summarize converts the employee's entries for p into a single weighted multiplier.
	Summarize(ctx context.Context, employeeID string, p period.Period) (Summary, error)
}
