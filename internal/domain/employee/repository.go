package employee

import (
	"context"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Directory is the read-only employee source consumed by the payroll engine.
type Directory interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// GetActive returns employees eligible for a payroll run of p.
	GetActive(ctx context.Context, p period.Period) ([]Employee, error)
}
