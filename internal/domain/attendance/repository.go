package attendance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Store is the read side of the attendance system. The engine never writes attendance.
type Store interface {
	// GetEntries returns all entries of employeeID dated within p.
	GetEntries(ctx context.Context, employeeID string, p period.Period) ([]Entry, error)
}

// CodeCatalog maps status codes to multipliers.
type CodeCatalog interface {
	GetMultiplier(ctx context.Context, code string) (decimal.Decimal, error)
	ListCodes(ctx context.Context) ([]Code, error)
}
