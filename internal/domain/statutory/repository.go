package statutory

import (
	"context"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type Catalog interface {
	// GetActiveRules returns rules that may apply to p. Callers still filter with Rule.AppliesTo.
	GetActiveRules(ctx context.Context, p period.Period) ([]Rule, error)
}
