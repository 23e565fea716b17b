package statutory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type Resolver interface {
	Resolve(ctx context.Context, gross decimal.Decimal, p period.Period) (Result, error)
}
