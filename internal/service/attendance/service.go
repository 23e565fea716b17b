package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type AggregatorImpl struct {
	store   attendance.Store
	catalog attendance.CodeCatalog
}

func NewAggregator(store attendance.Store, catalog attendance.CodeCatalog) attendance.Aggregator {
	return &AggregatorImpl{
		store:   store,
		catalog: catalog,
	}
}

// Summarize implements attendance.Aggregator.
func (a *AggregatorImpl) Summarize(ctx context.Context, employeeID string, p period.Period) (attendance.Summary, error) {
	if !p.Valid() {
		return attendance.Summary{}, period.ErrInvalidPeriod
	}

	entries, err := a.store.GetEntries(ctx, employeeID, p)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to get attendance entries: %w", err)
	}

	summary := attendance.Summary{
		EmployeeID:      employeeID,
		Period:          p,
		EntryCount:      len(entries),
		TotalMultiplier: decimal.Zero,
		Breakdown:       make(map[string]int),
		UnknownCodes:    make(map[string]int),
	}

	// multiplier per code, nil for unknown codes
	multipliers := make(map[string]*decimal.Decimal)

	for _, entry := range entries {
		if entry.EmployeeID != employeeID {
			return attendance.Summary{}, fmt.Errorf("%w: entry %s belongs to employee %s", attendance.ErrMalformedEntry, entry.ID, entry.EmployeeID)
		}
		if !p.Contains(entry.Date) {
			return attendance.Summary{}, fmt.Errorf("%w: entry %s dated %s is outside %s", attendance.ErrMalformedEntry, entry.ID, entry.Date.Format("2006-01-02"), p)
		}
		if entry.StatusCode == "" {
			return attendance.Summary{}, fmt.Errorf("%w: entry %s has no status code", attendance.ErrMalformedEntry, entry.ID)
		}

		m, seen := multipliers[entry.StatusCode]
		if !seen {
			m, err = a.lookup(ctx, entry.StatusCode)
			if err != nil {
				return attendance.Summary{}, err
			}
			multipliers[entry.StatusCode] = m
		}

		if m == nil {
			summary.UnknownCodes[entry.StatusCode]++
			continue
		}
		summary.Breakdown[entry.StatusCode]++
		summary.TotalMultiplier = summary.TotalMultiplier.Add(*m)
	}

	if len(summary.UnknownCodes) > 0 {
		slog.Warn("Excluded unknown attendance codes", "employee_id", employeeID, "period", p.String(), "codes", summary.UnknownCodes)
	}

	return summary, nil
}

func (a *AggregatorImpl) lookup(ctx context.Context, code string) (*decimal.Decimal, error) {
	m, err := a.catalog.GetMultiplier(ctx, code)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceCodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get multiplier for code %q: %w", code, err)
	}
	if m.IsNegative() {
		return nil, fmt.Errorf("%w: code %q has multiplier %s", attendance.ErrNegativeMultiplier, code, m)
	}
	return &m, nil
}
