package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type fakeStore struct {
	GetEntriesFn func(ctx context.Context, employeeID string, p period.Period) ([]attendance.Entry, error)
}

func (f *fakeStore) GetEntries(ctx context.Context, employeeID string, p period.Period) ([]attendance.Entry, error) {
	return f.GetEntriesFn(ctx, employeeID, p)
}

type fakeCatalog struct {
	codes map[string]decimal.Decimal
	calls map[string]int
	err   error
}

func (f *fakeCatalog) GetMultiplier(_ context.Context, code string) (decimal.Decimal, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[code]++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	m, ok := f.codes[code]
	if !ok {
		return decimal.Zero, attendance.ErrAttendanceCodeNotFound
	}
	return m, nil
}

func (f *fakeCatalog) ListCodes(context.Context) ([]attendance.Code, error) {
	var out []attendance.Code
	for c, m := range f.codes {
		out = append(out, attendance.Code{Code: c, Multiplier: m})
	}
	return out, nil
}

var june = period.MustParse("2025-06")

func day(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func entries(employeeID string, codes ...string) []attendance.Entry {
	out := make([]attendance.Entry, 0, len(codes))
	for i, c := range codes {
		out = append(out, attendance.Entry{ID: c + "-" + string(rune('a'+i)), EmployeeID: employeeID, Date: day(i + 1), StatusCode: c})
	}
	return out
}

func standardCatalog() *fakeCatalog {
	return &fakeCatalog{codes: map[string]decimal.Decimal{
		"P":  decimal.NewFromInt(1),
		"H":  decimal.RequireFromString("0.5"),
		"OT": decimal.RequireFromString("1.5"),
		"A":  decimal.Zero,
	}}
}

func TestSummarize_WeightsEntriesByCode(t *testing.T) {
	store := &fakeStore{GetEntriesFn: func(_ context.Context, employeeID string, p period.Period) ([]attendance.Entry, error) {
		assert.Equal(t, "emp-1", employeeID)
		assert.Equal(t, june, p)
		return entries("emp-1", "P", "P", "H", "OT", "A"), nil
	}}
	catalog := standardCatalog()

	summary, err := NewAggregator(store, catalog).Summarize(context.Background(), "emp-1", june)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("4").Equal(summary.TotalMultiplier), summary.TotalMultiplier.String())
	assert.Equal(t, map[string]int{"P": 2, "H": 1, "OT": 1, "A": 1}, summary.Breakdown)
	assert.Empty(t, summary.UnknownCodes)
	assert.Equal(t, 5, summary.EntryCount)
	assert.Equal(t, 1, catalog.calls["P"], "multiplier is looked up once per code")
}

func TestSummarize_NoEntriesYieldsZero(t *testing.T) {
	store := &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
		return nil, nil
	}}

	summary, err := NewAggregator(store, standardCatalog()).Summarize(context.Background(), "emp-1", june)
	require.NoError(t, err)
	assert.True(t, summary.TotalMultiplier.IsZero())
	assert.Empty(t, summary.Breakdown)
}

func TestSummarize_UnknownCodesAreExcluded(t *testing.T) {
	store := &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
		return entries("emp-1", "P", "X", "X", "H"), nil
	}}

	summary, err := NewAggregator(store, standardCatalog()).Summarize(context.Background(), "emp-1", june)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.5").Equal(summary.TotalMultiplier))
	assert.Equal(t, map[string]int{"X": 2}, summary.UnknownCodes)
	assert.NotContains(t, summary.Breakdown, "X")
}

func TestSummarize_MalformedEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry attendance.Entry
	}{
		{"other employee", attendance.Entry{ID: "e1", EmployeeID: "emp-2", Date: day(3), StatusCode: "P"}},
		{"outside period", attendance.Entry{ID: "e1", EmployeeID: "emp-1", Date: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), StatusCode: "P"}},
		{"empty code", attendance.Entry{ID: "e1", EmployeeID: "emp-1", Date: day(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
				return []attendance.Entry{tt.entry}, nil
			}}

			_, err := NewAggregator(store, standardCatalog()).Summarize(context.Background(), "emp-1", june)
			assert.ErrorIs(t, err, attendance.ErrMalformedEntry)
		})
	}
}

func TestSummarize_NegativeMultiplierRejected(t *testing.T) {
	store := &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
		return entries("emp-1", "BAD"), nil
	}}
	catalog := &fakeCatalog{codes: map[string]decimal.Decimal{"BAD": decimal.NewFromInt(-1)}}

	_, err := NewAggregator(store, catalog).Summarize(context.Background(), "emp-1", june)
	assert.ErrorIs(t, err, attendance.ErrNegativeMultiplier)
}

func TestSummarize_PropagatesStoreAndCatalogErrors(t *testing.T) {
	boom := errors.New("connection reset")

	store := &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
		return nil, boom
	}}
	_, err := NewAggregator(store, standardCatalog()).Summarize(context.Background(), "emp-1", june)
	assert.ErrorIs(t, err, boom)

	store = &fakeStore{GetEntriesFn: func(context.Context, string, period.Period) ([]attendance.Entry, error) {
		return entries("emp-1", "P"), nil
	}}
	_, err = NewAggregator(store, &fakeCatalog{err: boom}).Summarize(context.Background(), "emp-1", june)
	assert.ErrorIs(t, err, boom)
}

func TestSummarize_InvalidPeriod(t *testing.T) {
	_, err := NewAggregator(&fakeStore{}, standardCatalog()).Summarize(context.Background(), "emp-1", period.Period{})
	assert.ErrorIs(t, err, period.ErrInvalidPeriod)
}
