package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Work dates are calendar dates without a zone.
var utc = time.UTC

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.Store {
	return &attendanceRepository{db: db}
}

// GetEntries implements attendance.Store.
func (a *attendanceRepository) GetEntries(ctx context.Context, employeeID string, p period.Period) ([]attendance.Entry, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, employee_id, work_date, status_code
		FROM attendance_entries
		WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
		ORDER BY work_date, id
	`

	rows, err := q.Query(ctx, query, employeeID, p.Start(utc), p.End(utc))
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance entries: %w", err)
	}
	defer rows.Close()

	var entries []attendance.Entry
	for rows.Next() {
		var e attendance.Entry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Date, &e.StatusCode); err != nil {
			return nil, fmt.Errorf("failed to scan attendance entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance entries: %w", err)
	}

	return entries, nil
}

type attendanceCodeRepository struct {
	db *database.DB
}

func NewAttendanceCodeRepository(db *database.DB) attendance.CodeCatalog {
	return &attendanceCodeRepository{db: db}
}

// GetMultiplier implements attendance.CodeCatalog.
func (a *attendanceCodeRepository) GetMultiplier(ctx context.Context, code string) (decimal.Decimal, error) {
	q := GetQuerier(ctx, a.db)

	var multiplier decimal.Decimal
	err := q.QueryRow(ctx, `SELECT multiplier FROM attendance_codes WHERE code = $1`, code).Scan(&multiplier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, attendance.ErrAttendanceCodeNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get multiplier for code %s: %w", code, err)
	}
	return multiplier, nil
}

// ListCodes implements attendance.CodeCatalog.
func (a *attendanceCodeRepository) ListCodes(ctx context.Context) ([]attendance.Code, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `SELECT code, name, multiplier FROM attendance_codes ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance codes: %w", err)
	}
	defer rows.Close()

	var codes []attendance.Code
	for rows.Next() {
		var c attendance.Code
		if err := rows.Scan(&c.Code, &c.Name, &c.Multiplier); err != nil {
			return nil, fmt.Errorf("failed to scan attendance code: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance codes: %w", err)
	}

	return codes, nil
}
