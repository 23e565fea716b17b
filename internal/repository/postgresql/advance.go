package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// ========== LOANS ==========

type advanceLoanRepository struct {
	db *database.DB
}

func NewAdvanceLoanRepository(db *database.DB) advance.LoanRepository {
	return &advanceLoanRepository{db: db}
}

const loanColumns = `
	id, employee_id, total_advance_amount, remaining_balance, monthly_deduction_amount,
	status, priority_level, emergency_advance, expected_completion_period, reason, created_at, updated_at`

func scanLoan(row pgx.Row) (advance.Loan, error) {
	var (
		l          advance.Loan
		completion string
	)
	err := row.Scan(
		&l.ID, &l.EmployeeID, &l.TotalAdvanceAmount, &l.RemainingBalance, &l.MonthlyDeductionAmount,
		&l.Status, &l.PriorityLevel, &l.EmergencyAdvance, &completion, &l.Reason, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return advance.Loan{}, err
	}
	if l.ExpectedCompletionPeriod, err = period.Parse(completion); err != nil {
		return advance.Loan{}, fmt.Errorf("advance loan %s: %w", l.ID, err)
	}
	return l, nil
}

func (r *advanceLoanRepository) getOne(ctx context.Context, query, id string) (advance.Loan, error) {
	q := GetQuerier(ctx, r.db)

	l, err := scanLoan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.Loan{}, advance.ErrLoanNotFound
		}
		return advance.Loan{}, fmt.Errorf("failed to get advance loan: %w", err)
	}
	return l, nil
}

func (r *advanceLoanRepository) GetByID(ctx context.Context, id string) (advance.Loan, error) {
	return r.getOne(ctx, `SELECT `+loanColumns+` FROM advance_loans WHERE id = $1`, id)
}

func (r *advanceLoanRepository) GetByIDForUpdate(ctx context.Context, id string) (advance.Loan, error) {
	return r.getOne(ctx, `SELECT `+loanColumns+` FROM advance_loans WHERE id = $1 FOR UPDATE`, id)
}

func (r *advanceLoanRepository) list(ctx context.Context, query string, args ...interface{}) ([]advance.Loan, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list advance loans: %w", err)
	}
	defer rows.Close()

	var loans []advance.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advance loans: %w", err)
	}
	return loans, nil
}

func (r *advanceLoanRepository) ListActiveByEmployee(ctx context.Context, employeeID string) ([]advance.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanColumns+`
		FROM advance_loans
		WHERE employee_id = $1 AND status = $2
		ORDER BY created_at, id
	`, employeeID, advance.LoanStatusActive)
}

func (r *advanceLoanRepository) ListActive(ctx context.Context) ([]advance.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanColumns+`
		FROM advance_loans
		WHERE status = $1
		ORDER BY created_at, id
	`, advance.LoanStatusActive)
}

func (r *advanceLoanRepository) Update(ctx context.Context, loan advance.Loan) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_loans
		SET remaining_balance = $2, status = $3, expected_completion_period = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, loan.ID, loan.RemainingBalance, loan.Status, loan.ExpectedCompletionPeriod.String())
	if err != nil {
		return fmt.Errorf("failed to update advance loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrLoanNotFound
	}
	return nil
}

// ========== SKIP REQUESTS ==========

type advanceSkipRepository struct {
	db *database.DB
}

func NewAdvanceSkipRepository(db *database.DB) advance.SkipRepository {
	return &advanceSkipRepository{db: db}
}

func scanSkip(row pgx.Row) (advance.SkipRequest, error) {
	var (
		s advance.SkipRequest
		p string
	)
	if err := row.Scan(&s.ID, &s.LoanID, &p, &s.Reason, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return advance.SkipRequest{}, err
	}
	parsed, err := period.Parse(p)
	if err != nil {
		return advance.SkipRequest{}, fmt.Errorf("skip request %s: %w", s.ID, err)
	}
	s.Period = parsed
	return s, nil
}

func (r *advanceSkipRepository) GetActive(ctx context.Context, loanID string, p period.Period) (advance.SkipRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, loan_id, period, reason, active, created_at, updated_at
		FROM advance_skip_requests
		WHERE loan_id = $1 AND period = $2 AND active = true
	`

	s, err := scanSkip(q.QueryRow(ctx, query, loanID, p.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.SkipRequest{}, advance.ErrSkipRequestNotFound
		}
		return advance.SkipRequest{}, fmt.Errorf("failed to get skip request: %w", err)
	}
	return s, nil
}

// Activate keeps the row id when a deactivated skip is switched back on.
func (r *advanceSkipRepository) Activate(ctx context.Context, req advance.SkipRequest) (advance.SkipRequest, error) {
	q := GetQuerier(ctx, r.db)

	if req.ID == "" {
		req.ID = uuid.Must(uuid.NewV7()).String()
	}

	query := `
		INSERT INTO advance_skip_requests (id, loan_id, period, reason, active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (loan_id, period) DO UPDATE SET
			reason = EXCLUDED.reason,
			active = true,
			updated_at = NOW()
		RETURNING id, loan_id, period, reason, active, created_at, updated_at
	`

	s, err := scanSkip(q.QueryRow(ctx, query, req.ID, req.LoanID, req.Period.String(), req.Reason))
	if err != nil {
		return advance.SkipRequest{}, fmt.Errorf("failed to activate skip request: %w", err)
	}
	return s, nil
}

func (r *advanceSkipRepository) Deactivate(ctx context.Context, loanID string, p period.Period) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_skip_requests
		SET active = false, updated_at = NOW()
		WHERE loan_id = $1 AND period = $2 AND active = true
	`

	tag, err := q.Exec(ctx, query, loanID, p.String())
	if err != nil {
		return fmt.Errorf("failed to deactivate skip request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrSkipRequestNotFound
	}
	return nil
}
