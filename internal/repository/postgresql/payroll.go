package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

const salaryRecordPeriodConstraint = "uk_salary_record_employee_period"

type salaryRecordRepository struct {
	db *database.DB
}

func NewSalaryRecordRepository(db *database.DB) payroll.SalaryRecordRepository {
	return &salaryRecordRepository{db: db}
}

const recordSelect = `
	SELECT sr.id, sr.employee_id, sr.period, sr.base_salary, sr.total_multiplier, sr.attendance_breakdown,
		   sr.calculated_salary, sr.statutory_total, sr.statutory_lines, sr.additional_bonuses, sr.deductions,
		   sr.advance_loan_id, sr.advance_salary_deducted, sr.advance_skipped, sr.specific_deduction_total,
		   sr.final_salary, sr.auto_generated, sr.manually_modified, sr.disbursement_status, sr.disbursed_at,
		   sr.notes, sr.created_at, sr.updated_at,
		   e.full_name as employee_name, e.employee_code
	FROM salary_records sr
	JOIN employees e ON sr.employee_id = e.id
`

func scanRecord(row pgx.Row) (payroll.SalaryRecord, error) {
	var (
		rec                       payroll.SalaryRecord
		p                         string
		breakdownBytes, lineBytes []byte
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &p, &rec.BaseSalary, &rec.TotalMultiplier, &breakdownBytes,
		&rec.CalculatedSalary, &rec.StatutoryTotal, &lineBytes, &rec.AdditionalBonuses, &rec.Deductions,
		&rec.AdvanceLoanID, &rec.AdvanceSalaryDeducted, &rec.AdvanceSkipped, &rec.SpecificDeductionTotal,
		&rec.FinalSalary, &rec.AutoGenerated, &rec.ManuallyModified, &rec.DisbursementStatus, &rec.DisbursedAt,
		&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.EmployeeName, &rec.EmployeeCode,
	)
	if err != nil {
		return payroll.SalaryRecord{}, err
	}
	if rec.Period, err = period.Parse(p); err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("salary record %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(breakdownBytes, &rec.AttendanceBreakdown); err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("salary record %s: attendance breakdown: %w", rec.ID, err)
	}
	if err := json.Unmarshal(lineBytes, &rec.StatutoryLines); err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("salary record %s: statutory lines: %w", rec.ID, err)
	}
	return rec, nil
}

// getOne loads one record by a WHERE clause on sr, with its specific deductions.
func (r *salaryRecordRepository) getOne(ctx context.Context, where string, args ...interface{}) (payroll.SalaryRecord, error) {
	q := GetQuerier(ctx, r.db)

	rec, err := scanRecord(q.QueryRow(ctx, recordSelect+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.SalaryRecord{}, payroll.ErrSalaryRecordNotFound
		}
		return payroll.SalaryRecord{}, fmt.Errorf("failed to get salary record: %w", err)
	}

	specific, err := r.specificDeductions(ctx, []string{rec.ID})
	if err != nil {
		return payroll.SalaryRecord{}, err
	}
	rec.SpecificDeductions = specific[rec.ID]
	return rec, nil
}

func (r *salaryRecordRepository) specificDeductions(ctx context.Context, recordIDs []string) (map[string][]payroll.SpecificDeduction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT srd.salary_record_id, srd.deduction_type_id, dt.name, srd.amount, srd.notes, srd.created_at
		FROM salary_record_deductions srd
		JOIN deduction_types dt ON srd.deduction_type_id = dt.id
		WHERE srd.salary_record_id = ANY($1)
		ORDER BY srd.salary_record_id, dt.name
	`

	rows, err := q.Query(ctx, query, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get specific deductions: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]payroll.SpecificDeduction, len(recordIDs))
	for rows.Next() {
		var (
			recordID string
			d        payroll.SpecificDeduction
		)
		if err := rows.Scan(&recordID, &d.DeductionTypeID, &d.DeductionTypeName, &d.Amount, &d.Notes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan specific deduction: %w", err)
		}
		result[recordID] = append(result[recordID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate specific deductions: %w", err)
	}
	return result, nil
}

func (r *salaryRecordRepository) replaceSpecificDeductions(ctx context.Context, recordID string, deductions []payroll.SpecificDeduction) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM salary_record_deductions WHERE salary_record_id = $1`, recordID); err != nil {
		return fmt.Errorf("failed to clear specific deductions: %w", err)
	}

	for _, d := range deductions {
		_, err := q.Exec(ctx, `
			INSERT INTO salary_record_deductions (salary_record_id, deduction_type_id, amount, notes)
			VALUES ($1, $2, $3, $4)
		`, recordID, d.DeductionTypeID, d.Amount, d.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert specific deduction %s: %w", d.DeductionTypeID, err)
		}
	}
	return nil
}

// Create must run inside a transaction so the record and its deductions land together.
func (r *salaryRecordRepository) Create(ctx context.Context, record payroll.SalaryRecord) (payroll.SalaryRecord, error) {
	q := GetQuerier(ctx, r.db)

	breakdownJSON, err := json.Marshal(record.AttendanceBreakdown)
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to encode attendance breakdown: %w", err)
	}
	linesJSON, err := json.Marshal(record.StatutoryLines)
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to encode statutory lines: %w", err)
	}

	query := `
		INSERT INTO salary_records (
			id, employee_id, period, base_salary, total_multiplier, attendance_breakdown,
			calculated_salary, statutory_total, statutory_lines, additional_bonuses, deductions,
			advance_loan_id, advance_salary_deducted, advance_skipped, specific_deduction_total,
			final_salary, auto_generated, manually_modified, disbursement_status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = q.Exec(ctx, query,
		record.ID, record.EmployeeID, record.Period.String(), record.BaseSalary, record.TotalMultiplier, breakdownJSON,
		record.CalculatedSalary, record.StatutoryTotal, linesJSON, record.AdditionalBonuses, record.Deductions,
		record.AdvanceLoanID, record.AdvanceSalaryDeducted, record.AdvanceSkipped, record.SpecificDeductionTotal,
		record.FinalSalary, record.AutoGenerated, record.ManuallyModified, record.DisbursementStatus, record.Notes,
	)
	if err != nil {
		if database.IsUniqueViolation(err, salaryRecordPeriodConstraint) {
			return payroll.SalaryRecord{}, payroll.ErrSalaryRecordAlreadyExists
		}
		return payroll.SalaryRecord{}, fmt.Errorf("failed to create salary record: %w", err)
	}

	if err := r.replaceSpecificDeductions(ctx, record.ID, record.SpecificDeductions); err != nil {
		return payroll.SalaryRecord{}, err
	}

	return r.GetByID(ctx, record.ID)
}

func (r *salaryRecordRepository) GetByID(ctx context.Context, id string) (payroll.SalaryRecord, error) {
	return r.getOne(ctx, `WHERE sr.id = $1`, id)
}

func (r *salaryRecordRepository) GetByIDForUpdate(ctx context.Context, id string) (payroll.SalaryRecord, error) {
	return r.getOne(ctx, `WHERE sr.id = $1 FOR UPDATE OF sr`, id)
}

func (r *salaryRecordRepository) FindByEmployeePeriod(ctx context.Context, employeeID string, p period.Period) (payroll.SalaryRecord, error) {
	return r.getOne(ctx, `WHERE sr.employee_id = $1 AND sr.period = $2`, employeeID, p.String())
}

func (r *salaryRecordRepository) FindByEmployeePeriodForUpdate(ctx context.Context, employeeID string, p period.Period) (payroll.SalaryRecord, error) {
	return r.getOne(ctx, `WHERE sr.employee_id = $1 AND sr.period = $2 FOR UPDATE OF sr`, employeeID, p.String())
}

func (r *salaryRecordRepository) List(ctx context.Context, filter payroll.RecordFilter) ([]payroll.SalaryRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := ` WHERE 1 = 1`
	args := []interface{}{}
	argIdx := 1

	if filter.Period != nil {
		where += fmt.Sprintf(" AND sr.period = $%d", argIdx)
		args = append(args, filter.Period.String())
		argIdx++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND sr.disbursement_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		where += fmt.Sprintf(" AND sr.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	// Count query
	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM salary_records sr" + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count salary records: %w", err)
	}

	selectQuery := recordSelect + where + " ORDER BY sr.period DESC, e.employee_code, sr.id"
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list salary records: %w", err)
	}
	defer rows.Close()

	var (
		records []payroll.SalaryRecord
		ids     []string
	)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan salary record: %w", err)
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate salary records: %w", err)
	}
	rows.Close()

	if len(ids) > 0 {
		specific, err := r.specificDeductions(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range records {
			records[i].SpecificDeductions = specific[records[i].ID]
		}
	}

	return records, totalCount, nil
}

// Update leaves identity and disbursement fields untouched. Must run inside a transaction.
func (r *salaryRecordRepository) Update(ctx context.Context, record payroll.SalaryRecord) (payroll.SalaryRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_records SET
			additional_bonuses = $2,
			deductions = $3,
			advance_salary_deducted = $4,
			advance_skipped = $5,
			specific_deduction_total = $6,
			final_salary = $7,
			manually_modified = $8,
			notes = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		record.ID, record.AdditionalBonuses, record.Deductions, record.AdvanceSalaryDeducted, record.AdvanceSkipped,
		record.SpecificDeductionTotal, record.FinalSalary, record.ManuallyModified, record.Notes,
	)
	if err != nil {
		return payroll.SalaryRecord{}, fmt.Errorf("failed to update salary record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.SalaryRecord{}, payroll.ErrSalaryRecordNotFound
	}

	if err := r.replaceSpecificDeductions(ctx, record.ID, record.SpecificDeductions); err != nil {
		return payroll.SalaryRecord{}, err
	}

	return r.GetByID(ctx, record.ID)
}

func (r *salaryRecordRepository) MarkDisbursed(ctx context.Context, id string, at time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_records
		SET disbursement_status = $2, disbursed_at = $3, updated_at = NOW()
		WHERE id = $1 AND disbursement_status = $4
	`

	tag, err := q.Exec(ctx, query, id, payroll.DisbursementDisbursed, at, payroll.DisbursementPending)
	if err != nil {
		return false, fmt.Errorf("failed to disburse salary record: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM salary_records WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check salary record: %w", err)
	}
	if !exists {
		return false, payroll.ErrSalaryRecordNotFound
	}
	return false, nil
}

func (r *salaryRecordRepository) Summary(ctx context.Context, p period.Period) (payroll.PeriodSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) as total_records,
			COALESCE(SUM(calculated_salary), 0) as total_calculated_salary,
			COALESCE(SUM(statutory_total), 0) as total_statutory,
			COALESCE(SUM(additional_bonuses), 0) as total_bonuses,
			COALESCE(SUM(deductions), 0) as total_deductions,
			COALESCE(SUM(advance_salary_deducted), 0) as total_advance_deducted,
			COALESCE(SUM(specific_deduction_total), 0) as total_specific_deduction,
			COALESCE(SUM(final_salary), 0) as total_final_salary,
			COUNT(*) FILTER (WHERE disbursement_status = 'pending') as pending_count,
			COUNT(*) FILTER (WHERE disbursement_status = 'disbursed') as disbursed_count
		FROM salary_records
		WHERE period = $1
	`

	summary := payroll.PeriodSummary{Period: p}
	err := q.QueryRow(ctx, query, p.String()).Scan(
		&summary.TotalRecords, &summary.TotalCalculatedSalary, &summary.TotalStatutory,
		&summary.TotalBonuses, &summary.TotalDeductions, &summary.TotalAdvanceDeducted,
		&summary.TotalSpecificDeduction, &summary.TotalFinalSalary, &summary.PendingCount, &summary.DisbursedCount,
	)
	if err != nil {
		return payroll.PeriodSummary{}, fmt.Errorf("failed to get salary summary: %w", err)
	}

	return summary, nil
}

// ========== DEDUCTION TYPES ==========

type deductionTypeRepository struct {
	db *database.DB
}

func NewDeductionTypeRepository(db *database.DB) payroll.DeductionTypeRepository {
	return &deductionTypeRepository{db: db}
}

func (r *deductionTypeRepository) GetByID(ctx context.Context, id string) (payroll.DeductionType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM deduction_types
		WHERE id = $1
	`

	var dt payroll.DeductionType
	err := q.QueryRow(ctx, query, id).Scan(&dt.ID, &dt.Name, &dt.Description, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.DeductionType{}, payroll.ErrDeductionTypeNotFound
		}
		return payroll.DeductionType{}, fmt.Errorf("failed to get deduction type: %w", err)
	}

	return dt, nil
}

func (r *deductionTypeRepository) List(ctx context.Context, activeOnly bool) ([]payroll.DeductionType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM deduction_types
	`
	if activeOnly {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY name"

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deduction types: %w", err)
	}
	defer rows.Close()

	var types []payroll.DeductionType
	for rows.Next() {
		var dt payroll.DeductionType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Description, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deduction type: %w", err)
		}
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deduction types: %w", err)
	}

	return types, nil
}
