package payroll

import "errors"

var (
	ErrSalaryRecordNotFound         = errors.New("salary record not found")
	ErrSalaryRecordAlreadyExists    = errors.New("salary record already exists for this employee and period")
	ErrSalaryRecordAlreadyDisbursed = errors.New("salary record already disbursed")
	ErrDeductionTypeNotFound        = errors.New("deduction type not found")
	ErrDeductionTypeInactive        = errors.New("deduction type is inactive")
	ErrPeriodMismatch               = errors.New("breakdown period does not match the requested period")
	ErrNoAdvanceLinked              = errors.New("salary record has no advance loan linked")

	// ErrPersistence wraps storage failures; the surrounding transaction has been rolled back.
	ErrPersistence = errors.New("persistence error")
)
