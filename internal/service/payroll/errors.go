package payroll

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

// businessErrors pass through transactions unchanged; anything else is a storage failure.
var businessErrors = []error{
	payroll.ErrSalaryRecordNotFound,
	payroll.ErrSalaryRecordAlreadyExists,
	payroll.ErrSalaryRecordAlreadyDisbursed,
	payroll.ErrDeductionTypeNotFound,
	payroll.ErrDeductionTypeInactive,
	payroll.ErrNoAdvanceLinked,
	payroll.ErrPersistence,
	advance.ErrLoanNotFound,
	advance.ErrLoanNotActive,
	advance.ErrBalanceOverdraw,
	advance.ErrInvalidDeductionAmount,
}

func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range businessErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	return fmt.Errorf("%w: %w", payroll.ErrPersistence, err)
}
