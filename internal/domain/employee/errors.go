package employee

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrNegativeBaseSalary = errors.New("employee base salary must be non-negative")
	ErrEmployeeNotActive  = errors.New("employee is not active")
)
