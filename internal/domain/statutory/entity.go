package statutory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

// Rule - named statutory withholding, fixed amount or percentage of gross
type Rule struct {
	ID               string
	Name             string
	IsPercentage     bool
	Value            decimal.Decimal
	AffectsNet       bool // false = employer-scoped, reported only
	IsActive         bool
	ActiveFromPeriod period.Period
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AppliesTo reports whether the rule is in force for p. A rule never applies before its activation month.
func (r Rule) AppliesTo(p period.Period) bool {
	return r.IsActive && !p.Before(r.ActiveFromPeriod)
}

// Line - computed amount of one rule
type Line struct {
	RuleID       string          `json:"rule_id"`
	Name         string          `json:"name"`
	IsPercentage bool            `json:"is_percentage"`
	Value        decimal.Decimal `json:"value"`
	AffectsNet   bool            `json:"affects_net"`
	Amount       decimal.Decimal `json:"amount"`
}

// Result - resolved statutory deductions for one gross figure
type Result struct {
	Total         decimal.Decimal // employee-scoped, subtracted from net
	EmployeeLines []Line
	EmployerLines []Line // display only
	EmployerTotal decimal.Decimal
}
