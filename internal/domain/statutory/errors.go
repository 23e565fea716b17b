package statutory

import "errors"

var (
	ErrNegativeRuleValue = errors.New("statutory rule value must be non-negative")
)
