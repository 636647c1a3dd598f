package validation

import "github.com/goliatone/go-formvalidator/pkg/values"

// Rules maps field names to the rule spec declared on their element. Specs
// are opaque to the validator.
type Rules map[string]any

// Strategy evaluates rules against submitted values. Implementations append
// an entry to errs for each failing field, only for fields present in rules,
// and never remove or replace existing entries.
type Strategy interface {
	Validate(values values.Values, rules Rules, errs *Collection)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(values values.Values, rules Rules, errs *Collection)

// Validate calls fn.
func (fn StrategyFunc) Validate(values values.Values, rules Rules, errs *Collection) {
	fn(values, rules, errs)
}
