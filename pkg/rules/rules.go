package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Canonical rule kinds. Numeric bounds and length limits read their threshold
// from Params["value"]; pattern reads Params["pattern"]; tag reads a
// go-playground/validator expression from Params["tag"].
const (
	KindMin       = "min"
	KindMax       = "max"
	KindMinLength = "minLength"
	KindMaxLength = "maxLength"
	KindPattern   = "pattern"
	KindEmail     = "email"
	KindURL       = "url"
	KindTag       = "tag"
)

var (
	// ErrUnknownRule is returned by Check for unsupported kinds or spec types.
	ErrUnknownRule = errors.New("rules: unknown rule")
	// ErrInvalidRule is returned by Check for rules with bad parameters.
	ErrInvalidRule = errors.New("rules: invalid rule")
)

// Rule is a single constraint. Params values are strings so definitions stay
// stable when serialised; boolean flags such as "exclusive" use "true".
type Rule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Set is an ordered list of rules evaluated until the first failure.
type Set []Rule

// Func is a custom rule. It returns ok=false with a message template and
// parameters when value is rejected.
type Func func(value any) (template string, params map[string]string, ok bool)

// Min builds a lower numeric bound.
func Min(value float64) Rule {
	return Rule{Kind: KindMin, Params: map[string]string{"value": formatFloat(value)}}
}

// Max builds an upper numeric bound.
func Max(value float64) Rule {
	return Rule{Kind: KindMax, Params: map[string]string{"value": formatFloat(value)}}
}

// MinLength builds a minimum character count.
func MinLength(n int) Rule {
	return Rule{Kind: KindMinLength, Params: map[string]string{"value": strconv.Itoa(n)}}
}

// MaxLength builds a maximum character count.
func MaxLength(n int) Rule {
	return Rule{Kind: KindMaxLength, Params: map[string]string{"value": strconv.Itoa(n)}}
}

// Pattern builds a regular expression constraint.
func Pattern(expr string) Rule {
	return Rule{Kind: KindPattern, Params: map[string]string{"pattern": expr}}
}

// Email requires a valid email address.
func Email() Rule {
	return Rule{Kind: KindEmail}
}

// URL requires an absolute URL.
func URL() Rule {
	return Rule{Kind: KindURL}
}

// Tag delegates to a go-playground/validator tag expression such as
// "required,alphanum".
func Tag(expr string) Rule {
	return Rule{Kind: KindTag, Params: map[string]string{"tag": expr}}
}

// Check reports whether spec is a rule spec the Strategy understands.
func Check(spec any) error {
	switch typed := spec.(type) {
	case Rule:
		return checkRule(typed)
	case Set:
		return checkSet(typed)
	case []Rule:
		return checkSet(typed)
	case string:
		if strings.TrimSpace(typed) == "" {
			return fmt.Errorf("%w: empty tag expression", ErrInvalidRule)
		}
		return nil
	case Func:
		if typed == nil {
			return fmt.Errorf("%w: nil func", ErrInvalidRule)
		}
		return nil
	case func(any) (string, map[string]string, bool):
		return nil
	default:
		return fmt.Errorf("%w: spec type %T", ErrUnknownRule, spec)
	}
}

func checkSet(set []Rule) error {
	for idx, rule := range set {
		if err := checkRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", idx, err)
		}
	}
	return nil
}

func checkRule(rule Rule) error {
	switch rule.Kind {
	case KindMin, KindMax:
		if _, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64); err != nil {
			return fmt.Errorf("%w: %s requires a numeric value", ErrInvalidRule, rule.Kind)
		}
	case KindMinLength, KindMaxLength:
		if n, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"])); err != nil || n < 0 {
			return fmt.Errorf("%w: %s requires a non-negative integer", ErrInvalidRule, rule.Kind)
		}
	case KindPattern:
		if _, err := regexp.Compile(rule.Params["pattern"]); err != nil {
			return fmt.Errorf("%w: pattern: %v", ErrInvalidRule, err)
		}
	case KindTag:
		if strings.TrimSpace(rule.Params["tag"]) == "" {
			return fmt.Errorf("%w: tag requires an expression", ErrInvalidRule)
		}
	case KindEmail, KindURL:
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownRule, rule.Kind)
	}
	return nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
