package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formvalidator/pkg/validation"
	"github.com/goliatone/go-formvalidator/pkg/values"
)

// Message templates recorded by the Strategy. Parameters use `%` keys.
const (
	MessageNotNumber   = "The value must be a number."
	MessageMin         = "The value must be greater than or equal to %min."
	MessageMinExcl     = "The value must be greater than %min."
	MessageMax         = "The value must be less than or equal to %max."
	MessageMaxExcl     = "The value must be less than %max."
	MessageMinLength   = "The value must be at least %min characters long."
	MessageMaxLength   = "The value must be at most %max characters long."
	MessagePattern     = "The value does not match the expected format."
	MessageEmail       = "The value is not a valid email address."
	MessageURL         = "The value is not a valid URL."
	MessageTag         = "The value does not satisfy %rule."
	MessageUnsupported = "Unsupported validation rule %rule."
)

// Strategy evaluates rule specs (Rule, Set, []Rule, tag strings and Func
// values). Fields are evaluated in name order and each field records at
// most one entry: the first failing rule. It is safe for concurrent use.
type Strategy struct {
	validate *validator.Validate
	patterns sync.Map
}

var _ validation.Strategy = (*Strategy)(nil)

// Option configures a Strategy.
type Option func(*Strategy)

// WithValidate uses v for tag rules, so callers can register custom tags.
func WithValidate(v *validator.Validate) Option {
	return func(s *Strategy) {
		if v != nil {
			s.validate = v
		}
	}
}

// NewStrategy builds a Strategy.
func NewStrategy(opts ...Option) *Strategy {
	s := &Strategy{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s
}

type failure struct {
	template string
	params   map[string]string
}

// Validate implements validation.Strategy.
func (s *Strategy) Validate(vals values.Values, rules validation.Rules, errs *validation.Collection) {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if f := s.evaluate(rules[name], vals.Get(name)); f != nil {
			errs.Add(name, f.template, f.params)
		}
	}
}

func (s *Strategy) evaluate(spec, value any) *failure {
	switch typed := spec.(type) {
	case Rule:
		return s.evaluateRule(typed, value)
	case Set:
		return s.evaluateSet(typed, value)
	case []Rule:
		return s.evaluateSet(typed, value)
	case string:
		return s.evaluateTag(typed, value)
	case Func:
		return evaluateFunc(typed, value)
	case func(any) (string, map[string]string, bool):
		return evaluateFunc(typed, value)
	default:
		return unsupported(fmt.Sprintf("%T", spec))
	}
}

func (s *Strategy) evaluateSet(set []Rule, value any) *failure {
	for _, rule := range set {
		if f := s.evaluateRule(rule, value); f != nil {
			return f
		}
	}
	return nil
}

func (s *Strategy) evaluateRule(rule Rule, value any) *failure {
	switch rule.Kind {
	case KindMin, KindMax:
		return evaluateBound(rule, value)
	case KindMinLength, KindMaxLength:
		return evaluateLength(rule, value)
	case KindPattern:
		return s.evaluatePattern(rule, value)
	case KindEmail:
		if s.validate.Var(stringValue(value), "email") != nil {
			return &failure{template: MessageEmail}
		}
		return nil
	case KindURL:
		if s.validate.Var(stringValue(value), "url") != nil {
			return &failure{template: MessageURL}
		}
		return nil
	case KindTag:
		return s.evaluateTag(rule.Params["tag"], value)
	default:
		return unsupported(rule.Kind)
	}
}

func evaluateBound(rule Rule, value any) *failure {
	limit, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
	if err != nil {
		return unsupported(rule.Kind)
	}
	number, ok := numberValue(value)
	if !ok {
		return &failure{template: MessageNotNumber}
	}

	exclusive := rule.Params["exclusive"] == "true"
	limitText := formatFloat(limit)
	if rule.Kind == KindMin {
		if exclusive && number <= limit {
			return &failure{template: MessageMinExcl, params: map[string]string{"%min": limitText}}
		}
		if number < limit {
			return &failure{template: MessageMin, params: map[string]string{"%min": limitText}}
		}
		return nil
	}
	if exclusive && number >= limit {
		return &failure{template: MessageMaxExcl, params: map[string]string{"%max": limitText}}
	}
	if number > limit {
		return &failure{template: MessageMax, params: map[string]string{"%max": limitText}}
	}
	return nil
}

func evaluateLength(rule Rule, value any) *failure {
	limit, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"]))
	if err != nil || limit < 0 {
		return unsupported(rule.Kind)
	}
	length := utf8.RuneCountInString(stringValue(value))
	if rule.Kind == KindMinLength && length < limit {
		return &failure{template: MessageMinLength, params: map[string]string{"%min": strconv.Itoa(limit)}}
	}
	if rule.Kind == KindMaxLength && length > limit {
		return &failure{template: MessageMaxLength, params: map[string]string{"%max": strconv.Itoa(limit)}}
	}
	return nil
}

func (s *Strategy) evaluatePattern(rule Rule, value any) *failure {
	expr := rule.Params["pattern"]
	re, err := s.compile(expr)
	if err != nil {
		return unsupported(rule.Kind)
	}
	if !re.MatchString(stringValue(value)) {
		return &failure{template: MessagePattern, params: map[string]string{"%pattern": expr}}
	}
	return nil
}

func (s *Strategy) compile(expr string) (*regexp.Regexp, error) {
	if cached, ok := s.patterns.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	s.patterns.Store(expr, re)
	return re, nil
}

// evaluateTag runs a validator tag expression. Undefined tags make the
// validator panic; they are reported as unsupported rules instead.
func (s *Strategy) evaluateTag(tag string, value any) (f *failure) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return unsupported(KindTag)
	}
	defer func() {
		if recover() != nil {
			f = unsupported(tag)
		}
	}()

	err := s.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		rule := fieldErrs[0].Tag()
		if param := fieldErrs[0].Param(); param != "" {
			rule += "=" + param
		}
		return &failure{template: MessageTag, params: map[string]string{"%rule": rule}}
	}
	return unsupported(tag)
}

func evaluateFunc(fn func(any) (string, map[string]string, bool), value any) *failure {
	if fn == nil {
		return unsupported("func")
	}
	template, params, ok := fn(value)
	if ok {
		return nil
	}
	return &failure{template: template, params: params}
}

func unsupported(rule string) *failure {
	return &failure{template: MessageUnsupported, params: map[string]string{"%rule": rule}}
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func numberValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
