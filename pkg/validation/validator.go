package validation

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/values"
)

const (
	// MessageRequired is reported when exactly one required field is missing.
	MessageRequired = "The field %field is required!"
	// MessageRequiredMany is reported under Base when several required
	// fields are missing.
	MessageRequiredMany = "The fields %list and %last are required!"
)

var (
	// ErrFormRequired is returned by New when no element tree is given.
	ErrFormRequired = errors.New("validation: form is required")
	// ErrStrategyMissing signals that rules must be evaluated but no
	// strategy was configured.
	ErrStrategyMissing = errors.New("validation: rule strategy is not configured")
)

// Option configures a Validator.
type Option func(*Validator)

// WithStrategy sets the rule evaluation strategy.
func WithStrategy(strategy Strategy) Option {
	return func(v *Validator) {
		v.strategy = strategy
	}
}

// WithTranslator sets the translator used for labels.
func WithTranslator(t i18n.Translator) Option {
	return func(v *Validator) {
		v.translator = t
	}
}

// WithLocale sets the locale passed to the translator.
func WithLocale(locale string) Option {
	return func(v *Validator) {
		v.locale = strings.TrimSpace(locale)
	}
}

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Validator checks submitted values against the required/validation
// declarations of a bound element tree. It keeps no per-call state, so a
// single instance may serve concurrent calls as long as each call uses its own
// Collection and the tree is not mutated meanwhile.
type Validator struct {
	form       element.Node
	strategy   Strategy
	translator i18n.Translator
	locale     string
	logger     *slog.Logger
}

// New binds a validator to form. The strategy may be omitted only when no
// element declares a validation rule.
func New(form element.Node, opts ...Option) (*Validator, error) {
	if form == nil {
		return nil, ErrFormRequired
	}

	v := &Validator{
		form:   form,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	if v.strategy == nil {
		for _, c := range v.collectElements() {
			if c.el.Validation != nil {
				return nil, ErrStrategyMissing
			}
		}
	}
	return v, nil
}

// Locale returns a copy of v translating labels for locale.
func (v *Validator) Locale(locale string) *Validator {
	clone := *v
	clone.locale = strings.TrimSpace(locale)
	return &clone
}

// Validate flattens input and checks it, appending outcomes to errs (a new
// collection when nil). Validation failures are data in the returned
// collection; the error return is reserved for misconfiguration.
func (v *Validator) Validate(input map[string]any, errs *Collection) (*Collection, error) {
	return v.ValidateValues(values.Flatten(input), errs)
}

// ValidateValues is Validate for values that are already flat.
func (v *Validator) ValidateValues(flat values.Values, errs *Collection) (*Collection, error) {
	if errs == nil {
		errs = NewCollection()
	}

	elements := v.collectElements()
	required := filterRequired(elements)
	missing := v.validateRequired(required, flat, errs)

	rules := collectRules(elements, required, flat, errs)
	if err := v.validateValues(flat, rules, errs); err != nil {
		return errs, err
	}

	v.logger.Debug("form values validated",
		slog.Int("elements", len(elements)),
		slog.Int("required", len(required.names)),
		slog.Int("missing", missing),
		slog.Int("rules", len(rules)),
		slog.Int("errors", errs.Len()),
	)
	return errs, nil
}

type candidate struct {
	el    *element.Element
	owner *element.Group
}

// collectElements returns named elements that are required or declare a
// rule, in tree order.
func (v *Validator) collectElements() []candidate {
	var out []candidate
	element.Walk(v.form, func(el *element.Element, owner *element.Group) {
		if el.Name == "" {
			return
		}
		if el.Required || el.Validation != nil {
			out = append(out, candidate{el: el, owner: owner})
		}
	})
	return out
}

// requiredSet keeps map semantics (later duplicates win) while iterating in
// first-occurrence order.
type requiredSet struct {
	names  []string
	byName map[string]candidate
}

func (r requiredSet) has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

func filterRequired(elements []candidate) requiredSet {
	set := requiredSet{byName: make(map[string]candidate)}
	for _, c := range elements {
		if !c.el.Required {
			continue
		}
		if _, exists := set.byName[c.el.Name]; !exists {
			set.names = append(set.names, c.el.Name)
		}
		set.byName[c.el.Name] = c
	}
	return set
}

func (v *Validator) validateRequired(required requiredSet, flat values.Values, errs *Collection) int {
	type missingField struct {
		name  string
		label string
	}

	var missing []missingField
	for _, name := range required.names {
		value, ok := flat.Lookup(name)
		if !isMissing(value, ok) {
			continue
		}
		c := required.byName[name]
		label, _ := ResolveLabel(c.el, c.owner, v.translator, v.locale)
		missing = append(missing, missingField{name: name, label: label})
	}

	switch len(missing) {
	case 0:
		return 0
	case 1:
		errs.Add(missing[0].name, MessageRequired, map[string]string{
			"%field": missing[0].label,
		})
		return 1
	}

	labels := make([]string, 0, len(missing))
	for _, field := range missing {
		errs.AddSilent(field.name)
		labels = append(labels, field.label)
	}

	last := labels[len(labels)-1]
	errs.Add(Base, MessageRequiredMany, map[string]string{
		"%list": strings.Join(labels[:len(labels)-1], ", "),
		"%last": last,
	})
	return len(missing)
}

// isMissing treats absent values, nil and blank strings as missing. Other
// present values never are.
func isMissing(value any, ok bool) bool {
	if !ok || value == nil {
		return true
	}
	if s, isString := value.(string); isString {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func collectRules(elements []candidate, required requiredSet, flat values.Values, errs *Collection) Rules {
	rules := make(Rules)
	for _, c := range elements {
		name := c.el.Name
		if c.el.Validation == nil || errs.Has(name) {
			continue
		}

		value := flat.Get(name)
		if (value == nil || value == "") && !required.has(name) {
			continue
		}
		rules[name] = c.el.Validation
	}
	return rules
}

func (v *Validator) validateValues(flat values.Values, rules Rules, errs *Collection) error {
	if len(rules) == 0 {
		return nil
	}
	if v.strategy == nil {
		return ErrStrategyMissing
	}
	v.strategy.Validate(flat, rules, errs)
	return nil
}
