package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/rules"
	"github.com/goliatone/go-formvalidator/pkg/validation"
	"github.com/goliatone/go-formvalidator/pkg/values"
)

var (
	// ErrAborted signals the user aborted input (e.g. Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrFormRequired is returned by Fill when no tree is given.
	ErrFormRequired = errors.New("prompt: form is required")
)

// Option configures a Prompter.
type Option func(*Prompter)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(p *Prompter) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// WithStrategy overrides the rule strategy (rules.NewStrategy by default).
func WithStrategy(strategy validation.Strategy) Option {
	return func(p *Prompter) {
		if strategy != nil {
			p.strategy = strategy
		}
	}
}

// WithTranslator sets the translator for labels and messages.
func WithTranslator(t i18n.Translator) Option {
	return func(p *Prompter) {
		p.translator = t
	}
}

// WithLocale sets the locale passed to the translator.
func WithLocale(locale string) Option {
	return func(p *Prompter) {
		p.locale = strings.TrimSpace(locale)
	}
}

// Prompter asks for the value of every named element of a form, checking
// each answer against that element's declarations before moving on.
type Prompter struct {
	driver     Driver
	strategy   validation.Strategy
	translator i18n.Translator
	locale     string
}

// New returns a Prompter; without WithDriver it talks to the terminal through
// survey.
func New(opts ...Option) *Prompter {
	p := &Prompter{strategy: rules.NewStrategy()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.driver == nil {
		p.driver = NewSurveyDriver(nil)
	}
	return p
}

// Fill prompts for every element of form and returns the collected values
// together with the outcome of validating them as a whole.
func (p *Prompter) Fill(ctx context.Context, form element.Node) (values.Values, *validation.Collection, error) {
	if form == nil {
		return nil, nil, ErrFormRequired
	}

	collected := make(values.Values)
	var section *element.Group
	for _, entry := range element.Elements(form) {
		el := entry.Element
		if !promptable(el) {
			continue
		}
		if entry.Owner != section {
			section = entry.Owner
			if section != nil {
				if heading := p.label(firstNonBlank(section.Legend, section.Label)); heading != "" {
					if err := p.driver.Info(ctx, heading); err != nil {
						return nil, nil, err
					}
				}
			}
		}
		if strings.EqualFold(el.Type, "hidden") {
			if el.Value != nil {
				collected[el.Name] = el.Value
			}
			continue
		}

		value, err := p.ask(ctx, form, entry)
		if err != nil {
			return nil, nil, fmt.Errorf("prompt: %s: %w", el.Name, err)
		}
		if value != nil {
			collected[el.Name] = value
		}
	}

	v, err := p.validator(form)
	if err != nil {
		return nil, nil, err
	}
	errs, err := v.ValidateValues(collected, nil)
	if err != nil {
		return nil, nil, err
	}
	return collected, errs, nil
}

func (p *Prompter) ask(ctx context.Context, form element.Node, entry element.Entry) (any, error) {
	el := entry.Element
	message := p.label(el.Label)
	if message == "" {
		if label, ok := validation.ResolveLabel(el, entry.Owner, p.translator, p.locale); ok {
			message = label
		} else {
			message = el.Name
		}
	}
	if el.Required {
		message += " *"
	}

	switch strings.ToLower(el.Type) {
	case "checkbox":
		def, _ := el.Value.(bool)
		return p.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: def})
	}

	check, err := p.fieldCheck(form, el.Name)
	if err != nil {
		return nil, err
	}
	cfg := InputConfig{
		Message:   message,
		Help:      el.Placeholder,
		Validator: check,
	}
	if el.Value != nil {
		cfg.Default = fmt.Sprint(el.Value)
	}

	var answer string
	switch strings.ToLower(el.Type) {
	case "password":
		answer, err = p.driver.Password(ctx, cfg)
	case "textarea":
		answer, err = p.driver.TextArea(ctx, cfg)
	default:
		answer, err = p.driver.Input(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(answer) == "" {
		return nil, nil
	}
	return answer, nil
}

// fieldCheck validates a lone answer against the element called name.
func (p *Prompter) fieldCheck(form element.Node, name string) (func(string) error, error) {
	v, err := p.validator(element.Subset{Names: []string{name}}.Apply(form))
	if err != nil {
		return nil, err
	}
	return func(answer string) error {
		flat := values.Values{}
		if strings.TrimSpace(answer) != "" {
			flat[name] = answer
		}
		errs, err := v.ValidateValues(flat, nil)
		if err != nil {
			return err
		}
		if messages := errs.Messages(p.translator, p.locale); len(messages[name]) > 0 {
			return errors.New(messages[name][0])
		}
		return nil
	}, nil
}

func (p *Prompter) label(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return validation.StripMarkup(i18n.Scoped(p.translator, p.locale, validation.LabelScope, raw))
}

func (p *Prompter) validator(form element.Node) (*validation.Validator, error) {
	return validation.New(form,
		validation.WithStrategy(p.strategy),
		validation.WithTranslator(p.translator),
		validation.WithLocale(p.locale),
	)
}

func promptable(el *element.Element) bool {
	if strings.TrimSpace(el.Name) == "" {
		return false
	}
	switch strings.ToLower(el.Type) {
	case "submit", "button", "reset", "image":
		return false
	}
	return true
}

func firstNonBlank(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}
