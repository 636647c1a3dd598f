package i18n

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrMissingTranslator is reported to MissingHandler when no translator
	// is configured.
	ErrMissingTranslator = errors.New("i18n: translator is not configured")
	// ErrMissingTranslation is returned by translators that have no message
	// for the requested key.
	ErrMissingTranslation = errors.New("i18n: missing translation")
)

// Translator resolves a message key for a locale. Implementations return
// ErrMissingTranslation (or any error) when the key is unknown so callers can
// fall back to the source text.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate calls fn.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingHandler decides what text is used when a lookup fails. err is
// ErrMissingTranslator when no translator was configured.
type MissingHandler func(locale, key, fallback string, err error) string

// FallbackOnMissing returns the fallback text, or the key itself when the
// fallback is blank.
func FallbackOnMissing(_ string, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// Lookup translates key, routing failures and blank results through
// onMissing (FallbackOnMissing when nil).
func Lookup(t Translator, locale, key, fallback string, onMissing MissingHandler) string {
	if onMissing == nil {
		onMissing = FallbackOnMissing
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if t == nil {
		return onMissing(locale, key, fallback, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	if err == nil {
		err = ErrMissingTranslation
	}
	return onMissing(locale, key, fallback, err)
}

// Scoped translates text inside scope: the key `scope.text` is looked up and
// text itself is returned when no translation exists.
func Scoped(t Translator, locale, scope, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	key := text
	if scope = strings.Trim(strings.TrimSpace(scope), "."); scope != "" {
		key = scope + "." + text
	}
	return Lookup(t, locale, key, text, func(_, _, fallback string, _ error) string {
		return fallback
	})
}

// Interpolate replaces `%name` style placeholders with their values. Longer
// placeholders are substituted first so `%list` never clobbers `%listing`.
func Interpolate(template string, params map[string]string) string {
	if len(params) == 0 || template == "" {
		return template
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, params[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
