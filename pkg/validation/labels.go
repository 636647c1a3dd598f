package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
)

// LabelScope is the translation scope used for element labels.
const LabelScope = "element.label"

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// ResolveLabel returns the readable name of el: the first non-blank of
// LabelMissing, GroupLabel (or the owning group's label), Label and Legend,
// translated in LabelScope and stripped of markup. ok is false when the
// element declares no label at all.
func ResolveLabel(el *element.Element, owner *element.Group, t i18n.Translator, locale string) (string, bool) {
	if el == nil {
		return "", false
	}

	groupLabel := el.GroupLabel
	if strings.TrimSpace(groupLabel) == "" && owner != nil {
		groupLabel = owner.Label
	}

	raw := firstNonBlank(el.LabelMissing, groupLabel, el.Label, el.Legend)
	if raw == "" {
		return "", false
	}

	translated := i18n.Scoped(t, locale, LabelScope, raw)
	return StripMarkup(translated), true
}

// StripMarkup removes every tag from s and decodes entities, leaving plain
// text.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	cleaned := labelSanitizer().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func labelSanitizer() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return labelPolicy
}

func firstNonBlank(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}
