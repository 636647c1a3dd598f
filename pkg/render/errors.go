package render

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/validation"
)

// ErrorMapping splits validation output into field-level and form-level
// messages. Fields are keyed by element name; a field flagged invalid without
// a message of its own maps to an empty slice.
type ErrorMapping struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// Valid reports whether the mapping holds no errors at all.
func (m ErrorMapping) Valid() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// FromCollection formats every entry of c with the translator and groups the
// messages for renderers.
func FromCollection(c *validation.Collection, t i18n.Translator, locale string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}

	c.Each(func(entry validation.Entry) {
		if entry.Field == validation.Base {
			if !entry.IsSilent() {
				mapping.Form = append(mapping.Form, entry.Format(t, locale))
			}
			return
		}
		if _, ok := mapping.Fields[entry.Field]; !ok {
			mapping.Fields[entry.Field] = []string{}
		}
		if entry.IsSilent() {
			return
		}
		mapping.Fields[entry.Field] = append(mapping.Fields[entry.Field], entry.Format(t, locale))
	})

	for field, messages := range mapping.Fields {
		if kept := compact(messages); kept != nil {
			mapping.Fields[field] = kept
		} else {
			mapping.Fields[field] = []string{}
		}
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = MergeFormErrors(mapping.Form)
	return mapping
}

// MergeFormErrors joins form-level messages, trimming blanks and dropping
// repeats while keeping first-seen order.
func MergeFormErrors(existing []string, extras ...string) []string {
	merged := make([]string, 0, len(existing)+len(extras))
	merged = append(merged, existing...)
	return compact(append(merged, extras...))
}

// ErrInvalidPayload is returned when an upstream error document is not a
// mapping of paths to messages.
var ErrInvalidPayload = errors.New("render: invalid error payload")

// ParsePayload converts a decoded JSON or YAML document into an error
// payload for MapErrorPayload. Every path maps to a message or a list of
// messages. A nil document is an empty payload.
func ParsePayload(doc any) (map[string][]string, error) {
	if doc == nil {
		return nil, nil
	}
	entries, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping, got %T", ErrInvalidPayload, doc)
	}

	payload := make(map[string][]string, len(entries))
	for path, raw := range entries {
		switch typed := raw.(type) {
		case nil:
			payload[path] = nil
		case string:
			payload[path] = []string{typed}
		case []any:
			messages := make([]string, 0, len(typed))
			for _, item := range typed {
				message, isString := item.(string)
				if !isString {
					return nil, fmt.Errorf("%w: %q: messages must be strings", ErrInvalidPayload, path)
				}
				messages = append(messages, message)
			}
			payload[path] = messages
		default:
			return nil, fmt.Errorf("%w: %q: unsupported value %T", ErrInvalidPayload, path, raw)
		}
	}
	return payload, nil
}

// MapErrorPayload attaches upstream error messages to the elements of form.
// Paths may be JSON pointers ("/body/owner/email"), dotted ("cars.0.color")
// or element names. Paths that resolve to no element become form-level
// messages.
func MapErrorPayload(form element.Node, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	index := indexFields(form)

	for _, path := range sortedKeys(payload) {
		messages := compact(payload[path])
		if len(messages) == 0 {
			continue
		}
		name, ok := index.resolve(path)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	mapping.Form = compact(mapping.Form)
	return mapping
}

// Seed records mapping into c so the validator treats those fields as
// already failing. Form-level messages go under validation.Base.
func Seed(c *validation.Collection, mapping ErrorMapping) {
	if c == nil {
		return
	}
	for _, field := range sortedKeys(mapping.Fields) {
		messages := mapping.Fields[field]
		if len(messages) == 0 {
			c.AddSilent(field)
			continue
		}
		for _, message := range messages {
			c.Add(field, message, nil)
		}
	}
	for _, message := range mapping.Form {
		c.Add(validation.Base, message, nil)
	}
}

// fieldIndex maps a canonical dotted path ("cars.0.color") to the element
// name it came from ("cars[0][color]").
type fieldIndex map[string]string

func indexFields(root element.Node) fieldIndex {
	index := make(fieldIndex)
	element.Walk(root, func(el *element.Element, _ *element.Group) {
		if segments := splitPath(el.Name); len(segments) > 0 {
			index[strings.Join(segments, ".")] = strings.TrimSpace(el.Name)
		}
	})
	return index
}

// resolve returns the element whose path is the deepest prefix of raw. raw is
// tried as given, without leading envelope segments and without indexes.
func (idx fieldIndex) resolve(raw string) (string, bool) {
	if len(idx) == 0 || formLevelKeys[strings.ToLower(strings.TrimSpace(raw))] {
		return "", false
	}

	segments := splitPath(raw)
	unwrapped := trimEnvelope(segments)
	candidates := [][]string{segments, unwrapped, withoutIndexes(segments), withoutIndexes(unwrapped)}

	best, depth := "", 0
	for _, candidate := range candidates {
		for n := len(candidate); n > depth; n-- {
			if name, ok := idx[strings.Join(candidate[:n], ".")]; ok {
				best, depth = name, n
				break
			}
		}
	}
	return best, depth > 0
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

var bracketsToDots = strings.NewReplacer("[", ".", "]", "")

// splitPath breaks a pointer, dotted or bracketed path into its segments.
func splitPath(raw string) []string {
	clean := strings.TrimLeft(strings.TrimSpace(raw), "#$./")
	fields := strings.FieldsFunc(bracketsToDots.Replace(clean), func(r rune) bool {
		return r == '.' || r == '/'
	})

	segments := fields[:0]
	for _, field := range fields {
		if segment := strings.TrimSpace(pointerUnescaper.Replace(field)); segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

var envelopeSegments = map[string]bool{
	"body":       true,
	"request":    true,
	"payload":    true,
	"data":       true,
	"attributes": true,
}

func trimEnvelope(segments []string) []string {
	for len(segments) > 0 && envelopeSegments[strings.ToLower(segments[0])] {
		segments = segments[1:]
	}
	return segments
}

func withoutIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err != nil {
			out = append(out, segment)
		}
	}
	return out
}

var formLevelKeys = map[string]bool{
	"":                 true,
	".":                true,
	"/":                true,
	"#":                true,
	"$":                true,
	"form":             true,
	"base":             true,
	validation.Base:    true,
	"__all__":          true,
	"non_field_errors": true,
	"non-field-errors": true,
}

// compact trims messages and drops blanks and repeats. It returns nil when
// nothing is left.
func compact(messages []string) []string {
	var out []string
	seen := make(map[string]bool, len(messages))
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message == "" || seen[message] {
			continue
		}
		seen[message] = true
		out = append(out, message)
	}
	return out
}

func sortedKeys(in map[string][]string) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
