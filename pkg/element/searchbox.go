package element

import "strings"

const (
	searchboxClass         = "widget-searchbox"
	searchboxDefaultButton = "Search"
)

// Searchbox is a composite widget made of a text query input and a submit
// button. Name, value and placeholder belong to the query input, which is
// also where required/validation declarations live.
type Searchbox struct {
	Class      string
	attributes map[string]any
	query      *Element
	trigger    *Element
}

// SearchboxOption customises a Searchbox at construction time.
type SearchboxOption func(*Searchbox)

// WithSearchPlaceholder sets the query placeholder.
func WithSearchPlaceholder(placeholder string) SearchboxOption {
	return func(s *Searchbox) {
		s.Set("placeholder", placeholder)
	}
}

// WithSearchButton overrides the submit button label.
func WithSearchButton(label string) SearchboxOption {
	return func(s *Searchbox) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			s.trigger.Label = trimmed
		}
	}
}

// WithSearchRequired marks the query input as required.
func WithSearchRequired(label string) SearchboxOption {
	return func(s *Searchbox) {
		s.query.Required = true
		s.query.Label = label
	}
}

// WithSearchValidation attaches a rule spec to the query input.
func WithSearchValidation(spec any) SearchboxOption {
	return func(s *Searchbox) {
		s.query.Validation = spec
	}
}

// NewSearchbox builds a search widget whose query input is named name.
func NewSearchbox(name string, opts ...SearchboxOption) *Searchbox {
	s := &Searchbox{
		Class:      searchboxClass,
		attributes: make(map[string]any),
		query:      &Element{Type: "text"},
		trigger: &Element{
			Type:  "submit",
			Label: searchboxDefaultButton,
		},
	}
	s.Set("name", name)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Set assigns an attribute on the widget. name, value and placeholder are
// also forwarded to the query input, which the result reports.
func (s *Searchbox) Set(attribute string, value any) bool {
	if s == nil {
		return false
	}
	if s.attributes == nil {
		s.attributes = make(map[string]any)
	}
	s.attributes[attribute] = value

	switch attribute {
	case "name":
		name, _ := value.(string)
		s.query.Name = strings.TrimSpace(name)
	case "value":
		s.query.Value = value
	case "placeholder":
		placeholder, _ := value.(string)
		s.query.Placeholder = placeholder
	default:
		return false
	}
	return true
}

// Attr returns the value last assigned to attribute with Set.
func (s *Searchbox) Attr(attribute string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s.attributes[attribute]
	return value, ok
}

// Query returns the text input element.
func (s *Searchbox) Query() *Element {
	if s == nil {
		return nil
	}
	return s.query
}

// Children returns the query input followed by the submit button.
func (s *Searchbox) Children() []Node {
	if s == nil {
		return nil
	}
	return []Node{s.query, s.trigger}
}
