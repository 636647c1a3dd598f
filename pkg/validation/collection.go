package validation

import (
	"github.com/goliatone/go-formvalidator/pkg/i18n"
)

// Base is the reserved collection key for errors that concern the whole
// form rather than a single field.
const Base = "_base"

// EntryKind tags the variants of Entry.
type EntryKind uint8

const (
	// EntryMessage carries a message template and its parameters.
	EntryMessage EntryKind = iota
	// EntrySilent marks a field invalid without a message of its own; the
	// text has been reported elsewhere (typically under Base).
	EntrySilent
)

// Entry is a single error recorded for a field.
type Entry struct {
	Field    string
	Kind     EntryKind
	Template string
	Params   map[string]string
}

// Message builds a message entry. Params keys include their `%` prefix.
func Message(field, template string, params map[string]string) Entry {
	return Entry{
		Field:    field,
		Kind:     EntryMessage,
		Template: template,
		Params:   copyParams(params),
	}
}

// Silent builds an entry that flags field as invalid without a message.
func Silent(field string) Entry {
	return Entry{Field: field, Kind: EntrySilent}
}

// IsSilent reports whether the entry has no message of its own.
func (e Entry) IsSilent() bool {
	return e.Kind == EntrySilent
}

// Format translates the template and substitutes its parameters. Silent
// entries format to "".
func (e Entry) Format(t i18n.Translator, locale string) string {
	if e.IsSilent() {
		return ""
	}
	msg := i18n.Lookup(t, locale, e.Template, e.Template, func(_, _, fallback string, _ error) string {
		return fallback
	})
	return i18n.Interpolate(msg, e.Params)
}

// Collection accumulates validation outcomes keyed by field name (or Base).
// It is append-only: entries are never replaced or removed. A Collection is
// not safe for concurrent mutation; use one per validation call.
type Collection struct {
	entries []Entry
	index   map[string][]int
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string][]int)}
}

// Add records a message for field.
func (c *Collection) Add(field, template string, params map[string]string) {
	c.AddEntry(Message(field, template, params))
}

// AddSilent flags field as invalid without a message.
func (c *Collection) AddSilent(field string) {
	c.AddEntry(Silent(field))
}

// AddEntry appends entry.
func (c *Collection) AddEntry(entry Entry) {
	if c.index == nil {
		c.index = make(map[string][]int)
	}
	c.index[entry.Field] = append(c.index[entry.Field], len(c.entries))
	c.entries = append(c.entries, entry)
}

// Has reports whether field carries at least one entry.
func (c *Collection) Has(field string) bool {
	if c == nil {
		return false
	}
	return len(c.index[field]) > 0
}

// Get returns the entries recorded for field in insertion order.
func (c *Collection) Get(field string) []Entry {
	if c == nil {
		return nil
	}
	positions := c.index[field]
	if len(positions) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(positions))
	for _, pos := range positions {
		out = append(out, c.entries[pos])
	}
	return out
}

// Entries returns a copy of every entry in insertion order.
func (c *Collection) Entries() []Entry {
	if c == nil || len(c.entries) == 0 {
		return nil
	}
	return append([]Entry(nil), c.entries...)
}

// Fields returns the keys with entries, ordered by their first entry.
func (c *Collection) Fields() []string {
	if c == nil {
		return nil
	}
	var out []string
	seen := make(map[string]struct{}, len(c.index))
	for _, entry := range c.entries {
		if _, ok := seen[entry.Field]; ok {
			continue
		}
		seen[entry.Field] = struct{}{}
		out = append(out, entry.Field)
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (c *Collection) Each(fn func(Entry)) {
	if c == nil || fn == nil {
		return
	}
	for _, entry := range c.entries {
		fn(entry)
	}
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Empty reports whether no error was recorded.
func (c *Collection) Empty() bool {
	return c.Len() == 0
}

// Messages formats every non-silent entry, grouped by key.
func (c *Collection) Messages(t i18n.Translator, locale string) map[string][]string {
	if c.Empty() {
		return nil
	}
	out := make(map[string][]string)
	for _, entry := range c.entries {
		if entry.IsSilent() {
			continue
		}
		out[entry.Field] = append(out[entry.Field], entry.Format(t, locale))
	}
	return out
}

func copyParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		out[key] = value
	}
	return out
}
