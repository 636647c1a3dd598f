package i18n

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Catalog is a Translator backed by an x/text message catalog. Lookups walk
// the locale's parents (es-MX, es, und) before trying the fallback locale.
type Catalog struct {
	mu       sync.RWMutex
	fallback language.Tag
	builder  *catalog.Builder
}

var _ Translator = (*Catalog)(nil)

// NewCatalog creates an empty catalog falling back to the given locale.
func NewCatalog(fallback language.Tag) *Catalog {
	return &Catalog{
		fallback: fallback,
		builder:  catalog.NewBuilder(),
	}
}

// Set registers msg for key in locale.
func (c *Catalog) Set(locale, key, msg string) error {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return fmt.Errorf("i18n: parse locale %q: %w", locale, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("i18n: message key is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.builder.SetString(tag, key, msg); err != nil {
		return fmt.Errorf("i18n: set %s/%s: %w", tag, key, err)
	}
	return nil
}

// LoadYAML registers messages from a document shaped as
// locale -> key -> message.
func (c *Catalog) LoadYAML(data []byte) error {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("i18n: decode catalog: %w", err)
	}
	for locale, messages := range doc {
		for key, msg := range messages {
			if err := c.Set(locale, key, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFile reads a YAML catalog from disk.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("i18n: read catalog %s: %w", path, err)
	}
	return c.LoadYAML(data)
}

// Languages lists the locales with at least one message.
func (c *Catalog) Languages() []language.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builder.Languages()
}

// Translate returns the message for key. A single map[string]string argument
// is used as placeholder parameters (see Interpolate).
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	tag := c.fallback
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		parsed, err := language.Parse(trimmed)
		if err == nil {
			tag = parsed
		}
	}

	msg, err := c.lookup(tag, key)
	if errors.Is(err, catalog.ErrNotFound) && tag != c.fallback {
		msg, err = c.lookup(c.fallback, key)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, tag, key)
	}
	if err != nil {
		return "", fmt.Errorf("i18n: render %s/%s: %w", tag, key, err)
	}

	if len(args) == 1 {
		if params, ok := args[0].(map[string]string); ok {
			msg = Interpolate(msg, params)
		}
	}
	return msg, nil
}

func (c *Catalog) lookup(tag language.Tag, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out textRenderer
	if err := c.builder.Context(tag, &out).Execute(key); err != nil {
		return "", err
	}
	return out.String(), nil
}

// textRenderer collects the raw message text without printf processing so
// `%name` placeholders survive until Interpolate runs.
type textRenderer struct {
	strings.Builder
}

func (r *textRenderer) Render(s string) {
	r.WriteString(s)
}

func (r *textRenderer) Arg(int) any {
	return nil
}
