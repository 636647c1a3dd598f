package formdef

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/rules"
)

// Node kinds accepted in definitions.
const (
	KindElement   = "element"
	KindGroup     = "group"
	KindSearchbox = "searchbox"
)

// ErrEmptyDocument is returned for blank definition payloads.
var ErrEmptyDocument = errors.New("formdef: document is empty")

// Document is the on-disk shape of a form definition.
type Document struct {
	Name     string `yaml:"name"`
	Action   string `yaml:"action"`
	Method   string `yaml:"method"`
	Elements []Node `yaml:"elements"`
}

// Node is one entry of a definition. Kind defaults to KindElement.
type Node struct {
	Kind         string         `yaml:"kind"`
	Name         string         `yaml:"name"`
	Type         string         `yaml:"type"`
	Value        any            `yaml:"value"`
	Placeholder  string         `yaml:"placeholder"`
	Required     bool           `yaml:"required"`
	Validation   Validation     `yaml:"validation"`
	LabelMissing string         `yaml:"labelMissing"`
	GroupLabel   string         `yaml:"groupLabel"`
	Label        string         `yaml:"label"`
	Legend       string         `yaml:"legend"`
	Button       string         `yaml:"button"`
	Attributes   map[string]any `yaml:"attributes"`
	Elements     []Node         `yaml:"elements"`
}

// Validation holds a decoded rule spec: a tag string, a single rule mapping
// or a list of rules.
type Validation struct {
	Spec any
}

// UnmarshalYAML decodes scalars as tag expressions, mappings as a single
// rules.Rule and sequences as a rules.Set.
func (v *Validation) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var tag string
		if err := node.Decode(&tag); err != nil {
			return err
		}
		if strings.TrimSpace(tag) != "" {
			v.Spec = strings.TrimSpace(tag)
		}
	case yaml.MappingNode:
		var rule rules.Rule
		if err := node.Decode(&rule); err != nil {
			return err
		}
		v.Spec = rule
	case yaml.SequenceNode:
		var set rules.Set
		if err := node.Decode(&set); err != nil {
			return err
		}
		if len(set) > 0 {
			v.Spec = set
		}
	default:
		return fmt.Errorf("formdef: line %d: unsupported validation node", node.Line)
	}
	return nil
}

// Parse decodes a YAML (or JSON) definition into an element tree.
func Parse(data []byte) (*element.Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("formdef: decode: %w", err)
	}
	return doc.Build()
}

// Build converts the document into an element tree, checking every rule
// spec along the way.
func (d Document) Build() (*element.Form, error) {
	nodes, err := buildNodes(d.Elements)
	if err != nil {
		return nil, err
	}
	return &element.Form{
		Name:   strings.TrimSpace(d.Name),
		Action: strings.TrimSpace(d.Action),
		Method: strings.ToUpper(strings.TrimSpace(d.Method)),
		Nodes:  nodes,
	}, nil
}

// LoadFile reads and parses a definition file. The form name defaults to the
// file name without extension.
func LoadFile(filename string) (*element.Form, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("formdef: read %s: %w", filename, err)
	}
	form, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if form.Name == "" {
		form.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return form, nil
}

// LoadFS parses every .yaml/.yml/.json file in fsys, keyed by form name.
// Duplicate names are rejected.
func LoadFS(fsys fs.FS) (map[string]*element.Form, error) {
	forms := make(map[string]*element.Form)
	if fsys == nil {
		return forms, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(p) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("formdef: read %s: %w", p, err)
		}
		form, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if form.Name == "" {
			form.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
		}
		if _, exists := forms[form.Name]; exists {
			return fmt.Errorf("formdef: duplicate form %q (file %s)", form.Name, p)
		}
		forms[form.Name] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forms, nil
}

func buildNodes(defs []Node) ([]element.Node, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]element.Node, 0, len(defs))
	for idx, def := range defs {
		node, err := def.build()
		if err != nil {
			return nil, fmt.Errorf("formdef: elements[%d]: %w", idx, err)
		}
		out = append(out, node)
	}
	return out, nil
}

func (n Node) build() (element.Node, error) {
	if n.Validation.Spec != nil {
		if err := rules.Check(n.Validation.Spec); err != nil {
			return nil, fmt.Errorf("%q: %w", n.Name, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(n.Kind)) {
	case "", KindElement:
		children, err := buildNodes(n.Elements)
		if err != nil {
			return nil, err
		}
		return &element.Element{
			Name:         strings.TrimSpace(n.Name),
			Type:         strings.TrimSpace(n.Type),
			Value:        n.Value,
			Placeholder:  n.Placeholder,
			Required:     n.Required,
			Validation:   n.Validation.Spec,
			LabelMissing: n.LabelMissing,
			GroupLabel:   n.GroupLabel,
			Label:        n.Label,
			Legend:       n.Legend,
			Nodes:        children,
		}, nil
	case KindGroup:
		children, err := buildNodes(n.Elements)
		if err != nil {
			return nil, err
		}
		return &element.Group{
			Name:   strings.TrimSpace(n.Name),
			Label:  n.Label,
			Legend: n.Legend,
			Nodes:  children,
		}, nil
	case KindSearchbox:
		opts := []element.SearchboxOption{
			element.WithSearchPlaceholder(n.Placeholder),
			element.WithSearchButton(n.Button),
		}
		if n.Required {
			opts = append(opts, element.WithSearchRequired(n.Label))
		}
		if n.Validation.Spec != nil {
			opts = append(opts, element.WithSearchValidation(n.Validation.Spec))
		}
		box := element.NewSearchbox(n.Name, opts...)
		for _, key := range sortedKeys(n.Attributes) {
			box.Set(key, n.Attributes[key])
		}
		if n.Value != nil {
			box.Set("value", n.Value)
		}
		box.Query().Label = n.Label
		return box, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", n.Kind)
	}
}

func sortedKeys(in map[string]any) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isDefinitionFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
