package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/rules"
)

var (
	// ErrEmptyDocument is returned for blank payloads.
	ErrEmptyDocument = errors.New("openapi: document payload is empty")
	// ErrOperationNotFound is returned when no operation carries the requested id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned for operations without an object request body.
	ErrNoRequestBody = errors.New("openapi: operation has no form request body")
)

var formMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

type operation struct {
	id     string
	method string
	path   string
	op     *openapi3.Operation
}

// FormFromOperation builds the form described by the request body of the
// operation with the given id. Operations without an operationId are
// addressed as "<method>:<path>", e.g. "post:/pets".
func FormFromOperation(ctx context.Context, raw []byte, operationID string) (*element.Form, error) {
	spec, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}

	for _, candidate := range operations(spec) {
		if candidate.id != operationID {
			continue
		}
		return buildForm(candidate)
	}
	return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
}

// Forms builds a form for every operation whose request body is an object
// schema, keyed by operation id.
func Forms(ctx context.Context, raw []byte) (map[string]*element.Form, error) {
	spec, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}

	forms := make(map[string]*element.Form)
	for _, candidate := range operations(spec) {
		form, err := buildForm(candidate)
		if errors.Is(err, ErrNoRequestBody) {
			continue
		}
		if err != nil {
			return nil, err
		}
		forms[candidate.id] = form
	}
	return forms, nil
}

func load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDocument
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return spec, nil
}

func operations(spec *openapi3.T) []operation {
	if spec == nil || spec.Paths == nil {
		return nil
	}

	items := spec.Paths.Map()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []operation
	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		byMethod := item.Operations()
		methods := make([]string, 0, len(byMethod))
		for method := range byMethod {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := byMethod[method]
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, operation{id: id, method: strings.ToUpper(method), path: path, op: op})
		}
	}
	return out
}

func buildForm(candidate operation) (*element.Form, error) {
	schema := requestSchema(candidate.op.RequestBody)
	if schema == nil || len(schema.Properties) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestBody, candidate.id)
	}
	return &element.Form{
		Name:   candidate.id,
		Action: candidate.path,
		Method: candidate.method,
		Nodes:  buildProperties(schema, ""),
	}, nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range formMediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func buildProperties(schema *openapi3.Schema, prefix string) []element.Node {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	nodes := make([]element.Node, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value

		fieldName := name
		if prefix != "" {
			fieldName = prefix + "[" + name + "]"
		}
		label := strings.TrimSpace(prop.Title)
		if label == "" {
			label = Humanize(name)
		}

		if prop.Type.Is(openapi3.TypeObject) && len(prop.Properties) > 0 {
			nodes = append(nodes, &element.Group{
				Name:  fieldName,
				Label: label,
				Nodes: buildProperties(prop, fieldName),
			})
			continue
		}

		el := &element.Element{
			Name:     fieldName,
			Type:     inputType(prop),
			Value:    prop.Default,
			Label:    label,
			Required: required[name],
		}
		if set := ruleSet(prop); len(set) > 0 {
			el.Validation = set
		}
		nodes = append(nodes, el)
	}
	return nodes
}

func ruleSet(prop *openapi3.Schema) rules.Set {
	var set rules.Set

	if prop.MinLength > 0 {
		set = append(set, rules.MinLength(int(prop.MinLength)))
	}
	if prop.MaxLength != nil {
		set = append(set, rules.MaxLength(int(*prop.MaxLength)))
	}
	if prop.Pattern != "" {
		set = append(set, rules.Pattern(prop.Pattern))
	}
	if prop.Min != nil {
		set = append(set, bound(rules.Min(*prop.Min), prop.ExclusiveMin))
	}
	if prop.Max != nil {
		set = append(set, bound(rules.Max(*prop.Max), prop.ExclusiveMax))
	}
	switch prop.Format {
	case "email":
		set = append(set, rules.Email())
	case "uri", "url":
		set = append(set, rules.URL())
	}
	return set
}

func bound(rule rules.Rule, exclusive bool) rules.Rule {
	if exclusive {
		rule.Params["exclusive"] = strconv.FormatBool(true)
	}
	return rule
}

func inputType(prop *openapi3.Schema) string {
	switch {
	case prop.Format == "email":
		return "email"
	case prop.Format == "uri" || prop.Format == "url":
		return "url"
	case prop.Format == "date":
		return "date"
	case prop.Type.Is(openapi3.TypeInteger), prop.Type.Is(openapi3.TypeNumber):
		return "number"
	case prop.Type.Is(openapi3.TypeBoolean):
		return "checkbox"
	default:
		return "text"
	}
}
