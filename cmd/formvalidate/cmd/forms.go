package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/formdef"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/openapi"
	"github.com/goliatone/go-formvalidator/pkg/render"
)

// errInvalidSubmission makes the process exit non-zero after the error
// mapping has been printed.
var errInvalidSubmission = errors.New("submission is invalid")

// formFlags selects a single form: a definition file or an OpenAPI operation.
type formFlags struct {
	file      string
	openapi   string
	operation string
	fields    []string
	groups    []string
}

func (f *formFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.file, "form", "f", "", "form definition file (yaml or json)")
	flags.StringVar(&f.openapi, "openapi", "", "OpenAPI document path or URL")
	flags.StringVar(&f.operation, "operation", "", "OpenAPI operation id (or method:path)")
	flags.StringSliceVar(&f.fields, "fields", nil, "only validate these element names")
	flags.StringSliceVar(&f.groups, "groups", nil, "only validate elements of these groups")
}

func (f *formFlags) load(ctx context.Context) (*element.Form, error) {
	var (
		form *element.Form
		err  error
	)
	switch {
	case f.file != "" && f.openapi != "":
		return nil, errors.New("use either --form or --openapi")
	case f.file != "":
		form, err = formdef.LoadFile(f.file)
	case f.openapi != "":
		if f.operation == "" {
			return nil, errors.New("--operation is required with --openapi")
		}
		form, err = loadOpenAPIForm(ctx, f.openapi, f.operation)
	default:
		return nil, errors.New("one of --form or --openapi is required")
	}
	if err != nil {
		return nil, err
	}

	subset := element.Subset{Names: f.fields, Groups: f.groups}
	if subset.Empty() {
		return form, nil
	}
	return subset.Apply(form), nil
}

func loadOpenAPIForm(ctx context.Context, location, operation string) (*element.Form, error) {
	raw, err := loadOpenAPI(ctx, location)
	if err != nil {
		return nil, err
	}
	return openapi.FormFromOperation(ctx, raw, operation)
}

func loadOpenAPI(ctx context.Context, location string) ([]byte, error) {
	src, err := openapi.ResolveSource(location)
	if err != nil {
		return nil, err
	}
	return openapi.NewLoader(openapi.WithHTTPFallback(0)).Load(ctx, src)
}

// loadForms gathers every form a server should expose: definitions under dir
// and each OpenAPI operation with a request body.
func loadForms(ctx context.Context, dir, openapiLocation string) (map[string]*element.Form, error) {
	forms := make(map[string]*element.Form)

	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			defs, err := formdef.LoadFS(os.DirFS(dir))
			if err != nil {
				return nil, err
			}
			for name, form := range defs {
				forms[name] = form
			}
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("forms dir %s: %w", dir, err)
		}
	}

	if openapiLocation != "" {
		raw, err := loadOpenAPI(ctx, openapiLocation)
		if err != nil {
			return nil, err
		}
		ops, err := openapi.Forms(ctx, raw)
		if err != nil {
			return nil, err
		}
		for name, form := range ops {
			if _, exists := forms[name]; exists {
				return nil, fmt.Errorf("duplicate form %q (openapi %s)", name, openapiLocation)
			}
			forms[name] = form
		}
	}
	return forms, nil
}

// loadTranslator returns the catalog named by path, or nil when unset.
// Messages missing from a locale fall back to English.
func loadTranslator(path string) (i18n.Translator, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	catalog := i18n.NewCatalog(language.English)
	if err := catalog.LoadFile(path); err != nil {
		return nil, err
	}
	return catalog, nil
}

// readValues decodes a JSON or YAML mapping from path ("-" reads stdin).
func readValues(path string, stdin io.Reader) (map[string]any, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	out := map[string]any{}
	if strings.TrimSpace(string(data)) == "" {
		return out, nil
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return out, nil
}

// readErrors decodes an upstream error payload, a JSON or YAML mapping of
// field paths to messages.
func readErrors(path string, stdin io.Reader) (map[string][]string, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("read errors: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return render.ParsePayload(doc)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

type result struct {
	Valid  bool                `json:"valid"`
	Values map[string]any      `json:"values,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

func newResult(mapping render.ErrorMapping) result {
	return result{Valid: mapping.Valid(), Fields: mapping.Fields, Form: mapping.Form}
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Errorf("bind flag %s: %w", flag.Name, err))
	}
}
