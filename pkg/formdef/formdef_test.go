package formdef_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/formdef"
	"github.com/goliatone/go-formvalidator/pkg/rules"
	"github.com/goliatone/go-formvalidator/pkg/validation"
)

const signupYAML = `
name: signup
action: /signup
method: post
elements:
  - name: email
    label: Email
    type: email
    required: true
    validation:
      - kind: email
  - name: username
    label: "<b>User</b> name"
    validation:
      kind: minLength
      params:
        value: "3"
  - kind: group
    label: Address
    elements:
      - name: address[street]
        label: Street
        required: true
      - name: address[zip]
        validation: "numeric,len=5"
  - kind: searchbox
    name: q
    label: Query
    placeholder: Search...
    button: Go
    attributes:
      data-scope: articles
`

func TestParse_BuildsElementTree(t *testing.T) {
	form, err := formdef.Parse([]byte(signupYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form.Name != "signup" || form.Action != "/signup" || form.Method != "POST" {
		t.Fatalf("unexpected form header: %#v", form)
	}

	var names []string
	element.Walk(form, func(el *element.Element, _ *element.Group) {
		names = append(names, el.Name)
	})
	want := []string{"email", "username", "address[street]", "address[zip]", "q", ""}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("element names mismatch (-want +got):\n%s", diff)
	}

	email := element.Find(form, "email")
	if diff := cmp.Diff(rules.Set{{Kind: rules.KindEmail}}, email.Validation); diff != "" {
		t.Fatalf("email rules mismatch (-want +got):\n%s", diff)
	}
	username := element.Find(form, "username")
	if diff := cmp.Diff(rules.MinLength(3), username.Validation); diff != "" {
		t.Fatalf("username rule mismatch (-want +got):\n%s", diff)
	}
	if got := element.Find(form, "address[zip]").Validation; got != "numeric,len=5" {
		t.Fatalf("expected tag spec, got %#v", got)
	}
	if q := element.Find(form, "q"); q.Placeholder != "Search..." || q.Label != "Query" {
		t.Fatalf("unexpected searchbox query: %#v", q)
	}
	box, ok := form.Nodes[3].(*element.Searchbox)
	if !ok {
		t.Fatalf("expected searchbox node, got %T", form.Nodes[3])
	}
	if scope, _ := box.Attr("data-scope"); scope != "articles" {
		t.Fatalf("expected searchbox attribute, got %#v", scope)
	}
}

func TestParse_ValidatesEndToEnd(t *testing.T) {
	form, err := formdef.Parse([]byte(signupYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, err := validation.New(form, validation.WithStrategy(rules.NewStrategy()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	errs, err := v.Validate(map[string]any{
		"email":    "bad",
		"username": "al",
		"address":  map[string]any{"zip": "1234"},
	}, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	got := errs.Messages(nil, "")
	want := map[string][]string{
		"address[street]": {"The field Address is required!"},
		"email":           {"The value is not a valid email address."},
		"username":        {"The value must be at least 3 characters long."},
		"address[zip]":    {"The value does not satisfy len=5."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"empty":        {doc: "  \n", want: formdef.ErrEmptyDocument},
		"unknown rule": {doc: "elements:\n  - name: a\n    validation:\n      kind: shout\n", want: rules.ErrUnknownRule},
		"bad pattern":  {doc: "elements:\n  - name: a\n    validation:\n      - kind: pattern\n        params: {pattern: \"(\"}\n", want: rules.ErrInvalidRule},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := formdef.Parse([]byte(tc.doc)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := formdef.Parse([]byte("elements:\n  - kind: widget\n")); err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if _, err := formdef.Parse([]byte("elements: [")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/signup.yaml":   {Data: []byte(signupYAML)},
		"forms/contact.yml":   {Data: []byte("elements:\n  - name: message\n    required: true\n")},
		"forms/README.md":     {Data: []byte("ignored")},
		"forms/nested/x.json": {Data: []byte(`{"name": "json-form", "elements": [{"name": "a"}]}`)},
	}

	forms, err := formdef.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var names []string
	for name := range forms {
		names = append(names, name)
	}
	if diff := cmp.Diff([]string{"contact", "json-form", "signup"}, names, sortStrings()); diff != "" {
		t.Fatalf("form names mismatch (-want +got):\n%s", diff)
	}

	dup := fstest.MapFS{
		"a.yaml": {Data: []byte("name: same\n")},
		"b.yaml": {Data: []byte("name: same\n")},
	}
	if _, err := formdef.LoadFS(dup); err == nil || !strings.Contains(err.Error(), "duplicate form") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	empty, err := formdef.LoadFS(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for nil fs, got %v / %v", empty, err)
	}
}

func TestLoadFile_DefaultsNameToFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsletter.yaml")
	if err := os.WriteFile(path, []byte("elements:\n  - name: email\n    required: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	form, err := formdef.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if form.Name != "newsletter" {
		t.Fatalf("expected name from file, got %q", form.Name)
	}
	if _, err := formdef.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func sortStrings() cmp.Option {
	return cmpopts.SortSlices(func(a, b string) bool { return a < b })
}
