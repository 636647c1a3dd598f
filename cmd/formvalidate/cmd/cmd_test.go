package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const signupDefinition = `
name: signup
elements:
  - name: email
    label: Email
    required: true
    validation:
      - kind: email
  - name: username
    label: Username
    required: true
    validation: "alphanum"
`

const catalogYAML = `
fr:
  "The field %field is required!": "Le champ %field est obligatoire !"
  element.label.Username: "Identifiant"
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runRoot(t *testing.T, stdin string, args ...string) (result, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())

	var res result
	if stdout.Len() > 0 {
		if decodeErr := json.Unmarshal(stdout.Bytes(), &res); decodeErr != nil {
			t.Fatalf("decode output %q: %v", stdout.String(), decodeErr)
		}
	}
	return res, stderr.String(), err
}

func TestCheck_ValidAndInvalidSubmissions(t *testing.T) {
	dir := t.TempDir()
	form := writeFile(t, dir, "signup.yaml", signupDefinition)
	good := writeFile(t, dir, "good.json", `{"email": "ada@example.com", "username": "ada"}`)
	bad := writeFile(t, dir, "bad.yaml", "email: nope\n")

	res, _, err := runRoot(t, "", "check", "--form", form, "--values", good)
	if err != nil || !res.Valid {
		t.Fatalf("expected valid submission, got %#v / %v", res, err)
	}

	res, _, err = runRoot(t, "", "check", "--form", form, "--values", bad)
	if !errors.Is(err, errInvalidSubmission) {
		t.Fatalf("expected errInvalidSubmission, got %v", err)
	}
	want := map[string][]string{
		"email":    {"The value is not a valid email address."},
		"username": {"The field Username is required!"},
	}
	if diff := cmp.Diff(want, res.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_StdinSubsetAndLocale(t *testing.T) {
	dir := t.TempDir()
	form := writeFile(t, dir, "signup.yaml", signupDefinition)
	catalog := writeFile(t, dir, "messages.yaml", catalogYAML)

	res, _, err := runRoot(t, `{"email": "ada@example.com"}`,
		"check", "--form", form, "--values", "-", "--fields", "email")
	if err != nil || !res.Valid {
		t.Fatalf("expected subset to pass, got %#v / %v", res, err)
	}

	res, _, err = runRoot(t, `{"email": "ada@example.com"}`,
		"check", "--form", form, "--values", "-", "--locale", "fr", "--i18n", catalog)
	if !errors.Is(err, errInvalidSubmission) {
		t.Fatalf("expected errInvalidSubmission, got %v", err)
	}
	if diff := cmp.Diff([]string{"Le champ Identifiant est obligatoire !"}, res.Fields["username"]); diff != "" {
		t.Fatalf("translated message mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_OpenAPIOperation(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "api.yaml", `
openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /notes:
    post:
      operationId: createNote
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [title]
              properties:
                title: {type: string, maxLength: 5}
      responses:
        "201": {description: created}
`)
	values := writeFile(t, dir, "note.json", `{"title": "far too long"}`)

	res, _, err := runRoot(t, "", "check", "--openapi", spec, "--operation", "createNote", "--values", values)
	if !errors.Is(err, errInvalidSubmission) {
		t.Fatalf("expected errInvalidSubmission, got %v", err)
	}
	if diff := cmp.Diff([]string{"The value must be at most 5 characters long."}, res.Fields["title"]); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_UpstreamErrorsSkipRules(t *testing.T) {
	dir := t.TempDir()
	form := writeFile(t, dir, "signup.yaml", signupDefinition)
	upstream := writeFile(t, dir, "upstream.yaml", `
body.username: [Username already taken]
non_field_errors: Account service unavailable
`)

	res, _, err := runRoot(t, `{"email": "ada@example.com", "username": "ada!"}`,
		"check", "--form", form, "--values", "-", "--errors", upstream)
	if !errors.Is(err, errInvalidSubmission) {
		t.Fatalf("expected errInvalidSubmission, got %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"username": {"Username already taken"}}, res.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Account service unavailable"}, res.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	form := writeFile(t, dir, "signup.yaml", signupDefinition)

	cases := map[string][]string{
		"no values":    {"check", "--form", form},
		"no form":      {"check", "--values", "-"},
		"both sources": {"check", "--form", form, "--openapi", "x.yaml", "--values", "-"},
		"no operation": {"check", "--openapi", "x.yaml", "--values", "-"},
		"bad format":   {"check", "--form", form, "--values", "-", "--log-format", "xml"},
		"both stdin":   {"check", "--form", form, "--values", "-", "--errors", "-"},
		"bad errors":   {"check", "--form", form, "--values", "-", "--errors", filepath.Join(dir, "missing.json")},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := runRoot(t, "{}", args...); err == nil || errors.Is(err, errInvalidSubmission) {
				t.Fatalf("expected usage error, got %v", err)
			}
		})
	}
}

func TestLoadForms_MergesDefinitionsAndOpenAPI(t *testing.T) {
	dir := t.TempDir()
	formsDir := filepath.Join(dir, "forms")
	if err := os.Mkdir(formsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, formsDir, "signup.yaml", signupDefinition)
	spec := writeFile(t, dir, "api.yaml", `
openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /notes:
    post:
      operationId: createNote
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                title: {type: string}
      responses:
        "201": {description: created}
`)

	forms, err := loadForms(context.Background(), formsDir, spec)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(forms) != 2 || forms["signup"] == nil || forms["createNote"] == nil {
		t.Fatalf("unexpected forms: %v", forms)
	}

	forms, err = loadForms(context.Background(), filepath.Join(dir, "missing"), "")
	if err != nil || len(forms) != 0 {
		t.Fatalf("expected missing dir to be skipped, got %v / %v", forms, err)
	}
}
