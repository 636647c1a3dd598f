package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formvalidator/internal/server"
	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/rules"
	"github.com/goliatone/go-formvalidator/pkg/validation"
)

type response struct {
	Valid  bool                `json:"valid"`
	Fields map[string][]string `json:"fields"`
	Form   []string            `json:"form"`
	Error  string              `json:"error"`
}

func signupForm() *element.Form {
	return &element.Form{
		Name:   "signup",
		Action: "/signup",
		Method: "POST",
		Nodes: []element.Node{
			&element.Element{Name: "email", Type: "email", Label: "Email", Required: true, Validation: rules.Email()},
			&element.Element{Name: "username", Label: "Username", Required: true, Validation: rules.MinLength(3)},
			&element.Group{Label: "Address", Nodes: []element.Node{
				&element.Element{Name: "address[zip]", Validation: rules.Pattern(`^\d{5}$`)},
			}},
		},
	}
}

func newHandler(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	srv, err := server.New(map[string]*element.Form{
		"signup":  signupForm(),
		"contact": {Nodes: []element.Node{&element.Element{Name: "message", Label: "Message", Required: true}}},
	}, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	var body response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestValidate_FormEncoded(t *testing.T) {
	h := newHandler(t)

	code, body := do(t, h, formRequest("/forms/signup/validate", url.Values{
		"email":        {"ada@example.com"},
		"username":     {"ada"},
		"address[zip]": {"12345"},
	}))
	if code != http.StatusOK || !body.Valid {
		t.Fatalf("expected valid submission, got %d %#v", code, body)
	}

	code, body = do(t, h, formRequest("/forms/signup/validate", url.Values{
		"email":        {"nope"},
		"address[zip]": {"12"},
	}))
	if code != http.StatusUnprocessableEntity || body.Valid {
		t.Fatalf("expected 422, got %d %#v", code, body)
	}
	want := map[string][]string{
		"username":     {"The field Username is required!"},
		"email":        {"The value is not a valid email address."},
		"address[zip]": {"The value does not match the expected format."},
	}
	if diff := cmp.Diff(want, body.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_JSONBody(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/forms/signup/validate", strings.NewReader(`{"address": {"zip": "1"}}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	code, body := do(t, h, req)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if diff := cmp.Diff([]string{"The fields Email and Username are required!"}, body.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	want := map[string][]string{
		"email":        {},
		"username":     {},
		"address[zip]": {"The value does not match the expected format."},
	}
	if diff := cmp.Diff(want, body.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	bad := httptest.NewRequest(http.MethodPost, "/forms/signup/validate", strings.NewReader(`[1, 2]`))
	bad.Header.Set("Content-Type", "application/json")
	if code, body := do(t, h, bad); code != http.StatusBadRequest || body.Error == "" {
		t.Fatalf("expected 400 for non-object body, got %d %#v", code, body)
	}
}

func TestValidate_FieldSubset(t *testing.T) {
	h := newHandler(t)

	code, body := do(t, h, formRequest("/forms/signup/validate?fields=email", url.Values{"email": {"ada@example.com"}}))
	if code != http.StatusOK || !body.Valid {
		t.Fatalf("expected subset to ignore other required fields, got %d %#v", code, body)
	}

	code, body = do(t, h, formRequest("/forms/signup/validate?groups=address", url.Values{"address[zip]": {"x"}}))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if diff := cmp.Diff([]string{"address[zip]"}, keys(body.Fields)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_UpstreamErrorsSkipRules(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/forms/signup/validate", strings.NewReader(`{
		"email": "ada@example.com",
		"username": "ab",
		"_errors": {
			"/body/username": "Username already taken",
			"form": ["Upstream rejected the request"]
		}
	}`))
	req.Header.Set("Content-Type", "application/json")
	code, body := do(t, h, req)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if diff := cmp.Diff(map[string][]string{"username": {"Username already taken"}}, body.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Upstream rejected the request"}, body.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	bad := httptest.NewRequest(http.MethodPost, "/forms/signup/validate", strings.NewReader(`{"_errors": 5}`))
	bad.Header.Set("Content-Type", "application/json")
	if code, body := do(t, h, bad); code != http.StatusBadRequest || body.Error == "" {
		t.Fatalf("expected 400 for malformed upstream errors, got %d %#v", code, body)
	}
}

func TestValidate_LocaleFromRequest(t *testing.T) {
	catalog := i18n.NewCatalog(language.English)
	for key, msg := range map[string]string{
		validation.MessageRequired: "Le champ %field est obligatoire !",
		"element.label.Message":    "Le message",
	} {
		if err := catalog.Set("fr", key, msg); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	h := newHandler(t, server.WithTranslator(catalog), server.WithLocale("en"))

	req := formRequest("/forms/contact/validate", url.Values{})
	req.Header.Set("Accept-Language", "fr-CH, fr;q=0.9, en;q=0.8")
	_, body := do(t, h, req)
	if diff := cmp.Diff([]string{"Le champ Le message est obligatoire !"}, body.Fields["message"]); diff != "" {
		t.Fatalf("accept-language mismatch (-want +got):\n%s", diff)
	}

	_, body = do(t, h, formRequest("/forms/contact/validate?locale=fr", url.Values{}))
	if diff := cmp.Diff([]string{"Le champ Le message est obligatoire !"}, body.Fields["message"]); diff != "" {
		t.Fatalf("query locale mismatch (-want +got):\n%s", diff)
	}

	_, body = do(t, h, formRequest("/forms/contact/validate", url.Values{}))
	if diff := cmp.Diff([]string{"The field Message is required!"}, body.Fields["message"]); diff != "" {
		t.Fatalf("default locale mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_UnknownForm(t *testing.T) {
	h := newHandler(t)
	code, body := do(t, h, formRequest("/forms/missing/validate", url.Values{}))
	if code != http.StatusNotFound || body.Error == "" {
		t.Fatalf("expected 404, got %d %#v", code, body)
	}
}

func TestListAndDescribeForms(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms", nil))
	var list map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"forms": {"contact", "signup"}}, list); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/signup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info struct {
		Name   string
		Method string
		Fields []struct {
			Name     string
			Label    string
			Group    string
			Required bool
			Rules    bool
		}
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Name != "signup" || info.Method != "POST" || len(info.Fields) != 3 {
		t.Fatalf("unexpected description: %#v", info)
	}
	zip := info.Fields[2]
	if zip.Name != "address[zip]" || zip.Group != "Address" || zip.Label != "Address" || !zip.Rules || zip.Required {
		t.Fatalf("unexpected zip description: %#v", zip)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := server.New(nil); !errors.Is(err, server.ErrNoForms) {
		t.Fatalf("expected ErrNoForms, got %v", err)
	}
	_, err := server.New(map[string]*element.Form{"x": nil})
	if !errors.Is(err, validation.ErrFormRequired) {
		t.Fatalf("expected ErrFormRequired, got %v", err)
	}
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	return out
}
