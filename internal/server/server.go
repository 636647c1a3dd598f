package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formvalidator/pkg/element"
	"github.com/goliatone/go-formvalidator/pkg/i18n"
	"github.com/goliatone/go-formvalidator/pkg/render"
	"github.com/goliatone/go-formvalidator/pkg/rules"
	"github.com/goliatone/go-formvalidator/pkg/validation"
	"github.com/goliatone/go-formvalidator/pkg/values"
)

const maxBodyBytes = 1 << 20

// errorsMember is the top-level JSON member carrying upstream errors. It is
// removed from the submitted values.
const errorsMember = "_errors"

// ErrNoForms is returned by New when there is nothing to serve.
var ErrNoForms = errors.New("server: no forms registered")

// Option configures a Server.
type Option func(*Server)

// WithTranslator sets the translator used for labels and messages.
func WithTranslator(t i18n.Translator) Option {
	return func(s *Server) {
		s.translator = t
	}
}

// WithLocale sets the locale used when a request names none.
func WithLocale(locale string) Option {
	return func(s *Server) {
		s.locale = strings.TrimSpace(locale)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrategy overrides the rule strategy shared by every form.
func WithStrategy(strategy validation.Strategy) Option {
	return func(s *Server) {
		if strategy != nil {
			s.strategy = strategy
		}
	}
}

// Server exposes form validation over HTTP. One validator is built per form
// at construction and shared by every request.
type Server struct {
	forms      map[string]*element.Form
	validators map[string]*validation.Validator
	strategy   validation.Strategy
	translator i18n.Translator
	locale     string
	logger     *slog.Logger
}

// New builds validators for every form.
func New(forms map[string]*element.Form, opts ...Option) (*Server, error) {
	if len(forms) == 0 {
		return nil, ErrNoForms
	}

	s := &Server{
		forms:      make(map[string]*element.Form, len(forms)),
		validators: make(map[string]*validation.Validator, len(forms)),
		strategy:   rules.NewStrategy(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for name, form := range forms {
		if form == nil {
			return nil, fmt.Errorf("server: form %q: %w", name, validation.ErrFormRequired)
		}
		v, err := s.newValidator(form)
		if err != nil {
			return nil, fmt.Errorf("server: form %q: %w", name, err)
		}
		s.forms[name] = form
		s.validators[name] = v
	}
	return s, nil
}

func (s *Server) newValidator(form element.Node) (*validation.Validator, error) {
	return validation.New(form,
		validation.WithStrategy(s.strategy),
		validation.WithTranslator(s.translator),
		validation.WithLocale(s.locale),
		validation.WithLogger(s.logger),
	)
}

// Handler returns the HTTP routes:
//
//	GET  /forms                  list form names
//	GET  /forms/{form}           describe a form's fields
//	POST /forms/{form}/validate  validate a submission
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/forms", func(forms chi.Router) {
		forms.Get("/", s.listForms)
		forms.Get("/{form}", s.describeForm)
		forms.Post("/{form}/validate", s.validateForm)
	})
	return r
}

// Names returns the registered form names, sorted.
func (s *Server) Names() []string {
	names := make([]string, 0, len(s.forms))
	for name := range s.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
	Group    string `json:"group,omitempty"`
	Required bool   `json:"required,omitempty"`
	Rules    bool   `json:"rules,omitempty"`
}

type formInfo struct {
	Name   string      `json:"name"`
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Fields []fieldInfo `json:"fields"`
}

type validationResponse struct {
	Valid  bool                `json:"valid"`
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"forms": s.Names()})
}

func (s *Server) describeForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	form, ok := s.forms[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("form %q not found", name))
		return
	}

	locale := s.requestLocale(r)
	info := formInfo{Name: name, Action: form.Action, Method: form.Method, Fields: []fieldInfo{}}
	for _, entry := range element.Elements(form) {
		el := entry.Element
		if strings.TrimSpace(el.Name) == "" {
			continue
		}
		field := fieldInfo{
			Name:     el.Name,
			Type:     el.Type,
			Required: el.Required,
			Rules:    el.Validation != nil,
		}
		field.Label, _ = validation.ResolveLabel(el, entry.Owner, s.translator, locale)
		if entry.Owner != nil {
			field.Group = validation.StripMarkup(i18n.Scoped(s.translator, locale, validation.LabelScope, entry.Owner.Label))
		}
		info.Fields = append(info.Fields, field)
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	v, ok := s.validators[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("form %q not found", name))
		return
	}

	flat, upstream, err := decodeSubmission(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var form element.Node = s.forms[name]
	subset := element.Subset{
		Names:  r.URL.Query()["fields"],
		Groups: r.URL.Query()["groups"],
	}
	if !subset.Empty() {
		form = subset.Apply(form)
		v, err = s.newValidator(form)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	errs := validation.NewCollection()
	render.Seed(errs, render.MapErrorPayload(form, upstream))

	locale := s.requestLocale(r)
	if _, err := v.Locale(locale).ValidateValues(flat, errs); err != nil {
		s.logger.Error("form validation failed",
			slog.String("form", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	mapping := render.FromCollection(errs, s.translator, locale)
	resp := validationResponse{Valid: mapping.Valid(), Fields: mapping.Fields, Form: mapping.Form}
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}

	s.logger.Info("form validated",
		slog.String("form", name),
		slog.String("locale", locale),
		slog.Bool("valid", resp.Valid),
		slog.Int("errors", errs.Len()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	writeJSON(w, status, resp)
}

// decodeSubmission reads the submitted values. JSON bodies may also carry
// upstream errors under errorsMember.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (values.Values, map[string][]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var payload any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return nil, nil, fmt.Errorf("decode json body: %w", err)
		}

		var upstream map[string][]string
		if doc, ok := payload.(map[string]any); ok {
			if raw, found := doc[errorsMember]; found {
				delete(doc, errorsMember)
				parsed, err := render.ParsePayload(raw)
				if err != nil {
					return nil, nil, err
				}
				upstream = parsed
			}
		}

		flat, err := values.FlattenAny(payload)
		if err != nil {
			return nil, nil, err
		}
		return flat, upstream, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, nil, fmt.Errorf("parse multipart body: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("parse form body: %w", err)
	}
	return values.FromURLValues(r.PostForm), nil, nil
}

// requestLocale prefers the "locale" query parameter, then the first
// Accept-Language tag, then the configured default.
func (s *Server) requestLocale(r *http.Request) string {
	if locale := strings.TrimSpace(r.URL.Query().Get("locale")); locale != "" {
		if tag, err := language.Parse(locale); err == nil {
			return tag.String()
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			return tags[0].String()
		}
	}
	return s.locale
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
