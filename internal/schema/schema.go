// Package schema declares the configuration-driven entity schemas the
// management controller operates on: which fields an entity has, how each
// is edited and validated, which fields are searchable and which columns
// the listing shows.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/patidost/pati_admin_v1/internal/api"
)

// Kind tags the field variant. Each kind has exactly one entry in the
// dispatch table below; adding a kind without a handler is caught at init.
type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindTel
	KindNumber
	KindTextarea
	KindDate
	KindSelect
	KindCheckbox
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindEmail:    "email",
	KindTel:      "tel",
	KindNumber:   "number",
	KindTextarea: "textarea",
	KindDate:     "date",
	KindSelect:   "select",
	KindCheckbox: "checkbox",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// FieldSpec describes one editable field. For KindSelect exactly one of
// Dictionary, EntityEndpoint or Options supplies the choices.
type FieldSpec struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool

	// Select sources
	Dictionary       string // logical dictionary id
	EntityEndpoint   string // backend collection for entity-sourced options
	EntityValueField string // defaults to "id"
	EntityLabelField string // defaults to "name"
	Options          []Option
}

// ColumnSpec is one column of the listing table.
type ColumnSpec struct {
	Field string
	Label string
}

// EntitySchema is the full declarative description of one managed entity.
type EntitySchema struct {
	Icon         string
	LabelSingle  string
	LabelPlural  string
	SearchFields []string
	Fields       []FieldSpec
	TableColumns []ColumnSpec

	// IDField overrides the identifier field, "id" when empty.
	IDField string

	// DisplayName renders a record's human name for confirmations.
	DisplayName func(api.Record) string
}

// DisplayNameOf applies DisplayName with a name/label/id fallback chain.
func (s *EntitySchema) DisplayNameOf(rec api.Record) string {
	if s.DisplayName != nil {
		if name := s.DisplayName(rec); name != "" {
			return name
		}
	}
	for _, key := range []string{"name", "label", "title"} {
		if v := rec.GetString(key); v != "" {
			return v
		}
	}
	return rec.ID(s.IDField)
}

// Field looks a field up by name.
func (s *EntitySchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// handler is the per-kind behavior: turning the raw form string into the
// wire value and validating it.
type handler struct {
	parse    func(raw string) (any, error)
	validate func(spec FieldSpec, raw string) error
}

var handlers = map[Kind]handler{
	KindText:     {parse: parseString, validate: validatePresence},
	KindTextarea: {parse: parseString, validate: validatePresence},
	KindTel:      {parse: parseString, validate: validatePresence},
	KindSelect:   {parse: parseString, validate: validatePresence},
	KindEmail:    {parse: parseString, validate: validateEmail},
	KindNumber:   {parse: parseNumber, validate: validateNumber},
	KindDate:     {parse: parseString, validate: validateDate},
	KindCheckbox: {parse: parseCheckbox, validate: func(FieldSpec, string) error { return nil }},
}

func init() {
	for kind := range kindNames {
		if _, ok := handlers[kind]; !ok {
			panic("schema: no handler for field kind " + kind.String())
		}
	}
}

// Validate checks a raw form value against the field spec.
func (f FieldSpec) Validate(raw string) error {
	h, ok := handlers[f.Kind]
	if !ok {
		return fmt.Errorf("field %s: unknown kind %s", f.Name, f.Kind)
	}
	if err := h.validate(f, raw); err != nil {
		return fmt.Errorf("%s: %w", f.Label, err)
	}
	return nil
}

// Parse converts a raw form value into its wire representation. Empty
// strings are returned as nil so untouched optional fields reach the
// backend as explicit nulls.
func (f FieldSpec) Parse(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	h, ok := handlers[f.Kind]
	if !ok {
		return nil, fmt.Errorf("field %s: unknown kind %s", f.Name, f.Kind)
	}
	return h.parse(raw)
}

// ValidateForm validates every schema field against the form values.
func (s *EntitySchema) ValidateForm(values map[string]string) error {
	for _, f := range s.Fields {
		if err := f.Validate(values[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

func parseString(raw string) (any, error) { return raw, nil }

func parseNumber(raw string) (any, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", raw)
	}
	return n, nil
}

func parseCheckbox(raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "on", "checked":
		return true, nil
	default:
		return false, nil
	}
}

func validatePresence(spec FieldSpec, raw string) error {
	if spec.Required {
		return validation.Validate(strings.TrimSpace(raw), validation.Required)
	}
	return nil
}

func validateEmail(spec FieldSpec, raw string) error {
	if err := validatePresence(spec, raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return validation.Validate(raw, is.Email)
}

func validateNumber(spec FieldSpec, raw string) error {
	if err := validatePresence(spec, raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	_, err := parseNumber(raw)
	return err
}

func validateDate(spec FieldSpec, raw string) error {
	if err := validatePresence(spec, raw); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", trimmed); err != nil {
		return fmt.Errorf("not a date: %q", raw)
	}
	return nil
}
