package schema

import (
	"testing"

	"github.com/patidost/pati_admin_v1/internal/api"
)

func TestFieldValidate_Required(t *testing.T) {
	f := FieldSpec{Name: "name", Label: "Name", Kind: KindText, Required: true}
	if err := f.Validate(""); err == nil {
		t.Fatal("required field must reject an empty value")
	}
	if err := f.Validate("   "); err == nil {
		t.Fatal("required field must reject a whitespace-only value")
	}
	if err := f.Validate("Pamuk"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	optional := FieldSpec{Name: "notes", Label: "Notes", Kind: KindText}
	if err := optional.Validate(""); err != nil {
		t.Fatalf("optional field should accept empty: %v", err)
	}
}

func TestFieldValidate_Email(t *testing.T) {
	f := FieldSpec{Name: "email", Label: "E-posta", Kind: KindEmail}
	if err := f.Validate("not-an-email"); err == nil {
		t.Fatal("malformed email must be rejected")
	}
	if err := f.Validate("vet@patidost.org"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := f.Validate(""); err != nil {
		t.Fatalf("optional empty email should pass: %v", err)
	}
}

func TestFieldValidate_NumberAndDate(t *testing.T) {
	num := FieldSpec{Name: "weight", Label: "Weight", Kind: KindNumber}
	if err := num.Validate("abc"); err == nil {
		t.Fatal("non-numeric value must be rejected")
	}
	if err := num.Validate("12.5"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	date := FieldSpec{Name: "birthDate", Label: "Birth date", Kind: KindDate}
	if err := date.Validate("2024-13-40"); err == nil {
		t.Fatal("impossible date must be rejected")
	}
	if err := date.Validate("2024-05-17"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFieldParse_EmptyBecomesNil(t *testing.T) {
	for _, kind := range []Kind{KindText, KindEmail, KindNumber, KindDate, KindSelect, KindTextarea, KindTel} {
		f := FieldSpec{Name: "x", Kind: kind}
		v, err := f.Parse("")
		if err != nil {
			t.Fatalf("Parse(%s, \"\"): %v", kind, err)
		}
		if v != nil {
			t.Fatalf("Parse(%s, \"\") = %v, want nil", kind, v)
		}
	}
}

func TestFieldParse_Number(t *testing.T) {
	f := FieldSpec{Name: "weight", Kind: KindNumber}
	v, err := f.Parse("12.5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, ok := v.(float64); !ok || got != 12.5 {
		t.Fatalf("Parse = %v (%T), want float64 12.5", v, v)
	}
	if _, err := f.Parse("abc"); err == nil {
		t.Fatal("non-numeric parse must fail")
	}
}

func TestFieldParse_Checkbox(t *testing.T) {
	f := FieldSpec{Name: "vaccinated", Kind: KindCheckbox}
	cases := map[string]bool{"true": true, "on": true, "1": true, "checked": true, "false": false, "no": false}
	for raw, want := range cases {
		v, err := f.Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if v != want {
			t.Errorf("Parse(%q) = %v, want %v", raw, v, want)
		}
	}
}

func TestValidateForm_StopsAtFirstError(t *testing.T) {
	s := &EntitySchema{
		LabelSingle: "Animal",
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "email", Label: "E-posta", Kind: KindEmail},
		},
	}
	if err := s.ValidateForm(map[string]string{"name": "", "email": "x"}); err == nil {
		t.Fatal("expected a validation error")
	}
	if err := s.ValidateForm(map[string]string{"name": "Pamuk", "email": "a@b.co"}); err != nil {
		t.Fatalf("ValidateForm: %v", err)
	}
}

func TestDisplayNameOf(t *testing.T) {
	s := &EntitySchema{}
	if got := s.DisplayNameOf(api.Record{"name": "Pamuk"}); got != "Pamuk" {
		t.Errorf("got %q", got)
	}
	if got := s.DisplayNameOf(api.Record{"label": "Kırmızı"}); got != "Kırmızı" {
		t.Errorf("got %q", got)
	}
	if got := s.DisplayNameOf(api.Record{"id": "x1"}); got != "x1" {
		t.Errorf("got %q", got)
	}

	custom := &EntitySchema{DisplayName: func(r api.Record) string { return r.GetString("fullName") }}
	if got := custom.DisplayNameOf(api.Record{"fullName": "Karabaş", "name": "ignored"}); got != "Karabaş" {
		t.Errorf("custom DisplayName ignored, got %q", got)
	}
}

func TestKindString(t *testing.T) {
	if KindEmail.String() != "email" {
		t.Errorf("KindEmail.String() = %q", KindEmail.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("unknown kind = %q", Kind(99).String())
	}
}
