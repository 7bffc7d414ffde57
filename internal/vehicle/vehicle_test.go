package vehicle

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"mh-12 ab 1234": "MH12AB1234",
		"MH12AB1234":    "MH12AB1234",
		" ka.01.hh.1 ":  "KA01HH1",
		"":              "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse_Valid(t *testing.T) {
	p, err := Parse("mh 12 ab 1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State != "MH" || p.District != "12" || p.Series != "AB" || p.Number != "1234" {
		t.Errorf("unexpected parts: %+v", p)
	}
	if p.String() != "MH12AB1234" {
		t.Errorf("expected canonical MH12AB1234, got %s", p.String())
	}

	// Older plates carry no series letters.
	p, err = Parse("KA01-1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Series != "" {
		t.Errorf("expected empty series, got %q", p.Series)
	}
}

func TestParse_PadsDistrict(t *testing.T) {
	p, err := Parse("KA1AB1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.District != "01" {
		t.Errorf("expected district 01, got %q", p.District)
	}
	if p.String() != "KA01AB1234" {
		t.Errorf("expected canonical KA01AB1234, got %s", p.String())
	}
}

func TestParse_Bharat(t *testing.T) {
	p, err := Parse("22 BH 1234 AA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State != "BH" || p.District != "22" || p.Number != "1234" || p.Series != "AA" {
		t.Errorf("unexpected parts: %+v", p)
	}
	if p.String() != "22BH1234AA" {
		t.Errorf("expected canonical 22BH1234AA, got %s", p.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1234",
		"MH",
		"M12AB1234",
		"MH12ABCD1234",
		"MH12AB12345",
		"MH12AB",
	}
	for _, plate := range tests {
		if _, err := Parse(plate); !errors.Is(err, ErrInvalidPlate) {
			t.Errorf("expected ErrInvalidPlate for %q, got %v", plate, err)
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		recorded, query string
		want            bool
	}{
		{"MH12AB1234", "", true},
		{"MH12AB1234", "mh-12-ab-1234", true},
		{"MH12AB1234", "MH12AB1235", false},
		{"MH12AB1234", "MH12AB123", true},
		{"MH12AB1234", "MH12AB12", true},
		{"MH12AB1234", "MH12AB", true},
		{"MH12AB1234", "MH12", true},
		{"MH12AB1234", "mh 12", true},
		{"KA01AB1234", "ka1ab1234", true},
		{"KA 1 AB 1234", "KA01AB1234", true},
		{"MH12AB1234", "1234", true},
		{"MH 12 AB 1234", "12ab", true},
		{"MH12AB1234", "AB1", true},
		{"MH12AB1234", "KA01", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.recorded, tt.query); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.recorded, tt.query, got, tt.want)
		}
	}
}
