// Package vehicle normalizes and parses Indian vehicle registration plates
// as they are keyed in at the weighbridge.
package vehicle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// plateRegex matches a normalized plate: {state}{district}{series}{number}
// Example: MH12AB1234, DL3CAF0001, KA011234
var plateRegex = regexp.MustCompile(`^([A-Z]{2})(\d{1,2})([A-Z]{0,3})(\d{1,4})$`)

// bharatRegex matches BH-series plates: {year}BH{number}{series}
// Example: 22BH1234AA
var bharatRegex = regexp.MustCompile(`^(\d{2})BH(\d{4})([A-Z]{1,2})$`)

var ErrInvalidPlate = errors.New("vehicle: invalid registration plate")

// Plate is a parsed registration plate.
type Plate struct {
	Raw      string `json:"raw"`
	State    string `json:"state"`
	District string `json:"district"`
	Series   string `json:"series"`
	Number   string `json:"number"`
}

// String returns the canonical, separator-free form.
func (p Plate) String() string {
	if p.State == "BH" {
		return p.District + "BH" + p.Number + p.Series
	}
	return p.State + p.District + p.Series + p.Number
}

// Normalize uppercases s and strips spaces, hyphens and dots. Operators
// type the same truck as "mh-12 ab 1234" and "MH12AB1234".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '-', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Parse normalizes and validates a registration plate. A single-digit
// district is zero-padded, so "KA1AB1234" and "KA01AB1234" are one plate.
func Parse(s string) (*Plate, error) {
	n := Normalize(s)

	if m := bharatRegex.FindStringSubmatch(n); m != nil {
		return &Plate{Raw: s, State: "BH", District: m[1], Number: m[2], Series: m[3]}, nil
	}

	m := plateRegex.FindStringSubmatch(n)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlate, s)
	}
	district := m[2]
	if len(district) == 1 {
		district = "0" + district
	}
	return &Plate{
		Raw:      s,
		State:    m[1],
		District: district,
		Series:   m[3],
		Number:   m[4],
	}, nil
}

// Matches reports whether the plate recorded at the weighbridge matches a
// search query. A query carrying a full four-digit number is compared as a
// plate against the recorded one. Anything shorter, such as "MH12" or
// "MH12AB123" typed on the way to a full plate, matches as a substring of
// the normalized plate.
func Matches(recorded, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	if qp, err := Parse(q); err == nil && len(qp.Number) == 4 {
		if rp, err := Parse(recorded); err == nil {
			return rp.String() == qp.String()
		}
	}
	return strings.Contains(Normalize(recorded), q)
}
