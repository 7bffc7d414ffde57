package sales

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Solaris-hms/MRF/internal/settlement"
)

// FormValue is a numeric form field as the sale form sends it: a JSON
// number, a numeric string, an empty string or null. Anything that does
// not parse to a finite, non-negative number reads as zero.
type FormValue struct {
	set  bool
	text string
}

// UnmarshalJSON records that the field was sent, even as null.
func (v *FormValue) UnmarshalJSON(b []byte) error {
	v.set = true
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		v.text = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &v.text)
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("form value must be a number or a string, got %s", b)
	}
	v.text = n.String()
	return nil
}

// IsSet reports whether the field was present in the request.
func (v FormValue) IsSet() bool { return v.set }

// Float parses the field; see settlement.ParseAmount.
func (v FormValue) Float() float64 {
	return settlement.ParseAmount(v.text)
}

// FloatOr is Float, or def when the field was omitted.
func (v FormValue) FloatOr(def float64) float64 {
	if !v.set {
		return def
	}
	return v.Float()
}
