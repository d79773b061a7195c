package form

import "maps"

// Shape distinguishes scalar fields from tabular (array-valued) fields.
// It is decided when the field is created and never changes.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeTabular
)

// String returns "scalar" or "tabular".
func (s Shape) String() string {
	if s == ShapeTabular {
		return "tabular"
	}
	return "scalar"
}

// Validity is a sealed variant: ScalarValidity or TabularValidity.
type Validity interface {
	validity() // sealed
	// Valid reports whether nothing is marked invalid.
	Valid() bool
}

// ScalarValidity is the validity flag of a scalar field.
type ScalarValidity bool

func (ScalarValidity) validity() {}

// Valid reports the flag.
func (v ScalarValidity) Valid() bool { return bool(v) }

// ValidityRow maps property names to validity within one row.
// Missing properties are valid.
type ValidityRow map[string]bool

// TabularValidity holds one ValidityRow per row of a tabular field.
type TabularValidity []ValidityRow

func (TabularValidity) validity() {}

// Valid reports whether no property of any row is false.
func (v TabularValidity) Valid() bool {
	for _, row := range v {
		for _, ok := range row {
			if !ok {
				return false
			}
		}
	}
	return true
}

// WithRow returns a copy with row[index][prop] set to ok. Rows up to index
// are synthesized empty when missing. Other rows are shared with v.
func (v TabularValidity) WithRow(index int, prop string, ok bool) TabularValidity {
	out := make(TabularValidity, max(len(v), index+1))
	copy(out, v)
	row := maps.Clone(out[index])
	if row == nil {
		row = ValidityRow{}
	}
	row[prop] = ok
	out[index] = row
	for i := range out {
		if out[i] == nil {
			out[i] = ValidityRow{}
		}
	}
	return out
}

// ResetValidity returns the all-valid variant for shape.
func ResetValidity(shape Shape) Validity {
	if shape == ShapeTabular {
		return TabularValidity{}
	}
	return ScalarValidity(true)
}

// FieldError is a sealed variant: nil (no error), ScalarError or TabularError.
type FieldError interface {
	fieldError() // sealed
	// Present reports whether the error carries anything to show.
	Present() bool
}

// ScalarError is the error message of a scalar field.
type ScalarError string

func (ScalarError) fieldError() {}

// Present reports whether the message is non-empty.
func (e ScalarError) Present() bool { return e != "" }

// ErrorRow maps property names to error messages within one row.
type ErrorRow map[string]string

// TabularError holds one ErrorRow per row of a tabular field.
type TabularError []ErrorRow

func (TabularError) fieldError() {}

// Present reports whether some row holds a non-empty message.
func (e TabularError) Present() bool {
	for _, row := range e {
		for _, msg := range row {
			if msg != "" {
				return true
			}
		}
	}
	return false
}

// WithRow returns a copy with row[index][prop] set to msg.
func (e TabularError) WithRow(index int, prop, msg string) TabularError {
	out := make(TabularError, max(len(e), index+1))
	copy(out, e)
	row := maps.Clone(out[index])
	if row == nil {
		row = ErrorRow{}
	}
	row[prop] = msg
	out[index] = row
	for i := range out {
		if out[i] == nil {
			out[i] = ErrorRow{}
		}
	}
	return out
}

// HasError reports whether err is non-nil and present.
func HasError(err FieldError) bool {
	return err != nil && err.Present()
}

// MatchesShape reports whether the validity variant fits shape.
func MatchesShape(v Validity, shape Shape) bool {
	switch v.(type) {
	case ScalarValidity:
		return shape == ShapeScalar
	case TabularValidity:
		return shape == ShapeTabular
	default:
		return false
	}
}

// ErrorMatchesShape reports whether err fits shape. A nil error fits both.
func ErrorMatchesShape(err FieldError, shape Shape) bool {
	switch err.(type) {
	case nil:
		return true
	case ScalarError:
		return shape == ShapeScalar
	case TabularError:
		return shape == ShapeTabular
	default:
		return false
	}
}
