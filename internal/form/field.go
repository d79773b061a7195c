package form

import (
	"github.com/roach88/formsync/internal/reconcile"
	"github.com/roach88/formsync/internal/value"
)

// Attribute names with a typed slot on Field. Everything else in an
// attribute record lands in Field.Attributes.
const (
	AttrName                = "name"
	AttrEntityPath          = "entityPath"
	AttrTabular             = "tabular"
	AttrActive              = "active"
	AttrDirty               = "dirty"
	AttrLoading             = "loading"
	AttrSaving              = "saving"
	AttrRawInputValue       = "rawInputValue"
	AttrFormattedInputValue = "formattedInputValue"
	AttrDataSetValue        = "dataSetValue"
	AttrValid               = "valid"
	AttrRawValid            = "rawValid"
	AttrError               = "error"
	AttrValue               = "value"
)

// Field is the state of one input bound to an entity path.
type Field struct {
	Name       string
	EntityPath string
	Shape      Shape

	Active  bool
	Dirty   bool
	Loading bool
	Saving  bool

	RawInputValue       value.Value
	FormattedInputValue value.Value
	DataSetValue        value.Value

	Valid    Validity
	RawValid Validity
	Error    FieldError

	// Attributes holds entity attributes without a typed slot.
	Attributes value.Object
}

// Key returns the identity of the field.
func (f *Field) Key() reconcile.Key {
	return reconcile.KeyOf(f.EntityPath, f.Name)
}

// KeyOf is Field.Key as a function value, for the reconcile helpers.
func KeyOf(f *Field) reconcile.Key {
	return f.Key()
}

// Clone returns a shallow copy. Values, validity rows and attributes are
// shared; replace them rather than mutating in place.
func (f *Field) Clone() *Field {
	cp := *f
	return &cp
}

// HasError reports whether the field carries an error.
func (f *Field) HasError() bool {
	return HasError(f.Error)
}

// FieldDef describes a field to create.
type FieldDef struct {
	Name       string
	EntityPath string
	// Tabular forces the tabular shape even when no attribute holds an array.
	Tabular bool
	// Attributes override the defaults. Known attribute names map onto typed
	// slots; the rest are kept in Field.Attributes.
	Attributes value.Object
}

// InitializeField builds a field in its initial state: active, clean, valid,
// idle, with no error and null values. Any attribute present in def
// overrides the matching default.
func InitializeField(def FieldDef) *Field {
	shape := ShapeScalar
	if def.Tabular || inferTabular(def.Attributes) {
		shape = ShapeTabular
	}
	return newField(def.Name, def.EntityPath, shape, def.Attributes)
}

func newField(name, entityPath string, shape Shape, attrs value.Object) *Field {
	f := &Field{
		Name:                name,
		EntityPath:          entityPath,
		Shape:               shape,
		Active:              true,
		RawInputValue:       value.Null{},
		FormattedInputValue: value.Null{},
		DataSetValue:        value.Null{},
		Valid:               ResetValidity(shape),
		RawValid:            ResetValidity(shape),
	}
	applyAttributes(f, attrs)
	return f
}

// FromAttributes builds a field from a loose attribute record, as carried by
// entity sync commands. A "tabular" attribute set to true forces the
// tabular shape.
func FromAttributes(name, entityPath string, attrs value.Object) *Field {
	tabular, _ := attrs[AttrTabular].(value.Bool)
	return InitializeField(FieldDef{
		Name:       name,
		EntityPath: entityPath,
		Tabular:    bool(tabular),
		Attributes: attrs,
	})
}

// MergeAttributes returns a copy of f with attrs merged over it. Identity and
// shape never change: name, entityPath and tabular are ignored, as are
// validity and error values of the wrong shape.
func MergeAttributes(f *Field, attrs value.Object) *Field {
	out := f.Clone()
	applyAttributes(out, attrs)
	return out
}

func inferTabular(attrs value.Object) bool {
	for _, key := range []string{AttrRawInputValue, AttrFormattedInputValue, AttrDataSetValue, AttrValue} {
		if value.IsArray(attrs[key]) {
			return true
		}
	}
	for _, key := range []string{AttrValid, AttrRawValid, AttrError} {
		if value.IsArray(attrs[key]) {
			return true
		}
	}
	return false
}

// applyAttributes writes attrs onto f in place. f must be a fresh copy.
func applyAttributes(f *Field, attrs value.Object) {
	var extra value.Object
	for key, v := range attrs {
		switch key {
		case AttrName, AttrEntityPath, AttrTabular:
		case AttrActive:
			setBool(&f.Active, v)
		case AttrDirty:
			setBool(&f.Dirty, v)
		case AttrLoading:
			setBool(&f.Loading, v)
		case AttrSaving:
			setBool(&f.Saving, v)
		case AttrRawInputValue:
			f.RawInputValue = value.OrNull(v)
		case AttrFormattedInputValue:
			f.FormattedInputValue = value.OrNull(v)
		case AttrDataSetValue:
			f.DataSetValue = value.OrNull(v)
		case AttrValid:
			if validity, ok := ValidityFromValue(v, f.Shape); ok {
				f.Valid = validity
			}
		case AttrRawValid:
			if validity, ok := ValidityFromValue(v, f.Shape); ok {
				f.RawValid = validity
			}
		case AttrError:
			if fieldErr, ok := ErrorFromValue(v, f.Shape); ok {
				f.Error = fieldErr
			}
		default:
			if extra == nil {
				extra = f.Attributes.Clone()
				if extra == nil {
					extra = make(value.Object, len(attrs))
				}
			}
			extra[key] = value.OrNull(v)
		}
	}
	if extra != nil {
		f.Attributes = extra
	}
}

func setBool(dst *bool, v value.Value) {
	if b, ok := v.(value.Bool); ok {
		*dst = bool(b)
	}
}

// ValidityFromValue converts an attribute value into a Validity of the given
// shape. Scalar fields accept a Bool. Tabular fields accept an Array of
// objects of Bool, or Bool true meaning all rows valid.
func ValidityFromValue(v value.Value, shape Shape) (Validity, bool) {
	switch val := v.(type) {
	case value.Bool:
		if shape == ShapeScalar {
			return ScalarValidity(val), true
		}
		if val {
			return TabularValidity{}, true
		}
		return nil, false
	case value.Array:
		if shape != ShapeTabular {
			return nil, false
		}
		rows := make(TabularValidity, len(val))
		for i, elem := range val {
			row := ValidityRow{}
			if obj, ok := elem.(value.Object); ok {
				for prop, flag := range obj {
					if b, ok := flag.(value.Bool); ok {
						row[prop] = bool(b)
					}
				}
			}
			rows[i] = row
		}
		return rows, true
	default:
		return nil, false
	}
}

// ErrorFromValue converts an attribute value into a FieldError of the given
// shape. Null clears the error for either shape.
func ErrorFromValue(v value.Value, shape Shape) (FieldError, bool) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, true
	case value.String:
		if shape != ShapeScalar {
			return nil, false
		}
		if val == "" {
			return nil, true
		}
		return ScalarError(val), true
	case value.Array:
		if shape != ShapeTabular {
			return nil, false
		}
		rows := make(TabularError, len(val))
		for i, elem := range val {
			row := ErrorRow{}
			if obj, ok := elem.(value.Object); ok {
				for prop, msg := range obj {
					if s, ok := msg.(value.String); ok {
						row[prop] = string(s)
					}
				}
			}
			rows[i] = row
		}
		return rows, true
	default:
		return nil, false
	}
}
