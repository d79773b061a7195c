package form

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/formsync/internal/value"
)

// ToValue renders the field as an attribute record with camelCase keys.
// Extra attributes are included alongside the typed slots; a typed slot wins
// on a name clash.
func (f *Field) ToValue() value.Object {
	obj := f.Attributes.Clone()
	if obj == nil {
		obj = make(value.Object, 13)
	}
	obj[AttrName] = value.String(f.Name)
	obj[AttrEntityPath] = value.String(f.EntityPath)
	obj[AttrActive] = value.Bool(f.Active)
	obj[AttrDirty] = value.Bool(f.Dirty)
	obj[AttrLoading] = value.Bool(f.Loading)
	obj[AttrSaving] = value.Bool(f.Saving)
	obj[AttrRawInputValue] = value.OrNull(f.RawInputValue)
	obj[AttrFormattedInputValue] = value.OrNull(f.FormattedInputValue)
	obj[AttrDataSetValue] = value.OrNull(f.DataSetValue)
	obj[AttrValid] = validityToValue(f.Valid, f.Shape)
	obj[AttrRawValid] = validityToValue(f.RawValid, f.Shape)
	obj[AttrError] = errorToValue(f.Error)
	obj[AttrTabular] = value.Bool(f.Shape == ShapeTabular)
	return obj
}

func validityToValue(v Validity, shape Shape) value.Value {
	switch val := v.(type) {
	case ScalarValidity:
		return value.Bool(val)
	case TabularValidity:
		rows := make(value.Array, len(val))
		for i, row := range val {
			obj := make(value.Object, len(row))
			for prop, ok := range row {
				obj[prop] = value.Bool(ok)
			}
			rows[i] = obj
		}
		return rows
	default:
		return validityToValue(ResetValidity(shape), shape)
	}
}

func errorToValue(err FieldError) value.Value {
	switch val := err.(type) {
	case ScalarError:
		return value.String(val)
	case TabularError:
		rows := make(value.Array, len(val))
		for i, row := range val {
			obj := make(value.Object, len(row))
			for prop, msg := range row {
				obj[prop] = value.String(msg)
			}
			rows[i] = obj
		}
		return rows
	default:
		return value.Null{}
	}
}

// FieldFromValue is the inverse of Field.ToValue. The shape comes from the
// "tabular" flag alone; array-valued attributes do not change it.
func FieldFromValue(v value.Value) (*Field, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("field: expected object, got %T", v)
	}
	name, ok := obj[AttrName].(value.String)
	if !ok {
		return nil, fmt.Errorf("field: missing %q", AttrName)
	}
	entityPath, ok := obj[AttrEntityPath].(value.String)
	if !ok {
		return nil, fmt.Errorf("field %q: missing %q", name, AttrEntityPath)
	}
	shape := ShapeScalar
	if tabular, _ := obj[AttrTabular].(value.Bool); tabular {
		shape = ShapeTabular
	}
	return newField(string(name), string(entityPath), shape, obj), nil
}

// MarshalJSON implements json.Marshaler.
func (f *Field) MarshalJSON() ([]byte, error) {
	return value.Marshal(f.ToValue())
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(data []byte) error {
	v, err := value.Unmarshal(data)
	if err != nil {
		return err
	}
	decoded, err := FieldFromValue(v)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

// ToValue renders the form with camelCase keys.
func (f *Form) ToValue() value.Object {
	paths := make(value.Array, len(f.EntityPaths))
	for i, p := range f.EntityPaths {
		paths[i] = value.String(p)
	}
	fields := make(value.Array, len(f.Fields))
	for i, field := range f.Fields {
		fields[i] = field.ToValue()
	}
	return value.Object{
		"formKey":         value.String(f.FormKey),
		"entityPathArray": paths,
		"editing":         value.Bool(f.Editing),
		"saving":          value.Bool(f.Saving),
		"loading":         value.Bool(f.Loading),
		"error":           value.Bool(f.Error),
		"fields":          fields,
	}
}

// FormFromValue is the inverse of Form.ToValue.
func FormFromValue(v value.Value) (*Form, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("form: expected object, got %T", v)
	}
	key, ok := obj["formKey"].(value.String)
	if !ok {
		return nil, fmt.Errorf("form: missing formKey")
	}
	f := &Form{FormKey: string(key), EntityPaths: []string{}, Fields: []*Field{}}
	if paths, ok := obj["entityPathArray"].(value.Array); ok {
		for _, p := range paths {
			if s, ok := p.(value.String); ok {
				f.EntityPaths = append(f.EntityPaths, string(s))
			}
		}
	}
	setBool(&f.Editing, obj["editing"])
	setBool(&f.Saving, obj["saving"])
	setBool(&f.Loading, obj["loading"])
	setBool(&f.Error, obj["error"])
	if fields, ok := obj["fields"].(value.Array); ok {
		for i, fv := range fields {
			field, err := FieldFromValue(fv)
			if err != nil {
				return nil, fmt.Errorf("form %q: fields[%d]: %w", key, i, err)
			}
			f.Fields = append(f.Fields, field)
		}
	}
	return f, nil
}

// MarshalJSON implements json.Marshaler.
func (f *Form) MarshalJSON() ([]byte, error) {
	return value.Marshal(f.ToValue())
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Form) UnmarshalJSON(data []byte) error {
	v, err := value.Unmarshal(data)
	if err != nil {
		return err
	}
	decoded, err := FormFromValue(v)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

// ToValue renders the collection as an array of forms.
func (fs Forms) ToValue() value.Array {
	out := make(value.Array, len(fs))
	for i, f := range fs {
		out[i] = f.ToValue()
	}
	return out
}

// MarshalJSON writes an empty array for a nil collection.
func (fs Forms) MarshalJSON() ([]byte, error) {
	return value.Marshal(fs.ToValue())
}

// UnmarshalJSON implements json.Unmarshaler.
func (fs *Forms) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("forms: %w", err)
	}
	out := make(Forms, len(raw))
	for i, r := range raw {
		var f Form
		if err := json.Unmarshal(r, &f); err != nil {
			return fmt.Errorf("forms[%d]: %w", i, err)
		}
		out[i] = &f
	}
	*fs = out
	return nil
}

// Canonical returns the canonical JSON encoding of the collection, the input
// to snapshot hashing.
func (fs Forms) Canonical() ([]byte, error) {
	return value.MarshalCanonical(fs.ToValue())
}

// Hash returns the content hash of the collection.
func (fs Forms) Hash() (string, error) {
	canonical, err := fs.Canonical()
	if err != nil {
		return "", err
	}
	return value.SnapshotHash(canonical), nil
}
