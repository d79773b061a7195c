package engine

import (
	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/value"
)

// inputChange records a user edit, creating the field when it is absent.
func inputChange(f *form.Form, c command.InputChange) (*form.Form, *TransitionError) {
	if c.Row != nil {
		if err := checkRow(c.EntityPath, c.FieldName, *c.Row); err != nil {
			err.FormKey = c.FormKey
			return nil, err
		}
	}
	i := f.FieldIndex(c.EntityPath, c.FieldName)
	if i < 0 {
		return f.WithFieldAppended(newInputField(c)), nil
	}

	field := f.Fields[i]
	if c.Row != nil && field.Shape != form.ShapeTabular {
		return nil, shapeMismatch(c.FormKey, c.EntityPath, c.FieldName, "row-addressed change on a scalar field")
	}

	changed := field.Clone()
	changed.RawInputValue = value.OrNull(c.RawValue)
	changed.FormattedInputValue = value.OrNull(c.FormattedValue)
	changed.Dirty = true

	switch {
	case field.Shape == form.ShapeScalar:
		changed.Valid = form.ScalarValidity(true)
		changed.RawValid = form.ScalarValidity(true)
	case c.Row != nil:
		changed.Valid = tabularValidity(field.Valid).WithRow(c.Row.Index, c.Row.PropertyNameLine, true)
		changed.RawValid = tabularValidity(field.RawValid).WithRow(c.Row.Index, c.Row.PropertyNameLine, true)
	}
	return f.WithField(i, changed), nil
}

func newInputField(c command.InputChange) *form.Field {
	return form.InitializeField(form.FieldDef{
		Name:       c.FieldName,
		EntityPath: c.EntityPath,
		Tabular:    c.Row != nil,
		Attributes: value.Object{
			form.AttrRawInputValue:       value.OrNull(c.RawValue),
			form.AttrFormattedInputValue: value.OrNull(c.FormattedValue),
			form.AttrDirty:               value.Bool(true),
		},
	})
}

func inputChangeError(f *form.Field) (*form.Field, *TransitionError) {
	if f.Shape != form.ShapeScalar {
		return nil, shapeMismatch("", f.EntityPath, f.Name, "scalar raw-validation failure on a tabular field")
	}
	out := f.Clone()
	out.RawValid = form.ScalarValidity(false)
	return out, nil
}

func inputError(f *form.Field, c command.InputError) (*form.Field, *TransitionError) {
	if f.Shape != form.ShapeScalar {
		return nil, shapeMismatch("", f.EntityPath, f.Name, "scalar error on a tabular field")
	}
	out := f.Clone()
	if c.Error == "" {
		out.Error = nil
	} else {
		out.Error = form.ScalarError(c.Error)
	}
	out.Valid = form.ScalarValidity(false)
	return out, nil
}

func inputErrorList(f *form.Field, c command.InputErrorList) (*form.Field, *TransitionError) {
	if f.Shape != form.ShapeTabular {
		return nil, shapeMismatch("", f.EntityPath, f.Name, "row error on a scalar field")
	}
	if err := checkRow(f.EntityPath, f.Name, c.RowRef); err != nil {
		return nil, err
	}
	out := f.Clone()
	out.Error = tabularError(f.Error).WithRow(c.Index, c.PropertyNameLine, c.Error)
	out.Valid = tabularValidity(f.Valid).WithRow(c.Index, c.PropertyNameLine, false)
	out.RawValid = tabularValidity(f.RawValid).WithRow(c.Index, c.PropertyNameLine, false)
	return out, nil
}

func inputErrorChangeList(f *form.Field, c command.InputErrorChangeList) (*form.Field, *TransitionError) {
	if f.Shape != form.ShapeTabular {
		return nil, shapeMismatch("", f.EntityPath, f.Name, "row raw-validation failure on a scalar field")
	}
	if err := checkRow(f.EntityPath, f.Name, c.RowRef); err != nil {
		return nil, err
	}
	out := f.Clone()
	out.RawValid = tabularValidity(f.RawValid).WithRow(c.Index, c.PropertyNameLine, false)
	return out, nil
}

// checkRow bounds a row index before WithRow grows the row slices to it.
func checkRow(entityPath, name string, row command.RowRef) *TransitionError {
	if row.Index < 0 || row.Index >= command.MaxRows {
		return rowOutOfRange(entityPath, name, row.Index)
	}
	return nil
}

// tabularValidity returns v's rows, or none when v is not tabular.
func tabularValidity(v form.Validity) form.TabularValidity {
	rows, _ := v.(form.TabularValidity)
	return rows
}

func tabularError(e form.FieldError) form.TabularError {
	rows, _ := e.(form.TabularError)
	return rows
}
