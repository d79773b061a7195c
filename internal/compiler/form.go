package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/value"
)

// Definition keys recognised on a field. Every other key becomes a field
// attribute.
const (
	keyName       = "name"
	keyEntityPath = "entityPath"
	keyTabular    = "tabular"
	keyDefault    = "default"
)

// CompileForm parses a CUE form definition into a CreateForm command.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the form struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`form: movieForm: { ... }`)
//	cmd, err := CompileForm(v.LookupPath(cue.ParsePath("form.movieForm")))
//
// The form key comes from the struct label unless formKey is set.
func CompileForm(v cue.Value) (*command.CreateForm, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cmd := &command.CreateForm{EntityPaths: []string{}}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sel := labels[len(labels)-1]
		if sel.LabelType() == cue.StringLabel {
			cmd.FormKey = sel.Unquoted()
		} else {
			cmd.FormKey = sel.String()
		}
	}
	if keyVal := v.LookupPath(cue.ParsePath("formKey")); keyVal.Exists() {
		key, err := keyVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cmd.FormKey = key
	}
	if cmd.FormKey == "" {
		return nil, &CompileError{
			Field:   "formKey",
			Message: "form key is required",
			Pos:     v.Pos(),
		}
	}

	pathsVal := v.LookupPath(cue.ParsePath("entityPaths"))
	if pathsVal.Exists() {
		paths, err := parseStrings(pathsVal, "entityPaths")
		if err != nil {
			return nil, err
		}
		cmd.EntityPaths = paths
	}

	fields, err := parseFields(v, cmd.EntityPaths)
	if err != nil {
		return nil, err
	}
	cmd.Fields = fields

	return cmd, nil
}

func parseStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "must be a list of strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// parseFields extracts the field definitions. A field without entityPath
// inherits the form's path when the form listens to exactly one.
func parseFields(v cue.Value, formPaths []string) ([]form.FieldDef, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return []form.FieldDef{}, nil
	}

	iter, err := fieldsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	defs := []form.FieldDef{}
	for i := 0; iter.Next(); i++ {
		def, err := parseField(iter.Value(), formPaths, i)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseField(v cue.Value, formPaths []string, i int) (form.FieldDef, error) {
	var def form.FieldDef
	where := fmt.Sprintf("fields[%d]", i)

	iter, err := v.Fields()
	if err != nil {
		return def, &CompileError{
			Field:   where,
			Message: "field definition must be a struct",
			Pos:     v.Pos(),
		}
	}

	for iter.Next() {
		label := iter.Label()
		fv := iter.Value()
		switch label {
		case keyName:
			def.Name, err = fv.String()
		case keyEntityPath:
			def.EntityPath, err = fv.String()
		case keyTabular:
			def.Tabular, err = fv.Bool()
		default:
			var attr value.Value
			attr, err = toValue(fv)
			if err == nil {
				if label == keyDefault {
					label = form.AttrValue
				}
				if def.Attributes == nil {
					def.Attributes = value.Object{}
				}
				def.Attributes[label] = attr
			}
		}
		if err != nil {
			if ce, ok := err.(*CompileError); ok {
				return def, ce
			}
			return def, &CompileError{
				Field:   where + "." + label,
				Message: cueMessage(err),
				Pos:     fv.Pos(),
			}
		}
	}

	if def.Name == "" {
		return def, &CompileError{
			Field:   where + ".name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	if def.EntityPath == "" {
		if len(formPaths) != 1 {
			return def, &CompileError{
				Field:   where + ".entityPath",
				Message: fmt.Sprintf("entityPath is required for field %q when the form does not listen to exactly one entity path", def.Name),
				Pos:     v.Pos(),
			}
		}
		def.EntityPath = formPaths[0]
	}
	return def, nil
}

// toValue converts a concrete CUE value into a form value.
func toValue(v cue.Value) (value.Value, error) {
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   "value",
			Message: "attribute values must be concrete",
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return value.Bool(b), err
	case cue.IntKind:
		n, err := v.Int64()
		return value.Int(n), err
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return value.Float(f), err
	case cue.StringKind:
		s, err := v.String()
		return value.String(s), err
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := value.Array{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := value.Object{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

func cueMessage(err error) string {
	if errs := errors.Errors(err); len(errs) > 0 {
		return errs[0].Error()
	}
	return err.Error()
}
