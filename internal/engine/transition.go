package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/reconcile"
	"github.com/roach88/formsync/internal/value"
)

// Transition applies cmd to forms and returns the next state. It never fails:
// a command that cannot apply returns forms unchanged.
func Transition(forms form.Forms, cmd command.Command) form.Forms {
	next, _ := Apply(forms, cmd)
	return next
}

// Apply is Transition with the reason for a no-op. When the returned error is
// non-nil it is a *TransitionError and the returned state is forms itself.
//
// Neither forms nor anything reachable from it is modified. Forms and fields
// the command does not touch are shared between the input and output.
func Apply(forms form.Forms, cmd command.Command) (form.Forms, error) {
	var (
		next form.Forms
		err  *TransitionError
	)
	switch c := cmd.(type) {
	case command.CreateForm:
		next, err = createForm(forms, c)
	case command.DestroyForm:
		next, err = destroyForm(forms, c)
	case command.ClearForm:
		next, err = updateForm(forms, c.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
			return clearForm(f, c.DefaultData), nil
		})
	case command.SyncFormsEntity:
		next, err = syncFormsEntity(forms, c)
	case command.SyncFormEntities:
		next, err = updateForm(forms, c.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
			out := f.Clone()
			fields := slices.DeleteFunc(slices.Clone(c.Fields), func(f *form.Field) bool { return f == nil })
			out.Fields = form.DedupeFields(fields)
			return out, nil
		})
	case command.InputChange:
		next, err = updateForm(forms, c.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
			return inputChange(f, c)
		})
	case command.InputChangeError:
		next, err = updateField(forms, c.FieldRef, inputChangeError)
	case command.InputError:
		next, err = updateField(forms, c.FieldRef, func(f *form.Field) (*form.Field, *TransitionError) {
			return inputError(f, c)
		})
	case command.InputErrorList:
		next, err = updateField(forms, c.FieldRef, func(f *form.Field) (*form.Field, *TransitionError) {
			return inputErrorList(f, c)
		})
	case command.InputErrorChangeList:
		next, err = updateField(forms, c.FieldRef, func(f *form.Field) (*form.Field, *TransitionError) {
			return inputErrorChangeList(f, c)
		})
	case command.ToggleFormEditing:
		next, err = updateForm(forms, c.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
			return toggleEditing(f, c.Editing), nil
		})
	case command.SetFormToSaving:
		next, err = updateForm(forms, c.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
			return setSaving(f), nil
		})
	default:
		err = &TransitionError{
			Code:    CodeUnknownCommand,
			Message: fmt.Sprintf("unhandled command %T", cmd),
		}
	}
	if err != nil {
		return forms, err
	}
	return next, nil
}

// updateForm replaces the first form with formKey by fn's result.
func updateForm(
	forms form.Forms,
	formKey string,
	fn func(*form.Form) (*form.Form, *TransitionError),
) (form.Forms, *TransitionError) {
	i := forms.Index(formKey)
	if i < 0 {
		return nil, formNotFound(formKey)
	}
	updated, err := fn(forms[i])
	if err != nil {
		return nil, err
	}
	return forms.With(i, updated), nil
}

// updateField replaces the field addressed by ref by fn's result.
func updateField(
	forms form.Forms,
	ref command.FieldRef,
	fn func(*form.Field) (*form.Field, *TransitionError),
) (form.Forms, *TransitionError) {
	return updateForm(forms, ref.FormKey, func(f *form.Form) (*form.Form, *TransitionError) {
		i := f.FieldIndex(ref.EntityPath, ref.FieldName)
		if i < 0 {
			return nil, fieldNotFound(ref.FormKey, ref.EntityPath, ref.FieldName)
		}
		updated, err := fn(f.Fields[i])
		if err != nil {
			err.FormKey = ref.FormKey
			return nil, err
		}
		return f.WithField(i, updated), nil
	})
}

func createForm(forms form.Forms, c command.CreateForm) (form.Forms, *TransitionError) {
	if forms.Index(c.FormKey) >= 0 {
		return nil, &TransitionError{
			Code:    CodeDuplicateForm,
			Message: "a form with this key already exists",
			FormKey: c.FormKey,
		}
	}
	defs := reconcile.Dedupe(c.Fields, func(d form.FieldDef) reconcile.Key {
		return reconcile.KeyOf(d.EntityPath, d.Name)
	})
	fields := make([]*form.Field, len(defs))
	for i, def := range defs {
		fields[i] = form.InitializeField(def)
	}
	paths := slices.Clone(c.EntityPaths)
	if paths == nil {
		paths = []string{}
	}
	created := &form.Form{
		FormKey:     c.FormKey,
		EntityPaths: paths,
		Fields:      fields,
	}
	return append(slices.Clip(forms), created), nil
}

func destroyForm(forms form.Forms, c command.DestroyForm) (form.Forms, *TransitionError) {
	if forms.Index(c.FormKey) < 0 {
		return nil, formNotFound(c.FormKey)
	}
	return slices.DeleteFunc(slices.Clone(forms), func(f *form.Form) bool {
		return f.FormKey == c.FormKey
	}), nil
}

func clearForm(f *form.Form, defaults value.Object) *form.Form {
	out := f.Clone()
	out.Fields = make([]*form.Field, len(f.Fields))
	for i, field := range f.Fields {
		v, ok := defaults[field.Name]
		if !ok {
			v = value.Null{}
		}
		cleared := field.Clone()
		cleared.FormattedInputValue = value.OrNull(v)
		cleared.RawInputValue = value.OrNull(v)
		cleared.DataSetValue = value.OrNull(v)
		out.Fields[i] = cleared
	}
	return out
}

// toggleEditing sets the editing flag. Leaving editing discards unsaved
// input: the raw value reverts to the last synced value and validation is
// cleared.
func toggleEditing(f *form.Form, editing bool) *form.Form {
	out := f.Clone()
	out.Editing = editing
	if editing {
		return out
	}
	out.Fields = make([]*form.Field, len(f.Fields))
	for i, field := range f.Fields {
		reverted := field.Clone()
		reverted.RawInputValue = value.OrNull(field.DataSetValue)
		reverted.Error = nil
		reverted.Valid = form.ResetValidity(field.Shape)
		out.Fields[i] = reverted
	}
	out.Error = false
	return out
}

// setSaving enters the saving state with optimistic validation.
func setSaving(f *form.Form) *form.Form {
	out := f.Clone()
	out.Saving = true
	out.Error = false
	out.Fields = make([]*form.Field, len(f.Fields))
	for i, field := range f.Fields {
		reset := field.Clone()
		reset.Valid = form.ResetValidity(field.Shape)
		reset.Error = nil
		out.Fields[i] = reset
	}
	return out
}
