package engine

import (
	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/reconcile"
)

// syncFormsEntity merges entity fields into every form listening to the
// command's entity path.
//
// Matching fields take the incoming attributes and become clean. Incoming
// fields with no counterpart are initialized and appended, unless they carry
// a dirty attribute: those are form fields echoed back and are never added.
// Fields absent from the payload are left alone.
func syncFormsEntity(forms form.Forms, c command.SyncFormsEntity) (form.Forms, *TransitionError) {
	incoming := validEntityFields(c.Fields)

	var next form.Forms
	for i, f := range forms {
		if !f.Listens(c.EntityPath) {
			continue
		}
		if next == nil {
			next = append(form.Forms(nil), forms...)
		}
		next[i] = syncForm(f, incoming)
	}
	if next == nil {
		return forms, nil
	}
	return next, nil
}

func syncForm(f *form.Form, incoming []command.EntityField) *form.Form {
	out := f.Clone()
	out.Fields = make([]*form.Field, len(f.Fields), len(f.Fields)+len(incoming))

	for i, field := range f.Fields {
		candidate, ok := reconcile.Find(incoming, command.EntityFieldKey, field.Key())
		if !ok {
			out.Fields[i] = field
			continue
		}
		merged := form.MergeAttributes(field, candidate.Attributes)
		merged.Dirty = false
		out.Fields[i] = merged
	}

	join := reconcile.OuterJoin(f.Fields, incoming, form.KeyOf, command.EntityFieldKey)
	for _, added := range join.OnlyRight {
		if _, echoed := added.Attributes[form.AttrDirty]; echoed {
			continue
		}
		out.Fields = append(out.Fields, form.FromAttributes(added.Name, added.EntityPath, added.Attributes))
	}

	out.Loading = form.AnyLoading(out.Fields)
	out.Error = form.AnyError(out.Fields)
	if out.Saving {
		out.Saving = form.AnySaving(out.Fields)
	}
	return out
}

// validEntityFields drops records that cannot identify a field.
func validEntityFields(fields []command.EntityField) []command.EntityField {
	var out []command.EntityField
	for _, f := range fields {
		if f.Name == "" || f.EntityPath == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
