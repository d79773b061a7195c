package form

import (
	"slices"

	"github.com/roach88/formsync/internal/reconcile"
)

// Form is one user-editable form.
type Form struct {
	FormKey     string
	EntityPaths []string
	Editing     bool
	Saving      bool
	Loading     bool
	Error       bool
	Fields      []*Field
}

// Clone returns a shallow copy sharing the fields slice.
func (f *Form) Clone() *Form {
	cp := *f
	return &cp
}

// Listens reports whether the form references entityPath.
func (f *Form) Listens(entityPath string) bool {
	return slices.Contains(f.EntityPaths, entityPath)
}

// FieldIndex returns the position of the field identified by
// (entityPath, name), or -1.
func (f *Form) FieldIndex(entityPath, name string) int {
	return reconcile.IndexOf(f.Fields, KeyOf, reconcile.KeyOf(entityPath, name))
}

// Field returns the field identified by (entityPath, name).
func (f *Form) Field(entityPath, name string) (*Field, bool) {
	if i := f.FieldIndex(entityPath, name); i >= 0 {
		return f.Fields[i], true
	}
	return nil, false
}

// WithField returns a copy of the form whose field at i is replaced.
func (f *Form) WithField(i int, field *Field) *Form {
	out := f.Clone()
	out.Fields = slices.Clone(f.Fields)
	out.Fields[i] = field
	return out
}

// WithFieldAppended returns a copy of the form with field appended.
func (f *Form) WithFieldAppended(field *Field) *Form {
	out := f.Clone()
	out.Fields = append(slices.Clip(f.Fields), field)
	return out
}

// AnyLoading reports whether any field is loading.
func AnyLoading(fields []*Field) bool {
	return slices.ContainsFunc(fields, func(f *Field) bool { return f.Loading })
}

// AnySaving reports whether any field is saving.
func AnySaving(fields []*Field) bool {
	return slices.ContainsFunc(fields, func(f *Field) bool { return f.Saving })
}

// AnyError reports whether any field carries an error.
func AnyError(fields []*Field) bool {
	return slices.ContainsFunc(fields, (*Field).HasError)
}

// DedupeFields drops fields whose identity already appeared, keeping the first.
func DedupeFields(fields []*Field) []*Field {
	return reconcile.Dedupe(fields, KeyOf)
}

// Forms is the ordered collection of forms.
type Forms []*Form

// Index returns the position of the first form with formKey, or -1.
func (fs Forms) Index(formKey string) int {
	return slices.IndexFunc(fs, func(f *Form) bool { return f.FormKey == formKey })
}

// Find returns the first form with formKey.
func (fs Forms) Find(formKey string) (*Form, bool) {
	if i := fs.Index(formKey); i >= 0 {
		return fs[i], true
	}
	return nil, false
}

// With returns a copy of the collection whose form at i is replaced.
func (fs Forms) With(i int, f *Form) Forms {
	out := slices.Clone(fs)
	out[i] = f
	return out
}

// Keys returns the form keys in order.
func (fs Forms) Keys() []string {
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.FormKey
	}
	return keys
}
