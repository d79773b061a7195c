// Package command defines the closed set of commands the form engine accepts
// and their JSON wire envelope.
//
// Every command is a flat JSON object with a "type" tag and camelCase keys:
//
//	{"type":"INPUT_CHANGE","formKey":"movieForm","fieldName":"title",
//	 "entityPath":"movie","rawValue":"Matrix","formattedValue":"Matrix"}
package command

import (
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/reconcile"
	"github.com/roach88/formsync/internal/value"
)

// Type is the wire tag of a command.
type Type string

const (
	TypeCreateForm           Type = "CREATE_FORM"
	TypeDestroyForm          Type = "DESTROY_FORM"
	TypeClearForm            Type = "CLEAR_FORM"
	TypeSyncFormsEntity      Type = "SYNC_FORMS_ENTITY"
	TypeSyncFormEntities     Type = "SYNC_FORM_ENTITIES"
	TypeInputChange          Type = "INPUT_CHANGE"
	TypeInputChangeError     Type = "INPUT_CHANGE_ERROR"
	TypeInputError           Type = "INPUT_ERROR"
	TypeInputErrorList       Type = "INPUT_ERROR_LIST"
	TypeInputErrorChangeList Type = "INPUT_ERROR_CHANGE_LIST"
	TypeToggleFormEditing    Type = "TOGGLE_FORM_EDITING"
	TypeSetFormToSaving      Type = "SET_FORM_TO_SAVING"
)

// Types lists every command type in declaration order.
var Types = []Type{
	TypeCreateForm,
	TypeDestroyForm,
	TypeClearForm,
	TypeSyncFormsEntity,
	TypeSyncFormEntities,
	TypeInputChange,
	TypeInputChangeError,
	TypeInputError,
	TypeInputErrorList,
	TypeInputErrorChangeList,
	TypeToggleFormEditing,
	TypeSetFormToSaving,
}

// Command is a sealed interface implemented by the command structs below.
type Command interface {
	Type() Type
	command() // sealed
}

// FieldRef addresses one field of one form.
type FieldRef struct {
	FormKey    string
	FieldName  string
	EntityPath string
}

// Key returns the identity of the addressed field.
func (r FieldRef) Key() reconcile.Key {
	return reconcile.KeyOf(r.EntityPath, r.FieldName)
}

// MaxRows bounds the rows of a tabular field. A RowRef index must be below it;
// addressing a row past the end synthesizes the rows in between.
const MaxRows = 1024

// RowRef addresses one property of one row of a tabular field.
type RowRef struct {
	Index            int
	PropertyNameLine string
}

// EntityField is one field record delivered by the entity store.
type EntityField struct {
	Name       string
	EntityPath string
	// Attributes are merged verbatim into the matching form field.
	Attributes value.Object
}

// Key returns the identity of the entity field.
func (f EntityField) Key() reconcile.Key {
	return reconcile.KeyOf(f.EntityPath, f.Name)
}

// EntityFieldKey is EntityField.Key as a function value.
func EntityFieldKey(f EntityField) reconcile.Key {
	return f.Key()
}

// CreateForm appends a new form.
type CreateForm struct {
	FormKey     string
	EntityPaths []string
	Fields      []form.FieldDef
}

// DestroyForm removes every form with FormKey.
type DestroyForm struct {
	FormKey string
}

// ClearForm resets field values to null or to DefaultData[name].
// A nil DefaultData resets everything to null.
type ClearForm struct {
	FormKey     string
	DefaultData value.Object
}

// SyncFormsEntity merges entity fields into every form listening to EntityPath.
type SyncFormsEntity struct {
	EntityPath string
	Fields     []EntityField
}

// SyncFormEntities replaces the fields of one form.
type SyncFormEntities struct {
	FormKey string
	Fields  []*form.Field
}

// InputChange records a user edit. Row is set for tabular edits that
// address one row property.
type InputChange struct {
	FieldRef
	RawValue       value.Value
	FormattedValue value.Value
	Row            *RowRef
}

// InputChangeError marks the raw input of a scalar field invalid.
type InputChangeError struct {
	FieldRef
}

// InputError sets the error of a scalar field.
type InputError struct {
	FieldRef
	Error string
}

// InputErrorList sets the error of one row property of a tabular field.
type InputErrorList struct {
	FieldRef
	RowRef
	Error string
}

// InputErrorChangeList marks the raw input of one row property invalid.
type InputErrorChangeList struct {
	FieldRef
	RowRef
}

// ToggleFormEditing enters or leaves editing.
type ToggleFormEditing struct {
	FormKey string
	Editing bool
}

// SetFormToSaving enters the saving state.
type SetFormToSaving struct {
	FormKey string
}

func (CreateForm) Type() Type           { return TypeCreateForm }
func (DestroyForm) Type() Type          { return TypeDestroyForm }
func (ClearForm) Type() Type            { return TypeClearForm }
func (SyncFormsEntity) Type() Type      { return TypeSyncFormsEntity }
func (SyncFormEntities) Type() Type     { return TypeSyncFormEntities }
func (InputChange) Type() Type          { return TypeInputChange }
func (InputChangeError) Type() Type     { return TypeInputChangeError }
func (InputError) Type() Type           { return TypeInputError }
func (InputErrorList) Type() Type       { return TypeInputErrorList }
func (InputErrorChangeList) Type() Type { return TypeInputErrorChangeList }
func (ToggleFormEditing) Type() Type    { return TypeToggleFormEditing }
func (SetFormToSaving) Type() Type      { return TypeSetFormToSaving }

func (CreateForm) command()           {}
func (DestroyForm) command()          {}
func (ClearForm) command()            {}
func (SyncFormsEntity) command()      {}
func (SyncFormEntities) command()     {}
func (InputChange) command()          {}
func (InputChangeError) command()     {}
func (InputError) command()           {}
func (InputErrorList) command()       {}
func (InputErrorChangeList) command() {}
func (ToggleFormEditing) command()    {}
func (SetFormToSaving) command()      {}

// FormKeyOf returns the form a command addresses, or "" for commands that
// fan out by entity path.
func FormKeyOf(cmd Command) string {
	switch c := cmd.(type) {
	case CreateForm:
		return c.FormKey
	case DestroyForm:
		return c.FormKey
	case ClearForm:
		return c.FormKey
	case SyncFormEntities:
		return c.FormKey
	case InputChange:
		return c.FormKey
	case InputChangeError:
		return c.FormKey
	case InputError:
		return c.FormKey
	case InputErrorList:
		return c.FormKey
	case InputErrorChangeList:
		return c.FormKey
	case ToggleFormEditing:
		return c.FormKey
	case SetFormToSaving:
		return c.FormKey
	default:
		return ""
	}
}
