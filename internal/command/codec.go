package command

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/value"
)

// DecodeError reports a malformed wire command.
type DecodeError struct {
	Type    Type
	Key     string
	Message string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Type == "" && e.Key == "":
		return "decode command: " + e.Message
	case e.Type == "":
		return fmt.Sprintf("decode command: %s: %s", e.Key, e.Message)
	case e.Key == "":
		return fmt.Sprintf("decode %s: %s", e.Type, e.Message)
	default:
		return fmt.Sprintf("decode %s: %s: %s", e.Type, e.Key, e.Message)
	}
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Marshal encodes cmd as a flat JSON object with a "type" tag.
func Marshal(cmd Command) ([]byte, error) {
	obj := Payload(cmd)
	obj["type"] = value.String(cmd.Type())
	return value.Marshal(obj)
}

// Unmarshal decodes a wire command.
func Unmarshal(data []byte) (Command, error) {
	v, err := value.Unmarshal(data)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	obj, ok := v.(value.Object)
	if !ok {
		return nil, &DecodeError{Message: fmt.Sprintf("expected object, got %T", v)}
	}
	return Decode(obj)
}

// Payload returns the command's wire keys without the "type" tag. It is the
// input to content addressing, so the encoding must stay stable.
func Payload(cmd Command) value.Object {
	switch c := cmd.(type) {
	case CreateForm:
		fields := make(value.Array, len(c.Fields))
		for i, def := range c.Fields {
			fields[i] = fieldDefToValue(def)
		}
		return value.Object{
			"formKey":         value.String(c.FormKey),
			"entityPathArray": stringsToValue(c.EntityPaths),
			"fields":          fields,
		}
	case DestroyForm:
		return value.Object{"formKey": value.String(c.FormKey)}
	case ClearForm:
		obj := value.Object{"formKey": value.String(c.FormKey), "defaultData": value.Null{}}
		if c.DefaultData != nil {
			obj["defaultData"] = c.DefaultData
		}
		return obj
	case SyncFormsEntity:
		fields := make(value.Array, len(c.Fields))
		for i, f := range c.Fields {
			rec := f.Attributes.Clone()
			if rec == nil {
				rec = value.Object{}
			}
			rec[form.AttrName] = value.String(f.Name)
			rec[form.AttrEntityPath] = value.String(f.EntityPath)
			fields[i] = rec
		}
		return value.Object{"entityPath": value.String(c.EntityPath), "fields": fields}
	case SyncFormEntities:
		fields := make(value.Array, len(c.Fields))
		for i, f := range c.Fields {
			fields[i] = f.ToValue()
		}
		return value.Object{"formKey": value.String(c.FormKey), "fields": fields}
	case InputChange:
		obj := fieldRefToValue(c.FieldRef)
		obj["rawValue"] = value.OrNull(c.RawValue)
		obj["formattedValue"] = value.OrNull(c.FormattedValue)
		if c.Row != nil {
			addRow(obj, *c.Row)
		}
		return obj
	case InputChangeError:
		return fieldRefToValue(c.FieldRef)
	case InputError:
		obj := fieldRefToValue(c.FieldRef)
		obj["error"] = value.String(c.Error)
		return obj
	case InputErrorList:
		obj := fieldRefToValue(c.FieldRef)
		addRow(obj, c.RowRef)
		obj["error"] = value.String(c.Error)
		return obj
	case InputErrorChangeList:
		obj := fieldRefToValue(c.FieldRef)
		addRow(obj, c.RowRef)
		return obj
	case ToggleFormEditing:
		return value.Object{"formKey": value.String(c.FormKey), "editing": value.Bool(c.Editing)}
	case SetFormToSaving:
		return value.Object{"formKey": value.String(c.FormKey)}
	default:
		return value.Object{}
	}
}

// Decode builds a command from a wire object such as one read from YAML
// or JSON.
func Decode(obj value.Object) (Command, error) {
	tag, ok := obj["type"].(value.String)
	if !ok {
		return nil, &DecodeError{Key: "type", Message: "required string"}
	}
	d := decoder{t: Type(tag), obj: obj}

	var cmd Command
	switch d.t {
	case TypeCreateForm:
		cmd = CreateForm{
			FormKey:     d.str("formKey"),
			EntityPaths: d.strings("entityPathArray"),
			Fields:      d.fieldDefs("fields"),
		}
	case TypeDestroyForm:
		cmd = DestroyForm{FormKey: d.str("formKey")}
	case TypeClearForm:
		cmd = ClearForm{FormKey: d.str("formKey"), DefaultData: d.optObject("defaultData")}
	case TypeSyncFormsEntity:
		path := d.str("entityPath")
		cmd = SyncFormsEntity{EntityPath: path, Fields: d.entityFields("fields", path)}
	case TypeSyncFormEntities:
		cmd = SyncFormEntities{FormKey: d.str("formKey"), Fields: d.fields("fields")}
	case TypeInputChange:
		c := InputChange{
			FieldRef:       d.fieldRef(),
			RawValue:       value.OrNull(obj["rawValue"]),
			FormattedValue: value.OrNull(obj["formattedValue"]),
		}
		_, hasIndex := obj["index"]
		_, hasProp := obj["propertyNameLine"]
		if hasIndex || hasProp {
			row := d.row()
			c.Row = &row
		}
		cmd = c
	case TypeInputChangeError:
		cmd = InputChangeError{FieldRef: d.fieldRef()}
	case TypeInputError:
		cmd = InputError{FieldRef: d.fieldRef(), Error: d.str("error")}
	case TypeInputErrorList:
		cmd = InputErrorList{FieldRef: d.fieldRef(), RowRef: d.row(), Error: d.str("error")}
	case TypeInputErrorChangeList:
		cmd = InputErrorChangeList{FieldRef: d.fieldRef(), RowRef: d.row()}
	case TypeToggleFormEditing:
		cmd = ToggleFormEditing{FormKey: d.str("formKey"), Editing: d.boolean("editing")}
	case TypeSetFormToSaving:
		cmd = SetFormToSaving{FormKey: d.str("formKey")}
	default:
		return nil, &DecodeError{Type: d.t, Key: "type", Message: "unknown command type"}
	}
	if d.err != nil {
		return nil, d.err
	}
	return cmd, nil
}

// decoder accumulates the first error so the switch above stays flat.
type decoder struct {
	t   Type
	obj value.Object
	err error
}

func (d *decoder) fail(key, format string, args ...any) {
	if d.err == nil {
		d.err = &DecodeError{Type: d.t, Key: key, Message: fmt.Sprintf(format, args...)}
	}
}

func (d *decoder) str(key string) string {
	s, ok := d.obj[key].(value.String)
	if !ok {
		d.fail(key, "required string")
		return ""
	}
	return string(s)
}

func (d *decoder) boolean(key string) bool {
	b, ok := d.obj[key].(value.Bool)
	if !ok {
		d.fail(key, "required bool")
		return false
	}
	return bool(b)
}

func (d *decoder) strings(key string) []string {
	arr, ok := d.obj[key].(value.Array)
	if !ok {
		d.fail(key, "required array of strings")
		return nil
	}
	out := make([]string, 0, len(arr))
	for i, elem := range arr {
		s, ok := elem.(value.String)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", key, i), "expected string, got %T", elem)
			return nil
		}
		out = append(out, string(s))
	}
	return out
}

func (d *decoder) optObject(key string) value.Object {
	switch v := d.obj[key].(type) {
	case nil, value.Null:
		return nil
	case value.Object:
		return v
	default:
		d.fail(key, "expected object or null, got %T", v)
		return nil
	}
}

func (d *decoder) records(key string) []value.Object {
	arr, ok := d.obj[key].(value.Array)
	if !ok {
		d.fail(key, "required array of objects")
		return nil
	}
	out := make([]value.Object, 0, len(arr))
	for i, elem := range arr {
		rec, ok := elem.(value.Object)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", key, i), "expected object, got %T", elem)
			return nil
		}
		out = append(out, rec)
	}
	return out
}

func (d *decoder) fieldDefs(key string) []form.FieldDef {
	recs := d.records(key)
	defs := make([]form.FieldDef, 0, len(recs))
	for i, rec := range recs {
		name, ok := rec[form.AttrName].(value.String)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d].name", key, i), "required string")
			return nil
		}
		path, _ := rec[form.AttrEntityPath].(value.String)
		tabular, _ := rec[form.AttrTabular].(value.Bool)
		attrs := rec.Clone()
		delete(attrs, form.AttrName)
		delete(attrs, form.AttrEntityPath)
		delete(attrs, form.AttrTabular)
		if len(attrs) == 0 {
			attrs = nil
		}
		defs = append(defs, form.FieldDef{
			Name:       string(name),
			EntityPath: string(path),
			Tabular:    bool(tabular),
			Attributes: attrs,
		})
	}
	return defs
}

// entityFields decodes sync records. A record without entityPath belongs to
// the command's path.
func (d *decoder) entityFields(key, defaultPath string) []EntityField {
	recs := d.records(key)
	out := make([]EntityField, 0, len(recs))
	for _, rec := range recs {
		name, _ := rec[form.AttrName].(value.String)
		path, ok := rec[form.AttrEntityPath].(value.String)
		if !ok {
			path = value.String(defaultPath)
		}
		attrs := rec.Clone()
		delete(attrs, form.AttrName)
		delete(attrs, form.AttrEntityPath)
		out = append(out, EntityField{Name: string(name), EntityPath: string(path), Attributes: attrs})
	}
	return out
}

func (d *decoder) fields(key string) []*form.Field {
	recs := d.records(key)
	out := make([]*form.Field, 0, len(recs))
	for i, rec := range recs {
		f, err := form.FieldFromValue(rec)
		if err != nil {
			d.fail(fmt.Sprintf("%s[%d]", key, i), "%v", err)
			return nil
		}
		out = append(out, f)
	}
	return out
}

func (d *decoder) fieldRef() FieldRef {
	return FieldRef{
		FormKey:    d.str("formKey"),
		FieldName:  d.str("fieldName"),
		EntityPath: d.str("entityPath"),
	}
}

func (d *decoder) row() RowRef {
	return RowRef{Index: d.index("index"), PropertyNameLine: d.str("propertyNameLine")}
}

func (d *decoder) index(key string) int {
	var n float64
	switch v := d.obj[key].(type) {
	case value.Int:
		n = float64(v)
	case value.Float:
		n = float64(v)
	default:
		d.fail(key, "required non-negative integer")
		return 0
	}
	if n < 0 || n != math.Trunc(n) {
		d.fail(key, "required non-negative integer, got %v", n)
		return 0
	}
	if n >= MaxRows {
		d.fail(key, "row index %v out of range, max %d", n, MaxRows-1)
		return 0
	}
	return int(n)
}

func fieldRefToValue(r FieldRef) value.Object {
	return value.Object{
		"formKey":    value.String(r.FormKey),
		"fieldName":  value.String(r.FieldName),
		"entityPath": value.String(r.EntityPath),
	}
}

func addRow(obj value.Object, row RowRef) {
	obj["index"] = value.Int(row.Index)
	obj["propertyNameLine"] = value.String(row.PropertyNameLine)
}

func fieldDefToValue(def form.FieldDef) value.Object {
	rec := def.Attributes.Clone()
	if rec == nil {
		rec = value.Object{}
	}
	rec[form.AttrName] = value.String(def.Name)
	rec[form.AttrEntityPath] = value.String(def.EntityPath)
	if def.Tabular {
		rec[form.AttrTabular] = value.Bool(true)
	}
	return rec
}

func stringsToValue(ss []string) value.Array {
	out := make(value.Array, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}
