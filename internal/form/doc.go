// Package form defines the form and field data model.
//
// A Form listens to one or more entity paths and owns an ordered list of
// Fields. A Field is identified by (EntityPath, Name) and carries the user's
// raw and formatted input, the value last synced from entity data, and
// validation state.
//
// Validation state depends on the field's Shape. Scalar fields hold a single
// validity flag and an optional error message. Tabular fields hold one record
// per row, keyed by property name:
//
//	Valid = TabularValidity{{"name": true}, {"name": false}}
//	Error = TabularError{{}, {"name": "required"}}
//
// Forms, Fields and the slices they hold are treated as immutable once built.
// Updates go through the copy helpers here so that unchanged forms and fields
// keep their pointer identity across transitions.
package form
