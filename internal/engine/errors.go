package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/formsync/internal/command"
)

// TransitionError explains why a command left the forms unchanged.
//
// Transition errors are not faults: the engine is total, and Apply returns
// the input state alongside the error. Callers log, count or surface them.
type TransitionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// FormKey identifies the addressed form, when there is one.
	FormKey string

	// EntityPath and FieldName identify the addressed field, when there is one.
	EntityPath string
	FieldName  string
}

// ErrorCode categorizes transition errors.
type ErrorCode string

const (
	// CodeFormNotFound indicates no form has the addressed formKey.
	CodeFormNotFound ErrorCode = "FORM_NOT_FOUND"

	// CodeFieldNotFound indicates the form has no field with the addressed
	// (entityPath, name).
	CodeFieldNotFound ErrorCode = "FIELD_NOT_FOUND"

	// CodeDuplicateForm indicates CreateForm used a formKey already present.
	CodeDuplicateForm ErrorCode = "DUPLICATE_FORM"

	// CodeShapeMismatch indicates a row-addressed command on a scalar field
	// or a scalar command on a tabular field.
	CodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// CodeRowOutOfRange indicates a row index that is negative or not below
	// command.MaxRows.
	CodeRowOutOfRange ErrorCode = "ROW_OUT_OF_RANGE"

	// CodeUnknownCommand indicates a command type the engine does not handle.
	CodeUnknownCommand ErrorCode = "UNKNOWN_COMMAND"
)

// Error implements the error interface.
func (e *TransitionError) Error() string {
	switch {
	case e.FieldName != "":
		return fmt.Sprintf("%s: %s (form=%s, field=%s.%s)", e.Code, e.Message, e.FormKey, e.EntityPath, e.FieldName)
	case e.FormKey != "":
		return fmt.Sprintf("%s: %s (form=%s)", e.Code, e.Message, e.FormKey)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Code returns the ErrorCode of err, or "" when err is not a transition error.
func Code(err error) ErrorCode {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsFormNotFound returns true if the error is a form-not-found error.
// Uses errors.As to handle wrapped errors.
func IsFormNotFound(err error) bool {
	return Code(err) == CodeFormNotFound
}

// IsFieldNotFound returns true if the error is a field-not-found error.
func IsFieldNotFound(err error) bool {
	return Code(err) == CodeFieldNotFound
}

// IsShapeMismatch returns true if the error is a shape mismatch.
func IsShapeMismatch(err error) bool {
	return Code(err) == CodeShapeMismatch
}

// IsRowOutOfRange returns true if the error is a row index out of range.
func IsRowOutOfRange(err error) bool {
	return Code(err) == CodeRowOutOfRange
}

func formNotFound(formKey string) *TransitionError {
	return &TransitionError{
		Code:    CodeFormNotFound,
		Message: "no form with this key",
		FormKey: formKey,
	}
}

func fieldNotFound(formKey, entityPath, name string) *TransitionError {
	return &TransitionError{
		Code:       CodeFieldNotFound,
		Message:    "no field with this identity",
		FormKey:    formKey,
		EntityPath: entityPath,
		FieldName:  name,
	}
}

func shapeMismatch(formKey, entityPath, name, message string) *TransitionError {
	return &TransitionError{
		Code:       CodeShapeMismatch,
		Message:    message,
		FormKey:    formKey,
		EntityPath: entityPath,
		FieldName:  name,
	}
}

func rowOutOfRange(entityPath, name string, index int) *TransitionError {
	return &TransitionError{
		Code:       CodeRowOutOfRange,
		Message:    fmt.Sprintf("row index %d outside [0, %d)", index, command.MaxRows),
		EntityPath: entityPath,
		FieldName:  name,
	}
}
