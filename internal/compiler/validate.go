package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/reconcile"
)

// Validation error codes (E100-E199)
const (
	// Form errors (E101-E104)
	ErrFormKeyEmpty        = "E101" // form key is required
	ErrDuplicateFormKey    = "E102" // two definitions share a form key
	ErrEntityPathEmpty     = "E103" // entity path entries must be non-empty
	ErrDuplicateEntityPath = "E104" // entity path listed twice

	// Field errors (E110-E119)
	ErrFieldNameEmpty       = "E110" // field name is required
	ErrDuplicateField       = "E111" // (entityPath, name) repeated within a form
	ErrUnlistenedEntityPath = "E112" // field entity path is not one the form listens to
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Form    string `json:"form,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Form != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Form, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled form definitions as a set.
// Returns all errors found (does not fail-fast).
func Validate(defs []command.CreateForm) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for i, def := range defs {
		if strings.TrimSpace(def.FormKey) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("forms[%d].formKey", i),
				Message: "form key is required and must be non-empty",
				Code:    ErrFormKeyEmpty,
			})
		} else if seen[def.FormKey] {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   "formKey",
				Message: fmt.Sprintf("duplicate form key: %q", def.FormKey),
				Code:    ErrDuplicateFormKey,
			})
		}
		seen[def.FormKey] = true

		errs = append(errs, validateForm(def)...)
	}

	return errs
}

func validateForm(def command.CreateForm) []ValidationError {
	var errs []ValidationError

	for i, path := range def.EntityPaths {
		field := fmt.Sprintf("entityPaths[%d]", i)
		if strings.TrimSpace(path) == "" {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   field,
				Message: "entity path must be non-empty",
				Code:    ErrEntityPathEmpty,
			})
			continue
		}
		if slices.Index(def.EntityPaths, path) < i {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   field,
				Message: fmt.Sprintf("duplicate entity path: %q", path),
				Code:    ErrDuplicateEntityPath,
			})
		}
	}

	fields := make(map[reconcile.Key]bool)
	for i, fd := range def.Fields {
		prefix := fmt.Sprintf("fields[%d]", i)
		if strings.TrimSpace(fd.Name) == "" {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   prefix + ".name",
				Message: "field name is required and must be non-empty",
				Code:    ErrFieldNameEmpty,
			})
			continue
		}

		key := reconcile.Key{EntityPath: fd.EntityPath, Name: fd.Name}
		if fields[key] {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   prefix,
				Message: fmt.Sprintf("duplicate field %s.%s", fd.EntityPath, fd.Name),
				Code:    ErrDuplicateField,
			})
		}
		fields[key] = true

		if !slices.Contains(def.EntityPaths, fd.EntityPath) {
			errs = append(errs, ValidationError{
				Form:    def.FormKey,
				Field:   prefix + ".entityPath",
				Message: fmt.Sprintf("field %q uses entity path %q which the form does not listen to", fd.Name, fd.EntityPath),
				Code:    ErrUnlistenedEntityPath,
			})
		}
	}

	return errs
}
