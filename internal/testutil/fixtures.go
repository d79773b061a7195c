package testutil

import (
	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
)

// MovieForm is the form used throughout the tests: one entity path with a
// scalar title and year and a tabular cast.
func MovieForm() command.CreateForm {
	return command.CreateForm{
		FormKey:     "movieForm",
		EntityPaths: []string{"movie"},
		Fields: []form.FieldDef{
			{Name: "title", EntityPath: "movie"},
			{Name: "year", EntityPath: "movie"},
			{Name: "cast", EntityPath: "movie", Tabular: true},
		},
	}
}

// MovieField addresses a field of MovieForm.
func MovieField(name string) command.FieldRef {
	return command.FieldRef{FormKey: "movieForm", FieldName: name, EntityPath: "movie"}
}
