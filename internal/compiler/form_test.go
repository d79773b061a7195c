package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/value"
)

func compileFormValue(t *testing.T, src, path string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func TestCompileFormBasic(t *testing.T) {
	v := compileFormValue(t, `
		form: movieForm: {
			entityPaths: ["movie"]
			fields: [
				{name: "title", entityPath: "movie"},
				{name: "cast", entityPath: "movie", tabular: true},
			]
		}
	`, "form.movieForm")

	cmd, err := CompileForm(v)
	require.NoError(t, err)

	assert.Equal(t, "movieForm", cmd.FormKey)
	assert.Equal(t, []string{"movie"}, cmd.EntityPaths)
	require.Len(t, cmd.Fields, 2)
	assert.Equal(t, form.FieldDef{Name: "title", EntityPath: "movie"}, cmd.Fields[0])
	assert.True(t, cmd.Fields[1].Tabular)
}

func TestCompileFormInheritsSingleEntityPath(t *testing.T) {
	v := compileFormValue(t, `
		form: movieForm: {
			entityPaths: ["movie"]
			fields: [{name: "title"}]
		}
	`, "form.movieForm")

	cmd, err := CompileForm(v)
	require.NoError(t, err)
	assert.Equal(t, "movie", cmd.Fields[0].EntityPath)
}

func TestCompileFormAmbiguousEntityPath(t *testing.T) {
	v := compileFormValue(t, `
		form: castingForm: {
			entityPaths: ["movie", "actor"]
			fields: [{name: "title"}]
		}
	`, "form.castingForm")

	_, err := CompileForm(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fields[0].entityPath", ce.Field)
}

func TestCompileFormAttributes(t *testing.T) {
	v := compileFormValue(t, `
		form: movieForm: {
			entityPaths: ["movie"]
			fields: [{
				name:    "year"
				default: 1999
				label:   "Release year"
				rating:  4.5
				tags:    ["a", "b"]
				meta:    {hidden: false, note: null}
			}]
		}
	`, "form.movieForm")

	cmd, err := CompileForm(v)
	require.NoError(t, err)

	attrs := cmd.Fields[0].Attributes
	assert.Equal(t, value.Int(1999), attrs[form.AttrValue])
	assert.Equal(t, value.String("Release year"), attrs["label"])
	assert.Equal(t, value.Float(4.5), attrs["rating"])
	assert.Equal(t, value.Array{value.String("a"), value.String("b")}, attrs["tags"])
	assert.Equal(t, value.Object{"hidden": value.Bool(false), "note": value.Null{}}, attrs["meta"])
	assert.NotContains(t, attrs, "name")
	assert.NotContains(t, attrs, "default")
}

func TestCompileFormExplicitKey(t *testing.T) {
	v := compileFormValue(t, `
		form: movie: {
			formKey: "movieForm"
		}
	`, "form.movie")

	cmd, err := CompileForm(v)
	require.NoError(t, err)
	assert.Equal(t, "movieForm", cmd.FormKey)
	assert.Empty(t, cmd.EntityPaths)
	assert.Empty(t, cmd.Fields)
}

func TestCompileFormMissingFieldName(t *testing.T) {
	v := compileFormValue(t, `
		form: movieForm: {
			entityPaths: ["movie"]
			fields: [{tabular: true}]
		}
	`, "form.movieForm")

	_, err := CompileForm(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestCompileFormWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "tabular not bool",
			src:   `form: f: {entityPaths: ["movie"], fields: [{name: "title", tabular: "yes"}]}`,
			field: "fields[0].tabular",
		},
		{
			name:  "entity paths not strings",
			src:   `form: f: {entityPaths: [1]}`,
			field: "entityPaths",
		},
		{
			name:  "field not struct",
			src:   `form: f: {entityPaths: ["movie"], fields: ["title"]}`,
			field: "fields[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileForm(compileFormValue(t, tt.src, "form.f"))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileFormIncompleteAttribute(t *testing.T) {
	v := compileFormValue(t, `
		form: movieForm: {
			entityPaths: ["movie"]
			fields: [{name: "title", label: string}]
		}
	`, "form.movieForm")

	_, err := CompileForm(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concrete")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "fields[0].name", Message: "name is required"}
	assert.Equal(t, "fields[0].name: name is required", err.Error())
}
