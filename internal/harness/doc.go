// Package harness runs YAML form scenarios against the real Runtime.
//
// A scenario names optional CUE form definitions, an ordered list of wire
// commands, and assertions on the final forms collection:
//
//	name: movie_input
//	description: typing a title marks the field dirty
//	defs: [defs/movie.cue]
//	steps:
//	  - command: {type: INPUT_CHANGE, formKey: movieForm, entityPath: movie,
//	              fieldName: title, rawValue: Matrix, formattedValue: Matrix}
//	  - command: {type: DESTROY_FORM, formKey: ghost}
//	    expect: FORM_NOT_FOUND
//	assertions:
//	  - type: field_state
//	    form: movieForm
//	    entity_path: movie
//	    field: title
//	    expect: {dirty: true, rawInputValue: Matrix}
//
// Every definition becomes a CREATE_FORM step ahead of the listed steps.
// Each run uses a fresh in-memory store as the Runtime's recorder and a
// fixed session ID, so the command log and trace are byte-identical across
// runs. After the steps, the session is replayed from the store and any
// replay mismatch fails the scenario.
package harness
