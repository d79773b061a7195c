package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/compiler"
	"github.com/roach88/formsync/internal/form"
)

// loadDefinitions loads, compiles and validates the CUE definitions in dir.
//
// A nil Definitions means nothing could be loaded and problems holds the one
// reason. Otherwise problems lists every compile and validation error; the
// Definitions still hold the forms that compiled.
func loadDefinitions(dir string) (*compiler.Definitions, []CLIError) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []CLIError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if !info.IsDir() {
		return nil, []CLIError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}
	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []CLIError{{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", dir, err)}}
	}
	if len(files) == 0 {
		return nil, []CLIError{{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	defs, errs := compiler.LoadDefinitions(dir)
	if defs == nil {
		problem := describeError(errs[0])
		if problem.Code == ErrCodeGeneric {
			problem.Code = ErrCodeLoadFailed
		}
		return nil, []CLIError{problem}
	}

	var problems []CLIError
	for _, err := range errs {
		problems = append(problems, describeError(err))
	}
	for _, verr := range compiler.Validate(defs.Forms) {
		problems = append(problems, describeError(verr))
	}
	return defs, problems
}

// describeError maps a definition error to its CLI code. Details holds the
// source position when there is one.
func describeError(err error) CLIError {
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return CLIError{Code: verr.Code, Message: verr.Error()}
	}
	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		e := CLIError{Code: ErrCodeCompile, Message: err.Error()}
		if cerr.Pos.IsValid() {
			e.Details = fmt.Sprintf("%s:%d:%d", cerr.Pos.Filename(), cerr.Pos.Line(), cerr.Pos.Column())
		}
		return e
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

// requireDefinitions loads dir and fails on any problem. Commands that apply
// definitions never run with a partial set.
func requireDefinitions(f *OutputFormatter, dir string) ([]command.CreateForm, error) {
	defs, problems := loadDefinitions(dir)
	if len(problems) > 0 {
		_ = f.Error(problems[0].Code, problems[0].Message, problems)
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("definitions in %s: %d problem(s)", dir, len(problems)))
	}
	f.VerboseLog("Loaded %d form definition(s) from %d file(s)", len(defs.Forms), defs.Files)
	return defs.Forms, nil
}

// missingForms returns a CreateForm for every definition whose form is not
// already in state, so resuming a log does not produce DUPLICATE_FORM noise.
func missingForms(defs []command.CreateForm, state form.Forms) []command.Command {
	var cmds []command.Command
	for _, def := range defs {
		if _, ok := state.Find(def.FormKey); ok {
			continue
		}
		cmds = append(cmds, def)
	}
	return cmds
}
