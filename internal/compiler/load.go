package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/formsync/internal/command"
)

// Definitions is the result of loading a directory of form definitions.
type Definitions struct {
	Forms []command.CreateForm
	// Files is the number of .cue files found.
	Files int
}

// LoadDefinitions loads the CUE package in dir and compiles every entry
// under the top-level "form" struct, in declaration order.
//
// Compile errors are collected: the returned Definitions holds every form
// that compiled, and errs holds one error per form that did not.
func LoadDefinitions(dir string) (*Definitions, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("definitions directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	forms, errs := CompileDefinitions(v)
	return &Definitions{Forms: forms, Files: len(files)}, errs
}

// CompileSource compiles form definitions from CUE source text. filename is
// used for error positions only.
func CompileSource(filename, src string) ([]command.CreateForm, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileDefinitions(v)
}

// CompileDefinitions compiles each field of the "form" struct in v.
// A value without a "form" struct yields no forms and no errors.
func CompileDefinitions(v cue.Value) ([]command.CreateForm, []error) {
	forms := []command.CreateForm{}
	var errs []error

	formsVal := v.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		return forms, nil
	}

	iter, err := formsVal.Fields()
	if err != nil {
		return forms, []error{formatCUEError(err)}
	}
	for iter.Next() {
		cmd, err := CompileForm(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("form.%s: %w", iter.Label(), err))
			continue
		}
		forms = append(forms, *cmd)
	}
	return forms, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
