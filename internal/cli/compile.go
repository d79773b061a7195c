package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/value"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledForm summarizes one compiled definition.
type CompiledForm struct {
	FormKey     string   `json:"formKey"`
	EntityPaths []string `json:"entityPathArray"`
	Fields      int      `json:"fields"`
	Tabular     int      `json:"tabular"`
}

// CompilationResult is the JSON output of compile.
type CompilationResult struct {
	Files    int            `json:"files"`
	Forms    []CompiledForm `json:"forms"`
	Commands []value.Object `json:"commands"`
	Output   string         `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <defs-dir>",
		Short: "Compile CUE form definitions to CREATE_FORM commands",
		Long: `Compile the CUE form definitions in a directory.

Every entry under the top-level "form" struct becomes one CREATE_FORM
command. With --output the commands are written as JSON lines, ready to
be fed to "formsync apply".

Examples:
  formsync compile ./defs
  formsync compile ./defs -o forms.jsonl
  formsync compile ./defs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write CREATE_FORM commands as JSON lines to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	defs, problems := loadDefinitions(dir)
	if defs == nil {
		return fail(formatter, ExitCommandError, problems[0].Code, problems[0].Message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", defs.Files, dir)
	if len(problems) > 0 {
		return outputProblems(formatter, "Compilation failed", problems)
	}

	result := CompilationResult{
		Files:    defs.Files,
		Forms:    make([]CompiledForm, 0, len(defs.Forms)),
		Commands: make([]value.Object, 0, len(defs.Forms)),
		Output:   opts.Output,
	}
	for _, def := range defs.Forms {
		formatter.VerboseLog("Compiled form: %s", def.FormKey)
		summary := CompiledForm{
			FormKey:     def.FormKey,
			EntityPaths: def.EntityPaths,
			Fields:      len(def.Fields),
		}
		for _, fd := range def.Fields {
			if fd.Tabular {
				summary.Tabular++
			}
		}
		result.Forms = append(result.Forms, summary)

		obj := command.Payload(def)
		obj["type"] = value.String(def.Type())
		result.Commands = append(result.Commands, obj)
	}

	if opts.Output != "" {
		if err := writeCommandLines(opts.Output, defs.Forms); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	formatter.Printf("✓ Compiled %d form(s) from %d file(s)\n\n", len(result.Forms), result.Files)
	for _, f := range result.Forms {
		formatter.Printf("  %s: %d field(s), %d tabular, paths %v\n", f.FormKey, f.Fields, f.Tabular, f.EntityPaths)
	}
	if opts.Output != "" {
		formatter.Printf("\nWrote %d command(s) to %s\n", len(result.Commands), opts.Output)
	}
	return nil
}

// outputProblems reports definition problems and returns the exit error.
func outputProblems(f *OutputFormatter, headline string, problems []CLIError) error {
	if f.JSON() {
		if err := f.Result(problems, &problems[0]); err != nil {
			return err
		}
	} else {
		f.Printf("✗ %s\n\n", headline)
		for _, p := range problems {
			if p.Details != nil {
				f.Printf("%v\n", p.Details)
			}
			f.Printf("  %s: %s\n\n", p.Code, p.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s with %d error(s)", headline, len(problems)))
}

// writeCommandLines writes one canonical wire command per line.
func writeCommandLines(path string, defs []command.CreateForm) error {
	var buf bytes.Buffer
	for _, def := range defs {
		data, err := command.Marshal(def)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
