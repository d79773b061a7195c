package cli

import (
	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool `json:"valid"`
	Forms int  `json:"forms"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Check form definitions without writing output",
		Long: `Compile and validate CUE form definitions, reporting every problem.

Checks CUE syntax, the definition schema (form keys, entity paths, field
names) and consistency across forms: duplicate keys, duplicate fields and
fields on entity paths the form does not listen to.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	defs, problems := loadDefinitions(dir)
	if defs == nil {
		return fail(formatter, ExitCommandError, problems[0].Code, problems[0].Message, nil)
	}
	if len(problems) > 0 {
		return outputProblems(formatter, "Validation failed", problems)
	}

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Forms: len(defs.Forms)})
	}
	formatter.Printf("✓ %d form definition(s) valid\n", len(defs.Forms))
	return nil
}
