package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyongames/sigil/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the JSON payload for validate output.
type ValidationReport struct {
	UnlockCount int              `json:"unlock_count"`
	Issues      []compiler.Issue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate CUE unlock definitions",
		Long: `Compile CUE unlock definitions and report structural errors and
advisory content issues.

Structural errors (missing reward, malformed condition) fail with exit
code 2. Advisory issues (an empty any-gate, a blank topic) describe
content that loads fine but will never unlock; they fail with exit code 1
so CI catches them before players do.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadDefs(defsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	if len(loadErrors) > 0 {
		details := make([]string, len(loadErrors))
		for i, e := range loadErrors {
			details[i] = e.Error()
		}
		if err := formatter.Error(ErrCodeGeneric, fmt.Sprintf("%d definition(s) failed to compile", len(loadErrors)), details); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "validation failed: structural errors")
	}

	var issues []compiler.Issue
	for i := range loadResult.Defs {
		issues = append(issues, compiler.Validate(&loadResult.Defs[i])...)
	}

	report := ValidationReport{
		UnlockCount: len(loadResult.Defs),
		Issues:      issues,
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "Validated %d unlock definition(s)\n", report.UnlockCount)
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  %s\n", issue)
		}
		if len(issues) == 0 {
			fmt.Fprintln(formatter.Writer, "No issues found")
		}
	}

	if len(issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d advisory issue(s) found", len(issues)))
	}
	return nil
}
