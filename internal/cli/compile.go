package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyongames/sigil/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled unlock definitions.
type CompilationResult struct {
	Unlocks []ir.UnlockDef `json:"unlocks"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	UnlockCount int
	TopicCount  int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <defs-dir>",
		Short: "Compile CUE unlock definitions to IR",
		Long: `Compile CUE unlock definitions to canonical IR format.

The compiler parses CUE files, checks their structure, and outputs the
compiled definitions as JSON for inspection or external tooling.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, defsDir string, cmd *cobra.Command) error {
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

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, defsDir)
	for _, def := range loadResult.Defs {
		formatter.VerboseLog("Compiling unlock: %s (repeat=%s)", def.ID, def.Repeat)
	}

	if len(loadErrors) > 0 {
		details := make([]string, len(loadErrors))
		for i, e := range loadErrors {
			details[i] = e.Error()
		}
		if err := formatter.Error(ErrCodeGeneric, fmt.Sprintf("%d definition(s) failed to compile", len(loadErrors)), details); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "compilation failed")
	}

	result := &CompilationResult{Unlocks: loadResult.Defs}
	stats := calculateStats(result)

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Compiled %d unlock definition(s) across %d topic(s)\n",
		stats.UnlockCount, stats.TopicCount)
	for _, def := range result.Unlocks {
		fmt.Fprintf(formatter.Writer, "  %s  repeat=%s  topics=%v\n", def.ID, def.Repeat, def.Topics())
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "IR written to %s\n", opts.Output)
	}
	return nil
}

func outputCompileError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, message)
}

// calculateStats computes summary statistics from a compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{UnlockCount: len(result.Unlocks)}
	topics := make(map[string]bool)
	for _, def := range result.Unlocks {
		for _, t := range def.Topics() {
			topics[t] = true
		}
	}
	stats.TopicCount = len(topics)
	return stats
}

// writeIRToFile writes the compiled IR as indented JSON.
func writeIRToFile(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal IR: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
