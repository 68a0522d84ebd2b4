package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyongames/sigil/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	UnlockID string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the achieved event log",
		Long: `Print the achieved event log from the SQLite database, ordered by
logical seq. Use --unlock to filter to one definition id.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.UnlockID, "unlock", "", "filter to one unlock id")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return outputCompileError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadLog(cmd.Context(), opts.UnlockID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read achieved log", err)
	}

	if opts.Format == "json" {
		return formatter.Success(events)
	}

	if len(events) == 0 {
		fmt.Fprintln(formatter.Writer, "No achieved events")
		return nil
	}
	for _, ev := range events {
		name := ev.DisplayName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(formatter.Writer, "%6d  %-24s  %-24s  reward=%s  session=%s\n",
			ev.Seq, ev.UnlockID, name, ev.RewardID, ev.Session)
	}
	return nil
}
