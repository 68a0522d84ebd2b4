package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/halcyongames/sigil/internal/engine"
	"github.com/halcyongames/sigil/internal/ir"
	"github.com/halcyongames/sigil/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Watch    bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <defs-dir>",
		Short: "Start the unlock engine with compiled definitions",
		Long: `Start the unlock engine with compiled unlock definitions.

The engine loads definitions from the specified directory, opens the
SQLite unlock state (creating it if needed, skipping definitions already
completed in a previous session), and starts the single-writer event loop.

Topic events are read from stdin, one per line:

  completed <topic>
  value <topic> <number>
  tick

Achieved events are printed as they fire.

Example:
  sigil run --db ./sigil.db ./defs
  sigil run --db ./sigil.db ./defs --watch --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload definitions when the directory changes")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runEngine(opts *RunOptions, defsDir string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading definitions", "dir", defsDir)
	defs, err := loadDefsFailFast(defsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load definitions", err)
	}
	slog.Info("definitions loaded", "count", len(defs))

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Resume the logical clock past anything already in the achieved log so
	// seq numbers stay unique across sessions.
	maxSeq, err := st.MaxSeq(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read achieved log", err)
	}

	eng := engine.New(st, engine.WithClock(engine.NewClockAt(maxSeq)))
	eng.Subscribe(func(ev ir.Achieved) {
		fmt.Fprintf(cmd.OutOrStdout(), "achieved %s reward=%s seq=%d\n", ev.UnlockID, ev.RewardID, ev.Seq)
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	for i := range defs {
		eng.Enqueue(engine.Event{Type: engine.EventCompile, Def: &defs[i]})
	}

	if opts.Watch {
		watcher, err := watchDefs(ctx, defsDir, eng)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch definitions", err)
		}
		defer watcher.Close()
	}

	go feedEvents(ctx, cmd.InOrStdin(), eng)

	slog.Info("engine starting", "db", opts.Database, "defs_dir", defsDir, "session", eng.Session())
	fmt.Fprintln(cmd.ErrOrStderr(), "Engine started. Feed topic events on stdin; Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// loadDefsFailFast loads and compiles all definitions from a directory.
func loadDefsFailFast(dir string) ([]ir.UnlockDef, error) {
	loadResult, loadErrors := LoadDefs(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	return loadResult.Defs, nil
}

// feedEvents parses topic events from r and enqueues them until EOF or
// context cancellation. Malformed lines are logged and skipped.
func feedEvents(ctx context.Context, r io.Reader, eng *engine.Engine) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := parseEventLine(line)
		if err != nil {
			slog.Warn("skipping malformed event line", "line", line, "error", err)
			continue
		}
		eng.Enqueue(ev)
	}
}

// parseEventLine parses "completed <topic>", "value <topic> <number>", or
// "tick".
func parseEventLine(line string) (engine.Event, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "completed":
		if len(fields) != 2 {
			return engine.Event{}, fmt.Errorf("usage: completed <topic>")
		}
		return engine.Event{Type: engine.EventCompleted, Topic: fields[1]}, nil

	case "value":
		if len(fields) != 3 {
			return engine.Event{}, fmt.Errorf("usage: value <topic> <number>")
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return engine.Event{}, fmt.Errorf("invalid number %q: %w", fields[2], err)
		}
		return engine.Event{Type: engine.EventValue, Topic: fields[1], Value: v}, nil

	case "tick":
		return engine.Event{Type: engine.EventTick}, nil

	default:
		return engine.Event{}, fmt.Errorf("unknown event %q", fields[0])
	}
}

// watchDefs reloads the definitions directory on filesystem changes,
// enqueuing compile events for the current set. Already-live ids are
// no-ops by the engine's idempotent-compile contract, so only genuinely
// new definitions take effect.
func watchDefs(ctx context.Context, dir string, eng *engine.Engine) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				slog.Info("definitions changed, reloading", "event", event.Name)
				defs, err := loadDefsFailFast(dir)
				if err != nil {
					slog.Error("reload failed, keeping live definitions", "error", err)
					continue
				}
				for i := range defs {
					eng.Enqueue(engine.Event{Type: engine.EventCompile, Def: &defs[i]})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("watcher error", "error", err)
			}
		}
	}()

	return watcher, nil
}
