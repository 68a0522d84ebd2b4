package harness

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/halcyongames/sigil/internal/compiler"
	"github.com/halcyongames/sigil/internal/engine"
	"github.com/halcyongames/sigil/internal/ir"
	"github.com/halcyongames/sigil/internal/store"
	"github.com/halcyongames/sigil/internal/testutil"
)

// Result captures a scenario execution: the achieved trace in firing order
// plus handles for assertion evaluation.
type Result struct {
	Scenario *Scenario
	Achieved []ir.Achieved

	eng *engine.Engine
	st  *store.Store
}

// Close releases the scenario's in-memory store.
func (r *Result) Close() error {
	return r.st.Close()
}

// Run executes a scenario against a fresh engine and in-memory store.
//
// Everything is dispatched synchronously from this goroutine - the engine's
// Run loop is never started - so the achieved trace is complete when Run
// returns and identical on every execution.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	defs, err := compileDefinitions(scenario.Definitions)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: open store: %w", scenario.Name, err)
	}

	eng := engine.New(st,
		engine.WithSessionGenerator(testutil.NewFixedTokenGenerator(scenario.Session)),
		engine.WithClock(testutil.NewDeterministicClock()),
	)

	result := &Result{Scenario: scenario, eng: eng, st: st}

	collect := func(evs []ir.Achieved, err error) error {
		if err != nil {
			return err
		}
		result.Achieved = append(result.Achieved, evs...)
		return nil
	}

	for i := range defs {
		if err := collect(eng.Dispatch(ctx, engine.Event{Type: engine.EventCompile, Def: &defs[i]})); err != nil {
			st.Close()
			return nil, fmt.Errorf("scenario %s: compile %s: %w", scenario.Name, defs[i].ID, err)
		}
	}

	for i, step := range scenario.Events {
		if err := collect(eng.Dispatch(ctx, stepToEvent(step))); err != nil {
			st.Close()
			return nil, fmt.Errorf("scenario %s: event[%d]: %w", scenario.Name, i, err)
		}
	}

	return result, nil
}

func stepToEvent(step EventStep) engine.Event {
	switch {
	case step.Completed != "":
		return engine.Event{Type: engine.EventCompleted, Topic: step.Completed}
	case step.Value != nil:
		return engine.Event{Type: engine.EventValue, Topic: step.Value.Topic, Value: step.Value.Amount}
	case len(step.Batch) > 0:
		changes := make([]engine.Change, len(step.Batch))
		for i, c := range step.Batch {
			changes[i] = engine.Change{Topic: c.Topic, Completed: c.Completed, Value: c.Value}
		}
		return engine.Event{Type: engine.EventBatch, Batch: changes}
	default:
		return engine.Event{Type: engine.EventTick}
	}
}

// compileDefinitions parses inline CUE source with a top-level `unlock`
// struct into unlock definitions, in declaration order.
func compileDefinitions(src string) ([]ir.UnlockDef, error) {
	cuectx := cuecontext.New()
	value := cuectx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile definitions: %w", err)
	}

	unlocks := value.LookupPath(cue.ParsePath("unlock"))
	if !unlocks.Exists() {
		return nil, fmt.Errorf("definitions have no top-level `unlock` struct")
	}

	iter, err := unlocks.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate unlocks: %w", err)
	}

	var defs []ir.UnlockDef
	for iter.Next() {
		def, err := compiler.CompileUnlock(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("definitions contain no unlocks")
	}
	return defs, nil
}
