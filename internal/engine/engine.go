package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyongames/sigil/internal/graph"
	"github.com/halcyongames/sigil/internal/ir"
	"github.com/halcyongames/sigil/internal/store"
)

// AchievedHandler consumes Achieved events. Handlers run inside the
// single-writer loop and must not block; reward granting and UI belong
// behind the handler, decoupled from all graph structure.
type AchievedHandler func(ir.Achieved)

// Engine is the single-writer unlock engine event loop.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Dispatch(): the synchronous entry point; only from the Run goroutine,
//     or from a single caller when Run is not used (tests, harness)
//
// INVARIANTS:
//   - The graph and directory are mutated only inside Dispatch
//   - Each event is dispatched to completion before the next
//   - Every emitted Achieved event carries a unique, increasing seq
type Engine struct {
	store    *store.Store
	dir      *graph.Directory
	graph    *graph.Graph
	clock    LogicalClock
	queue    *eventQueue
	session  string
	handlers []AchievedHandler

	// defHashes remembers the content hash per compiled id so a re-compile
	// carrying changed content is distinguishable from a pure duplicate.
	defHashes map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets a pre-positioned logical clock, used to resume seq
// numbering after the highest seq already in the achieved log.
func WithClock(c LogicalClock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSessionToken fixes the session token instead of generating one.
func WithSessionToken(token string) Option {
	return func(e *Engine) { e.session = token }
}

// WithSessionGenerator overrides the token generator, used by the test
// harness to produce byte-identical achieved logs across runs.
func WithSessionGenerator(g SessionTokenGenerator) Option {
	return func(e *Engine) { e.session = g.Generate() }
}

// New creates an Engine over the given persistent unlock state.
func New(st *store.Store, opts ...Option) *Engine {
	dir := graph.NewDirectory()
	e := &Engine{
		store:     st,
		dir:       dir,
		graph:     graph.New(dir),
		clock:     NewClock(),
		queue:     newEventQueue(),
		defHashes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.session == "" {
		e.session = UUIDv7Generator{}.Generate()
	}
	return e
}

// Session returns this engine session's token.
func (e *Engine) Session() string { return e.session }

// Subscribe registers an Achieved handler. Not thread-safe: register all
// handlers before Run.
func (e *Engine) Subscribe(h AchievedHandler) {
	e.handlers = append(e.handlers, h)
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe. Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Run starts the single-writer event loop. Blocks until the context is
// cancelled or Stop() is called.
//
// ERROR HANDLING: on event processing failure the error is logged with
// event context and processing continues. Log-and-continue preserves
// determinism; retries would not.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("unlock engine starting", "session", e.session)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Dispatch(ctx, event); err != nil {
				slog.Error("event processing failed",
					"type", event.Type,
					"topic", event.Topic,
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("unlock engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				slog.Info("unlock engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine; Run() returns once the queue
// drains.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Dispatch processes one event to completion and returns the Achieved
// events it produced, in firing order. This is the single-writer entry
// point: the full bubbling pass finishes before Dispatch returns.
func (e *Engine) Dispatch(ctx context.Context, event Event) ([]ir.Achieved, error) {
	switch event.Type {
	case EventCompile:
		if event.Def == nil {
			return nil, fmt.Errorf("compile event missing definition")
		}
		return e.processCompile(ctx, *event.Def)

	case EventTeardown:
		if !e.graph.Teardown(event.UnlockID) {
			slog.Debug("teardown for unknown id ignored", "id", event.UnlockID)
		}
		delete(e.defHashes, event.UnlockID)
		return nil, nil

	case EventCompleted:
		return e.emitAll(ctx, e.graph.OnCompleted(event.Topic))

	case EventValue:
		return e.emitAll(ctx, e.graph.OnValue(event.Topic, event.Value))

	case EventBatch:
		return e.processBatch(ctx, event.Batch)

	case EventTick:
		return e.emitAll(ctx, e.graph.Pump())

	default:
		return nil, fmt.Errorf("unknown event type: %d", event.Type)
	}
}

// processCompile materializes a definition unless it is already live or
// already finished in persistent unlock state. Both skips are silent
// no-ops, not errors: compilation is re-entrant by contract.
func (e *Engine) processCompile(ctx context.Context, def ir.UnlockDef) ([]ir.Achieved, error) {
	done, err := e.store.IsCompleted(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("check unlock state for %s: %w", def.ID, err)
	}
	if done {
		slog.Debug("definition already completed, not resurrecting", "id", def.ID)
		return nil, nil
	}

	hash, err := ir.DefHash(def)
	if err != nil {
		return nil, fmt.Errorf("hash definition %s: %w", def.ID, err)
	}

	if e.graph.Contains(def.ID) {
		if prev := e.defHashes[def.ID]; prev != "" && prev != hash {
			slog.Warn("definition changed while live, re-compile ignored",
				"id", def.ID,
				"live_hash", prev,
				"new_hash", hash,
			)
		}
		return nil, nil
	}

	firings, compiled := e.graph.Compile(def)
	if compiled {
		e.defHashes[def.ID] = hash
	}
	return e.emitAll(ctx, firings)
}

// processBatch drains one tick's changes into one dispatch round per
// affected topic. Several writes to the same topic coalesce: the last
// value wins, completions dedupe to one signal.
func (e *Engine) processBatch(ctx context.Context, batch []Change) ([]ir.Achieved, error) {
	var emitted []ir.Achieved
	for _, c := range coalesce(batch) {
		var firings []graph.Firing
		if c.Completed {
			firings = e.graph.OnCompleted(c.Topic)
		} else {
			firings = e.graph.OnValue(c.Topic, c.Value)
		}
		evs, err := e.emitAll(ctx, firings)
		if err != nil {
			return emitted, err
		}
		emitted = append(emitted, evs...)
	}
	return emitted, nil
}

// coalesce collapses a batch to at most one completion signal and one value
// report per topic, preserving first-appearance order.
func coalesce(batch []Change) []Change {
	type key struct {
		topic     string
		completed bool
	}
	index := make(map[key]int, len(batch))
	out := make([]Change, 0, len(batch))

	for _, c := range batch {
		c.Topic = graph.NormalizeTopic(c.Topic)
		k := key{c.Topic, c.Completed}
		if i, ok := index[k]; ok {
			if !c.Completed {
				out[i].Value = c.Value
			}
			continue
		}
		index[k] = len(out)
		out = append(out, c)
	}
	return out
}

// emitAll stamps, persists, and fans out each firing in order.
func (e *Engine) emitAll(ctx context.Context, firings []graph.Firing) ([]ir.Achieved, error) {
	if len(firings) == 0 {
		return nil, nil
	}
	emitted := make([]ir.Achieved, 0, len(firings))
	for _, f := range firings {
		ev, err := e.emit(ctx, f)
		if err != nil {
			return emitted, err
		}
		emitted = append(emitted, ev)
	}
	return emitted, nil
}

// emit finalizes one firing: logical clock stamp, achieved log append,
// Once-mode persistent marker, handler fan-out.
func (e *Engine) emit(ctx context.Context, f graph.Firing) (ir.Achieved, error) {
	ev := f.Event
	ev.Seq = e.clock.Next()
	ev.Session = e.session

	if err := e.store.AppendAchieved(ctx, ev); err != nil {
		return ev, fmt.Errorf("append achieved %s: %w", ev.UnlockID, err)
	}
	if f.Repeat.Kind == ir.RepeatOnce {
		if err := e.store.MarkCompleted(ctx, ev.UnlockID, ev.Seq, e.session); err != nil {
			return ev, fmt.Errorf("mark completed %s: %w", ev.UnlockID, err)
		}
	}

	slog.Info("achieved emitted",
		"id", ev.UnlockID,
		"reward_id", ev.RewardID,
		"seq", ev.Seq,
		"count", f.Count,
	)

	for _, h := range e.handlers {
		h(ev)
	}
	return ev, nil
}

// CompiledIDs returns the ids with a live graph instance, ascending.
func (e *Engine) CompiledIDs() []string { return e.graph.Roots() }

// Compiled reports whether id has a live graph instance.
func (e *Engine) Compiled(id string) bool { return e.graph.Contains(id) }

// Progress returns the session-scoped completion count for id.
func (e *Engine) Progress(id string) uint32 { return e.graph.Progress(id) }

// DumpGraph renders id's compiled graph shape for diagnostics.
func (e *Engine) DumpGraph(id string) string { return e.graph.Dump(id) }
