// Package engine implements the sigil unlock engine event loop.
//
// The engine is the single writer over the live unlock graph: it receives
// topic-change events from game systems, dispatches them through the topic
// directory, and emits Achieved events exactly when a compiled condition
// tree becomes satisfied.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All graph mutation happens in the one goroutine running Run(). External
// producers never write into the graph - they only Enqueue topic-change
// events. Each event is dispatched to completion (a full bubbling pass)
// before the next is processed; no interleaving, no partial states
// observable between events.
//
// Event Processing Flow:
//  1. Events enqueued to FIFO queue (compiles, topic changes, batches)
//  2. Run() dequeues one event at a time
//  3. Dispatch() routes to the graph (compile / dispatch / teardown)
//  4. Firings are stamped with the logical clock, appended to the store's
//     achieved log, Once completions marked in persistent unlock state,
//     and fanned out to registered handlers
//
// Batching Discipline:
// A resource container changing several fields in one simulation tick
// should arrive as one Batch event; the engine coalesces it into one
// dispatch round per affected topic (last value wins) instead of one
// bubbling pass per field write.
//
// Logical Clock:
// Achieved events are stamped with a monotonic seq counter, never
// wall-clock timestamps. Identical event sequences produce identical logs.
//
// Nothing in this engine retries: event processing failures (store I/O)
// are logged with full context and processing continues, preserving
// determinism.
package engine
