package engine

import (
	"sync"

	"github.com/halcyongames/sigil/internal/ir"
)

// EventType distinguishes event kinds on the engine queue.
type EventType int

const (
	// EventCompile materializes a definition into the live graph.
	EventCompile EventType = iota + 1
	// EventTeardown despawns a definition's graph (session reset).
	EventTeardown
	// EventCompleted is a "topic completed" signal from a game system.
	EventCompleted
	// EventValue is a "topic value changed" signal from a game system.
	EventValue
	// EventBatch carries one simulation tick's worth of changes, coalesced
	// into one dispatch round per affected topic.
	EventBatch
	// EventTick runs a propagation pass with no external change, letting
	// reset graphs whose conditions are immediately satisfied fire again.
	EventTick
)

// Change is one entry of a Batch: a completion or a value report on a topic.
type Change struct {
	Topic     string
	Completed bool
	Value     float64
}

// Event is the engine queue element. Only the fields for its type are set.
type Event struct {
	Type     EventType
	Def      *ir.UnlockDef // EventCompile
	UnlockID string        // EventTeardown
	Topic    string        // EventCompleted, EventValue
	Value    float64       // EventValue
	Batch    []Change      // EventBatch
}

// eventQueue is a thread-safe FIFO queue for events.
//
// Unbounded: a burst of game-state changes must never block a producer.
// Thread-safety covers external enqueuing while the Run loop dequeues; the
// signal channel enables context-aware waiting in Run.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered size 1, coalesces wakeups
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue attempts to dequeue without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]

	// Nil out the slot so the Event's pointers (Def) are collectable while
	// the backing array lives on.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
