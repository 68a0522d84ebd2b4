// Package graph implements the live unlock dependency graph: the compiler
// from condition trees to runtime nodes, the topic directory, the gate and
// sensor state machine, edge-triggered signal propagation, and the repeat
// lifecycle policy.
//
// ARCHITECTURE:
//
// Arena of Handles:
// All nodes (roots, gates, sensors) live in a single arena indexed by
// integer handles. Each node stores its parent handle; bubbling is an
// explicit iterative walk up parent handles. Handles never form cycles by
// construction - the compiler only ever creates children from a
// definition's immutable condition tree, never wires a node to more than
// one parent.
//
// Topic Directory:
// A hash map from topic key to subscriber set. Event dispatch looks up
// exactly the sensors interested in a topic - O(1) amortized, never a scan
// over every sensor in the world. Topic entries are created lazily on first
// subscription; empty and producer-less topics are valid content.
//
// Edge-Triggered Propagation:
// A sensor whose predicate result did not flip stops the pass at the
// sensor. A gate whose derived state did not change stops the walk at the
// gate. A root fires on a rising edge of its single child only, and at most
// once per pass.
//
// Single-Writer Determinism:
// Graph is not safe for concurrent use. All mutation happens through the
// owning engine's single event loop; one dispatch completes fully before
// the next begins. Subscriber sets are walked in ascending handle order so
// identical event sequences produce identical firing orders.
//
// Repeat Lifecycle:
// On firing, Once and exhausted Finite graphs despawn (nodes freed, topic
// subscriptions removed); Finite-with-budget and Infinite graphs reset to
// their initial unmet state and stay subscribed. A root re-armed active by
// a reset fires again on the next pass, never twice within one.
package graph
