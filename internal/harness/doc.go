// Package harness provides a conformance testing framework for the unlock
// engine.
//
// A scenario is a YAML document bundling inline CUE unlock definitions, a
// sequence of topic events, and assertions over the achieved events and the
// resulting graph set. The harness drives the real engine synchronously
// (via Dispatch, never a background Run loop) with a fixed session token
// and a fresh in-memory store, so the same scenario always produces a
// byte-identical achieved trace - which is what makes golden file
// comparison meaningful.
//
// Assertion types:
//   - achieved_count: unlock fired exactly N times
//   - achieved_order: the full achieved sequence, in order
//   - graph_alive / graph_despawned: compiled-set membership afterwards
//   - progress: session-scoped completion count for an unlock
package harness
