// Package ir defines the declarative condition grammar and the compiled
// unlock definition types shared by the CUE compiler, the runtime graph,
// and the engine.
//
// The grammar is a closed tagged union (Kind): And/Or/Not combinators over
// two leaf predicates, Completed(topic) and Value(topic, op, target), plus
// the vacuous True leaf. Condition trees are immutable once authored; the
// runtime graph never mutates them, only materializes them.
//
// The package also provides canonical JSON serialization (sorted keys, NFC
// strings) and content-addressed definition hashes, used for deterministic
// golden traces and duplicate-versus-changed detection on re-compilation.
package ir
