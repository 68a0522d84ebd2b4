package graph

import (
	"github.com/halcyongames/sigil/internal/ir"
)

// Handle is an arena index identifying a runtime node. Handles are only
// meaningful within the graph that allocated them.
type Handle int32

// None is the null handle (a root's parent).
const None Handle = -1

// nodeKind discriminates the runtime node union. nodeFree marks a slot on
// the arena free list; live code never points at one, but dispatch
// snapshots taken before a mid-pass despawn may, so every walk checks kind
// before touching a node.
type nodeKind uint8

const (
	nodeFree nodeKind = iota
	nodeRoot
	nodeGate
	nodeSensor
)

// predKind discriminates sensor predicates.
type predKind uint8

const (
	// predTrue is met from construction and never subscribes to a topic.
	predTrue predKind = iota + 1
	// predCompleted is met once its topic has ever reported completion.
	// Monotonic within a graph instance: only a repeat-policy reset clears it.
	predCompleted
	// predValue is met while the topic's last reported value compares
	// favorably against the target.
	predValue
)

// predicate is a sensor's boolean check against one topic.
type predicate struct {
	kind   predKind
	topic  string // normalized; empty for predTrue
	op     ir.CmpOp
	target float64
}

// node is the runtime graph node union. Only the fields for its kind are
// meaningful; the rest stay zero.
type node struct {
	kind   nodeKind
	parent Handle

	// nodeRoot
	id          string
	displayName string
	rewardID    string
	repeat      ir.RepeatMode
	child       Handle
	childActive bool   // last observed state of the single child
	pendingFire bool   // re-armed after firing this pass, fires next pass
	lastFired   uint64 // pass counter guard: at most one firing per pass

	// nodeGate
	op        ir.Kind // KindAnd, KindOr, KindNot
	required  uint32  // activation threshold
	capacity  uint32  // saturation bound for current (= child count)
	current   uint32  // high children, clamped to [0, capacity]
	wasActive bool
	children  []Handle

	// nodeSensor
	pred  predicate
	isMet bool
}

// active derives a gate's signal from its count and operator.
//
// The zero-child asymmetry is deliberate: And over zero children is
// vacuously active (0 >= 0), Or over zero children can never be raised
// (0 > 0 is false).
func (n *node) active() bool {
	switch n.op {
	case ir.KindAnd:
		return n.current >= n.required
	case ir.KindOr:
		return n.current > 0
	case ir.KindNot:
		return n.current == 0
	default:
		return false
	}
}

// shift applies a child signal change to a gate's count. Increments
// saturate at capacity and decrements at zero, so duplicate signals from a
// misbehaving walk can never underflow or overflow the count.
func (n *node) shift(high bool) {
	if high {
		if n.current < n.capacity {
			n.current++
		}
	} else if n.current > 0 {
		n.current--
	}
}
