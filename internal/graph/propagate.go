package graph

import (
	"log/slog"

	"github.com/halcyongames/sigil/internal/ir"
)

// eventKind discriminates the two external signal shapes.
type eventKind uint8

const (
	evCompleted eventKind = iota + 1
	evValue
)

// topicEvent is one external change dispatched through the directory.
type topicEvent struct {
	kind  eventKind
	topic string
	value float64
}

// OnCompleted dispatches a "topic completed" signal. Completed sensors on
// the topic become met; value sensors ignore it. Returns the firings the
// pass produced, in firing order.
func (g *Graph) OnCompleted(topic string) []Firing {
	return g.dispatch(topicEvent{kind: evCompleted, topic: topic})
}

// OnValue dispatches a "topic value changed" signal. Value sensors on the
// topic re-compare against their targets; completed sensors ignore it.
func (g *Graph) OnValue(topic string, value float64) []Firing {
	return g.dispatch(topicEvent{kind: evValue, topic: topic, value: value})
}

// Pump runs a propagation pass with no external event, firing roots that a
// previous pass re-armed (reset graphs whose conditions are immediately
// satisfied again, e.g. True-leaf Infinite definitions). Call once per
// simulation tick; a no-op when nothing is pending.
func (g *Graph) Pump() []Firing {
	g.pass++
	return g.drainPending()
}

// dispatch is one full bubbling pass: directory lookup, sensor
// re-evaluation, upward edge-triggered walks, root firing, repeat policy.
// Fully synchronous - the pass completes before the caller sees the result.
func (g *Graph) dispatch(ev topicEvent) []Firing {
	g.pass++
	fired := g.drainPending()

	subs := g.dir.Subscribers(ev.topic)
	if len(subs) == 0 && len(fired) == 0 {
		return nil
	}

	for _, h := range subs {
		n := &g.nodes[h]
		if n.kind != nodeSensor {
			continue // despawned earlier in this pass
		}
		met, applies := evalSensor(&n.pred, ev)
		if !applies || met == n.isMet {
			continue // sensor-level short-circuit: no flip, no upstream work
		}
		n.isMet = met
		if f := g.bubble(n.parent, met); f != nil {
			fired = append(fired, *f)
		}
	}
	return fired
}

// evalSensor recomputes a sensor predicate against an event. applies is
// false when the event kind does not address the predicate (a value change
// says nothing about completion, and vice versa).
func evalSensor(p *predicate, ev topicEvent) (met, applies bool) {
	switch p.kind {
	case predCompleted:
		if ev.kind != evCompleted {
			return false, false
		}
		// Monotonic: a completion signal only ever raises the sensor.
		return true, true
	case predValue:
		if ev.kind != evValue {
			return false, false
		}
		return p.op.Compare(ev.value, p.target), true
	default:
		// predTrue never subscribes; a dispatch reaching it is impossible.
		return false, false
	}
}

// bubble walks a signal change from a sensor's parent toward the root, one
// hop at a time. Each gate shifts its count and recomputes its derived
// state; an unchanged gate stops the walk. Reaching the root fires only on
// a rising edge of its single child.
func (g *Graph) bubble(h Handle, high bool) *Firing {
	sig := high
	for h != None {
		n := &g.nodes[h]
		switch n.kind {
		case nodeGate:
			n.shift(sig)
			active := n.active()
			if active == n.wasActive {
				return nil
			}
			n.wasActive = active
			sig = active
			h = n.parent

		case nodeRoot:
			if sig == n.childActive {
				return nil // already there, never re-fired on arrival
			}
			n.childActive = sig
			if !sig {
				return nil
			}
			return g.fireRoot(h)

		default:
			return nil
		}
	}
	return nil
}

// fireRoot emits the Achieved firing for root h and applies its repeat
// policy. The pass guard makes a root fire at most once per bubbling pass;
// a root re-satisfied within the pass that fired it (a later subscriber in
// the same snapshot, after a repeat reset) is deferred to the pending list
// so the extra firing lands on the next pass instead of being dropped.
func (g *Graph) fireRoot(h Handle) *Firing {
	n := &g.nodes[h]
	if n.lastFired == g.pass {
		if !n.pendingFire {
			n.pendingFire = true
			g.pending = append(g.pending, h)
		}
		return nil
	}
	n.lastFired = g.pass

	count := g.progress[n.id]
	if n.repeat.Kind == ir.RepeatFinite || n.repeat.Kind == ir.RepeatInfinite {
		count++
		g.progress[n.id] = count
	} else {
		count = 1
	}

	f := &Firing{
		Event: ir.Achieved{
			UnlockID:    n.id,
			DisplayName: n.displayName,
			RewardID:    n.rewardID,
		},
		Repeat: n.repeat,
		Count:  count,
	}

	slog.Info("unlock achieved",
		"id", n.id,
		"reward_id", n.rewardID,
		"repeat", n.repeat.String(),
		"count", count,
	)

	g.applyRepeat(h, count)
	return f
}

// applyRepeat decides the graph's fate after a firing: despawn (Once,
// exhausted Finite) or reset-and-keep (Infinite, Finite with budget left).
func (g *Graph) applyRepeat(h Handle, count uint32) {
	n := &g.nodes[h]
	switch n.repeat.Kind {
	case ir.RepeatOnce:
		g.despawn(h)

	case ir.RepeatFinite:
		if count >= n.repeat.Limit {
			g.despawn(h)
			return
		}
		g.reset(h)

	case ir.RepeatInfinite:
		g.reset(h)
	}
}

// reset restores a fired graph to its initial unmet state, keeping nodes
// and subscriptions alive. True leaves come back met immediately, mirroring
// compilation; if that re-arms the root, it fires on the next pass.
func (g *Graph) reset(h Handle) {
	n := &g.nodes[h]
	active := g.resetSubtree(n.child)
	n.childActive = active
	if active && !n.pendingFire {
		n.pendingFire = true
		g.pending = append(g.pending, h)
	}
}

// drainPending fires roots re-armed by resets in earlier passes. A firing
// here may itself reset and re-arm; that lands on the next pass's pending
// list, keeping every pass bounded.
func (g *Graph) drainPending() []Firing {
	if len(g.pending) == 0 {
		return nil
	}
	pend := g.pending
	g.pending = nil

	var fired []Firing
	for _, h := range pend {
		n := &g.nodes[h]
		if n.kind != nodeRoot || !n.pendingFire {
			continue // torn down since it was armed
		}
		n.pendingFire = false
		if !n.childActive {
			continue
		}
		if f := g.fireRoot(h); f != nil {
			fired = append(fired, *f)
		}
	}
	return fired
}
