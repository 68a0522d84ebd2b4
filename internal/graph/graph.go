package graph

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/halcyongames/sigil/internal/ir"
)

// Graph owns the arena of runtime nodes for every compiled unlock
// definition, the compiled-set (definition id to root handle), and the
// session-scoped completion counts consumed by the Finite repeat policy.
//
// Graph is exclusively owned by a single engine loop and is not safe for
// concurrent use.
type Graph struct {
	nodes []node
	free  []Handle
	dir   *Directory

	// roots is the compiled-set: ids with a live graph instance.
	roots map[string]Handle

	// progress counts completions per definition id. Session-scoped by
	// design: Finite/Infinite progress is not persisted across sessions,
	// while Once completion is (persisted unlock state lives with the
	// caller). Progress survives despawn within a session, so an exhausted
	// Finite definition recompiled mid-session despawns again on first fire.
	progress map[string]uint32

	// pending holds roots re-armed active by a reset; they fire on the
	// next pass, never within the pass that reset them.
	pending []Handle

	// pass numbers every public entry point so a root can fire at most
	// once per bubbling pass.
	pass uint64
}

// Firing is one root activation: the externally observable Achieved event
// plus the lifecycle facts the caller needs to persist Once completions and
// log diagnostics.
type Firing struct {
	Event  ir.Achieved
	Repeat ir.RepeatMode
	Count  uint32 // completions of this id so far this session, incl. this one
}

// New creates an empty graph registering sensors into dir.
func New(dir *Directory) *Graph {
	return &Graph{
		dir:      dir,
		roots:    make(map[string]Handle),
		progress: make(map[string]uint32),
	}
}

// Contains reports whether id has a live compiled graph instance.
func (g *Graph) Contains(id string) bool {
	_, ok := g.roots[id]
	return ok
}

// Roots returns the compiled-set ids in ascending order.
func (g *Graph) Roots() []string {
	ids := make([]string, 0, len(g.roots))
	for id := range g.roots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Progress returns the session-scoped completion count for id.
func (g *Graph) Progress(id string) uint32 {
	return g.progress[id]
}

// NodeCount returns the number of live nodes across all compiled graphs.
func (g *Graph) NodeCount() int {
	count := 0
	for i := range g.nodes {
		if g.nodes[i].kind != nodeFree {
			count++
		}
	}
	return count
}

// Compile materializes a definition's condition tree into runtime nodes,
// registering every topic sensor into the directory.
//
// Compilation is idempotent: an id already in the compiled-set is a silent
// no-op (compiled=false). Callers are responsible for skipping ids already
// marked completed in persistent unlock state before calling.
//
// Compilation counts as a propagation pass: a definition whose condition is
// satisfied at construction (True leaves, zero-child And, Not over an unmet
// child) fires immediately, and the returned firings reflect that.
func (g *Graph) Compile(def ir.UnlockDef) (fired []Firing, compiled bool) {
	if _, ok := g.roots[def.ID]; ok {
		slog.Debug("definition already compiled, skipping", "id", def.ID)
		return nil, false
	}

	g.pass++

	root := g.alloc()
	rn := &g.nodes[root]
	rn.kind = nodeRoot
	rn.parent = None
	rn.id = def.ID
	rn.displayName = def.DisplayName
	rn.rewardID = def.RewardID
	rn.repeat = def.Repeat

	// materialize grows the arena, invalidating node pointers; index again.
	child := g.materialize(def.Condition, root)
	g.nodes[root].child = child

	g.roots[def.ID] = root

	// Initial bottom-up evaluation. Shares the repeat-policy reset path so
	// construction and reset semantics cannot drift apart.
	active := g.resetSubtree(g.nodes[root].child)
	g.nodes[root].childActive = active

	slog.Debug("definition compiled",
		"id", def.ID,
		"repeat", def.Repeat.String(),
		"topics", len(def.Topics()),
		"born_active", active,
	)

	if active {
		if f := g.fireRoot(root); f != nil {
			fired = append(fired, *f)
		}
	}
	return fired, true
}

// materialize recursively builds the runtime subtree for cond under parent
// and returns its handle. Sensors subscribe to their topics as they are
// created; state fields are left for resetSubtree to initialize.
func (g *Graph) materialize(cond ir.Node, parent Handle) Handle {
	h := g.alloc()
	n := &g.nodes[h]
	n.parent = parent

	switch cond.Kind {
	case ir.KindAnd, ir.KindOr, ir.KindNot:
		n.kind = nodeGate
		n.op = cond.Kind
		n.capacity = uint32(len(cond.Children))
		switch cond.Kind {
		case ir.KindAnd:
			n.required = uint32(len(cond.Children))
		case ir.KindOr:
			n.required = 1
		case ir.KindNot:
			n.required = 0
		}
		children := make([]Handle, len(cond.Children))
		for i, c := range cond.Children {
			children[i] = g.materialize(c, h)
		}
		// materialize may have grown the arena; re-take the pointer.
		g.nodes[h].children = children

	case ir.KindTrue:
		n.kind = nodeSensor
		n.pred = predicate{kind: predTrue}

	case ir.KindCompleted:
		n.kind = nodeSensor
		n.pred = predicate{kind: predCompleted, topic: NormalizeTopic(cond.Topic)}
		g.dir.Subscribe(cond.Topic, h)

	case ir.KindValue:
		n.kind = nodeSensor
		n.pred = predicate{
			kind:   predValue,
			topic:  NormalizeTopic(cond.Topic),
			op:     cond.Op,
			target: cond.Target,
		}
		g.dir.Subscribe(cond.Topic, h)
	}

	return h
}

// resetSubtree restores the subtree rooted at h to its initial unmet state
// and returns whether it is active anyway: True sensors are met from
// construction, zero-child And gates are vacuously active, and Not gates
// over unmet children are active by inversion.
func (g *Graph) resetSubtree(h Handle) bool {
	n := &g.nodes[h]
	switch n.kind {
	case nodeSensor:
		n.isMet = n.pred.kind == predTrue
		return n.isMet

	case nodeGate:
		var high uint32
		for _, c := range n.children {
			if g.resetSubtree(c) {
				high++
			}
		}
		n = &g.nodes[h] // recursion cannot grow the arena here, but stay consistent
		n.current = high
		n.wasActive = n.active()
		return n.wasActive

	default:
		return false
	}
}

// Teardown despawns id's graph instance: all nodes freed and every topic
// subscription removed. Returns false if id has no live instance.
// Session-scoped progress is retained.
func (g *Graph) Teardown(id string) bool {
	root, ok := g.roots[id]
	if !ok {
		return false
	}
	g.despawn(root)
	slog.Debug("definition torn down", "id", id)
	return true
}

// despawn frees the entire graph instance rooted at root.
func (g *Graph) despawn(root Handle) {
	delete(g.roots, g.nodes[root].id)
	g.freeSubtree(g.nodes[root].child)
	g.release(root)
}

func (g *Graph) freeSubtree(h Handle) {
	n := &g.nodes[h]
	switch n.kind {
	case nodeSensor:
		if n.pred.topic != "" {
			g.dir.Unsubscribe(n.pred.topic, h)
		}
	case nodeGate:
		for _, c := range n.children {
			g.freeSubtree(c)
		}
	}
	g.release(h)
}

// alloc takes a slot from the free list or grows the arena.
func (g *Graph) alloc() Handle {
	if n := len(g.free); n > 0 {
		h := g.free[n-1]
		g.free = g.free[:n-1]
		return h
	}
	g.nodes = append(g.nodes, node{})
	return Handle(len(g.nodes) - 1)
}

// release zeroes a slot and returns it to the free list. Zeroing matters:
// stale dispatch snapshots identify dead slots by kind == nodeFree, and a
// freed root must not keep its pendingFire flag.
func (g *Graph) release(h Handle) {
	g.nodes[h] = node{}
	g.free = append(g.free, h)
}

// Dump renders id's compiled graph shape for diagnostics. Mis-authored
// content manifests as "this never unlocks"; the dump is how that gets
// diagnosed, since nothing in the engine raises errors for it.
func (g *Graph) Dump(id string) string {
	root, ok := g.roots[id]
	if !ok {
		return fmt.Sprintf("%s: not compiled", id)
	}
	var b strings.Builder
	n := &g.nodes[root]
	fmt.Fprintf(&b, "root %s repeat=%s child_active=%v\n", n.id, n.repeat, n.childActive)
	g.dumpSubtree(&b, n.child, 1)
	return b.String()
}

func (g *Graph) dumpSubtree(b *strings.Builder, h Handle, depth int) {
	indent := strings.Repeat("  ", depth)
	n := &g.nodes[h]
	switch n.kind {
	case nodeGate:
		fmt.Fprintf(b, "%sgate %s %d/%d active=%v\n",
			indent, n.op, n.current, n.required, n.wasActive)
		for _, c := range n.children {
			g.dumpSubtree(b, c, depth+1)
		}
	case nodeSensor:
		switch n.pred.kind {
		case predTrue:
			fmt.Fprintf(b, "%ssensor true met=%v\n", indent, n.isMet)
		case predCompleted:
			fmt.Fprintf(b, "%ssensor completed(%s) met=%v\n", indent, n.pred.topic, n.isMet)
		case predValue:
			fmt.Fprintf(b, "%ssensor value(%s %s %v) met=%v\n",
				indent, n.pred.topic, n.pred.op, n.pred.target, n.isMet)
		}
	}
}
