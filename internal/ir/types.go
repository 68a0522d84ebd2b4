package ir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Kind identifies a condition node variant.
//
// The variant set is closed: the compiler and the propagation engine
// switch exhaustively over it. Adding a kind requires touching every
// switch, which is intentional.
type Kind uint8

const (
	// KindAnd is satisfied when all children are satisfied.
	KindAnd Kind = iota + 1
	// KindOr is satisfied when at least one child is satisfied.
	KindOr
	// KindNot is satisfied when its single child is not satisfied.
	KindNot
	// KindTrue is vacuously satisfied, no topic subscription.
	KindTrue
	// KindCompleted is satisfied once the topic has ever reported completion.
	KindCompleted
	// KindValue is satisfied while the topic's last reported value compares
	// favorably against the target.
	KindValue
)

var kindNames = map[Kind]string{
	KindAnd:       "and",
	KindOr:        "or",
	KindNot:       "not",
	KindTrue:      "true",
	KindCompleted: "completed",
	KindValue:     "value",
}

// String returns the lowercase name used in serialized definitions.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalJSON serializes the kind as its lowercase name.
func (k Kind) MarshalJSON() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown condition kind %d", uint8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON parses a lowercase kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown condition kind %q", name)
}

// CmpOp is a numeric comparison operator for value sensors.
type CmpOp uint8

const (
	// CmpGe is reported >= target.
	CmpGe CmpOp = iota + 1
	// CmpGt is reported > target.
	CmpGt
	// CmpLe is reported <= target.
	CmpLe
	// CmpLt is reported < target.
	CmpLt
	// CmpEq is reported == target (exact IEEE equality, no epsilon).
	CmpEq
)

var cmpNames = map[CmpOp]string{
	CmpGe: "ge",
	CmpGt: "gt",
	CmpLe: "le",
	CmpLt: "lt",
	CmpEq: "eq",
}

// ParseCmpOp maps a serialized operator name to a CmpOp.
func ParseCmpOp(name string) (CmpOp, error) {
	for op, n := range cmpNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", name)
}

// String returns the lowercase operator name.
func (op CmpOp) String() string {
	if name, ok := cmpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// MarshalJSON serializes the operator as its lowercase name.
func (op CmpOp) MarshalJSON() ([]byte, error) {
	name, ok := cmpNames[op]
	if !ok {
		return nil, fmt.Errorf("unknown comparison operator %d", uint8(op))
	}
	return json.Marshal(name)
}

// UnmarshalJSON parses a lowercase operator name.
func (op *CmpOp) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseCmpOp(name)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Compare evaluates `reported op target`.
//
// Comparisons are exact IEEE float comparisons. No epsilon tolerance is
// applied: authors comparing against integral thresholds get exact
// semantics, and anything else is the author's problem to express.
func (op CmpOp) Compare(reported, target float64) bool {
	switch op {
	case CmpGe:
		return reported >= target
	case CmpGt:
		return reported > target
	case CmpLe:
		return reported <= target
	case CmpLt:
		return reported < target
	case CmpEq:
		return reported == target
	default:
		return false
	}
}

// Node is an immutable, author-written condition tree node.
//
// Only the fields relevant to Kind are populated: Children for And/Or/Not
// (Not carries exactly one), Topic for Completed/Value, Op and Target for
// Value. The zero Node is invalid.
type Node struct {
	Kind     Kind    `json:"kind"`
	Children []Node  `json:"children,omitempty"`
	Topic    string  `json:"topic,omitempty"`
	Op       CmpOp   `json:"op,omitempty"`
	Target   float64 `json:"target,omitempty"`
}

// And builds a conjunction over children. Zero children is vacuously true.
func And(children ...Node) Node {
	return Node{Kind: KindAnd, Children: children}
}

// Or builds a disjunction over children. Zero children never satisfies.
func Or(children ...Node) Node {
	return Node{Kind: KindOr, Children: children}
}

// Not builds an inversion over a single child.
func Not(child Node) Node {
	return Node{Kind: KindNot, Children: []Node{child}}
}

// True builds a vacuously satisfied leaf with no topic subscription.
func True() Node {
	return Node{Kind: KindTrue}
}

// Completed builds a leaf satisfied once topic has ever reported completion.
func Completed(topic string) Node {
	return Node{Kind: KindCompleted, Topic: topic}
}

// Value builds a leaf satisfied while topic's last reported value compares
// favorably against target.
func Value(topic string, op CmpOp, target float64) Node {
	return Node{Kind: KindValue, Topic: topic, Op: op, Target: target}
}

// Walk visits n and every descendant in depth-first pre-order.
func (n Node) Walk(visit func(Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// RepeatKind identifies a repeat lifecycle policy.
type RepeatKind uint8

const (
	// RepeatOnce fires once, is marked in persistent unlock state, and the
	// graph is despawned.
	RepeatOnce RepeatKind = iota + 1
	// RepeatFinite fires up to Limit times, resetting between firings, then
	// despawns. Progress is session-scoped.
	RepeatFinite
	// RepeatInfinite resets after every firing and never despawns on its own.
	RepeatInfinite
)

// RepeatMode is the lifecycle policy attached to an unlock definition.
type RepeatMode struct {
	Kind  RepeatKind `json:"kind"`
	Limit uint32     `json:"limit,omitempty"` // RepeatFinite only
}

// Once is the one-shot repeat mode.
func Once() RepeatMode { return RepeatMode{Kind: RepeatOnce} }

// Finite is the bounded-repeat mode firing at most n times.
func Finite(n uint32) RepeatMode { return RepeatMode{Kind: RepeatFinite, Limit: n} }

// Infinite is the unbounded-repeat mode.
func Infinite() RepeatMode { return RepeatMode{Kind: RepeatInfinite} }

var repeatKindNames = map[RepeatKind]string{
	RepeatOnce:     "once",
	RepeatFinite:   "finite",
	RepeatInfinite: "infinite",
}

// String renders the mode in definition syntax: "once", "infinite", "finite(3)".
func (m RepeatMode) String() string {
	if m.Kind == RepeatFinite {
		return fmt.Sprintf("finite(%d)", m.Limit)
	}
	if name, ok := repeatKindNames[m.Kind]; ok {
		return name
	}
	return fmt.Sprintf("repeat(%d)", uint8(m.Kind))
}

var finitePattern = regexp.MustCompile(`^finite\((\d+)\)$`)

// ParseRepeatMode parses definition syntax: "once", "infinite", "finite(n)".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "once":
		return Once(), nil
	case "infinite":
		return Infinite(), nil
	}
	if matches := finitePattern.FindStringSubmatch(s); matches != nil {
		n, err := strconv.ParseUint(matches[1], 10, 32)
		if err != nil {
			return RepeatMode{}, fmt.Errorf("invalid repeat limit %q: %w", matches[1], err)
		}
		return Finite(uint32(n)), nil
	}
	return RepeatMode{}, fmt.Errorf("invalid repeat mode %q, must be \"once\", \"infinite\", or finite(n)", s)
}

// UnlockDef is a compiled unlock definition, the read-only input to the
// graph compiler. RewardID is an opaque payload identifier passed through
// to the Achieved event, never interpreted by the engine.
type UnlockDef struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name,omitempty"`
	Condition   Node       `json:"condition"`
	RewardID    string     `json:"reward_id"`
	Repeat      RepeatMode `json:"repeat"`
}

// Topics returns the distinct topic keys the condition tree references,
// in first-appearance order.
func (d UnlockDef) Topics() []string {
	var topics []string
	seen := make(map[string]bool)
	d.Condition.Walk(func(n Node) {
		if n.Topic != "" && !seen[n.Topic] {
			seen[n.Topic] = true
			topics = append(topics, n.Topic)
		}
	})
	return topics
}

// Achieved is the sole externally observable output of the engine, emitted
// exactly when a compiled unlock's condition tree becomes satisfied.
//
// Seq is the engine's logical clock stamp (CP: no wall clocks in ordering);
// Session identifies the engine session that produced the event.
type Achieved struct {
	UnlockID    string `json:"unlock_id"`
	DisplayName string `json:"display_name,omitempty"`
	RewardID    string `json:"reward_id"`
	Seq         int64  `json:"seq,omitempty"`
	Session     string `json:"session,omitempty"`
}
