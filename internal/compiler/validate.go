package compiler

import (
	"fmt"
	"strings"

	"github.com/halcyongames/sigil/internal/ir"
)

// Validation issue codes (E100-E199).
//
// Issues are advisory, never fatal: mis-authored content loads fine and
// manifests as "this never unlocks" at runtime. Validation exists so the
// author hears about it at compile time instead.
const (
	ErrEmptyAnyGate     = "E101" // zero-child any can never be raised
	ErrNotChildCount    = "E102" // not requires exactly one child
	ErrFiniteZeroLimit  = "E103" // finite(0) despawns on first firing
	ErrBlankTopic       = "E104" // blank topic is permanently unmet
	ErrVacuousCondition = "E105" // condition is satisfied at compile time
	ErrRewardEmpty      = "E106" // empty reward id
	ErrDuplicateTopic   = "E107" // topic appears on more than one sensor
)

// Issue is one advisory validation finding.
type Issue struct {
	ID      string `json:"id"`      // definition id
	Field   string `json:"field"`   // condition path or field name
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s: %s", i.Code, i.ID, i.Field, i.Message)
}

// Validate inspects a compiled definition for content that is structurally
// valid but almost certainly not what the author meant. Returns all issues
// found (does not fail-fast).
func Validate(def *ir.UnlockDef) []Issue {
	var issues []Issue

	if strings.TrimSpace(def.RewardID) == "" {
		issues = append(issues, Issue{
			ID:      def.ID,
			Field:   "reward",
			Message: "reward id is empty; the achieved event will carry no payload",
			Code:    ErrRewardEmpty,
		})
	}

	if def.Repeat.Kind == ir.RepeatFinite && def.Repeat.Limit == 0 {
		issues = append(issues, Issue{
			ID:      def.ID,
			Field:   "repeat",
			Message: "finite(0) despawns on its first firing; use \"once\" if that is intended",
			Code:    ErrFiniteZeroLimit,
		})
	}

	issues = append(issues, validateCondition(def.ID, def.Condition, "condition")...)
	issues = append(issues, validateDuplicateTopics(def)...)

	if conditionVacuous(def.Condition) {
		issues = append(issues, Issue{
			ID:      def.ID,
			Field:   "condition",
			Message: "condition is satisfied at compile time and fires immediately",
			Code:    ErrVacuousCondition,
		})
	}

	return issues
}

func validateCondition(id string, n ir.Node, path string) []Issue {
	var issues []Issue
	switch n.Kind {
	case ir.KindOr:
		if len(n.Children) == 0 {
			issues = append(issues, Issue{
				ID:      id,
				Field:   path,
				Message: "any over zero children can never be raised; this never unlocks",
				Code:    ErrEmptyAnyGate,
			})
		}
	case ir.KindNot:
		if len(n.Children) != 1 {
			issues = append(issues, Issue{
				ID:      id,
				Field:   path,
				Message: fmt.Sprintf("not requires exactly one child, found %d", len(n.Children)),
				Code:    ErrNotChildCount,
			})
		}
	case ir.KindCompleted, ir.KindValue:
		if strings.TrimSpace(n.Topic) == "" {
			issues = append(issues, Issue{
				ID:      id,
				Field:   path,
				Message: "blank topic key; this sensor is permanently unmet",
				Code:    ErrBlankTopic,
			})
		}
	}
	for i, c := range n.Children {
		issues = append(issues, validateCondition(id, c, fmt.Sprintf("%s.%s[%d]", path, n.Kind, i))...)
	}
	return issues
}

// validateDuplicateTopics flags topics shared by more than one sensor in a
// tree. Each sensor edges independently, so one signal can satisfy several
// branches at once and a repeating unlock fires more often than a reading
// of the condition suggests.
func validateDuplicateTopics(def *ir.UnlockDef) []Issue {
	counts := make(map[string]int)
	var order []string
	def.Condition.Walk(func(n ir.Node) {
		if n.Topic == "" {
			return
		}
		if counts[n.Topic] == 0 {
			order = append(order, n.Topic)
		}
		counts[n.Topic]++
	})

	var issues []Issue
	for _, topic := range order {
		if counts[topic] < 2 {
			continue
		}
		issues = append(issues, Issue{
			ID:      def.ID,
			Field:   "condition",
			Message: fmt.Sprintf("topic %q appears on %d sensors; one signal can satisfy several branches at once", topic, counts[topic]),
			Code:    ErrDuplicateTopic,
		})
	}
	return issues
}

// conditionVacuous reports whether a condition holds with no topic ever
// reported: True leaves, empty all-gates, and not-gates over unmet children.
// Mirrors the graph's construction-time evaluation.
func conditionVacuous(n ir.Node) bool {
	switch n.Kind {
	case ir.KindTrue:
		return true
	case ir.KindAnd:
		for _, c := range n.Children {
			if !conditionVacuous(c) {
				return false
			}
		}
		return true
	case ir.KindOr:
		for _, c := range n.Children {
			if conditionVacuous(c) {
				return true
			}
		}
		return false
	case ir.KindNot:
		return len(n.Children) == 1 && !conditionVacuous(n.Children[0])
	default:
		return false
	}
}
