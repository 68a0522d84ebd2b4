// Package compiler parses authored CUE unlock definitions into ir types.
// It covers structure only; advisory content checks live in validate.go,
// and the condition-tree-to-runtime-graph compiler lives in package graph.
package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/halcyongames/sigil/internal/ir"
)

// CompileUnlock parses a CUE value into an UnlockDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the unlock struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`unlock: "first-blood": { ... }`)
//	def, err := CompileUnlock(v.LookupPath(cue.ParsePath(`unlock."first-blood"`)))
func CompileUnlock(v cue.Value) (*ir.UnlockDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.UnlockDef{}

	// Parse the id from the struct label, e.g.
	// `unlock: "first-blood": { ... }` → id is "first-blood".
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	if def.ID == "" {
		return nil, &CompileError{
			Field:   "id",
			Message: "unlock id label is required",
			Pos:     v.Pos(),
		}
	}

	// display_name is optional.
	nameVal := v.LookupPath(cue.ParsePath("display_name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.DisplayName = name
	}

	// reward is required; it is an opaque payload id, never interpreted.
	rewardVal := v.LookupPath(cue.ParsePath("reward"))
	if !rewardVal.Exists() {
		return nil, &CompileError{
			Field:   "reward",
			Message: "reward is required",
			Pos:     v.Pos(),
		}
	}
	reward, err := rewardVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.RewardID = reward

	// repeat is required: "once", "infinite", or finite(n).
	repeatVal := v.LookupPath(cue.ParsePath("repeat"))
	if !repeatVal.Exists() {
		return nil, &CompileError{
			Field:   "repeat",
			Message: "repeat is required",
			Pos:     v.Pos(),
		}
	}
	repeatStr, err := repeatVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	repeat, err := ir.ParseRepeatMode(repeatStr)
	if err != nil {
		return nil, &CompileError{
			Field:   "repeat",
			Message: err.Error(),
			Pos:     repeatVal.Pos(),
		}
	}
	def.Repeat = repeat

	// condition is required.
	condVal := v.LookupPath(cue.ParsePath("condition"))
	if !condVal.Exists() {
		return nil, &CompileError{
			Field:   "condition",
			Message: "condition is required",
			Pos:     v.Pos(),
		}
	}
	cond, err := parseCondition(condVal)
	if err != nil {
		return nil, err
	}
	def.Condition = cond

	return def, nil
}

// Condition grammar, one variant per struct:
//
//	{all: [cond, ...]}                      → And
//	{any: [cond, ...]}                      → Or
//	{not: cond}                             → Not
//	{always: true}                          → True
//	{completed: "topic"}                    → Completed
//	{value: {topic: "t", op: "ge", target: 5}} → Value
var conditionVariants = []string{"all", "any", "not", "always", "completed", "value"}

// parseCondition recursively parses a condition struct. Exactly one
// variant key must be present.
func parseCondition(v cue.Value) (ir.Node, error) {
	if err := v.Err(); err != nil {
		return ir.Node{}, formatCUEError(err)
	}

	var present []string
	for _, name := range conditionVariants {
		if v.LookupPath(cue.ParsePath(name)).Exists() {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return ir.Node{}, &CompileError{
			Field:   "condition",
			Message: fmt.Sprintf("condition must contain one of %v", conditionVariants),
			Pos:     v.Pos(),
		}
	}
	if len(present) > 1 {
		return ir.Node{}, &CompileError{
			Field:   "condition",
			Message: fmt.Sprintf("condition is ambiguous, found %v", present),
			Pos:     v.Pos(),
		}
	}

	switch present[0] {
	case "all":
		children, err := parseConditionList(v.LookupPath(cue.ParsePath("all")))
		if err != nil {
			return ir.Node{}, err
		}
		return ir.And(children...), nil

	case "any":
		children, err := parseConditionList(v.LookupPath(cue.ParsePath("any")))
		if err != nil {
			return ir.Node{}, err
		}
		return ir.Or(children...), nil

	case "not":
		child, err := parseCondition(v.LookupPath(cue.ParsePath("not")))
		if err != nil {
			return ir.Node{}, err
		}
		return ir.Not(child), nil

	case "always":
		alwaysVal := v.LookupPath(cue.ParsePath("always"))
		always, err := alwaysVal.Bool()
		if err != nil {
			return ir.Node{}, formatCUEError(err)
		}
		if !always {
			return ir.Node{}, &CompileError{
				Field:   "always",
				Message: "always must be true; omit the condition variant instead",
				Pos:     alwaysVal.Pos(),
			}
		}
		return ir.True(), nil

	case "completed":
		topic, err := v.LookupPath(cue.ParsePath("completed")).String()
		if err != nil {
			return ir.Node{}, formatCUEError(err)
		}
		return ir.Completed(topic), nil

	case "value":
		return parseValueCondition(v.LookupPath(cue.ParsePath("value")))
	}

	// Unreachable: present[0] is one of conditionVariants.
	return ir.Node{}, &CompileError{Field: "condition", Message: "unhandled variant", Pos: v.Pos()}
}

func parseConditionList(v cue.Value) ([]ir.Node, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var children []ir.Node
	for iter.Next() {
		child, err := parseCondition(iter.Value())
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseValueCondition(v cue.Value) (ir.Node, error) {
	topicVal := v.LookupPath(cue.ParsePath("topic"))
	if !topicVal.Exists() {
		return ir.Node{}, &CompileError{
			Field:   "value.topic",
			Message: "topic is required",
			Pos:     v.Pos(),
		}
	}
	topic, err := topicVal.String()
	if err != nil {
		return ir.Node{}, formatCUEError(err)
	}

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return ir.Node{}, &CompileError{
			Field:   "value.op",
			Message: `op is required (one of "ge", "gt", "le", "lt", "eq")`,
			Pos:     v.Pos(),
		}
	}
	opStr, err := opVal.String()
	if err != nil {
		return ir.Node{}, formatCUEError(err)
	}
	op, err := ir.ParseCmpOp(opStr)
	if err != nil {
		return ir.Node{}, &CompileError{
			Field:   "value.op",
			Message: err.Error(),
			Pos:     opVal.Pos(),
		}
	}

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return ir.Node{}, &CompileError{
			Field:   "value.target",
			Message: "target is required",
			Pos:     v.Pos(),
		}
	}
	target, err := targetVal.Float64()
	if err != nil {
		return ir.Node{}, formatCUEError(err)
	}

	return ir.Value(topic, op, target), nil
}
