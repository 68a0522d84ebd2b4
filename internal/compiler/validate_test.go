package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyongames/sigil/internal/ir"
)

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code
	}
	return out
}

func cleanDef() ir.UnlockDef {
	return ir.UnlockDef{
		ID:       "hunter",
		RewardID: "badge/hunter",
		Repeat:   ir.Once(),
		Condition: ir.And(
			ir.Completed("quest/a"),
			ir.Value("stats/kills", ir.CmpGe, 10),
		),
	}
}

func TestValidate_CleanDefinition(t *testing.T) {
	def := cleanDef()
	assert.Empty(t, Validate(&def))
}

func TestValidate_EmptyReward(t *testing.T) {
	def := cleanDef()
	def.RewardID = "  "
	assert.Contains(t, codes(Validate(&def)), ErrRewardEmpty)
}

func TestValidate_FiniteZeroLimit(t *testing.T) {
	def := cleanDef()
	def.Repeat = ir.Finite(0)
	assert.Contains(t, codes(Validate(&def)), ErrFiniteZeroLimit)
}

func TestValidate_EmptyAnyGate(t *testing.T) {
	def := cleanDef()
	def.Condition = ir.Or()
	assert.Contains(t, codes(Validate(&def)), ErrEmptyAnyGate)
}

func TestValidate_NotChildCount(t *testing.T) {
	def := cleanDef()
	def.Condition = ir.Node{Kind: ir.KindNot, Children: []ir.Node{
		ir.Completed("a"),
		ir.Completed("b"),
	}}
	assert.Contains(t, codes(Validate(&def)), ErrNotChildCount)
}

func TestValidate_BlankTopic(t *testing.T) {
	def := cleanDef()
	def.Condition = ir.And(
		ir.Completed(" "),
		ir.Value("", ir.CmpGe, 1),
	)
	issues := Validate(&def)
	got := codes(issues)
	assert.Equal(t, []string{ErrBlankTopic, ErrBlankTopic}, got)

	// The issue path points into the tree.
	assert.Equal(t, "condition.and[0]", issues[0].Field)
	assert.Equal(t, "condition.and[1]", issues[1].Field)
}

func TestValidate_DuplicateTopics(t *testing.T) {
	def := cleanDef()
	def.Condition = ir.Or(
		ir.Value("stats/kills", ir.CmpGe, 10),
		ir.Value("stats/kills", ir.CmpGe, 5),
	)
	issues := Validate(&def)
	require.Equal(t, []string{ErrDuplicateTopic}, codes(issues))
	assert.Contains(t, issues[0].Message, `"stats/kills"`)
	assert.Contains(t, issues[0].Message, "2 sensors")

	// Nested duplicates count across the whole tree; distinct topics do not.
	def.Condition = ir.And(
		ir.Completed("quest/a"),
		ir.Not(ir.Completed("quest/b")),
		ir.Or(ir.Completed("quest/a"), ir.Completed("quest/a")),
	)
	issues = Validate(&def)
	require.Equal(t, []string{ErrDuplicateTopic}, codes(issues))
	assert.Contains(t, issues[0].Message, "3 sensors")
}

func TestValidate_VacuousCondition(t *testing.T) {
	vacuous := []ir.Node{
		ir.True(),
		ir.And(),
		ir.And(ir.True(), ir.True()),
		ir.Or(ir.Completed("quest/a"), ir.True()),
		ir.Not(ir.Completed("quest/a")),
	}
	for i, cond := range vacuous {
		def := cleanDef()
		def.Condition = cond
		assert.Contains(t, codes(Validate(&def)), ErrVacuousCondition, "condition %d", i)
	}

	notVacuous := []ir.Node{
		ir.Completed("quest/a"),
		ir.And(ir.True(), ir.Completed("quest/a")),
		ir.Or(ir.Completed("quest/a")),
		ir.Not(ir.True()),
		ir.Value("stats/kills", ir.CmpGe, 0),
	}
	for i, cond := range notVacuous {
		def := cleanDef()
		def.Condition = cond
		assert.NotContains(t, codes(Validate(&def)), ErrVacuousCondition, "condition %d", i)
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	def := ir.UnlockDef{
		ID:        "messy",
		RewardID:  "",
		Repeat:    ir.Finite(0),
		Condition: ir.And(ir.Or(), ir.Completed("")),
	}
	issues := Validate(&def)
	got := codes(issues)
	assert.Contains(t, got, ErrRewardEmpty)
	assert.Contains(t, got, ErrFiniteZeroLimit)
	assert.Contains(t, got, ErrEmptyAnyGate)
	assert.Contains(t, got, ErrBlankTopic)
	require.Len(t, issues, 4)

	for _, issue := range issues {
		assert.Equal(t, "messy", issue.ID)
		assert.NotEmpty(t, issue.Message)
	}
}
