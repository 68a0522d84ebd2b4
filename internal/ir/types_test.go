package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_JSONRoundTrip(t *testing.T) {
	for kind, name := range kindNames {
		data, err := json.Marshal(kind)
		require.NoError(t, err)
		assert.Equal(t, `"`+name+`"`, string(data))

		var parsed Kind
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, kind, parsed)
	}
}

func TestKind_UnmarshalUnknown(t *testing.T) {
	var k Kind
	err := json.Unmarshal([]byte(`"maybe"`), &k)
	assert.Error(t, err)
}

func TestKind_MarshalInvalid(t *testing.T) {
	_, err := json.Marshal(Kind(99))
	assert.Error(t, err)
}

func TestParseCmpOp(t *testing.T) {
	for op, name := range cmpNames {
		parsed, err := ParseCmpOp(name)
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}

	_, err := ParseCmpOp("gte")
	assert.Error(t, err)
}

func TestCmpOp_Compare(t *testing.T) {
	tests := []struct {
		op       CmpOp
		reported float64
		target   float64
		want     bool
	}{
		{CmpGe, 5, 5, true},
		{CmpGe, 4.999, 5, false},
		{CmpGt, 5, 5, false},
		{CmpGt, 5.001, 5, true},
		{CmpLe, 5, 5, true},
		{CmpLe, 5.001, 5, false},
		{CmpLt, 4.999, 5, true},
		{CmpLt, 5, 5, false},
		{CmpEq, 5, 5, true},
		{CmpEq, 5.0000001, 5, false}, // exact IEEE, no epsilon
	}
	for _, tt := range tests {
		got := tt.op.Compare(tt.reported, tt.target)
		assert.Equal(t, tt.want, got, "%v %s %v", tt.reported, tt.op, tt.target)
	}
}

func TestCmpOp_CompareUnknownOp(t *testing.T) {
	assert.False(t, CmpOp(0).Compare(1, 1))
}

func TestRepeatMode_String(t *testing.T) {
	assert.Equal(t, "once", Once().String())
	assert.Equal(t, "infinite", Infinite().String())
	assert.Equal(t, "finite(3)", Finite(3).String())
	assert.Equal(t, "finite(0)", Finite(0).String())
}

func TestParseRepeatMode(t *testing.T) {
	m, err := ParseRepeatMode("once")
	require.NoError(t, err)
	assert.Equal(t, Once(), m)

	m, err = ParseRepeatMode("infinite")
	require.NoError(t, err)
	assert.Equal(t, Infinite(), m)

	m, err = ParseRepeatMode("finite(7)")
	require.NoError(t, err)
	assert.Equal(t, Finite(7), m)
}

func TestParseRepeatMode_Invalid(t *testing.T) {
	for _, s := range []string{"", "twice", "finite", "finite()", "finite(-1)", "finite(x)", "Once"} {
		_, err := ParseRepeatMode(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseRepeatMode_RoundTrip(t *testing.T) {
	for _, m := range []RepeatMode{Once(), Infinite(), Finite(1), Finite(42)} {
		parsed, err := ParseRepeatMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestNode_Walk(t *testing.T) {
	tree := And(
		Completed("quest/a"),
		Or(
			Value("stats/kills", CmpGe, 10),
			Not(Completed("quest/b")),
		),
	)

	var kinds []Kind
	tree.Walk(func(n Node) { kinds = append(kinds, n.Kind) })

	assert.Equal(t, []Kind{KindAnd, KindCompleted, KindOr, KindValue, KindNot, KindCompleted}, kinds)
}

func TestUnlockDef_Topics(t *testing.T) {
	def := UnlockDef{
		ID: "hunter",
		Condition: And(
			Completed("quest/a"),
			Value("stats/kills", CmpGe, 10),
			Completed("quest/a"), // duplicate topic
			True(),
		),
	}
	assert.Equal(t, []string{"quest/a", "stats/kills"}, def.Topics())
}

func TestUnlockDef_TopicsEmpty(t *testing.T) {
	def := UnlockDef{ID: "freebie", Condition: True()}
	assert.Empty(t, def.Topics())
}
