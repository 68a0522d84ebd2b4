package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Primitives(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", `"hello"`},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"uint32", uint32(3), "3"},
		{"integral float", 5.0, "5"},
		{"fractional float", 0.5, "0.5"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"apple": 2,
		"mango": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"apple":2,"mango":3,"zebra":1}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as e + combining acute accent normalizes to the precomposed form.
	decomposed := "café"
	precomposed := "café"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(precomposed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_Nested(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"trace": []any{
			map[string]any{"seq": int64(1), "id": "a"},
			map[string]any{"seq": int64(2), "id": "b"},
		},
		"name": "s",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"s","trace":[{"id":"a","seq":1},{"id":"b","seq":2}]}`, string(got))
}

func TestMarshalCanonical_Forbidden(t *testing.T) {
	for _, in := range []any{nil, math.NaN(), math.Inf(1), math.Inf(-1), complex(1, 2)} {
		_, err := MarshalCanonical(in)
		assert.Error(t, err, "input %v", in)
	}
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	in := map[string]any{"b": 1.5, "a": []any{"x", true}, "c": map[string]any{"k": "v"}}
	first, err := MarshalCanonical(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(in)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
