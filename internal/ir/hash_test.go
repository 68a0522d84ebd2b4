package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDef() UnlockDef {
	return UnlockDef{
		ID:          "hunter",
		DisplayName: "Hunter",
		RewardID:    "badge/hunter",
		Repeat:      Finite(3),
		Condition: And(
			Completed("quest/tutorial"),
			Value("stats/kills", CmpGe, 10),
		),
	}
}

func TestDefHash_Deterministic(t *testing.T) {
	a, err := DefHash(sampleDef())
	require.NoError(t, err)
	b, err := DefHash(sampleDef())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex SHA-256
}

func TestDefHash_SensitiveToContent(t *testing.T) {
	base, err := DefHash(sampleDef())
	require.NoError(t, err)

	changes := []func(*UnlockDef){
		func(d *UnlockDef) { d.ID = "gatherer" },
		func(d *UnlockDef) { d.DisplayName = "" },
		func(d *UnlockDef) { d.RewardID = "badge/other" },
		func(d *UnlockDef) { d.Repeat = Finite(4) },
		func(d *UnlockDef) { d.Repeat = Infinite() },
		func(d *UnlockDef) { d.Condition.Children[1].Target = 11 },
		func(d *UnlockDef) { d.Condition.Children[1].Op = CmpGt },
		func(d *UnlockDef) { d.Condition = Or(d.Condition.Children...) },
	}
	for i, change := range changes {
		def := sampleDef()
		change(&def)
		h, err := DefHash(def)
		require.NoError(t, err)
		assert.NotEqual(t, base, h, "change %d should alter the hash", i)
	}
}

func TestDefHash_NFCEquivalentTopics(t *testing.T) {
	// The canonical string encoder NFC-normalizes, so NFC-equivalent
	// topics hash identically.
	a := sampleDef()
	a.Condition.Children[0].Topic = "café"
	b := sampleDef()
	b.Condition.Children[0].Topic = "café"

	ha, err := DefHash(a)
	require.NoError(t, err)
	hb, err := DefHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHashWithDomain_Separation(t *testing.T) {
	a := hashWithDomain("sigil/def/v1", []byte("payload"))
	b := hashWithDomain("sigil/def/v2", []byte("payload"))
	assert.NotEqual(t, a, b)
}
