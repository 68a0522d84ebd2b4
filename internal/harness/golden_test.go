package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyongames/sigil/internal/ir"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	paths := []string{
		"testdata/scenarios/first_blood.yaml",
		"testdata/scenarios/daily_repeat.yaml",
		"testdata/scenarios/batch_tick.yaml",
	}
	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err)
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestTraceSnapshot_CanonicalMap(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "sample",
		Session:      "s1",
		Trace: []ir.Achieved{
			{UnlockID: "a", DisplayName: "A", RewardID: "r", Seq: 1, Session: "s1"},
			{UnlockID: "b", RewardID: "r2", Seq: 2, Session: "s1"},
		},
	}

	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)

	want := `{"scenario_name":"sample","session":"s1","trace":[` +
		`{"display_name":"A","reward_id":"r","seq":1,"session":"s1","unlock_id":"a"},` +
		`{"reward_id":"r2","seq":2,"session":"s1","unlock_id":"b"}]}`
	assert.Equal(t, want, string(data))
}
