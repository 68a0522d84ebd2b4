package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyongames/sigil/internal/engine"
	"github.com/halcyongames/sigil/internal/ir"
	"github.com/halcyongames/sigil/internal/store"
)

func TestParseEventLine(t *testing.T) {
	tests := []struct {
		line string
		want engine.Event
	}{
		{"completed quest/boss", engine.Event{Type: engine.EventCompleted, Topic: "quest/boss"}},
		{"value stats/gold 150", engine.Event{Type: engine.EventValue, Topic: "stats/gold", Value: 150}},
		{"value stats/gold 0.5", engine.Event{Type: engine.EventValue, Topic: "stats/gold", Value: 0.5}},
		{"tick", engine.Event{Type: engine.EventTick}},
	}
	for _, tt := range tests {
		got, err := parseEventLine(tt.line)
		require.NoError(t, err, "line %q", tt.line)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseEventLine_Malformed(t *testing.T) {
	lines := []string{
		"completed",
		"completed a b",
		"value stats/gold",
		"value stats/gold abc",
		"value stats/gold 1 2",
		"tock",
	}
	for _, line := range lines {
		_, err := parseEventLine(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestFeedEvents(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	eng := engine.New(st)

	achieved := make(chan ir.Achieved, 4)
	eng.Subscribe(func(ev ir.Achieved) { achieved <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two live definitions the fed events should satisfy.
	_, err = eng.Dispatch(ctx, engine.Event{Type: engine.EventCompile, Def: &ir.UnlockDef{
		ID: "quester", RewardID: "r1", Repeat: ir.Once(), Condition: ir.Completed("quest/a"),
	}})
	require.NoError(t, err)
	_, err = eng.Dispatch(ctx, engine.Event{Type: engine.EventCompile, Def: &ir.UnlockDef{
		ID: "rich", RewardID: "r2", Repeat: ir.Once(), Condition: ir.Value("stats/gold", ir.CmpGe, 50),
	}})
	require.NoError(t, err)

	input := strings.NewReader(`
# comment lines and blanks are skipped

completed quest/a
bogus line
value stats/gold 99
`)
	feedEvents(ctx, input, eng)

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	var got []string
	for range 2 {
		select {
		case ev := <-achieved:
			got = append(got, ev.UnlockID)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for achieved events")
		}
	}
	assert.ElementsMatch(t, []string{"quester", "rich"}, got)

	cancel()
	<-done
}
