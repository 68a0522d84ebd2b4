package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/halcyongames/sigil/internal/ir"
)

// TraceSnapshot captures the achieved trace of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Session      string
	Trace        []ir.Achieved
}

// toCanonicalMap converts the snapshot to a map[string]any because
// ir.MarshalCanonical only handles maps, slices, and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		evMap := map[string]any{
			"unlock_id": ev.UnlockID,
			"reward_id": ev.RewardID,
			"seq":       ev.Seq,
			"session":   ev.Session,
		}
		if ev.DisplayName != "" {
			evMap["display_name"] = ev.DisplayName
		}
		trace[i] = evMap
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session":       s.Session,
		"trace":         trace,
	}
}

// RunWithGolden executes a scenario and compares the achieved trace against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	defer result.Close()

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-executed scenario's trace against a
// golden file without re-running it.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	session := result.Scenario.Session
	if session == "" {
		session = "test-session-default"
	}
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Session:      session,
		Trace:        result.Achieved,
	}

	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
