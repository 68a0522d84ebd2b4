package harness

import (
	"fmt"
	"slices"
)

// Failure describes one assertion that did not hold.
type Failure struct {
	Index   int    // assertion index within the scenario
	Type    string
	Message string
}

func (f Failure) String() string {
	return fmt.Sprintf("assertion[%d] %s: %s", f.Index, f.Type, f.Message)
}

// Evaluate checks every assertion against the result and returns all
// failures (does not fail-fast).
func Evaluate(result *Result) []Failure {
	var failures []Failure
	for i, a := range result.Scenario.Assertions {
		if msg := evaluateOne(result, a); msg != "" {
			failures = append(failures, Failure{Index: i, Type: a.Type, Message: msg})
		}
	}
	return failures
}

// evaluateOne returns an empty string when the assertion holds.
func evaluateOne(result *Result, a Assertion) string {
	switch a.Type {
	case "achieved_count":
		count := 0
		for _, ev := range result.Achieved {
			if ev.UnlockID == a.Unlock {
				count++
			}
		}
		if count != a.Count {
			return fmt.Sprintf("unlock %s achieved %d time(s), want %d", a.Unlock, count, a.Count)
		}

	case "achieved_order":
		ids := make([]string, len(result.Achieved))
		for i, ev := range result.Achieved {
			ids[i] = ev.UnlockID
		}
		if !slices.Equal(ids, a.Order) {
			return fmt.Sprintf("achieved order %v, want %v", ids, a.Order)
		}

	case "graph_alive":
		if !result.eng.Compiled(a.Unlock) {
			return fmt.Sprintf("unlock %s should have a live graph, but was despawned", a.Unlock)
		}

	case "graph_despawned":
		if result.eng.Compiled(a.Unlock) {
			return fmt.Sprintf("unlock %s should be despawned, but has a live graph", a.Unlock)
		}

	case "progress":
		got := int(result.eng.Progress(a.Unlock))
		if got != a.Count {
			return fmt.Sprintf("unlock %s progress %d, want %d", a.Unlock, got, a.Count)
		}

	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}
