package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: definitions, a topic event
// sequence, and assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Definitions is inline CUE source with a top-level `unlock` struct.
	Definitions string `yaml:"definitions"`

	// Session is an optional fixed session token. Defaults to
	// "test-session-default" for deterministic golden comparison.
	Session string `yaml:"session,omitempty"`

	// Events is the ordered topic event sequence to dispatch.
	Events []EventStep `yaml:"events"`

	// Assertions validate the achieved trace and graph set afterwards.
	Assertions []Assertion `yaml:"assertions"`
}

// EventStep is one dispatched event. Exactly one field should be set.
type EventStep struct {
	// Completed dispatches a "topic completed" signal for the named topic.
	Completed string `yaml:"completed,omitempty"`

	// Value dispatches a "topic value changed" signal.
	Value *ValueStep `yaml:"value,omitempty"`

	// Tick runs a propagation pass with no external event.
	Tick bool `yaml:"tick,omitempty"`

	// Batch dispatches one simulation tick's worth of coalesced changes.
	Batch []BatchChange `yaml:"batch,omitempty"`
}

// ValueStep names a topic and the value it now reports.
type ValueStep struct {
	Topic  string  `yaml:"topic"`
	Amount float64 `yaml:"amount"`
}

// BatchChange is one entry of a batch step.
type BatchChange struct {
	Topic     string  `yaml:"topic"`
	Completed bool    `yaml:"completed,omitempty"`
	Value     float64 `yaml:"value,omitempty"`
}

// Assertion validates the achieved trace or the graph set.
type Assertion struct {
	// Type is one of: achieved_count, achieved_order, graph_alive,
	// graph_despawned, progress.
	Type string `yaml:"type"`

	// Unlock is the definition id (achieved_count, graph_*, progress).
	Unlock string `yaml:"unlock,omitempty"`

	// Count is the expected firing or progress count.
	Count int `yaml:"count,omitempty"`

	// Order is the full expected achieved id sequence (achieved_order).
	Order []string `yaml:"order,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario name is required")
	}
	if s.Definitions == "" {
		return nil, fmt.Errorf("scenario %s: definitions are required", s.Name)
	}
	for i, step := range s.Events {
		if err := validateStep(step); err != nil {
			return nil, fmt.Errorf("scenario %s: event[%d]: %w", s.Name, i, err)
		}
	}
	return &s, nil
}

func validateStep(step EventStep) error {
	set := 0
	if step.Completed != "" {
		set++
	}
	if step.Value != nil {
		set++
	}
	if step.Tick {
		set++
	}
	if len(step.Batch) > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of completed/value/tick/batch must be set")
	}
	return nil
}
