package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formsync/internal/value"
)

// Snapshot renders a scenario run for golden comparison: the trace plus the
// final forms collection, as one canonical JSON document.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make(value.Array, len(result.Trace))
	for i, event := range result.Trace {
		obj := value.Object{
			"seq":     value.Int(event.Seq),
			"type":    value.String(event.Type),
			"outcome": value.String(event.Outcome),
		}
		if event.FormKey != "" {
			obj["form_key"] = value.String(event.FormKey)
		}
		trace[i] = obj
	}

	doc := value.Object{
		"scenario_name": value.String(scenarioName),
		"trace":         trace,
		"final":         result.Final.ToValue(),
	}
	if result.Session != "" {
		doc["session"] = value.String(result.Session)
	}
	return value.MarshalCanonical(doc)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
