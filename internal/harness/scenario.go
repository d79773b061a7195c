package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formsync/internal/command"
)

// Scenario defines a form state scenario.
// Scenarios apply a sequence of commands and assert on the outcome of each
// step and on the final forms collection.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Defs lists CUE files or directories of form definitions.
	// Paths are relative to the scenario file location.
	Defs []string `yaml:"defs,omitempty"`

	// Session is an optional fixed session ID for deterministic tests.
	// If empty, defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Steps are applied in order after the definitions.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final forms collection.
	// Supported types: form_state, field_state, form_count, form_absent,
	// outcome_count.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one wire command with an optional expected outcome.
type Step struct {
	// Command is the flat wire object, including its "type" tag.
	Command map[string]any `yaml:"command"`

	// Expect is the expected outcome: "OK" or a transition error code.
	// Empty means OK.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "form_state": form attributes (subset match, fields excluded)
	// - "field_state": field attributes (subset match)
	// - "form_count": number of live forms
	// - "form_absent": no form with the key exists
	// - "outcome_count": number of steps with the given outcome
	Type string `yaml:"type"`

	// Form is the form key (form_state, field_state, form_absent).
	Form string `yaml:"form,omitempty"`

	// EntityPath and Field address a field (field_state).
	EntityPath string `yaml:"entity_path,omitempty"`
	Field      string `yaml:"field,omitempty"`

	// Expect contains expected attribute values.
	// Subset match - only specified keys are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Outcome is the outcome to count (outcome_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number (form_count, outcome_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFormState    = "form_state"
	AssertFieldState   = "field_state"
	AssertFormCount    = "form_count"
	AssertFormAbsent   = "form_absent"
	AssertOutcomeCount = "outcome_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Defs paths are resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative defs paths against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve defs paths BEFORE validation
	for i, p := range scenario.Defs {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Defs[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 && len(s.Defs) == 0 {
		return fmt.Errorf("steps list is required when no defs are given")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Defs {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("defs path not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if step.Command == nil {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if _, ok := step.Command["type"]; !ok {
			return fmt.Errorf("steps[%d]: command type is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFormState:
		if a.Form == "" {
			return fmt.Errorf("assertions[%d]: form is required for form_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for form_state", index)
		}
	case AssertFieldState:
		if a.Form == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: form and field are required for field_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for field_state", index)
		}
	case AssertFormCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for form_count", index)
		}
	case AssertFormAbsent:
		if a.Form == "" {
			return fmt.Errorf("assertions[%d]: form is required for form_absent", index)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// commandType returns the declared type of a step for error messages.
func (s Step) commandType() command.Type {
	if t, ok := s.Command["type"].(string); ok {
		return command.Type(t)
	}
	return ""
}
