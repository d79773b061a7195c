package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/formsync/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Type, event.FormKey, event.Outcome)
	}

	return buf.String()
}

// assertFormState checks the form's own attributes (subset match).
// The fields array is not part of the comparison.
func assertFormState(result *Result, a Assertion) error {
	f, ok := result.Final.Find(a.Form)
	if !ok {
		return &AssertionError{
			Type:     AssertFormState,
			Expected: fmt.Sprintf("form %s", a.Form),
			Actual:   "form not found",
			Trace:    result.Trace,
		}
	}
	actual := f.ToValue()
	delete(actual, "fields")
	if diff := matchSubset(actual, a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertFormState,
			Expected: fmt.Sprintf("form %s with %v", a.Form, a.Expect),
			Actual:   diff,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFieldState checks one field's attributes (subset match).
func assertFieldState(result *Result, a Assertion) error {
	where := fmt.Sprintf("field %s.%s of form %s", a.EntityPath, a.Field, a.Form)
	f, ok := result.Final.Find(a.Form)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldState,
			Expected: where,
			Actual:   "form not found",
			Trace:    result.Trace,
		}
	}
	fld, ok := f.Field(a.EntityPath, a.Field)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldState,
			Expected: where,
			Actual:   "field not found",
			Trace:    result.Trace,
		}
	}
	if diff := matchSubset(fld.ToValue(), a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertFieldState,
			Expected: fmt.Sprintf("%s with %v", where, a.Expect),
			Actual:   diff,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFormCount(result *Result, a Assertion) error {
	if len(result.Final) != a.Count {
		return &AssertionError{
			Type:     AssertFormCount,
			Expected: fmt.Sprintf("%d form(s)", a.Count),
			Actual:   fmt.Sprintf("%d form(s): %v", len(result.Final), result.Final.Keys()),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFormAbsent(result *Result, a Assertion) error {
	if _, ok := result.Final.Find(a.Form); ok {
		return &AssertionError{
			Type:     AssertFormAbsent,
			Expected: fmt.Sprintf("no form %s", a.Form),
			Actual:   "form exists",
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertOutcomeCount(result *Result, a Assertion) error {
	count := 0
	for _, event := range result.Trace {
		if event.Outcome == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d step(s) with outcome %s", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchSubset checks that actual holds every expected key with an equal
// value. Extra keys in actual are ignored. Returns a description of the
// first difference, or "" on a match.
func matchSubset(actual value.Object, expected map[string]any) string {
	exp, err := value.FromAny(expected)
	if err != nil {
		return fmt.Sprintf("invalid expectation: %v", err)
	}
	want := exp.(value.Object)
	for _, key := range want.SortedKeys() {
		got, ok := actual[key]
		if !ok {
			return fmt.Sprintf("%s missing", key)
		}
		if !value.Equal(got, want[key]) {
			return fmt.Sprintf("%s = %s, want %s", key, render(got), render(want[key]))
		}
	}
	return ""
}

func render(v value.Value) string {
	data, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFormState:
			err = assertFormState(result, assertion)
		case AssertFieldState:
			err = assertFieldState(result, assertion)
		case AssertFormCount:
			err = assertFormCount(result, assertion)
		case AssertFormAbsent:
			err = assertFormAbsent(result, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
