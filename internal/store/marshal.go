package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/value"
)

// marshalPayload converts a command to canonical JSON TEXT for storage.
// The type tag is stored in its own column.
func marshalPayload(cmd command.Command) (string, error) {
	data, err := value.MarshalCanonical(command.Payload(cmd))
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalCommand rebuilds a command from its type column and payload TEXT.
func unmarshalCommand(typ, payload string) (command.Command, error) {
	var obj value.Object
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	obj["type"] = value.String(typ)
	cmd, err := command.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return cmd, nil
}

// marshalState returns the canonical JSON of forms and its snapshot hash.
func marshalState(forms form.Forms) (state, hash string, err error) {
	data, err := forms.Canonical()
	if err != nil {
		return "", "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), value.SnapshotHash(data), nil
}

// unmarshalState parses a stored forms collection.
func unmarshalState(state string) (form.Forms, error) {
	var forms form.Forms
	if err := json.Unmarshal([]byte(state), &forms); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return forms, nil
}

// Outcome maps the error returned by engine.Apply to the stored outcome.
// Errors that are not transition errors map to "ERROR".
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := engine.Code(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
