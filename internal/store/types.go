package store

import "github.com/roach88/formsync/internal/command"

// OutcomeOK marks a command that changed state without a transition error.
const OutcomeOK = "OK"

// Session is one logged Runtime session.
type Session struct {
	ID            string
	StartSeq      int64
	EngineVersion string
	SchemaVersion string
}

// CommandRecord is one logged command.
type CommandRecord struct {
	ID      string
	Session string
	Seq     int64
	Command command.Command
	// Outcome is OutcomeOK or the engine's transition error code.
	Outcome string
}

// SnapshotRecord is the forms collection after a command.
type SnapshotRecord struct {
	Session   string
	Seq       int64
	StateHash string
	// State is the canonical JSON of the forms collection.
	State string
}
