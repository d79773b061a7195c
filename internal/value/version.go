package value

// Version constants stamped on sessions in the command log.
const (
	// SchemaVersion is the version of the form state document layout.
	SchemaVersion = "1"

	// EngineVersion is the formsync engine version.
	EngineVersion = "0.1.0"
)
