package models

// Artifact is a downloadable file produced by the export handler.
type Artifact struct {
	Filename string
	Content  []byte
}

// Outcome is what the orchestrator hands back to the transport layer
// for one processed message.
type Outcome struct {
	Reply    string
	Exported bool
	Artifact *Artifact
	// QueryText accompanies an export so the transport can show the
	// SQL that produced the file.
	QueryText string
}
