package models

// UnknownSession describes one session whose project identity could not be
// resolved, with the reason the strategies gave up.
type UnknownSession struct {
	SessionID string `json:"sessionId"`
	FilePath  string `json:"filePath"`
	Reason    string `json:"reason"`
}

// Diagnostics summarizes a provider's unresolved sessions.
type Diagnostics struct {
	Provider     string           `json:"provider"`
	UnknownCount int              `json:"unknownCount"`
	Details      []UnknownSession `json:"details,omitempty"`
}

// RepairMethod names the strategy that produced (or failed to produce) a
// metadata repair.
type RepairMethod string

const (
	RepairFromSidecar      RepairMethod = "sidecar_metadata"
	RepairFromTranscript   RepairMethod = "transcript_filename"
	RepairFromCwdMarker    RepairMethod = "cwd_marker"
	RepairFromWorkspaceKey RepairMethod = "workspace_key"
	RepairFromSessionLog   RepairMethod = "session_log"
	RepairFailed           RepairMethod = "unrepairable"
)

// RepairAction records the outcome of one repair attempt.
type RepairAction struct {
	SessionID    string       `json:"sessionId,omitempty"`
	FlattenedDir string       `json:"flattenedDir,omitempty"`
	ResolvedPath string       `json:"resolvedPath,omitempty"`
	Method       RepairMethod `json:"method"`
	Written      bool         `json:"written"`
	Reason       string       `json:"reason,omitempty"` // set when Method is RepairFailed
}

// RepairReport summarizes a RepairMetadata run.
type RepairReport struct {
	Provider     string         `json:"provider"`
	Planned      int            `json:"planned"`
	Written      int            `json:"written"`
	UnknownCount int            `json:"unknownCount"` // still unresolved after repair
	Details      []RepairAction `json:"details,omitempty"`
}
