package reconciler

import "time"

// StepStatus is the canonical condition of one response step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// Top-level run states the task backend is known to report. Matching is
// case-insensitive; anything unrecognized is carried through verbatim on
// the snapshot.
const (
	StateNotStarted = "not_started"
	StateStarted    = "STARTED"
	StateProgress   = "PROGRESS"
	StateRunning    = "RUNNING"
	StateSuccess    = "SUCCESS"
	StateFailure    = "FAILURE"
	StateRevoked    = "REVOKED"
)

// StepState is one step's reconciled view.
type StepState struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	Status      StepStatus `json:"status"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Logs        []string   `json:"logs,omitempty"`
}

// Snapshot is the complete reconciled view of one workflow run. Snapshots
// are immutable once built; Merge always returns a fresh value so callers
// can compare by reference to skip redundant renders.
type Snapshot struct {
	Steps         []StepState `json:"steps"`
	TopLevelState string      `json:"top_level_state"`
}

// Step returns the state for a key, if present.
func (s *Snapshot) Step(key string) (StepState, bool) {
	for _, st := range s.Steps {
		if st.Key == key {
			return st, true
		}
	}
	return StepState{}, false
}

// StepPatch is a partial update for one step, produced by Parse and
// consumed by Merge. Status is always meaningful; the remaining fields are
// applied only when supplied (non-nil).
type StepPatch struct {
	Key       string
	Status    StepStatus
	Timestamp *time.Time
	Duration  *string
	Logs      []string
}

// LogsMode selects how Merge treats a patch's log lines.
type LogsMode int

const (
	// LogsReplace swaps a step's log lines for the patch's, wholesale.
	// This matches the list-of-steps payload shape, where every poll
	// carries each step's full log.
	LogsReplace LogsMode = iota
	// LogsAppend accumulates patch log lines across polls.
	LogsAppend
)

// MergeOptions tunes Merge behavior.
type MergeOptions struct {
	Logs LogsMode
}
