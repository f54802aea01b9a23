package reconciler

import (
	"strings"

	"github.com/watchtower-soc/watchtower/internal/catalog"
)

// Merge applies a patch list onto the previously reconciled snapshot and
// returns a new one. The prior snapshot is never mutated; on the first poll
// (prior == nil) the canonical catalog seeds the step list, all pending.
//
// Rules:
//   - patches apply by key; status is always overwritten, timestamp,
//     duration and logs only when the patch supplies them;
//   - keys outside the catalog are appended after all catalog entries,
//     preserving first-seen order across polls, and are never removed;
//   - a SUCCESS top-level state forces every step still pending after the
//     patches to completed — a finished run must not display outstanding
//     work. FAILURE gets no such override.
func Merge(prior *Snapshot, patches []StepPatch, topLevelState string, opts MergeOptions) *Snapshot {
	var steps []StepState
	if prior == nil {
		defs := catalog.Definitions()
		steps = make([]StepState, len(defs))
		for i, def := range defs {
			steps[i] = StepState{Key: def.Key, DisplayName: def.DisplayName, Status: StatusPending}
		}
	} else {
		steps = make([]StepState, len(prior.Steps))
		copy(steps, prior.Steps)
	}

	index := make(map[string]int, len(steps))
	for i, st := range steps {
		index[st.Key] = i
	}

	for _, patch := range patches {
		i, ok := index[patch.Key]
		if !ok {
			steps = append(steps, StepState{
				Key:         patch.Key,
				DisplayName: displayName(patch.Key),
				Status:      StatusPending,
			})
			i = len(steps) - 1
			index[patch.Key] = i
		}
		steps[i] = applyPatch(steps[i], patch, opts.Logs)
	}

	if strings.EqualFold(topLevelState, StateSuccess) {
		for i := range steps {
			if steps[i].Status == StatusPending {
				steps[i].Status = StatusCompleted
			}
		}
	}

	return &Snapshot{Steps: steps, TopLevelState: topLevelState}
}

func applyPatch(step StepState, patch StepPatch, mode LogsMode) StepState {
	step.Status = patch.Status
	if patch.Timestamp != nil {
		step.Timestamp = patch.Timestamp
	}
	if patch.Duration != nil {
		step.Duration = *patch.Duration
	}
	if patch.Logs != nil {
		switch mode {
		case LogsAppend:
			// Fresh slice either way; prior snapshots share backing
			// arrays with the new one.
			merged := make([]string, 0, len(step.Logs)+len(patch.Logs))
			merged = append(merged, step.Logs...)
			merged = append(merged, patch.Logs...)
			step.Logs = merged
		default:
			step.Logs = append([]string(nil), patch.Logs...)
		}
	}
	return step
}

func displayName(key string) string {
	if def, ok := catalog.Lookup(key); ok {
		return def.DisplayName
	}
	return key
}
