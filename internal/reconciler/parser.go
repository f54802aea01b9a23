package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/watchtower-soc/watchtower/internal/catalog"
)

// Parse turns one raw status payload into a patch list. The task backend's
// `info` object is deliberately loose: it may carry a list of step records,
// completed/current step identifiers, a single current-step scalar, a
// history log, or nothing usable at all. Each shape gets its own decode
// function; they are tried in priority order and the first match wins —
// shapes are never merged together.
//
// The second return value is false only when no shape matched and the
// top-level state contributed nothing either ("no structured information").
// Parse never panics and has no side effects.
func Parse(topLevelState string, info any) ([]StepPatch, bool) {
	if m, ok := asMap(info); ok {
		if patches, ok := parseStepList(m); ok {
			return patches, true
		}
		if patches, ok := parseCompletedSteps(m); ok {
			return patches, true
		}
		if patches, ok := parseCurrentStepScalar(m); ok {
			return patches, true
		}
		if patches, ok := parseHistory(m); ok {
			return patches, true
		}
	}
	return parseTopLevelOnly(topLevelState)
}

// Shape 1: {"steps": [{"step": ..., "status": ..., ...}, ...]}
func parseStepList(info map[string]any) ([]StepPatch, bool) {
	list, ok := asList(info["steps"])
	if !ok || len(list) == 0 {
		return nil, false
	}
	patches := make([]StepPatch, 0, len(list))
	for i, elem := range list {
		entry, ok := asMap(elem)
		if !ok {
			continue
		}
		key, ok := stringField(entry, "key", "step", "name")
		if !ok {
			key = fmt.Sprintf("step_%d", i)
		}
		patch := StepPatch{Key: key, Status: StatusPending}
		if raw, ok := stringField(entry, "status", "state"); ok {
			patch.Status = normalizeStatus(raw)
		}
		patch.Timestamp = timestampField(entry)
		if dur, ok := stringField(entry, "duration"); ok {
			patch.Duration = &dur
		}
		patch.Logs = logsField(entry)
		patches = append(patches, patch)
	}
	if len(patches) == 0 {
		return nil, false
	}
	return patches, true
}

// Shape 2: {"completed_steps": [...], "current_step": ..., "errors": [...]}
func parseCompletedSteps(info map[string]any) ([]StepPatch, bool) {
	list, ok := asList(info["completed_steps"])
	if !ok {
		return nil, false
	}
	var patches []StepPatch
	for _, elem := range list {
		if key, ok := elem.(string); ok && key != "" {
			patches = append(patches, StepPatch{Key: key, Status: StatusCompleted})
		}
	}
	if current, ok := stringField(info, "current_step", "step"); ok {
		patches = append(patches, StepPatch{Key: current, Status: StatusRunning})
	}
	if errList, ok := asList(info["errors"]); ok && len(errList) > 0 {
		if patch, ok := errorPatch(errList[0]); ok {
			patches = append(patches, patch)
		}
	}
	return patches, true
}

// errorPatch derives a failed-step patch from the first errors entry. A
// bare string names the step and doubles as its log line; an object carries
// the key and message in separate fields.
func errorPatch(entry any) (StepPatch, bool) {
	if s, ok := entry.(string); ok && s != "" {
		return StepPatch{Key: s, Status: StatusFailed, Logs: []string{s}}, true
	}
	m, ok := asMap(entry)
	if !ok {
		return StepPatch{}, false
	}
	key, ok := stringField(m, "step", "key")
	if !ok {
		return StepPatch{}, false
	}
	patch := StepPatch{Key: key, Status: StatusFailed}
	if msg, ok := stringField(m, "message", "error"); ok {
		patch.Logs = []string{msg}
	}
	return patch, true
}

// Shape 3: {"step": "..."} / {"current_step": "..."} / {"current": "..."}
func parseCurrentStepScalar(info map[string]any) ([]StepPatch, bool) {
	key, ok := stringField(info, "step", "current_step", "current")
	if !ok {
		return nil, false
	}
	return []StepPatch{{Key: key, Status: StatusRunning}}, true
}

// Shape 4: {"history": [{"step": ..., "success": true, ...}, ...]}
func parseHistory(info map[string]any) ([]StepPatch, bool) {
	list, ok := asList(info["history"])
	if !ok {
		list, ok = asList(info["steps_history"])
	}
	if !ok || len(list) == 0 {
		return nil, false
	}
	patches := make([]StepPatch, 0, len(list))
	for i, elem := range list {
		entry, ok := asMap(elem)
		if !ok {
			continue
		}
		key, ok := stringField(entry, "step", "key", "name")
		if !ok {
			key = fmt.Sprintf("step_%d", i)
		}
		patch := StepPatch{Key: key, Status: StatusPending}
		switch {
		case boolField(entry, "success", "succeeded", "ok"):
			patch.Status = StatusCompleted
		case boolField(entry, "failed", "failure", "error"):
			patch.Status = StatusFailed
		}
		patch.Timestamp = timestampField(entry)
		patch.Logs = logsField(entry)
		patches = append(patches, patch)
	}
	if len(patches) == 0 {
		return nil, false
	}
	return patches, true
}

// Shape 5: no structured info at all; fall back to the coarse run state.
// Marking the first catalog step is a coarse heuristic inherited from the
// reference behavior; SUCCESS is deliberately absent here because the
// merger owns the terminal override.
func parseTopLevelOnly(topLevelState string) ([]StepPatch, bool) {
	keys := catalog.Keys()
	if len(keys) == 0 {
		return nil, false
	}
	switch strings.ToUpper(topLevelState) {
	case StateStarted, StateProgress, StateRunning:
		return []StepPatch{{Key: keys[0], Status: StatusRunning}}, true
	case StateFailure, StateRevoked:
		return []StepPatch{{Key: keys[0], Status: StatusFailed}}, true
	}
	return nil, false
}

// normalizeStatus maps the backend's loosely spelled step statuses onto the
// canonical enum. Unknown spellings fall back to pending.
func normalizeStatus(raw string) StepStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "done", "success", "succeeded":
		return StatusCompleted
	case "running", "started", "in_progress", "progress", "active":
		return StatusRunning
	case "failed", "failure", "error":
		return StatusFailed
	default:
		return StatusPending
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// stringField returns the first non-empty string value among the candidate
// field names.
func stringField(m map[string]any, names ...string) (string, bool) {
	for _, name := range names {
		if s, ok := m[name].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func boolField(m map[string]any, names ...string) bool {
	for _, name := range names {
		if b, ok := m[name].(bool); ok {
			return b
		}
	}
	return false
}

// timestampField reads a timestamp from the usual field names. The backend
// emits RFC3339 strings or unix epoch numbers depending on the task.
func timestampField(m map[string]any) *time.Time {
	for _, name := range []string{"timestamp", "time", "updated_at"} {
		switch v := m[name].(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return &ts
			}
		case float64:
			ts := time.Unix(int64(v), 0).UTC()
			return &ts
		}
	}
	return nil
}

// logsField reads log lines from a "logs" list, or wraps a singular "log"
// string into a one-element list.
func logsField(m map[string]any) []string {
	if list, ok := asList(m["logs"]); ok {
		lines := make([]string, 0, len(list))
		for _, elem := range list {
			if s, ok := elem.(string); ok {
				lines = append(lines, s)
			}
		}
		if len(lines) > 0 {
			return lines
		}
		return nil
	}
	if line, ok := m["log"].(string); ok && line != "" {
		return []string{line}
	}
	return nil
}
