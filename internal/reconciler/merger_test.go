package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-soc/watchtower/internal/catalog"
)

func TestMergeSeedsFromCatalog(t *testing.T) {
	snapshot := Merge(nil, nil, "PROGRESS", MergeOptions{})
	require.Equal(t, catalog.Size(), len(snapshot.Steps))
	for i, key := range catalog.Keys() {
		assert.Equal(t, key, snapshot.Steps[i].Key)
		assert.Equal(t, StatusPending, snapshot.Steps[i].Status)
		assert.NotEmpty(t, snapshot.Steps[i].DisplayName)
	}
	assert.Equal(t, "PROGRESS", snapshot.TopLevelState)
}

func TestMergeProgressKeepsOthersPending(t *testing.T) {
	patches := []StepPatch{
		{Key: "lookup_ip", Status: StatusCompleted},
		{Key: "quarantine_host", Status: StatusRunning},
	}
	snapshot := Merge(nil, patches, "PROGRESS", MergeOptions{})

	st, _ := snapshot.Step("lookup_ip")
	assert.Equal(t, StatusCompleted, st.Status)
	st, _ = snapshot.Step("quarantine_host")
	assert.Equal(t, StatusRunning, st.Status)
	for _, key := range []string{"block_ip", "enrich_threat_intel", "escalate", "notify_soc", "finalize_response"} {
		st, ok := snapshot.Step(key)
		require.True(t, ok)
		assert.Equal(t, StatusPending, st.Status, "step %s", key)
	}
}

func TestMergeSuccessForcesPendingToCompleted(t *testing.T) {
	snapshot := Merge(nil, nil, "SUCCESS", MergeOptions{})
	for _, st := range snapshot.Steps {
		assert.Equal(t, StatusCompleted, st.Status, "step %s", st.Key)
	}
}

func TestMergeSuccessDoesNotOverrideFailed(t *testing.T) {
	patches := []StepPatch{{Key: "block_ip", Status: StatusFailed}}
	snapshot := Merge(nil, patches, "SUCCESS", MergeOptions{})
	st, _ := snapshot.Step("block_ip")
	assert.Equal(t, StatusFailed, st.Status)
}

func TestMergeFailureHasNoOverride(t *testing.T) {
	patches := []StepPatch{{Key: "lookup_ip", Status: StatusCompleted}}
	snapshot := Merge(nil, patches, "FAILURE", MergeOptions{})
	st, _ := snapshot.Step("quarantine_host")
	assert.Equal(t, StatusPending, st.Status)
}

func TestMergeUnknownKeysAppendInFirstSeenOrder(t *testing.T) {
	first := Merge(nil, []StepPatch{{Key: "custom_a", Status: StatusRunning}}, "PROGRESS", MergeOptions{})
	second := Merge(first, []StepPatch{{Key: "custom_b", Status: StatusRunning}}, "PROGRESS", MergeOptions{})
	third := Merge(second, []StepPatch{{Key: "custom_a", Status: StatusCompleted}}, "PROGRESS", MergeOptions{})

	require.Equal(t, catalog.Size()+2, len(third.Steps))
	assert.Equal(t, "custom_a", third.Steps[catalog.Size()].Key)
	assert.Equal(t, "custom_b", third.Steps[catalog.Size()+1].Key)

	// Unknown steps use their key as the display name.
	assert.Equal(t, "custom_a", third.Steps[catalog.Size()].DisplayName)

	st, _ := third.Step("custom_a")
	assert.Equal(t, StatusCompleted, st.Status)
}

func TestMergeDoesNotMutatePrior(t *testing.T) {
	prior := Merge(nil, []StepPatch{{Key: "lookup_ip", Status: StatusRunning, Logs: []string{"first"}}}, "PROGRESS", MergeOptions{})

	_ = Merge(prior, []StepPatch{
		{Key: "lookup_ip", Status: StatusCompleted, Logs: []string{"second"}},
		{Key: "custom", Status: StatusRunning},
	}, "PROGRESS", MergeOptions{})

	st, _ := prior.Step("lookup_ip")
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, []string{"first"}, st.Logs)
	_, ok := prior.Step("custom")
	assert.False(t, ok)
}

func TestMergeIdempotent(t *testing.T) {
	patches := []StepPatch{
		{Key: "lookup_ip", Status: StatusCompleted},
		{Key: "quarantine_host", Status: StatusRunning},
	}
	first := Merge(nil, patches, "PROGRESS", MergeOptions{})
	second := Merge(first, patches, "PROGRESS", MergeOptions{})
	assert.Equal(t, first.Steps, second.Steps)
}

func TestMergePartialPatchPreservesFields(t *testing.T) {
	dur := "3.4s"
	prior := Merge(nil, []StepPatch{
		{Key: "lookup_ip", Status: StatusRunning, Duration: &dur, Logs: []string{"querying"}},
	}, "PROGRESS", MergeOptions{})

	// Status-only patch must not wipe duration or logs.
	next := Merge(prior, []StepPatch{{Key: "lookup_ip", Status: StatusCompleted}}, "PROGRESS", MergeOptions{})
	st, _ := next.Step("lookup_ip")
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, "3.4s", st.Duration)
	assert.Equal(t, []string{"querying"}, st.Logs)
}

func TestMergeLogsModes(t *testing.T) {
	prior := Merge(nil, []StepPatch{
		{Key: "lookup_ip", Status: StatusRunning, Logs: []string{"line 1"}},
	}, "PROGRESS", MergeOptions{})

	t.Run("replace", func(t *testing.T) {
		next := Merge(prior, []StepPatch{
			{Key: "lookup_ip", Status: StatusRunning, Logs: []string{"line 2"}},
		}, "PROGRESS", MergeOptions{Logs: LogsReplace})
		st, _ := next.Step("lookup_ip")
		assert.Equal(t, []string{"line 2"}, st.Logs)
	})

	t.Run("append", func(t *testing.T) {
		next := Merge(prior, []StepPatch{
			{Key: "lookup_ip", Status: StatusRunning, Logs: []string{"line 2"}},
		}, "PROGRESS", MergeOptions{Logs: LogsAppend})
		st, _ := next.Step("lookup_ip")
		assert.Equal(t, []string{"line 1", "line 2"}, st.Logs)

		// Appending must not have touched the prior snapshot's slice.
		prev, _ := prior.Step("lookup_ip")
		assert.Equal(t, []string{"line 1"}, prev.Logs)
	})
}

func TestMergeMonotonicGrowth(t *testing.T) {
	// Steps never disappear across polls, whatever later payloads report.
	first := Merge(nil, []StepPatch{{Key: "custom", Status: StatusRunning}}, "PROGRESS", MergeOptions{})
	second := Merge(first, []StepPatch{{Key: "lookup_ip", Status: StatusRunning}}, "PROGRESS", MergeOptions{})
	assert.Equal(t, len(first.Steps), len(second.Steps))
	_, ok := second.Step("custom")
	assert.True(t, ok)
}

func TestParseAndMergeScenarios(t *testing.T) {
	t.Run("step list over fresh snapshot", func(t *testing.T) {
		info := map[string]any{
			"steps": []any{
				map[string]any{"step": "lookup_ip", "status": "completed"},
				map[string]any{"step": "quarantine_host", "status": "running"},
			},
		}
		patches, ok := Parse("PROGRESS", info)
		require.True(t, ok)
		snapshot := Merge(nil, patches, "PROGRESS", MergeOptions{})

		st, _ := snapshot.Step("lookup_ip")
		assert.Equal(t, StatusCompleted, st.Status)
		st, _ = snapshot.Step("quarantine_host")
		assert.Equal(t, StatusRunning, st.Status)
		st, _ = snapshot.Step("block_ip")
		assert.Equal(t, StatusPending, st.Status)
	})

	t.Run("completed steps with current", func(t *testing.T) {
		info := map[string]any{
			"completed_steps": []any{"lookup_ip", "quarantine_host"},
			"current_step":    "block_ip",
		}
		patches, ok := Parse("PROGRESS", info)
		require.True(t, ok)
		snapshot := Merge(nil, patches, "PROGRESS", MergeOptions{})

		st, _ := snapshot.Step("lookup_ip")
		assert.Equal(t, StatusCompleted, st.Status)
		st, _ = snapshot.Step("quarantine_host")
		assert.Equal(t, StatusCompleted, st.Status)
		st, _ = snapshot.Step("block_ip")
		assert.Equal(t, StatusRunning, st.Status)
	})

	t.Run("empty info with terminal success", func(t *testing.T) {
		patches, _ := Parse("SUCCESS", map[string]any{})
		snapshot := Merge(nil, patches, "SUCCESS", MergeOptions{})
		for _, st := range snapshot.Steps {
			assert.Equal(t, StatusCompleted, st.Status, "step %s", st.Key)
		}
	})
}
