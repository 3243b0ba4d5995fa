package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/types"
)

func TestNewHasAllStageKeys(t *testing.T) {
	spec := New("p1", "a temperature logger")
	require.Len(t, spec.Stages, len(types.StageOrder))
	for _, st := range types.StageOrder {
		require.NotNil(t, spec.Stages[st], "missing stage %s", st)
		assert.Equal(t, types.StagePending, spec.Stages[st].Status)
	}
	assert.Equal(t, -1, spec.SelectedVariant)
}

func TestMergePreservesStatuses(t *testing.T) {
	existing := &types.ProjectSpec{
		ID: "p1",
		Stages: map[types.Stage]*types.StageState{
			types.StageSpec: {Status: types.StageComplete},
		},
	}
	merged := Merge(existing, "desc")

	require.Len(t, merged.Stages, len(types.StageOrder))
	assert.Equal(t, types.StageComplete, merged.Stages[types.StageSpec].Status)
	assert.Equal(t, types.StagePending, merged.Stages[types.StageBoard].Status)
	assert.Equal(t, "desc", merged.Description)
}

func TestTransitionForwardOnly(t *testing.T) {
	spec := New("p1", "d")

	require.NoError(t, Transition(spec, types.StageSpec, types.StageInProgress))
	require.NoError(t, Transition(spec, types.StageSpec, types.StageComplete))
	assert.NotNil(t, spec.Stages[types.StageSpec].CompletedAt)

	// Backward moves are rejected.
	assert.Error(t, Transition(spec, types.StageSpec, types.StageInProgress))
	assert.Error(t, Transition(spec, types.StageSpec, types.StagePending))

	// Same-status transition is a no-op.
	assert.NoError(t, Transition(spec, types.StageBoard, types.StagePending))
}

func TestTransitionErrorTerminal(t *testing.T) {
	spec := New("p1", "d")
	require.NoError(t, MarkStageError(spec, types.StageSpec, "boom"))
	assert.Equal(t, types.StageError, spec.Stages[types.StageSpec].Status)
	assert.Equal(t, "boom", spec.Stages[types.StageSpec].Error)
	assert.Error(t, Transition(spec, types.StageSpec, types.StageComplete))
}

func TestMarkStageCompleteAdvancesNext(t *testing.T) {
	spec := New("p1", "d")
	require.NoError(t, MarkStageComplete(spec, types.StageSpec))
	assert.Equal(t, types.StageComplete, spec.Stages[types.StageSpec].Status)
	assert.Equal(t, types.StageInProgress, spec.Stages[types.StageBoard].Status)

	// The last stage has no successor to advance.
	for _, st := range []types.Stage{types.StageBoard, types.StageEnclosure, types.StageFirmware, types.StageExport} {
		require.NoError(t, MarkStageComplete(spec, st))
	}
	assert.Equal(t, types.StageComplete, spec.Stages[types.StageExport].Status)
}

func TestCurrentStage(t *testing.T) {
	spec := New("p1", "d")
	assert.Equal(t, types.StageSpec, CurrentStage(spec))

	require.NoError(t, MarkStageComplete(spec, types.StageSpec))
	assert.Equal(t, types.StageBoard, CurrentStage(spec))
}

func TestSelectVariantBounds(t *testing.T) {
	spec := New("p1", "d")
	SetStyleVariants(spec, []types.StyleVariant{{Style: "round"}, {Style: "square"}})

	assert.Error(t, SelectVariant(spec, -1))
	assert.Error(t, SelectVariant(spec, 2))
	require.NoError(t, SelectVariant(spec, 1))
	assert.Equal(t, 1, spec.SelectedVariant)
}

func TestAddDecisionAccumulates(t *testing.T) {
	spec := New("p1", "d")
	AddDecision(spec, "power source?", "USB-C")
	AddDecision(spec, "display?", "OLED")
	assert.Len(t, spec.Decisions, 2)

	AddDecision(spec, "display?", "none")
	assert.Equal(t, "none", spec.Decisions["display?"])
}

func TestStripToolMessages(t *testing.T) {
	conv := []types.ConversationMessage{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "c1", Name: "report_progress"}}},
		{Role: types.RoleTool, Content: "{}", ToolCallID: "c1"},
		{Role: types.RoleUser, Content: "hi"},
	}
	stripped := StripToolMessages(conv)
	require.Len(t, stripped, 3)
	for _, m := range stripped {
		assert.NotEqual(t, types.RoleTool, m.Role)
		assert.Empty(t, m.ToolCalls)
	}
}

func TestShouldResume(t *testing.T) {
	conv := []types.ConversationMessage{{Role: types.RoleSystem, Content: "sys"}}

	assert.False(t, ShouldResume(nil))
	assert.False(t, ShouldResume(&types.PersistedOrchestratorState{Status: types.StatusComplete, Conversation: conv}))
	assert.False(t, ShouldResume(&types.PersistedOrchestratorState{Status: types.StatusPaused}))
	assert.True(t, ShouldResume(&types.PersistedOrchestratorState{Status: types.StatusPaused, Conversation: conv}))
	assert.True(t, ShouldResume(&types.PersistedOrchestratorState{Status: types.StatusRunning, Conversation: conv}))
}
