package project

import (
	"time"

	"protoforge/internal/types"
)

// StripToolMessages removes tool-role messages (and the tool-call manifests
// on assistant messages) from a conversation before persisting. A resumed
// session replays the stripped history; reintroducing dangling tool
// messages would violate the model protocol's pairing invariant.
func StripToolMessages(conv []types.ConversationMessage) []types.ConversationMessage {
	out := make([]types.ConversationMessage, 0, len(conv))
	for _, m := range conv {
		if m.Role == types.RoleTool {
			continue
		}
		m.ToolCalls = nil
		out = append(out, m)
	}
	return out
}

// Snapshot builds the resumable orchestrator state written after every
// iteration.
func Snapshot(conv []types.ConversationMessage, iteration int, status types.OrchestratorStatus, stage types.Stage) *types.PersistedOrchestratorState {
	return &types.PersistedOrchestratorState{
		Conversation: StripToolMessages(conv),
		Iteration:    iteration,
		Status:       status,
		CurrentStage: stage,
		UpdatedAt:    time.Now().UTC(),
	}
}

// ShouldResume decides fresh-start vs resume: resume iff a persisted state
// exists with status paused or running and a non-empty conversation.
func ShouldResume(p *types.PersistedOrchestratorState) bool {
	if p == nil {
		return false
	}
	if p.Status != types.StatusPaused && p.Status != types.StatusRunning {
		return false
	}
	return len(p.Conversation) > 0
}
