package orchestrator

import (
	"fmt"
	"strings"

	"protoforge/internal/types"
)

// Default trimming bounds. The conversation stays untouched until it
// crosses the threshold; after that the system prompt, one synthetic
// summary, and the most recent messages survive.
const (
	defaultTrimThreshold = 15
	defaultKeepRecent    = 8
)

// TrimConfig parameterizes one trim pass. Zero bounds fall back to the
// package defaults.
type TrimConfig struct {
	Threshold    int
	KeepRecent   int
	CurrentStage types.Stage
	Completed    []types.Stage
	Iteration    int
}

// Trim compacts the conversation once it exceeds the threshold. The first
// (system) message is always kept, a synthetic summary replaces the
// dropped middle, and the kept tail never starts mid-exchange: if the cut
// would land on a tool message, the window extends backward to include
// the assistant message that declared it.
//
// Trim is pure and idempotent once the result is under the threshold.
func Trim(history []types.ConversationMessage, cfg TrimConfig) []types.ConversationMessage {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultTrimThreshold
	}
	keep := cfg.KeepRecent
	if keep <= 0 {
		keep = defaultKeepRecent
	}

	if len(history) <= threshold {
		return history
	}

	start := len(history) - keep
	for start > 1 && history[start].Role == types.RoleTool {
		start--
	}

	dropped := start - 1
	if dropped <= 0 {
		return history
	}

	summary := types.ConversationMessage{
		Role:    types.RoleUser,
		Content: summaryMessage(dropped, cfg.CurrentStage, cfg.Completed, cfg.Iteration),
	}

	out := make([]types.ConversationMessage, 0, 2+len(history)-start)
	out = append(out, history[0])
	out = append(out, summary)
	out = append(out, history[start:]...)
	return out
}

func summaryMessage(dropped int, currentStage types.Stage, completed []types.Stage, iteration int) string {
	names := make([]string, len(completed))
	for i, st := range completed {
		names[i] = string(st)
	}
	completedText := "none"
	if len(names) > 0 {
		completedText = strings.Join(names, ", ")
	}
	return fmt.Sprintf(
		"[Conversation compacted: %d earlier messages dropped. Current stage: %s. Completed stages: %s. Iteration: %d.]",
		dropped, currentStage, completedText, iteration)
}
