package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"protoforge/internal/compress"
	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// dispatch handles one model turn. The assistant message, with its
// tool-call manifest, is appended first; then every requested call runs
// sequentially in request order; then one tool message per call is
// appended, in the same order, tagged with the originating call id.
//
// A failing handler produces a structured {error} payload in its tool
// message and a history item, and the remaining calls still run. The
// model must see a well-formed result for every call it made.
func (o *Orchestrator) dispatch(ctx context.Context, resp *types.ToolChatResponse) {
	o.conv = append(o.conv, types.ConversationMessage{
		Role:      types.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	if len(resp.ToolCalls) == 0 {
		// A turn with no tool calls stalls the workflow; nudge once.
		o.conv = append(o.conv, types.ConversationMessage{
			Role:    types.RoleUser,
			Content: "Continue the workflow using the available tools.",
		})
		return
	}

	for _, call := range resp.ToolCalls {
		o.tctx.AppendHistory(types.HistoryToolCall, o.state.CurrentStage, "calling "+call.Name,
			map[string]any{"args": call.Args})

		result, err := o.registry.Execute(ctx, o.tctx, call.Name, call.Args)
		var payload string
		if err != nil {
			payload = encodeResult(map[string]any{"error": err.Error()})
			o.tctx.AppendHistory(types.HistoryError, o.state.CurrentStage,
				fmt.Sprintf("%s failed: %v", call.Name, err), nil)
			logging.Orchestrator("tool %s failed: %v", call.Name, err)
		} else {
			payload = compress.Compress(call.Name, result)
			o.tctx.AppendHistory(types.HistoryToolResult, o.state.CurrentStage, call.Name+" ok", nil)
		}

		o.conv = append(o.conv, types.ConversationMessage{
			Role:       types.RoleTool,
			Content:    payload,
			ToolCallID: call.ID,
		})
	}
}

func encodeResult(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(raw)
}
