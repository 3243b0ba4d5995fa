package orchestrator

import (
	"fmt"
	"strings"

	"protoforge/internal/types"
)

const systemPrompt = `You are the autonomous engineer driving a hardware project through five stages: spec, board, enclosure, firmware, export.

Work one stage at a time, in order, using the available tools:
- spec: analyze_feasibility, auto_answer_questions, generate_style_variants, select_style_variant, generate_project_name, then finalize_spec with confirm=true.
- board: generate_board_layout, review_artifact, accept_artifact.
- enclosure: generate_enclosure, review_artifact, accept_artifact.
- firmware: generate_firmware, review_artifact, accept_artifact.
- export: validate_project; use fix_stage_issue for every error issue, re-validate, then mark_stage_complete for export.

Mark each stage complete with mark_stage_complete before moving on. Report noteworthy progress with report_progress. When a review verdict is "revise" or "reject", regenerate with the review issues as feedback before accepting. The project is done when the export stage is complete.`

// buildInitMessage seeds a fresh session: the idea, plus which stages a
// prior session already finished so the model doesn't redo them.
func buildInitMessage(description string, completed []types.Stage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New project request:\n\n%s\n", description)
	if len(completed) > 0 {
		names := make([]string, len(completed))
		for i, st := range completed {
			names[i] = string(st)
		}
		fmt.Fprintf(&sb, "\nAlready completed stages: %s. Continue from the next stage.\n", strings.Join(names, ", "))
	}
	return sb.String()
}

// buildResumeNotice is appended when replaying a persisted conversation
// instead of re-running the initialization prompt.
func buildResumeNotice(stage types.Stage, iteration int) string {
	return fmt.Sprintf("[Session resumed at stage %s, iteration %d. Conversation history above is replayed from the previous session; continue where it left off.]", stage, iteration)
}
