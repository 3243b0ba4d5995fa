package tools

import (
	"context"
	"fmt"
	"strings"

	"protoforge/internal/extract"
	"protoforge/internal/logging"
	"protoforge/internal/types"
)

func registerReviewTool(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "review_artifact",
		Description: "Review a generated stage artifact. Returns a structured verdict: score 0-100, accept/revise/reject, issues, positives.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"stage": map[string]any{"type": "string", "enum": []string{"board", "enclosure", "firmware"}},
		}, "stage"),
		Execute: reviewArtifact,
	})
}

// reviewArtifact issues one low-temperature model call and parses a
// structured verdict. A verdict that won't parse becomes a conservative
// "revise" with a warning rather than an error; review exists to drive
// iteration, and failing here would stall it.
func reviewArtifact(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	stageName, ok := stringArg(args, "stage")
	if !ok {
		return nil, fmt.Errorf("%w: stage is required", ErrInvalidArgs)
	}

	artifact, err := renderArtifactForReview(tc.Spec, types.Stage(stageName))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if tc.Spec.FinalSpec != nil {
		sb.WriteString(describeSpec(tc.Spec.FinalSpec))
	}
	fmt.Fprintf(&sb, "\nArtifact under review (%s stage):\n%s", stageName, artifact)

	resp, cerr := tc.Model.Chat(ctx, types.ChatRequest{
		Messages: []types.ConversationMessage{
			{Role: types.RoleSystem, Content: reviewSystemPrompt},
			{Role: types.RoleUser, Content: sb.String()},
		},
		Temperature: tempReview,
	})

	verdict := types.ReviewVerdict{Score: 70, Verdict: "revise"}
	switch {
	case cerr != nil:
		verdict.Issues = append(verdict.Issues, fmt.Sprintf("review call failed: %v", cerr))
		logging.Tools("review call failed, returning conservative verdict: %v", cerr)
	default:
		var parsed types.ReviewVerdict
		if perr := extract.DecodeFirstObject(resp.Content, &parsed); perr == nil && parsed.Verdict != "" {
			verdict = parsed
		} else {
			verdict.Issues = append(verdict.Issues, "review response could not be parsed as a verdict")
			logging.Tools("review verdict unparseable, returning conservative verdict")
		}
	}

	tc.AppendHistory(types.HistoryToolResult, types.Stage(stageName),
		fmt.Sprintf("review: %s (score %d)", verdict.Verdict, verdict.Score),
		map[string]any{"issues": verdict.Issues})

	return verdict, nil
}

// renderArtifactForReview flattens the named stage's artifact into review
// text.
func renderArtifactForReview(spec *types.ProjectSpec, stage types.Stage) (string, error) {
	switch stage {
	case types.StageBoard:
		if spec.BoardLayout == nil {
			return "", fmt.Errorf("%w: no board layout to review", ErrMissingPrerequisite)
		}
		return describeBoard(spec.BoardLayout), nil
	case types.StageEnclosure:
		if spec.Enclosure == nil {
			return "", fmt.Errorf("%w: no enclosure to review", ErrMissingPrerequisite)
		}
		return spec.Enclosure.Content, nil
	case types.StageFirmware:
		if spec.Firmware == nil {
			return "", fmt.Errorf("%w: no firmware to review", ErrMissingPrerequisite)
		}
		var sb strings.Builder
		for _, f := range spec.Firmware.Files {
			fmt.Fprintf(&sb, "// %s\n%s\n", f.Path, f.Content)
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%w: stage %q has no reviewable artifact", ErrInvalidArgs, stage)
	}
}
