package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"protoforge/internal/extract"
	"protoforge/internal/logging"
	"protoforge/internal/project"
	"protoforge/internal/types"
)

func registerEnclosureTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "generate_enclosure",
		Description: "Generate the parametric enclosure model from the finalized spec and board layout. Optional overrides and review feedback steer regeneration.",
		Category:    CategoryEnclosure,
		InputSchema: objectSchema(map[string]any{
			"style":          map[string]any{"type": "string", "description": "Enclosure style; defaults to the selected variant"},
			"wall_thickness": map[string]any{"type": "number"},
			"feedback":       map[string]any{"type": "string", "description": "Prior review feedback carried forward as a revision instruction"},
		}),
		Execute: generateEnclosure,
	})
}

// generateEnclosure issues one model call and stores the full generated
// model text. The result deliberately carries the complete content, not a
// summary: fix and review iterations re-examine it, and only the
// conversation copy is compressed downstream.
func generateEnclosure(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	if tc.Spec.FinalSpec == nil || tc.Spec.BoardLayout == nil {
		return nil, fmt.Errorf("%w: enclosure generation needs a finalized spec and a board layout", ErrMissingPrerequisite)
	}

	prompt := buildEnclosureRequest(tc, args)
	resp, err := tc.Model.Chat(ctx, types.ChatRequest{
		Messages: []types.ConversationMessage{
			{Role: types.RoleSystem, Content: enclosureSystemPrompt},
			{Role: types.RoleUser, Content: prompt},
		},
		Temperature: tempDefault,
		MaxTokens:   8192,
	})
	if err != nil {
		return nil, fmt.Errorf("enclosure generation failed: %w", err)
	}

	content, ok := extract.FencedCodeBlock(resp.Content)
	if !ok {
		content = resp.Content
	}

	artifact := &types.EnclosureArtifact{
		Content:     content,
		Features:    extract.EnclosureFeatures(content),
		GeneratedAt: time.Now().UTC(),
	}
	if dims, derr := extract.ParseEnclosureDimensions(content); derr == nil {
		artifact.InnerWidth = dims.InnerWidth
		artifact.InnerHeight = dims.InnerHeight
	}

	project.SetEnclosure(tc.Spec, artifact)
	if terr := project.Transition(tc.Spec, types.StageEnclosure, types.StageInProgress); terr != nil {
		logging.ToolsDebug("enclosure stage already advanced: %v", terr)
	}
	tc.AppendHistory(types.HistoryToolResult, types.StageEnclosure,
		fmt.Sprintf("enclosure generated: %d chars, %d features", len(content), len(artifact.Features)), nil)

	return map[string]any{
		"content":      content,
		"inner_width":  artifact.InnerWidth,
		"inner_height": artifact.InnerHeight,
		"features":     artifact.Features,
	}, nil
}

func buildEnclosureRequest(tc *Context, args map[string]any) string {
	var sb strings.Builder
	sb.WriteString(describeSpec(tc.Spec.FinalSpec))
	sb.WriteString(describeBoard(tc.Spec.BoardLayout))

	style, _ := stringArg(args, "style")
	if style == "" && tc.Spec.SelectedVariant >= 0 && tc.Spec.SelectedVariant < len(tc.Spec.StyleVariants) {
		style = tc.Spec.StyleVariants[tc.Spec.SelectedVariant].Style
	}
	if style != "" {
		fmt.Fprintf(&sb, "Style: %s\n", style)
	}
	if wall, ok := floatArg(args, "wall_thickness"); ok {
		fmt.Fprintf(&sb, "Wall thickness: %.1fmm\n", wall)
	}
	if feedback, _ := stringArg(args, "feedback"); feedback != "" {
		fmt.Fprintf(&sb, "\nRevision feedback to address:\n%s\n", feedback)
	}
	return sb.String()
}
