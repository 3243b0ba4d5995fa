package tools

import (
	"context"
	"fmt"
	"strings"

	"protoforge/internal/board"
	"protoforge/internal/logging"
	"protoforge/internal/project"
	"protoforge/internal/types"
)

func registerBoardTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "generate_board_layout",
		Description: "Place circuit blocks on the board grid. Pass explicit block slugs, or omit them to auto-select from the finalized spec.",
		Category:    CategoryBoard,
		InputSchema: objectSchema(map[string]any{
			"blocks": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Explicit catalog slugs to place, in order. Omit to auto-select.",
			},
		}),
		Execute: generateBoardLayout,
	})
}

// generateBoardLayout produces the board artifact. Explicit placements
// win; otherwise the deterministic auto-selection runs against the
// finalized spec. With neither available the tool fails non-fatally so
// the model can finalize the spec first.
func generateBoardLayout(_ context.Context, tc *Context, args map[string]any) (any, error) {
	slugs := stringSliceArg(args, "blocks")

	var layout *types.BoardLayout
	switch {
	case len(slugs) > 0:
		resolved, missing := resolveBlocks(tc.Catalog, slugs)
		placed, widthMM, heightMM := board.Pack(resolved)
		layout = &types.BoardLayout{
			Blocks:   placed,
			WidthMM:  widthMM,
			HeightMM: heightMM,
			Nets:     board.BuildNetlist(placed),
			Warnings: missing,
		}
		logging.Board("placed %d explicit blocks (%d unresolved)", len(placed), len(missing))

	case tc.Spec.FinalSpec != nil:
		layout = board.Layout(tc.Spec.FinalSpec, tc.Catalog)

	default:
		return nil, fmt.Errorf("%w: no explicit blocks given and no finalized spec to auto-select from", ErrMissingPrerequisite)
	}

	project.SetBoardLayout(tc.Spec, layout)
	if err := project.Transition(tc.Spec, types.StageBoard, types.StageInProgress); err != nil {
		logging.ToolsDebug("board stage already advanced: %v", err)
	}
	tc.AppendHistory(types.HistoryToolResult, types.StageBoard,
		fmt.Sprintf("board layout: %d blocks, %.1fx%.1fmm", len(layout.Blocks), layout.WidthMM, layout.HeightMM),
		map[string]any{"warnings": layout.Warnings})

	return layout, nil
}

// resolveBlocks maps requested slugs to catalog entries by substring
// match. Unresolved slugs become warnings, not failures.
func resolveBlocks(catalog []types.BoardBlock, slugs []string) ([]types.BoardBlock, []string) {
	var resolved []types.BoardBlock
	var missing []string
	for _, slug := range slugs {
		found := false
		for i := range catalog {
			if strings.Contains(catalog[i].Slug, slug) {
				resolved = append(resolved, catalog[i])
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fmt.Sprintf("no catalog block matches %q", slug))
		}
	}
	return resolved, missing
}
