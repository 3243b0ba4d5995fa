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

func registerFirmwareTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "generate_firmware",
		Description: "Generate firmware sources from the finalized spec and board layout. Optional review feedback steers regeneration.",
		Category:    CategoryFirmware,
		InputSchema: objectSchema(map[string]any{
			"framework": map[string]any{"type": "string", "description": "Target framework; defaults to arduino"},
			"feedback":  map[string]any{"type": "string", "description": "Prior review feedback carried forward as a revision instruction"},
		}),
		Execute: generateFirmware,
	})
}

// generateFirmware issues one model call and stores the generated file
// list. A response that won't parse as a file list is wrapped as one
// source file rather than dropped; the content may still be salvageable
// and the review loop will judge it.
func generateFirmware(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	if tc.Spec.FinalSpec == nil || tc.Spec.BoardLayout == nil {
		return nil, fmt.Errorf("%w: firmware generation needs a finalized spec and a board layout", ErrMissingPrerequisite)
	}

	prompt := buildFirmwareRequest(tc, args)
	resp, err := tc.Model.Chat(ctx, types.ChatRequest{
		Messages: []types.ConversationMessage{
			{Role: types.RoleSystem, Content: firmwareSystemPrompt},
			{Role: types.RoleUser, Content: prompt},
		},
		Temperature: tempDefault,
		MaxTokens:   8192,
	})
	if err != nil {
		return nil, fmt.Errorf("firmware generation failed: %w", err)
	}

	files := parseFirmwareFiles(resp.Content)

	artifact := &types.FirmwareArtifact{
		Files:       files,
		GeneratedAt: time.Now().UTC(),
	}
	project.SetFirmware(tc.Spec, artifact)
	if terr := project.Transition(tc.Spec, types.StageFirmware, types.StageInProgress); terr != nil {
		logging.ToolsDebug("firmware stage already advanced: %v", terr)
	}

	total := 0
	for _, f := range files {
		total += len(f.Content)
	}
	tc.AppendHistory(types.HistoryToolResult, types.StageFirmware,
		fmt.Sprintf("firmware generated: %d file(s), %d chars", len(files), total), nil)

	return map[string]any{
		"files":     files,
		"net_count": len(tc.Spec.BoardLayout.Nets),
	}, nil
}

// parseFirmwareFiles accepts either a JSON array of file objects or an
// object with a files key. Anything else is wrapped whole as main.cpp.
func parseFirmwareFiles(content string) []types.SourceFile {
	var files []types.SourceFile
	if err := extract.DecodeFirstArray(content, &files); err == nil && len(files) > 0 {
		return files
	}

	var wrapper struct {
		Files []types.SourceFile `json:"files"`
	}
	if err := extract.DecodeFirstObject(content, &wrapper); err == nil && len(wrapper.Files) > 0 {
		return wrapper.Files
	}

	logging.Tools("firmware response unparseable as file list, wrapping as single file")
	if code, ok := extract.FencedCodeBlock(content); ok {
		content = code
	}
	return []types.SourceFile{{Path: "src/main.cpp", Content: content}}
}

func buildFirmwareRequest(tc *Context, args map[string]any) string {
	var sb strings.Builder
	sb.WriteString(describeSpec(tc.Spec.FinalSpec))
	sb.WriteString(describeBoard(tc.Spec.BoardLayout))

	framework, _ := stringArg(args, "framework")
	if framework == "" {
		framework = "arduino"
	}
	fmt.Fprintf(&sb, "Framework: %s\n", framework)

	if feedback, _ := stringArg(args, "feedback"); feedback != "" {
		fmt.Fprintf(&sb, "\nRevision feedback to address:\n%s\n", feedback)
	}
	return sb.String()
}
