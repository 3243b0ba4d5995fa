package tools

import (
	"context"
	"fmt"

	"protoforge/internal/logging"
	"protoforge/internal/project"
	"protoforge/internal/types"
	"protoforge/internal/validate"
)

func registerControlTools(r *Registry) {
	registerReviewTool(r)

	r.MustRegister(&Tool{
		Name:        "accept_artifact",
		Description: "Accept the named stage's artifact, signaling readiness for stage completion.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"stage": map[string]any{"type": "string", "enum": []string{"board", "enclosure", "firmware"}},
		}, "stage"),
		Execute: acceptArtifact,
	})
	r.MustRegister(&Tool{
		Name:        "validate_project",
		Description: "Run cross-stage consistency validation. Returns structured issues, suggestions, and a rendered report.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"checks": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": []string{"spec_satisfied", "enclosure_fit", "firmware_matches"}},
				"description": "Checks to run; omit to run all three",
			},
		}),
		Execute: validateProject,
	})
	r.MustRegister(&Tool{
		Name:        "fix_stage_issue",
		Description: "Regenerate the named stage's artifact, carrying the issue description forward as revision feedback.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"stage": map[string]any{"type": "string", "enum": []string{"board", "enclosure", "firmware"}},
			"issue": map[string]any{"type": "string"},
		}, "stage", "issue"),
		Execute: fixStageIssue,
	})
	r.MustRegister(&Tool{
		Name:        "mark_stage_complete",
		Description: "Mark the named stage complete and advance the next stage to in_progress.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"stage": map[string]any{"type": "string", "enum": []string{"spec", "board", "enclosure", "firmware", "export"}},
		}, "stage"),
		Execute: markStageComplete,
	})
	r.MustRegister(&Tool{
		Name:        "report_progress",
		Description: "Report a human-readable progress update. No state mutation beyond the history log.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"message": map[string]any{"type": "string"},
			"percent": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		}, "message"),
		Execute: reportProgress,
	})
	r.MustRegister(&Tool{
		Name:        "request_user_input",
		Description: "Ask the user a question with options. In autonomous mode the first option is auto-selected.",
		Category:    CategoryControl,
		InputSchema: objectSchema(map[string]any{
			"question": map[string]any{"type": "string"},
			"options":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}, "question"),
		Execute: requestUserInput,
	})
}

func acceptArtifact(_ context.Context, tc *Context, args map[string]any) (any, error) {
	stageName, ok := stringArg(args, "stage")
	if !ok {
		return nil, fmt.Errorf("%w: stage is required", ErrInvalidArgs)
	}
	stage := types.Stage(stageName)

	if _, err := renderArtifactForReview(tc.Spec, stage); err != nil {
		return nil, err
	}

	tc.AppendHistory(types.HistoryProgress, stage, fmt.Sprintf("%s artifact accepted", stageName), nil)
	return map[string]any{"accepted": stageName, "ready_for_completion": true}, nil
}

// validateProject delegates to the cross-stage validator and renders the
// deterministic report. The report text is part of the result on purpose:
// it goes straight back to the model as the authoritative summary.
func validateProject(_ context.Context, tc *Context, args map[string]any) (any, error) {
	var checks []validate.Check
	for _, name := range stringSliceArg(args, "checks") {
		checks = append(checks, validate.Check(name))
	}

	tc.SetStatus(types.StatusValidating)
	result := validate.Run(tc.Spec, checks...)
	tc.SetValidation(result)
	tc.SetStatus(types.StatusRunning)

	report := validate.GenerateReport(result)
	tc.AppendHistory(types.HistoryValidation, project.CurrentStage(tc.Spec),
		fmt.Sprintf("validation: %d issue(s), valid=%v", len(result.Issues), result.Valid), nil)

	return map[string]any{
		"valid":       result.Valid,
		"issues":      result.Issues,
		"suggestions": result.Suggestions,
		"report":      report,
	}, nil
}

// fixStageIssue re-invokes the generation tool for the named stage with
// the issue text as revision feedback. Board regeneration is fully
// deterministic, so for the board stage the fix is a plain re-run.
func fixStageIssue(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	stageName, ok := stringArg(args, "stage")
	if !ok {
		return nil, fmt.Errorf("%w: stage is required", ErrInvalidArgs)
	}
	issue, ok := stringArg(args, "issue")
	if !ok || issue == "" {
		return nil, fmt.Errorf("%w: issue is required", ErrInvalidArgs)
	}

	tc.SetStatus(types.StatusFixing)
	defer tc.SetStatus(types.StatusRunning)
	tc.AppendHistory(types.HistoryFix, types.Stage(stageName), "fixing: "+issue, nil)

	var result any
	var err error
	switch types.Stage(stageName) {
	case types.StageBoard:
		result, err = generateBoardLayout(ctx, tc, map[string]any{})
	case types.StageEnclosure:
		result, err = generateEnclosure(ctx, tc, map[string]any{"feedback": issue})
	case types.StageFirmware:
		result, err = generateFirmware(ctx, tc, map[string]any{"feedback": issue})
	default:
		return nil, fmt.Errorf("%w: stage %q has no fixable artifact", ErrInvalidArgs, stageName)
	}
	if err != nil {
		return nil, fmt.Errorf("fix for %s failed: %w", stageName, err)
	}

	return map[string]any{"stage": stageName, "issue": issue, "result": result}, nil
}

func markStageComplete(_ context.Context, tc *Context, args map[string]any) (any, error) {
	stageName, ok := stringArg(args, "stage")
	if !ok {
		return nil, fmt.Errorf("%w: stage is required", ErrInvalidArgs)
	}
	stage := types.Stage(stageName)

	if err := project.MarkStageComplete(tc.Spec, stage); err != nil {
		return nil, err
	}
	tc.SetCurrentStage(project.CurrentStage(tc.Spec))
	tc.AppendHistory(types.HistoryProgress, stage, fmt.Sprintf("stage %s complete", stageName), nil)
	logging.Orchestrator("stage %s complete, current stage now %s", stageName, project.CurrentStage(tc.Spec))

	return map[string]any{
		"stage":         stageName,
		"status":        "complete",
		"current_stage": project.CurrentStage(tc.Spec),
	}, nil
}

func reportProgress(_ context.Context, tc *Context, args map[string]any) (any, error) {
	message, ok := stringArg(args, "message")
	if !ok {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidArgs)
	}

	data := map[string]any{}
	if percent, ok := intArg(args, "percent"); ok {
		data["percent"] = percent
	}
	tc.AppendHistory(types.HistoryProgress, project.CurrentStage(tc.Spec), message, data)
	logging.Orchestrator("progress: %s", message)

	return map[string]any{"reported": true}, nil
}

// requestUserInput routes a question to the interactive collaborator when
// one is wired, and self-answers from the first option otherwise. Either
// way the answer lands in the decision log.
func requestUserInput(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	question, ok := stringArg(args, "question")
	if !ok || question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidArgs)
	}
	options := stringSliceArg(args, "options")

	var answer string
	if tc.Input != nil {
		a, err := tc.Input(ctx, question, options)
		if err != nil {
			return nil, fmt.Errorf("user input failed: %w", err)
		}
		answer = a
	} else {
		if len(options) == 0 {
			return nil, fmt.Errorf("%w: autonomous mode needs at least one option to self-answer", ErrInvalidArgs)
		}
		answer = options[0]
		logging.Tools("autonomous mode: self-answered %q with %q", question, answer)
	}

	project.AddDecision(tc.Spec, question, answer)
	return map[string]any{"question": question, "answer": answer}, nil
}
