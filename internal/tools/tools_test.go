package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/board"
	"protoforge/internal/project"
	"protoforge/internal/types"
)

// fakeModel returns canned responses and records requests.
type fakeModel struct {
	responses []string
	calls     int
	lastReq   types.ChatRequest
	err       error
}

func (f *fakeModel) Chat(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	content := ""
	if len(f.responses) > 0 {
		content = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	return &types.ChatResponse{Content: content, Model: "fake"}, nil
}

func (f *fakeModel) ChatWithTools(_ context.Context, _ types.ToolChatRequest) (*types.ToolChatResponse, error) {
	return nil, errors.New("not used in handler tests")
}

// fakeImages fails for styles listed in fail.
type fakeImages struct {
	fail map[string]bool
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	for style := range f.fail {
		if strings.Contains(prompt, style) {
			return "", fmt.Errorf("render failed for %s", style)
		}
	}
	return "https://img.example/" + fmt.Sprint(len(prompt)), nil
}

func newTestContext(model types.LLMClient) *Context {
	return &Context{
		Spec:    project.New("p1", "a temperature logger with a display"),
		Catalog: board.DefaultCatalog(),
		Model:   model,
		State:   &types.OrchestratorState{Status: types.StatusRunning, CurrentStage: types.StageSpec},
	}
}

func TestDefaultRegistryNames(t *testing.T) {
	r := DefaultRegistry()
	expected := []string{
		"accept_artifact", "analyze_feasibility", "auto_answer_questions",
		"finalize_spec", "fix_stage_issue", "generate_board_layout",
		"generate_enclosure", "generate_firmware", "generate_project_name",
		"generate_style_variants", "mark_stage_complete", "report_progress",
		"request_user_input", "review_artifact", "select_style_variant",
		"validate_project",
	}
	assert.Equal(t, expected, r.Names())
	assert.Len(t, r.Definitions(), len(expected))
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Execute(context.Background(), newTestContext(&fakeModel{}), "no_such_tool", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistryExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&Tool{
		Name:        "boom",
		Description: "panics",
		Category:    CategoryControl,
		Execute: func(context.Context, *Context, map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	_, err := r.Execute(context.Background(), newTestContext(&fakeModel{}), "boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestAnalyzeFeasibilityStoresJSON(t *testing.T) {
	model := &fakeModel{responses: []string{
		`Here is the analysis: {"summary": "doable", "power_source": "USB-C", "open_questions": []}`,
	}}
	tc := newTestContext(model)

	result, err := analyzeFeasibility(context.Background(), tc, map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, tc.Spec.Feasibility)
	assert.Equal(t, "doable", tc.Spec.Feasibility["summary"])
	assert.Equal(t, types.StageInProgress, tc.Spec.Stages[types.StageSpec].Status)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "USB-C", m["power_source"])
}

func TestAnalyzeFeasibilityNoJSONFails(t *testing.T) {
	model := &fakeModel{responses: []string{"I think this project is feasible."}}
	tc := newTestContext(model)

	_, err := analyzeFeasibility(context.Background(), tc, nil)
	require.Error(t, err)
	assert.Nil(t, tc.Spec.Feasibility)
}

func TestAutoAnswerQuestionsPicksFirstOption(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Spec.Feasibility = map[string]any{
		"open_questions": []any{
			map[string]any{"question": "power source?", "options": []any{"USB-C", "battery"}},
			map[string]any{"question": "enclosure color?"},
		},
	}

	_, err := autoAnswerQuestions(context.Background(), tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "USB-C", tc.Spec.Decisions["power source?"])
	assert.Equal(t, "no preference", tc.Spec.Decisions["enclosure color?"])
}

func TestAutoAnswerQuestionsNeedsFeasibility(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	_, err := autoAnswerQuestions(context.Background(), tc, nil)
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestGenerateStyleVariantsPartialFailure(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Images = &fakeImages{fail: map[string]bool{"industrial": true}}

	result, err := generateStyleVariants(context.Background(), tc, map[string]any{})
	require.NoError(t, err)
	require.Len(t, tc.Spec.StyleVariants, 3)

	m := result.(map[string]any)
	assert.Len(t, m["failed"], 1)
}

func TestGenerateStyleVariantsAllFail(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Images = &fakeImages{fail: map[string]bool{
		"minimal": true, "rounded": true, "industrial": true, "playful": true,
	}}

	_, err := generateStyleVariants(context.Background(), tc, map[string]any{})
	require.Error(t, err)
	assert.Empty(t, tc.Spec.StyleVariants)
}

func TestSelectStyleVariantBounds(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	project.SetStyleVariants(tc.Spec, []types.StyleVariant{{Style: "minimal"}, {Style: "rounded"}})

	_, err := selectStyleVariant(context.Background(), tc, map[string]any{"index": float64(5)})
	assert.Error(t, err)

	result, err := selectStyleVariant(context.Background(), tc, map[string]any{"index": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "rounded", result.(map[string]any)["style"])
}

func TestGenerateProjectNameFallback(t *testing.T) {
	model := &fakeModel{responses: []string{"How about calling it SensorThing?"}}
	tc := newTestContext(model)

	result, err := generateProjectName(context.Background(), tc, nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackNames[0], tc.Spec.Name)
	assert.Equal(t, fallbackNames, result.(map[string]any)["candidates"])
	// Creative calls run hotter than the default.
	assert.Greater(t, model.lastReq.Temperature, tempDefault)
}

func TestGenerateProjectNameParsesList(t *testing.T) {
	model := &fakeModel{responses: []string{`["ThermoPal", "HeatSeeker", "DegreeBox", "WarmWatch"]`}}
	tc := newTestContext(model)

	_, err := generateProjectName(context.Background(), tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "ThermoPal", tc.Spec.Name)
	assert.Equal(t, []string{"ThermoPal", "HeatSeeker", "DegreeBox", "WarmWatch"}, tc.NameCandidates())
}

func TestFinalizeSpecRequiresConfirm(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	_, err := finalizeSpec(context.Background(), tc, map[string]any{})
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestFinalizeSpecDerivesAndCompletes(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Spec.Name = "ThermoPal"
	tc.Spec.Feasibility = map[string]any{
		"power_source":      "LiPo battery",
		"suggested_outputs": []any{"temperature sensor", "OLED display"},
	}
	project.AddDecision(tc.Spec, "power source?", "USB-C")

	_, err := finalizeSpec(context.Background(), tc, map[string]any{"confirm": true})
	require.NoError(t, err)

	final := tc.Spec.FinalSpec
	require.NotNil(t, final)
	// The decision answer triggers the power rules, so it wins over the
	// feasibility suggestion.
	assert.Equal(t, "USB-C", final.Power.Source)
	require.Len(t, final.Outputs, 2)
	assert.Equal(t, types.StageComplete, tc.Spec.Stages[types.StageSpec].Status)
	assert.Equal(t, types.StageInProgress, tc.Spec.Stages[types.StageBoard].Status)
}

func TestGenerateBoardLayoutAutoSelect(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Spec.FinalSpec = &types.FinalSpec{
		Power:   types.PowerSpec{Source: "USB-C"},
		Outputs: []types.OutputSpec{{Type: "Temperature", Count: 1}},
	}

	result, err := generateBoardLayout(context.Background(), tc, map[string]any{})
	require.NoError(t, err)

	layout := result.(*types.BoardLayout)
	require.Len(t, layout.Blocks, 3)
	assert.GreaterOrEqual(t, layout.WidthMM, 4*board.GridUnit)
	assert.GreaterOrEqual(t, layout.HeightMM, 3*board.GridUnit)
	assert.Same(t, layout, tc.Spec.BoardLayout)
}

func TestGenerateBoardLayoutExplicitBlocks(t *testing.T) {
	tc := newTestContext(&fakeModel{})

	result, err := generateBoardLayout(context.Background(), tc, map[string]any{
		"blocks": []any{"esp32", "usb_c", "nonexistent_block"},
	})
	require.NoError(t, err)

	layout := result.(*types.BoardLayout)
	assert.Len(t, layout.Blocks, 2)
	assert.Len(t, layout.Warnings, 1)
}

func TestGenerateBoardLayoutNoSpecNoBlocks(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	_, err := generateBoardLayout(context.Background(), tc, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func testFinalSpecAndBoard(tc *Context) {
	tc.Spec.FinalSpec = &types.FinalSpec{
		Name:    "ThermoPal",
		Power:   types.PowerSpec{Source: "USB-C"},
		Outputs: []types.OutputSpec{{Type: "temperature", Count: 1}},
	}
	tc.Spec.BoardLayout = board.Layout(tc.Spec.FinalSpec, tc.Catalog)
}

func TestGenerateEnclosureExtractsFencedBlock(t *testing.T) {
	model := &fakeModel{responses: []string{
		"Here is the model:\n```openscad\ninner_width = 55;\ninner_height = 65;\nwall_thickness = 2;\n// lid with ventilation\n```\nEnjoy.",
	}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	result, err := generateEnclosure(context.Background(), tc, map[string]any{})
	require.NoError(t, err)

	require.NotNil(t, tc.Spec.Enclosure)
	assert.Equal(t, 55.0, tc.Spec.Enclosure.InnerWidth)
	assert.Contains(t, tc.Spec.Enclosure.Features, "lid")

	m := result.(map[string]any)
	content := m["content"].(string)
	assert.Contains(t, content, "inner_width = 55;")
	assert.NotContains(t, content, "Enjoy")
}

func TestGenerateEnclosureFeedbackForwarded(t *testing.T) {
	model := &fakeModel{responses: []string{"```\ncube([60, 70, 25]);\n```"}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	_, err := generateEnclosure(context.Background(), tc, map[string]any{"feedback": "make it 10mm wider"})
	require.NoError(t, err)

	userMsg := model.lastReq.Messages[len(model.lastReq.Messages)-1].Content
	assert.Contains(t, userMsg, "Revision feedback")
	assert.Contains(t, userMsg, "make it 10mm wider")
}

func TestGenerateEnclosureNeedsPrereqs(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	_, err := generateEnclosure(context.Background(), tc, nil)
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestGenerateFirmwareParsesFileList(t *testing.T) {
	model := &fakeModel{responses: []string{
		`[{"path": "src/main.cpp", "content": "#define PIN_BME280_ENV 2"}, {"path": "src/config.h", "content": "// config"}]`,
	}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	_, err := generateFirmware(context.Background(), tc, map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, tc.Spec.Firmware)
	require.Len(t, tc.Spec.Firmware.Files, 2)
	assert.Equal(t, "src/main.cpp", tc.Spec.Firmware.Files[0].Path)
}

func TestGenerateFirmwareWrapsUnparseable(t *testing.T) {
	model := &fakeModel{responses: []string{"```cpp\nvoid setup() {}\nvoid loop() {}\n```"}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	_, err := generateFirmware(context.Background(), tc, map[string]any{})
	require.NoError(t, err)
	require.Len(t, tc.Spec.Firmware.Files, 1)
	assert.Equal(t, "src/main.cpp", tc.Spec.Firmware.Files[0].Path)
	assert.Contains(t, tc.Spec.Firmware.Files[0].Content, "void setup()")
}

func TestReviewArtifactParsesVerdict(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"score": 85, "verdict": "accept", "issues": [], "positives": ["clean layout"]}`,
	}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	result, err := reviewArtifact(context.Background(), tc, map[string]any{"stage": "board"})
	require.NoError(t, err)

	verdict := result.(types.ReviewVerdict)
	assert.Equal(t, 85, verdict.Score)
	assert.Equal(t, "accept", verdict.Verdict)
	// Reviews run colder than the default.
	assert.Less(t, model.lastReq.Temperature, tempDefault)
}

func TestReviewArtifactConservativeFallback(t *testing.T) {
	model := &fakeModel{responses: []string{"Looks pretty good to me!"}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	result, err := reviewArtifact(context.Background(), tc, map[string]any{"stage": "board"})
	require.NoError(t, err)

	verdict := result.(types.ReviewVerdict)
	assert.Equal(t, 70, verdict.Score)
	assert.Equal(t, "revise", verdict.Verdict)
	require.Len(t, verdict.Issues, 1)
}

func TestAcceptArtifactNeedsArtifact(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	_, err := acceptArtifact(context.Background(), tc, map[string]any{"stage": "enclosure"})
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestValidateProjectReturnsReport(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	testFinalSpecAndBoard(tc)

	result, err := validateProject(context.Background(), tc, map[string]any{})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, true, m["valid"])
	assert.Contains(t, m["report"], "PASSED")
	assert.NotNil(t, tc.State.Validation)
}

func TestFixStageIssueForwardsFeedback(t *testing.T) {
	model := &fakeModel{responses: []string{"```\ncube([60, 70, 25]);\n```"}}
	tc := newTestContext(model)
	testFinalSpecAndBoard(tc)

	result, err := fixStageIssue(context.Background(), tc, map[string]any{
		"stage": "enclosure",
		"issue": "enclosure too narrow for the board",
	})
	require.NoError(t, err)

	userMsg := model.lastReq.Messages[len(model.lastReq.Messages)-1].Content
	assert.Contains(t, userMsg, "enclosure too narrow")
	assert.Equal(t, "enclosure", result.(map[string]any)["stage"])
	assert.Equal(t, types.StatusRunning, tc.State.Status)
}

func TestMarkStageCompleteAdvances(t *testing.T) {
	tc := newTestContext(&fakeModel{})

	result, err := markStageComplete(context.Background(), tc, map[string]any{"stage": "spec"})
	require.NoError(t, err)

	assert.Equal(t, types.StageComplete, tc.Spec.Stages[types.StageSpec].Status)
	assert.Equal(t, types.StageInProgress, tc.Spec.Stages[types.StageBoard].Status)
	assert.Equal(t, types.StageBoard, result.(map[string]any)["current_stage"])
	assert.Equal(t, types.StageBoard, tc.State.CurrentStage)
}

func TestRequestUserInputAutonomous(t *testing.T) {
	tc := newTestContext(&fakeModel{})

	result, err := requestUserInput(context.Background(), tc, map[string]any{
		"question": "which color?",
		"options":  []any{"black", "white"},
	})
	require.NoError(t, err)
	assert.Equal(t, "black", result.(map[string]any)["answer"])
	assert.Equal(t, "black", tc.Spec.Decisions["which color?"])
}

func TestRequestUserInputInteractive(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	tc.Input = func(_ context.Context, _ string, options []string) (string, error) {
		return options[1], nil
	}

	result, err := requestUserInput(context.Background(), tc, map[string]any{
		"question": "which color?",
		"options":  []any{"black", "white"},
	})
	require.NoError(t, err)
	assert.Equal(t, "white", result.(map[string]any)["answer"])
}

func TestReportProgressAppendsHistory(t *testing.T) {
	tc := newTestContext(&fakeModel{})
	before := len(tc.State.History)

	_, err := reportProgress(context.Background(), tc, map[string]any{"message": "halfway", "percent": float64(50)})
	require.NoError(t, err)
	require.Len(t, tc.State.History, before+1)
	assert.Equal(t, types.HistoryProgress, tc.State.History[before].Kind)
}
