package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"protoforge/internal/board"
	"protoforge/internal/extract"
	"protoforge/internal/logging"
	"protoforge/internal/project"
	"protoforge/internal/types"
)

// Sampling temperatures per call kind. Naming is creative work; reviews
// want consistency.
const (
	tempDefault  = 0.7
	tempCreative = 0.9
	tempReview   = 0.2
)

// fallbackNames is substituted when the naming call returns no parseable
// list. The tool never fails over a bad name.
var fallbackNames = []string{"ProtoPulse", "CircuitPal", "MakerBox", "VoltaCore"}

// defaultStyles drives the style-variant fan-out when the model doesn't
// name its own.
var defaultStyles = []string{"minimal", "rounded", "industrial", "playful"}

func registerSpecTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "analyze_feasibility",
		Description: "Analyze the project idea for feasibility. Returns component suggestions, open questions, and risk notes as structured JSON.",
		Category:    CategorySpec,
		InputSchema: objectSchema(map[string]any{
			"description": map[string]any{"type": "string", "description": "Project idea to analyze; defaults to the project description"},
		}),
		Execute: analyzeFeasibility,
	})
	r.MustRegister(&Tool{
		Name:        "auto_answer_questions",
		Description: "Answer every open question from the feasibility analysis by picking its first offered option.",
		Category:    CategorySpec,
		Execute:     autoAnswerQuestions,
	})
	r.MustRegister(&Tool{
		Name:        "generate_style_variants",
		Description: "Render enclosure style variant images. Variants are generated independently; partial failures are tolerated.",
		Category:    CategorySpec,
		InputSchema: objectSchema(map[string]any{
			"styles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}),
		Execute: generateStyleVariants,
	})
	r.MustRegister(&Tool{
		Name:        "select_style_variant",
		Description: "Select one of the generated style variants by index.",
		Category:    CategorySpec,
		InputSchema: objectSchema(map[string]any{
			"index": map[string]any{"type": "integer"},
		}, "index"),
		Execute: selectStyleVariant,
	})
	r.MustRegister(&Tool{
		Name:        "generate_project_name",
		Description: "Generate candidate project names and select the first. Falls back to stock names if generation fails to parse.",
		Category:    CategorySpec,
		Execute:     generateProjectName,
	})
	r.MustRegister(&Tool{
		Name:        "finalize_spec",
		Description: "Confirm and freeze the project specification, deriving power and output entries from accumulated decisions and the feasibility analysis. Marks the spec stage complete.",
		Category:    CategorySpec,
		InputSchema: objectSchema(map[string]any{
			"confirm": map[string]any{"type": "boolean"},
		}, "confirm"),
		Execute: finalizeSpec,
	})
}

// analyzeFeasibility runs one model call and stores the parsed JSON
// object as the feasibility artifact. This is the one tool with no safe
// parse fallback: without a feasibility object nothing downstream can
// derive a spec, so a response with no JSON is an error.
func analyzeFeasibility(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	description, _ := stringArg(args, "description")
	if description == "" {
		description = tc.Spec.Description
	}
	if description == "" {
		return nil, fmt.Errorf("%w: no project description available", ErrInvalidArgs)
	}

	resp, err := tc.Model.Chat(ctx, types.ChatRequest{
		Messages: []types.ConversationMessage{
			{Role: types.RoleSystem, Content: feasibilitySystemPrompt},
			{Role: types.RoleUser, Content: "Analyze this hardware project idea:\n\n" + description},
		},
		Temperature: tempDefault,
	})
	if err != nil {
		return nil, fmt.Errorf("feasibility analysis failed: %w", err)
	}

	var feasibility map[string]any
	if err := extract.DecodeFirstObject(resp.Content, &feasibility); err != nil {
		return nil, fmt.Errorf("feasibility response contained no JSON object: %w", err)
	}

	project.SetFeasibility(tc.Spec, feasibility)
	if err := project.Transition(tc.Spec, types.StageSpec, types.StageInProgress); err != nil {
		logging.ToolsDebug("spec stage already advanced: %v", err)
	}
	tc.AppendHistory(types.HistoryToolResult, types.StageSpec, "feasibility analysis stored", nil)

	return feasibility, nil
}

// autoAnswerQuestions deterministically resolves every open question from
// the feasibility analysis by taking its first offered option.
func autoAnswerQuestions(_ context.Context, tc *Context, _ map[string]any) (any, error) {
	if tc.Spec.Feasibility == nil {
		return nil, fmt.Errorf("%w: run analyze_feasibility first", ErrMissingPrerequisite)
	}

	questions, _ := tc.Spec.Feasibility["open_questions"].([]any)
	answers := map[string]string{}
	for _, q := range questions {
		entry, ok := q.(map[string]any)
		if !ok {
			continue
		}
		question, _ := entry["question"].(string)
		if question == "" {
			continue
		}
		answer := "no preference"
		if options, ok := entry["options"].([]any); ok && len(options) > 0 {
			if first, ok := options[0].(string); ok && first != "" {
				answer = first
			}
		}
		project.AddDecision(tc.Spec, question, answer)
		answers[question] = answer
	}

	logging.Tools("auto-answered %d open questions", len(answers))
	return map[string]any{"answers": answers, "count": len(answers)}, nil
}

// generateStyleVariants fans out one image-generation call per style and
// keeps whatever succeeds. The sub-calls touch no shared state until the
// join, so this is the one place concurrent execution is allowed. An
// error surfaces only when every variant fails.
func generateStyleVariants(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	if tc.Images == nil {
		return map[string]any{"variants": []types.StyleVariant{}, "note": "image generation unavailable"}, nil
	}

	styles := stringSliceArg(args, "styles")
	if len(styles) == 0 {
		styles = defaultStyles
	}

	results := make([]types.StyleVariant, len(styles))
	errs := make([]error, len(styles))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, style := range styles {
		g.Go(func() error {
			prompt := fmt.Sprintf("Product render of a %s-style enclosure for: %s", style, tc.Spec.Description)
			url, err := tc.Images.GenerateImage(gctx, prompt)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = err
				return nil // settle all, keep successes
			}
			results[i] = types.StyleVariant{Style: style, ImageURL: url}
			return nil
		})
	}
	g.Wait()

	var variants []types.StyleVariant
	var failed []string
	for i := range results {
		if errs[i] != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", styles[i], errs[i]))
			continue
		}
		variants = append(variants, results[i])
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("all %d style variants failed: %s", len(styles), strings.Join(failed, "; "))
	}

	project.SetStyleVariants(tc.Spec, variants)
	tc.AppendHistory(types.HistoryToolResult, types.StageSpec,
		fmt.Sprintf("generated %d/%d style variants", len(variants), len(styles)), nil)

	return map[string]any{"variants": variants, "failed": failed}, nil
}

func selectStyleVariant(_ context.Context, tc *Context, args map[string]any) (any, error) {
	index, ok := intArg(args, "index")
	if !ok {
		return nil, fmt.Errorf("%w: index is required", ErrInvalidArgs)
	}
	if err := project.SelectVariant(tc.Spec, index); err != nil {
		return nil, err
	}
	return map[string]any{"selected": index, "style": tc.Spec.StyleVariants[index].Style}, nil
}

// generateProjectName asks the model for name candidates at a higher
// sampling temperature. A response that parses to nothing substitutes
// the stock fallback names rather than failing.
func generateProjectName(ctx context.Context, tc *Context, _ map[string]any) (any, error) {
	resp, err := tc.Model.Chat(ctx, types.ChatRequest{
		Messages: []types.ConversationMessage{
			{Role: types.RoleSystem, Content: namingSystemPrompt},
			{Role: types.RoleUser, Content: "Suggest names for this device:\n\n" + tc.Spec.Description},
		},
		Temperature: tempCreative,
	})

	names := fallbackNames
	if err == nil {
		var parsed []string
		if perr := extract.DecodeFirstArray(resp.Content, &parsed); perr == nil && len(parsed) > 0 {
			names = parsed
		} else {
			logging.Tools("name generation unparseable, using fallback names")
		}
	} else {
		logging.Tools("name generation failed (%v), using fallback names", err)
	}

	tc.SetNameCandidates(names)
	project.SetName(tc.Spec, names[0])
	tc.AppendHistory(types.HistoryToolResult, types.StageSpec, "project named "+names[0], nil)

	return map[string]any{"candidates": names, "selected": names[0]}, nil
}

// finalizeSpec freezes the specification. Power and output entries are
// derived heuristically: decision answers and the feasibility object are
// scanned against the same trigger tables board selection uses, so the
// frozen spec speaks the vocabulary downstream validation expects.
func finalizeSpec(_ context.Context, tc *Context, args map[string]any) (any, error) {
	if !boolArg(args, "confirm") {
		return nil, fmt.Errorf("%w: pass confirm=true to freeze the specification", ErrNotConfirmed)
	}

	name := tc.Spec.Name
	if name == "" {
		name = fallbackNames[0]
		project.SetName(tc.Spec, name)
	}

	final := &types.FinalSpec{
		Name:        name,
		Description: tc.Spec.Description,
		Power:       types.PowerSpec{Source: derivePowerSource(tc.Spec)},
		Outputs:     deriveOutputs(tc.Spec),
		Inputs:      deriveInputs(tc.Spec),
		Features:    deriveFeatures(tc.Spec),
	}

	project.SetFinalSpec(tc.Spec, final)
	if err := project.MarkStageComplete(tc.Spec, types.StageSpec); err != nil {
		return nil, err
	}
	tc.SetCurrentStage(project.CurrentStage(tc.Spec))
	tc.AppendHistory(types.HistoryProgress, types.StageSpec, "specification finalized", nil)

	return map[string]any{"final_spec": final, "stage": "complete"}, nil
}

// derivePowerSource scans decision answers first (they carry explicit
// user intent), then the feasibility object, then the raw description.
// The first text that triggers a power rule wins; USB is the default.
func derivePowerSource(spec *types.ProjectSpec) string {
	for _, answer := range orderedDecisionAnswers(spec) {
		if powerRuleTriggered(answer) {
			return answer
		}
	}
	if spec.Feasibility != nil {
		if src, ok := spec.Feasibility["power_source"].(string); ok && src != "" {
			return src
		}
	}
	if powerRuleTriggered(spec.Description) {
		return spec.Description
	}
	return "USB"
}

func powerRuleTriggered(text string) bool {
	lower := strings.ToLower(text)
	for _, rule := range board.PowerRules {
		for _, trig := range rule.Triggers {
			if strings.Contains(lower, trig) {
				return true
			}
		}
	}
	return false
}

// deriveOutputs collects one output entry per triggered family, scanning
// the feasibility suggestions, the decision answers, and the description.
func deriveOutputs(spec *types.ProjectSpec) []types.OutputSpec {
	seen := map[string]bool{}
	var outputs []types.OutputSpec

	add := func(text string) {
		rule := board.MatchOutputRule(text)
		if rule == nil || seen[rule.Family] {
			return
		}
		seen[rule.Family] = true
		outputs = append(outputs, types.OutputSpec{Type: text, Count: 1})
	}

	if spec.Feasibility != nil {
		if suggested, ok := spec.Feasibility["suggested_outputs"].([]any); ok {
			for _, s := range suggested {
				if text, ok := s.(string); ok {
					add(text)
				}
			}
		}
	}
	for _, answer := range orderedDecisionAnswers(spec) {
		add(answer)
	}
	add(spec.Description)

	return outputs
}

func deriveInputs(spec *types.ProjectSpec) []types.InputSpec {
	lower := strings.ToLower(spec.Description + " " + strings.Join(orderedDecisionAnswers(spec), " "))
	var inputs []types.InputSpec
	if strings.Contains(lower, "button") {
		count := 1
		if strings.Contains(lower, "buttons") {
			count = 2
		}
		inputs = append(inputs, types.InputSpec{Type: "button", Count: count})
	}
	for _, trig := range []string{"encoder", "dial", "knob"} {
		if strings.Contains(lower, trig) {
			inputs = append(inputs, types.InputSpec{Type: trig, Count: 1})
			break
		}
	}
	return inputs
}

func deriveFeatures(spec *types.ProjectSpec) []string {
	if spec.Feasibility == nil {
		return nil
	}
	raw, ok := spec.Feasibility["features"].([]any)
	if !ok {
		return nil
	}
	var features []string
	for _, f := range raw {
		if s, ok := f.(string); ok {
			features = append(features, s)
		}
	}
	return features
}

// orderedDecisionAnswers returns decision answers in stable question
// order so derivation never depends on map iteration.
func orderedDecisionAnswers(spec *types.ProjectSpec) []string {
	if len(spec.Decisions) == 0 {
		return nil
	}
	questions := make([]string, 0, len(spec.Decisions))
	for q := range spec.Decisions {
		questions = append(questions, q)
	}
	sort.Strings(questions)
	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		answers = append(answers, spec.Decisions[q])
	}
	return answers
}
