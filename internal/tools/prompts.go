package tools

import (
	"fmt"
	"strings"

	"protoforge/internal/types"
)

// System prompts for the single-shot model calls handlers issue. The
// orchestrator's own system prompt lives with the loop; these cover only
// the nested generation calls.

const feasibilitySystemPrompt = `You are an electronics feasibility analyst. Given a hardware project idea, respond with a single JSON object:
{
  "summary": "one-paragraph assessment",
  "power_source": "recommended power source",
  "suggested_outputs": ["free-text output types, e.g. temperature sensor"],
  "open_questions": [{"question": "...", "options": ["first option is the recommended default", "..."]}],
  "features": ["notable device features"],
  "risks": ["risk notes"]
}
Respond with the JSON object only.`

const namingSystemPrompt = `You name consumer electronics projects. Respond with a JSON array of 4 short, memorable product names. No explanation, just the array.`

const enclosureSystemPrompt = `You are a mechanical designer producing parametric OpenSCAD enclosures. Respond with one fenced code block containing the complete model. Declare dimensions as named variables (inner_width, inner_height, wall_thickness) so they can be machine-checked.`

const firmwareSystemPrompt = `You are an embedded firmware engineer targeting the Arduino framework on ESP32. Respond with a JSON array of files: [{"path": "src/main.cpp", "content": "..."}]. Define one PIN_<NET> constant per wired net and the correct I2C address for every bus device.`

const reviewSystemPrompt = `You are a hardware design reviewer. Score the artifact 0-100 and respond with a single JSON object:
{"score": 0, "verdict": "accept|revise|reject", "issues": ["..."], "positives": ["..."]}
Respond with the JSON object only.`

// describeSpec renders the final spec for inclusion in a generation
// request.
func describeSpec(final *types.FinalSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n%s\n", final.Name, final.Description)
	fmt.Fprintf(&sb, "Power: %s\n", final.Power.Source)
	for _, out := range final.Outputs {
		fmt.Fprintf(&sb, "Output: %s x%d\n", out.Type, out.Count)
	}
	for _, in := range final.Inputs {
		fmt.Fprintf(&sb, "Input: %s x%d\n", in.Type, in.Count)
	}
	if len(final.Features) > 0 {
		fmt.Fprintf(&sb, "Features: %s\n", strings.Join(final.Features, ", "))
	}
	return sb.String()
}

// describeBoard renders the board layout for inclusion in a generation
// request.
func describeBoard(layout *types.BoardLayout) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Board: %.1f x %.1f mm\n", layout.WidthMM, layout.HeightMM)
	for _, blk := range layout.Blocks {
		fmt.Fprintf(&sb, "Block: %s (%s) at col %d row %d, %dx%d units\n",
			blk.Slug, blk.Category, blk.Position.Col, blk.Position.Row, blk.Size.Cols, blk.Size.Rows)
	}
	for _, net := range layout.Nets {
		fmt.Fprintf(&sb, "Net: %s on GPIO %d\n", net.Name, net.Pin)
	}
	return sb.String()
}
