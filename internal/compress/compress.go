// Package compress shrinks raw tool results into bounded summaries for the
// model-facing conversation log. The full result always stays in project
// state; only the conversation copy is compressed.
package compress

import (
	"encoding/json"
	"fmt"
	"strings"

	"protoforge/internal/extract"
)

// maxSummaryLen bounds the compressed form of a generic tool result.
const maxSummaryLen = 800

// Compress renders a tool result for the conversation log. Enclosure and
// firmware results get structural summaries built from cheap extraction;
// everything else is JSON-encoded and truncated.
func Compress(toolName string, result any) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("(unencodable result: %v)", err)
	}

	switch toolName {
	case "generate_enclosure":
		return compressEnclosure(raw)
	case "generate_firmware":
		return compressFirmware(raw)
	case "validate_project":
		return compressValidation(raw)
	}

	return Truncate(string(raw), maxSummaryLen)
}

// Truncate bounds s to limit characters, marking the cut.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... (truncated; full result retained in project state)"
}

func compressEnclosure(raw []byte) string {
	var res struct {
		Content  string   `json:"content"`
		Features []string `json:"features"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || res.Content == "" {
		return Truncate(string(raw), maxSummaryLen)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "enclosure generated: %d chars", len(res.Content))
	if dims, err := extract.ParseEnclosureDimensions(res.Content); err == nil {
		fmt.Fprintf(&sb, ", inner %.1fx%.1fmm (wall %.1fmm)", dims.InnerWidth, dims.InnerHeight, dims.WallThickness)
	} else {
		sb.WriteString(", dimensions unparsed")
	}
	feats := res.Features
	if len(feats) == 0 {
		feats = extract.EnclosureFeatures(res.Content)
	}
	if len(feats) > 0 {
		fmt.Fprintf(&sb, ", features: %s", strings.Join(feats, ", "))
	}
	return sb.String()
}

// compressValidation keeps the rendered report whole. The report is the
// model's authoritative view of what to fix, is already bounded by issue
// count, and must never lose its tail to generic truncation.
func compressValidation(raw []byte) string {
	var res struct {
		Report string `json:"report"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || res.Report == "" {
		return Truncate(string(raw), maxSummaryLen)
	}
	return res.Report
}

func compressFirmware(raw []byte) string {
	var res struct {
		Files []struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || len(res.Files) == 0 {
		return Truncate(string(raw), maxSummaryLen)
	}

	total := 0
	paths := make([]string, len(res.Files))
	for i, f := range res.Files {
		paths[i] = f.Path
		total += len(f.Content)
	}
	return fmt.Sprintf("firmware generated: %d file(s) [%s], %d chars total",
		len(res.Files), strings.Join(paths, ", "), total)
}
