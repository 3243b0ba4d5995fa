package compress

import (
	"strings"
	"testing"

	"protoforge/internal/types"
)

func TestCompressGenericTruncates(t *testing.T) {
	big := map[string]string{"payload": strings.Repeat("x", 5000)}
	got := Compress("analyze_feasibility", big)
	if len(got) > maxSummaryLen+100 {
		t.Errorf("summary too long: %d chars", len(got))
	}
	if !strings.Contains(got, "truncated") {
		t.Errorf("expected truncation marker in %q", got[len(got)-80:])
	}
}

func TestCompressGenericSmallPassthrough(t *testing.T) {
	got := Compress("report_progress", map[string]string{"status": "ok"})
	if got != `{"status":"ok"}` {
		t.Errorf("got %q", got)
	}
}

func TestCompressEnclosure(t *testing.T) {
	result := types.EnclosureArtifact{
		Content: "inner_width = 55; inner_height = 65; wall_thickness = 3;\nmodule lid() {}",
	}
	got := Compress("generate_enclosure", result)

	if !strings.Contains(got, "inner 55.0x65.0mm") {
		t.Errorf("expected dimensions in summary, got %q", got)
	}
	if !strings.Contains(got, "lid") {
		t.Errorf("expected lid feature in summary, got %q", got)
	}
	if strings.Contains(got, "module lid") {
		t.Error("summary must not carry the raw content")
	}
}

func TestCompressEnclosureUnparsed(t *testing.T) {
	got := Compress("generate_enclosure", types.EnclosureArtifact{Content: "cube([1,1,1]);"})
	if !strings.Contains(got, "dimensions unparsed") {
		t.Errorf("got %q", got)
	}
}

func TestCompressValidationKeepsReportWhole(t *testing.T) {
	// A many-issue report can exceed the generic summary bound; the
	// model must still see every line of it.
	var report strings.Builder
	report.WriteString("=== Cross-Stage Validation: FAILED ===\n")
	for i := 0; i < 30; i++ {
		report.WriteString("  [ERROR] (board) declared output has no matching block on the board layout\n")
	}
	report.WriteString("  [ERROR] (firmware) final line must survive\n")
	if report.Len() <= maxSummaryLen {
		t.Fatalf("test report too short to prove anything: %d chars", report.Len())
	}

	got := Compress("validate_project", map[string]any{
		"valid":  false,
		"report": report.String(),
	})

	if got != report.String() {
		t.Errorf("report was altered; got %d chars, want %d", len(got), report.Len())
	}
	if strings.Contains(got, "truncated") {
		t.Error("validation report must never be truncated")
	}
	if !strings.Contains(got, "final line must survive") {
		t.Error("report tail was dropped")
	}
}

func TestCompressValidationFallbackWithoutReport(t *testing.T) {
	got := Compress("validate_project", map[string]any{"valid": true})
	if !strings.Contains(got, `"valid":true`) {
		t.Errorf("got %q", got)
	}
}

func TestCompressFirmware(t *testing.T) {
	result := types.FirmwareArtifact{Files: []types.SourceFile{
		{Path: "main.cpp", Content: strings.Repeat("a", 1000)},
		{Path: "pins.h", Content: "#define PIN_LED 2"},
	}}
	got := Compress("generate_firmware", result)

	if !strings.Contains(got, "2 file(s)") || !strings.Contains(got, "main.cpp") || !strings.Contains(got, "pins.h") {
		t.Errorf("got %q", got)
	}
	if len(got) > 300 {
		t.Errorf("summary too long: %d chars", len(got))
	}
}
