// Package validate implements the cross-stage consistency validator: three
// individually selectable checks over the project document, aggregated into
// a ValidationResult, plus a deterministic human-readable report.
//
// Validation issues are data, never errors. A failing check drives the fix
// loop; it does not abort anything.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"protoforge/internal/board"
	"protoforge/internal/extract"
	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// Check selects one validator check.
type Check string

const (
	CheckSpecSatisfied   Check = "spec_satisfied"
	CheckEnclosureFit    Check = "enclosure_fit"
	CheckFirmwareMatches Check = "firmware_matches"
)

// AllChecks lists every check in evaluation order.
var AllChecks = []Check{CheckSpecSatisfied, CheckEnclosureFit, CheckFirmwareMatches}

// fitClearance is the required clearance in millimeters between the board
// edge and the enclosure inner wall, per side.
const fitClearance = 1.0

// Run executes the requested checks against the project document. With no
// checks given, all three run. Valid is derived from the collected issues.
func Run(spec *types.ProjectSpec, checks ...Check) *types.ValidationResult {
	if len(checks) == 0 {
		checks = AllChecks
	}

	result := &types.ValidationResult{
		Issues:      []types.ValidationIssue{},
		Suggestions: []types.ValidationSuggestion{},
	}

	for _, c := range checks {
		switch c {
		case CheckSpecSatisfied:
			specSatisfied(spec, result)
		case CheckEnclosureFit:
			enclosureFit(spec, result)
		case CheckFirmwareMatches:
			firmwareMatches(spec, result)
		}
	}

	result.Recompute()
	logging.Validation("ran %d checks: valid=%v issues=%d", len(checks), result.Valid, len(result.Issues))
	return result
}

// issueID sanitizes free text into an issue id fragment.
func issueID(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func layoutHasSlug(layout *types.BoardLayout, subs []string) bool {
	for _, blk := range layout.Blocks {
		for _, sub := range subs {
			if strings.Contains(blk.Slug, sub) {
				return true
			}
		}
	}
	return false
}

// specSatisfied requires a placed block for every declared output that
// matches a trigger rule, and one for the declared power source. Each miss
// is an error plus an auto-fixable suggestion naming the block family.
func specSatisfied(spec *types.ProjectSpec, result *types.ValidationResult) {
	if spec.FinalSpec == nil || spec.BoardLayout == nil {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "spec_satisfied_unavailable",
			Severity: types.SeverityInfo,
			Stage:    types.StageBoard,
			Message:  "final spec or board layout not available; spec-satisfied check skipped",
		})
		return
	}

	for _, out := range spec.FinalSpec.Outputs {
		rule := board.MatchOutputRule(out.Type)
		if rule == nil {
			continue
		}
		if layoutHasSlug(spec.BoardLayout, rule.Slugs) {
			continue
		}
		id := "missing_block_" + issueID(out.Type)
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       id,
			Severity: types.SeverityError,
			Stage:    types.StageBoard,
			Message:  fmt.Sprintf("output %q requires a %s block but none is placed", out.Type, rule.Family),
			Details:  fmt.Sprintf("expected a block whose slug contains one of: %s", strings.Join(rule.Slugs, ", ")),
		})
		result.Suggestions = append(result.Suggestions, types.ValidationSuggestion{
			IssueID:     id,
			Stage:       types.StageBoard,
			Action:      fmt.Sprintf("add a %s block to the board layout", rule.Family),
			AutoFixable: true,
		})
	}

	powerRule := board.MatchPowerRule(spec.FinalSpec.Power.Source)
	if !layoutHasSlug(spec.BoardLayout, powerRule.Slugs) {
		id := "missing_power_" + powerRule.Family
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       id,
			Severity: types.SeverityError,
			Stage:    types.StageBoard,
			Message:  fmt.Sprintf("power source %q requires a %s power block but none is placed", spec.FinalSpec.Power.Source, powerRule.Family),
		})
		result.Suggestions = append(result.Suggestions, types.ValidationSuggestion{
			IssueID:     id,
			Stage:       types.StageBoard,
			Action:      fmt.Sprintf("add a %s power block to the board layout", powerRule.Family),
			AutoFixable: true,
		})
	}
}

// enclosureFit compares the parsed enclosure inner cavity against the board
// footprint plus clearance. When no dimension variable can be parsed, the
// check emits a warning and passes: the validator approves text it cannot
// read. That ambiguous-pass behavior is intentional and externally
// observable; do not fail closed here.
func enclosureFit(spec *types.ProjectSpec, result *types.ValidationResult) {
	if spec.BoardLayout == nil || spec.Enclosure == nil {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "enclosure_fit_unavailable",
			Severity: types.SeverityInfo,
			Stage:    types.StageEnclosure,
			Message:  "board layout or enclosure not available; fit check skipped",
		})
		return
	}

	dims, err := extract.ParseEnclosureDimensions(spec.Enclosure.Content)
	if errors.Is(err, extract.ErrUnparseable) {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "enclosure_dims_unparsed",
			Severity: types.SeverityWarning,
			Stage:    types.StageEnclosure,
			Message:  "could not parse enclosure dimensions; fit check treated as passed",
		})
		return
	}

	needWidth := spec.BoardLayout.WidthMM + 2*fitClearance
	needHeight := spec.BoardLayout.HeightMM + 2*fitClearance

	if dims.InnerWidth < needWidth {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "enclosure_too_narrow",
			Severity: types.SeverityError,
			Stage:    types.StageEnclosure,
			Message:  fmt.Sprintf("enclosure inner width %.1fmm is less than board width %.1fmm plus clearance", dims.InnerWidth, spec.BoardLayout.WidthMM),
			Details:  fmt.Sprintf("dimension source: %s", dims.Source),
		})
		result.Suggestions = append(result.Suggestions, types.ValidationSuggestion{
			IssueID: "enclosure_too_narrow",
			Stage:   types.StageEnclosure,
			Action:  fmt.Sprintf("regenerate enclosure with inner width of at least %.1fmm", needWidth),
		})
	}
	if dims.InnerHeight < needHeight {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "enclosure_too_short",
			Severity: types.SeverityError,
			Stage:    types.StageEnclosure,
			Message:  fmt.Sprintf("enclosure inner height %.1fmm is less than board height %.1fmm plus clearance", dims.InnerHeight, spec.BoardLayout.HeightMM),
			Details:  fmt.Sprintf("dimension source: %s", dims.Source),
		})
		result.Suggestions = append(result.Suggestions, types.ValidationSuggestion{
			IssueID: "enclosure_too_short",
			Stage:   types.StageEnclosure,
			Action:  fmt.Sprintf("regenerate enclosure with inner height of at least %.1fmm", needHeight),
		})
	}
}

// firmwareMatches verifies that every assigned net pin is plausibly defined
// somewhere in the firmware text, and that known I2C devices have their
// fixed address literal present. Pin misses are errors; address misses are
// warnings only.
func firmwareMatches(spec *types.ProjectSpec, result *types.ValidationResult) {
	if spec.BoardLayout == nil || spec.Firmware == nil {
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       "firmware_match_unavailable",
			Severity: types.SeverityInfo,
			Stage:    types.StageFirmware,
			Message:  "board layout or firmware not available; firmware check skipped",
		})
		return
	}

	var sb strings.Builder
	for _, f := range spec.Firmware.Files {
		sb.WriteString(f.Content)
		sb.WriteByte('\n')
	}
	source := sb.String()

	for _, net := range spec.BoardLayout.Nets {
		if net.Pin < 0 {
			continue
		}
		if pinDefined(source, net) {
			continue
		}
		id := "missing_pin_" + strings.ToLower(net.Name)
		result.Issues = append(result.Issues, types.ValidationIssue{
			ID:       id,
			Severity: types.SeverityError,
			Stage:    types.StageFirmware,
			Message:  fmt.Sprintf("net %s (pin %d) is not referenced in the firmware", net.Name, net.Pin),
		})
		result.Suggestions = append(result.Suggestions, types.ValidationSuggestion{
			IssueID: id,
			Stage:   types.StageFirmware,
			Action:  fmt.Sprintf("#define PIN_%s %d", net.Name, net.Pin),
		})
	}

	lowerSource := strings.ToLower(source)
	for _, blk := range spec.BoardLayout.Blocks {
		for slugSub, addr := range board.I2CAddresses {
			if !strings.Contains(blk.Slug, slugSub) {
				continue
			}
			if strings.Contains(lowerSource, strings.ToLower(addr)) {
				continue
			}
			result.Issues = append(result.Issues, types.ValidationIssue{
				ID:       "missing_i2c_" + slugSub,
				Severity: types.SeverityWarning,
				Stage:    types.StageFirmware,
				Message:  fmt.Sprintf("I2C device %s address %s not found in firmware", blk.Slug, addr),
			})
		}
	}
}

// pinDefined reports whether the firmware text contains any pattern that
// could plausibly define the net's pin: a PIN_<NETNAME> symbol, a GPIO
// numeric literal, or a raw numeric constant assignment.
func pinDefined(source string, net types.Net) bool {
	if strings.Contains(source, "PIN_"+net.Name) {
		return true
	}
	gpioRe := regexp.MustCompile(fmt.Sprintf(`(?i)\bgpio[_ ]?%d\b`, net.Pin))
	if gpioRe.MatchString(source) {
		return true
	}
	constRe := regexp.MustCompile(fmt.Sprintf(`[=\s(]%d\s*[;,)]`, net.Pin))
	return constRe.MatchString(source)
}
