package validate

import (
	"fmt"
	"strings"

	"protoforge/internal/types"
)

// GenerateReport renders a deterministic multi-line report for a validation
// result. The text is returned verbatim to the model as a tool result, so
// its shape is part of the validator's observable contract.
func GenerateReport(result *types.ValidationResult) string {
	var sb strings.Builder

	if result.Valid {
		sb.WriteString("=== Cross-Stage Validation: PASSED ===\n")
	} else {
		sb.WriteString("=== Cross-Stage Validation: FAILED ===\n")
	}

	if len(result.Issues) == 0 {
		sb.WriteString("No issues found.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%d issue(s):\n", len(result.Issues)))
	for _, iss := range result.Issues {
		sb.WriteString(fmt.Sprintf("  [%s] (%s) %s", strings.ToUpper(string(iss.Severity)), iss.Stage, iss.Message))
		if iss.Details != "" {
			sb.WriteString(" | " + iss.Details)
		}
		sb.WriteByte('\n')
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("Suggestions:\n")
		for _, sug := range result.Suggestions {
			sb.WriteString(fmt.Sprintf("  - %s: %s", sug.Stage, sug.Action))
			if sug.AutoFixable {
				sb.WriteString(" (auto-fixable)")
			}
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}
