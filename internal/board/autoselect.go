package board

import (
	"fmt"
	"strings"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// Selection is the outcome of auto-selecting blocks from a final spec.
type Selection struct {
	Blocks   []types.BoardBlock
	Warnings []string
}

// findBySlug returns the first catalog entry whose slug contains any of the
// given substrings, testing substrings in order. First match wins.
func findBySlug(catalog []types.BoardBlock, substrings []string) *types.BoardBlock {
	for _, sub := range substrings {
		for i := range catalog {
			if strings.Contains(catalog[i].Slug, sub) {
				return &catalog[i]
			}
		}
	}
	return nil
}

// findByCategory returns the first catalog entry in the given category.
func findByCategory(catalog []types.BoardBlock, category string) *types.BoardBlock {
	for i := range catalog {
		if catalog[i].Category == category {
			return &catalog[i]
		}
	}
	return nil
}

// AutoSelect chooses blocks for a final spec against the available catalog.
//
// The procedure is fixed: exactly one MCU, then exactly one power block via
// the ordered power rules, then one block per declared output and input via
// the trigger tables. A rule that finds no catalog entry emits a warning
// rather than failing the selection.
func AutoSelect(spec *types.FinalSpec, catalog []types.BoardBlock) Selection {
	var sel Selection

	logging.BoardDebug("auto-select: %d outputs, %d inputs, catalog size %d",
		len(spec.Outputs), len(spec.Inputs), len(catalog))

	// MCU first. Missing MCU is a warning, not a failure.
	if mcu := findByCategory(catalog, "mcu"); mcu != nil {
		sel.Blocks = append(sel.Blocks, *mcu)
	} else {
		sel.Warnings = append(sel.Warnings, "no MCU block available in catalog")
	}

	// Exactly one power block.
	powerRule := MatchPowerRule(spec.Power.Source)
	if blk := findBySlug(catalog, powerRule.Slugs); blk != nil {
		sel.Blocks = append(sel.Blocks, *blk)
	} else {
		sel.Warnings = append(sel.Warnings,
			fmt.Sprintf("no %s power block available for source %q", powerRule.Family, spec.Power.Source))
	}

	// One block per declared output, each tested independently.
	for _, out := range spec.Outputs {
		rule := MatchOutputRule(out.Type)
		if rule == nil {
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("no block rule matches output type %q", out.Type))
			continue
		}
		if blk := findBySlug(catalog, rule.Slugs); blk != nil {
			sel.Blocks = append(sel.Blocks, *blk)
		} else {
			sel.Warnings = append(sel.Warnings,
				fmt.Sprintf("no %s block available for output type %q", rule.Family, out.Type))
		}
	}

	// Inputs: buttons split by count, encoders by trigger.
	for _, in := range spec.Inputs {
		lower := strings.ToLower(in.Type)
		switch {
		case containsAny(lower, buttonTriggers):
			slugs := buttonSmallSlugs
			if in.Count >= 3 {
				slugs = buttonLargeSlugs
			}
			if blk := findBySlug(catalog, slugs); blk != nil {
				sel.Blocks = append(sel.Blocks, *blk)
			} else {
				sel.Warnings = append(sel.Warnings,
					fmt.Sprintf("no button connector available for %d buttons", in.Count))
			}
		case containsAny(lower, encoderTriggers):
			if blk := findBySlug(catalog, encoderSlugs); blk != nil {
				sel.Blocks = append(sel.Blocks, *blk)
			} else {
				sel.Warnings = append(sel.Warnings, "no encoder block available in catalog")
			}
		default:
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("no block rule matches input type %q", in.Type))
		}
	}

	logging.Board("auto-selected %d blocks (%d warnings)", len(sel.Blocks), len(sel.Warnings))
	return sel
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Pack places blocks left-to-right into rows of maxRowCols grid units,
// wrapping when a block would exceed the row width, and returns the placed
// blocks plus the board size in millimeters. The minimum board size holds
// even for an empty selection.
func Pack(blocks []types.BoardBlock) ([]types.PlacedBlock, float64, float64) {
	var placed []types.PlacedBlock

	col, row := 0, 0
	rowHeight := 0
	maxCol := 0

	for _, blk := range blocks {
		if col+blk.Size.Cols > maxRowCols && col > 0 {
			col = 0
			row += rowHeight
			rowHeight = 0
		}
		placed = append(placed, types.PlacedBlock{
			Slug:     blk.Slug,
			Category: blk.Category,
			Position: types.GridPosition{Col: col, Row: row},
			Size:     blk.Size,
		})
		col += blk.Size.Cols
		if blk.Size.Rows > rowHeight {
			rowHeight = blk.Size.Rows
		}
		if col > maxCol {
			maxCol = col
		}
	}

	packedRows := row + rowHeight
	cols := maxCol
	if cols < MinBoardCols {
		cols = MinBoardCols
	}
	if packedRows < MinBoardRows {
		packedRows = MinBoardRows
	}

	return placed, float64(cols) * GridUnit, float64(packedRows) * GridUnit
}

// BuildNetlist assigns one named net per placed signal block (everything
// except the MCU and power blocks), with GPIO pins handed out sequentially
// from pin 2.
func BuildNetlist(blocks []types.PlacedBlock) []types.Net {
	var nets []types.Net
	pin := 2
	for _, blk := range blocks {
		if blk.Category == "mcu" || blk.Category == "power" {
			continue
		}
		nets = append(nets, types.Net{Name: NetName(blk.Slug), Pin: pin})
		pin++
	}
	return nets
}

// NetName derives a net name from a block slug: uppercased, with runs of
// non-alphanumerics collapsed to underscores.
func NetName(slug string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(slug) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// Layout runs the full deterministic pipeline: select, pack, size, netlist.
func Layout(spec *types.FinalSpec, catalog []types.BoardBlock) *types.BoardLayout {
	sel := AutoSelect(spec, catalog)
	placed, widthMM, heightMM := Pack(sel.Blocks)
	return &types.BoardLayout{
		Blocks:   placed,
		WidthMM:  widthMM,
		HeightMM: heightMM,
		Nets:     BuildNetlist(placed),
		Warnings: sel.Warnings,
	}
}
