package extract

import (
	"errors"
	"regexp"
	"strconv"
)

// ErrUnparseable is returned when the enclosure text contains no
// recognizable dimension variable.
var ErrUnparseable = errors.New("no recognizable dimension variables")

// DefaultWallThickness is assumed when the text declares no wall_thickness.
const DefaultWallThickness = 2.0

// pcbClearance is the fixed clearance added around a declared PCB footprint
// when inner dimensions are not explicit.
const pcbClearance = 1.0

// Dimensions holds the inner cavity dimensions recovered from generated
// enclosure source. Source records which fallback matched.
type Dimensions struct {
	InnerWidth    float64
	InnerHeight   float64
	WallThickness float64
	Source        string // "inner", "pcb", or "case"
}

var (
	innerWidthRe    = regexp.MustCompile(`(?i)\binner_width\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	innerHeightRe   = regexp.MustCompile(`(?i)\binner_height\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	pcbWidthRe      = regexp.MustCompile(`(?i)\bpcb_width\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	pcbHeightRe     = regexp.MustCompile(`(?i)\bpcb_height\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	caseWidthRe     = regexp.MustCompile(`(?i)\bcase_width\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	caseHeightRe    = regexp.MustCompile(`(?i)\bcase_height\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	wallThicknessRe = regexp.MustCompile(`(?i)\bwall_thickness\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
)

func matchFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseEnclosureDimensions recovers the inner cavity size from generated
// enclosure text using ordered fallbacks:
//
//  1. explicit inner_width / inner_height
//  2. pcb_width / pcb_height plus a fixed 1-unit clearance
//  3. case_width / case_height minus twice the wall thickness
//
// Wall thickness defaults to 2 when absent. Returns ErrUnparseable when
// none of the patterns match. The fallback order is load-bearing: the
// enclosure-fit check depends on which variables win.
func ParseEnclosureDimensions(text string) (*Dimensions, error) {
	wall, ok := matchFloat(wallThicknessRe, text)
	if !ok {
		wall = DefaultWallThickness
	}

	if w, okW := matchFloat(innerWidthRe, text); okW {
		if h, okH := matchFloat(innerHeightRe, text); okH {
			return &Dimensions{InnerWidth: w, InnerHeight: h, WallThickness: wall, Source: "inner"}, nil
		}
	}

	if w, okW := matchFloat(pcbWidthRe, text); okW {
		if h, okH := matchFloat(pcbHeightRe, text); okH {
			return &Dimensions{
				InnerWidth:    w + pcbClearance,
				InnerHeight:   h + pcbClearance,
				WallThickness: wall,
				Source:        "pcb",
			}, nil
		}
	}

	if w, okW := matchFloat(caseWidthRe, text); okW {
		if h, okH := matchFloat(caseHeightRe, text); okH {
			return &Dimensions{
				InnerWidth:    w - 2*wall,
				InnerHeight:   h - 2*wall,
				WallThickness: wall,
				Source:        "case",
			}, nil
		}
	}

	return nil, ErrUnparseable
}
