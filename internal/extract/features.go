package extract

import (
	"strings"
)

// featureTriggers maps a feature flag to the substrings that indicate it in
// generated enclosure source. First-listed order is the reporting order.
var featureTriggers = []struct {
	flag     string
	triggers []string
}{
	{"lid", []string{"lid"}},
	{"ventilation", []string{"vent"}},
	{"standoffs", []string{"standoff", "mount_post"}},
	{"usb_cutout", []string{"usb"}},
	{"screws", []string{"screw"}},
	{"snap_fit", []string{"snap"}},
}

// EnclosureFeatures scans generated enclosure text and returns the feature
// flags it appears to implement. Purely lexical; used only as a cheap
// derived signal alongside the full artifact.
func EnclosureFeatures(text string) []string {
	lower := strings.ToLower(text)
	var flags []string
	for _, ft := range featureTriggers {
		for _, trig := range ft.triggers {
			if strings.Contains(lower, trig) {
				flags = append(flags, ft.flag)
				break
			}
		}
	}
	return flags
}
