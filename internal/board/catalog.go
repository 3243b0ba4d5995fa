// Package board implements the deterministic block auto-selection algorithm
// and board sizing. No model calls: given a final spec and a block catalog,
// the same selection always comes out.
//
// The substring trigger tables here are load-bearing business logic, not
// incidental string munging. Cross-stage validation shares them, so the
// tables, their evaluation order, and the first-match-wins tie-break must
// stay exactly as written.
package board

import (
	"strings"

	"protoforge/internal/types"
)

// GridUnit is the fixed physical spacing of the board grid in millimeters.
const GridUnit = 12.7

// Minimum board size in grid units, enforced even for an empty selection.
const (
	MinBoardCols = 4
	MinBoardRows = 3
)

// maxRowCols is the packing row width in grid units. Blocks wrap to a new
// row when they would exceed it.
const maxRowCols = 4

// PowerRule maps power-source text to a block family. Rules are evaluated
// in order; the first trigger hit wins. Unmatched sources fall back to the
// USB family.
type PowerRule struct {
	Family   string   // short family name used in issue ids and suggestions
	Triggers []string // substrings tested against the spec's power source
	Slugs    []string // catalog slug substrings that satisfy the family
}

// PowerRules is the ordered power-source table.
var PowerRules = []PowerRule{
	{Family: "usb", Triggers: []string{"usb"}, Slugs: []string{"usb"}},
	{Family: "lipo", Triggers: []string{"battery", "lipo", "lithium"}, Slugs: []string{"lipo"}},
	{Family: "boost", Triggers: []string{"aa", "aaa"}, Slugs: []string{"boost"}},
	{Family: "coin", Triggers: []string{"coin", "cr2032"}, Slugs: []string{"coin"}},
}

// MatchPowerRule returns the power rule for a free-text power source.
// Never fails: anything unmatched defaults to the USB rule.
func MatchPowerRule(source string) PowerRule {
	lower := strings.ToLower(source)
	for _, rule := range PowerRules {
		for _, trig := range rule.Triggers {
			if strings.Contains(lower, trig) {
				return rule
			}
		}
	}
	return PowerRules[0]
}

// OutputRule maps a declared output's free-text type to a block family.
type OutputRule struct {
	Family   string
	Triggers []string
	Slugs    []string
}

// OutputRules is the fixed output trigger table. Each declared output is
// tested independently against the rules in order.
var OutputRules = []OutputRule{
	{Family: "environmental", Triggers: []string{"temperature", "humidity", "environmental"}, Slugs: []string{"bme280", "sht40"}},
	{Family: "accelerometer", Triggers: []string{"acceleration", "motion", "tilt"}, Slugs: []string{"lis3dh", "accel"}},
	{Family: "light", Triggers: []string{"light", "ambient", "lux"}, Slugs: []string{"veml7700", "light"}},
	{Family: "distance", Triggers: []string{"distance", "proximity", "range"}, Slugs: []string{"vl53l0x", "distance"}},
	{Family: "pir", Triggers: []string{"pir", "presence"}, Slugs: []string{"pir"}},
	{Family: "led", Triggers: []string{"led", "neopixel", "ws2812"}, Slugs: []string{"ws2812", "neopixel", "led"}},
	{Family: "display", Triggers: []string{"display", "oled", "screen"}, Slugs: []string{"ssd1306", "display", "oled"}},
	{Family: "buzzer", Triggers: []string{"buzzer", "sound", "beep"}, Slugs: []string{"buzzer"}},
	{Family: "relay", Triggers: []string{"relay", "switch"}, Slugs: []string{"relay"}},
	{Family: "motor", Triggers: []string{"motor"}, Slugs: []string{"drv8833", "motor"}},
}

// MatchOutputRule returns the first output rule triggered by the free-text
// type, or nil when nothing matches.
func MatchOutputRule(outputType string) *OutputRule {
	lower := strings.ToLower(outputType)
	for i := range OutputRules {
		for _, trig := range OutputRules[i].Triggers {
			if strings.Contains(lower, trig) {
				return &OutputRules[i]
			}
		}
	}
	return nil
}

// Input trigger sets. Buttons split into two connector blocks by count.
var (
	buttonTriggers  = []string{"button"}
	encoderTriggers = []string{"encoder", "dial", "knob"}

	buttonSmallSlugs = []string{"button_x2"} // 1-2 buttons
	buttonLargeSlugs = []string{"button_x4"} // 3 or more
	encoderSlugs     = []string{"encoder"}
)

// I2CAddresses maps catalog slug substrings to the fixed I2C address
// literal expected somewhere in generated firmware. Shared with the
// firmware-matches-board check.
var I2CAddresses = map[string]string{
	"bme280":   "0x76",
	"sht40":    "0x44",
	"lis3dh":   "0x18",
	"veml7700": "0x10",
	"vl53l0x":  "0x29",
	"ssd1306":  "0x3C",
}

// DefaultCatalog returns the built-in block catalog. Real deployments
// supply their own; this one exists so the CLI can run standalone and so
// tests have a realistic catalog to select from.
func DefaultCatalog() []types.BoardBlock {
	return []types.BoardBlock{
		{Slug: "esp32_mcu", Name: "ESP32 MCU", Category: "mcu", Size: types.GridSize{Cols: 2, Rows: 2}},
		{Slug: "usb_c_power", Name: "USB-C Power", Category: "power", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "lipo_charger", Name: "LiPo Charger", Category: "power", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "aa_boost", Name: "AA Boost Converter", Category: "power", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "coin_cell", Name: "Coin Cell Holder", Category: "power", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "bme280_env", Name: "BME280 Environmental Sensor", Category: "sensor", Size: types.GridSize{Cols: 1, Rows: 1}, I2CAddr: "0x76"},
		{Slug: "lis3dh_accel", Name: "LIS3DH Accelerometer", Category: "sensor", Size: types.GridSize{Cols: 1, Rows: 1}, I2CAddr: "0x18"},
		{Slug: "veml7700_light", Name: "VEML7700 Light Sensor", Category: "sensor", Size: types.GridSize{Cols: 1, Rows: 1}, I2CAddr: "0x10"},
		{Slug: "vl53l0x_distance", Name: "VL53L0X Distance Sensor", Category: "sensor", Size: types.GridSize{Cols: 1, Rows: 1}, I2CAddr: "0x29"},
		{Slug: "pir_sensor", Name: "PIR Presence Sensor", Category: "sensor", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "ws2812_led", Name: "WS2812 LED Output", Category: "output", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "ssd1306_display", Name: "SSD1306 Display", Category: "output", Size: types.GridSize{Cols: 2, Rows: 1}, I2CAddr: "0x3C"},
		{Slug: "buzzer_out", Name: "Piezo Buzzer", Category: "output", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "relay_out", Name: "Relay Output", Category: "output", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "drv8833_motor", Name: "DRV8833 Motor Driver", Category: "output", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "button_x2", Name: "2x Button Connector", Category: "input", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "button_x4", Name: "4x Button Connector", Category: "input", Size: types.GridSize{Cols: 1, Rows: 1}},
		{Slug: "encoder_input", Name: "Rotary Encoder", Category: "input", Size: types.GridSize{Cols: 1, Rows: 1}},
	}
}
