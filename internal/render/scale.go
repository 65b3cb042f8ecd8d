package render

import (
	"fmt"
	"math"
)

const (
	// MinPitchHz and MaxPitchHz bound the pitch axis of the chart.
	MinPitchHz = 80.0
	MaxPitchHz = 1200.0

	displayMin  = 1.0
	displaySpan = 5.0

	unknownLabel = "알 수 없음"
)

var categoryValues = map[string]int{
	"L_L": 1, "L_H": 2,
	"M_L": 3, "M_H": 4,
	"H_L": 5, "H_H": 6,
}

// categoryLabels is indexed by chart value; index 0 is the unknown slot.
var categoryLabels = [...]string{"", "L_L", "L_H", "M_L", "M_H", "H_L", "H_H"}

// CategoryValue maps a categorical label onto the 1..6 chart scale; unknown labels map to 0.
func CategoryValue(label string) int {
	return categoryValues[label]
}

// CategoryLabel is the inverse of CategoryValue. It returns "" for 0 and out of range values.
func CategoryLabel(value int) string {
	if value < 0 || value >= len(categoryLabels) {
		return ""
	}
	return categoryLabels[value]
}

// PitchToDisplay projects a pitch in Hz onto the 1..6 chart scale.
// Values outside 80..1200 Hz are not clamped.
func PitchToDisplay(pitch float64) float64 {
	return displayMin + (pitch-MinPitchHz)/(MaxPitchHz-MinPitchHz)*displaySpan
}

// DisplayToPitch is the inverse of PitchToDisplay.
func DisplayToPitch(display float64) float64 {
	return MinPitchHz + (display-displayMin)/displaySpan*(MaxPitchHz-MinPitchHz)
}

// PitchHue returns the colour hue for an average pitch: 240 (blue) at 80 Hz down to 0 (red) at 1200 Hz.
func PitchHue(avgPitch float64) float64 {
	return 240 - 240*(avgPitch-MinPitchHz)/(MaxPitchHz-MinPitchHz)
}

// CategoryTick labels a tick of the categorical y axis.
func CategoryTick(value float64) string {
	if value != math.Trunc(value) {
		return ""
	}
	return CategoryLabel(int(value))
}

// PitchTick labels a tick of the pitch axis.
func PitchTick(display float64) string {
	return fmt.Sprintf("%dHz", int(math.Round(DisplayToPitch(display))))
}

// TooltipLabel formats the hover text of one chart point.
func TooltipLabel(datasetLabel string, raw *float64) string {
	if datasetLabel == pitchDatasetLabel && raw != nil {
		return fmt.Sprintf("피치: %dHz", int(math.Round(DisplayToPitch(*raw))))
	}
	label := ""
	if raw != nil && *raw == math.Trunc(*raw) {
		label = CategoryLabel(int(*raw))
	}
	if label == "" {
		label = unknownLabel
	}
	return fmt.Sprintf("%s: %s", datasetLabel, label)
}
