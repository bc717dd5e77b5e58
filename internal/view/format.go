package view

import (
	"fmt"
	"math"
	"strconv"
)

const (
	progressSaturation = 85
	progressLightness  = 44
)

// ProgressColor maps 0..100 percent onto a red to green hue in HSL.
func ProgressColor(percent float64) string {
	p := percent
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(0, math.Min(100, p))
	hue := 120 * (p / 100)
	return fmt.Sprintf("hsl(%.1f, %d%%, %d%%)", hue, progressSaturation, progressLightness)
}

// ProgressText renders "4.5000 / 9 ETH received — 50.0%".
func ProgressText(receivedEth, goalEth, percent float64) string {
	return fmt.Sprintf("%.4f / %s ETH received — %.1f%%", receivedEth, FormatGoal(goalEth), percent)
}

// FormatGoal prints the goal in its shortest form.
func FormatGoal(goalEth float64) string {
	return strconv.FormatFloat(goalEth, 'f', -1, 64)
}

// ShortAddress truncates to the first 6 and last 4 characters.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
