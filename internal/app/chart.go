package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fleetmonitor-tui/internal/console"
)

const (
	sparkPadRune   = '▁'
	sparkGlyphsRaw = "▁▂▃▄▅▆▇█"
)

var (
	fuelSparkPalette = []lipgloss.Color{
		lipgloss.Color("#287B8E"),
		lipgloss.Color("#30BFA5"),
		lipgloss.Color("#72DF7A"),
		lipgloss.Color("#C6EB5A"),
		lipgloss.Color("#EFB94D"),
		lipgloss.Color("#FF8A65"),
	}
	rpmSparkPalette = []lipgloss.Color{
		lipgloss.Color("#2B7EA1"),
		lipgloss.Color("#20B6D9"),
		lipgloss.Color("#44E7AE"),
		lipgloss.Color("#D8F26F"),
		lipgloss.Color("#F6AE2D"),
		lipgloss.Color("#FF6B6B"),
	}
	sparkBandBG = lipgloss.Color("#13232C")
	sparkLow    = lipgloss.Color("#2B4C5B")
)

// renderChart draws the fuel and RPM series as two labelled sparklines.
func renderChart(points []console.ChartPoint, width int) string {
	if len(points) == 0 {
		return mutedTextStyle("No samples to chart.")
	}
	fuel := make([]float64, 0, len(points))
	rpm := make([]float64, 0, len(points))
	for _, p := range points {
		fuel = append(fuel, p.Fuel)
		rpm = append(rpm, p.RPM)
	}
	labelW := 6
	sparkW := maxInt(4, width-labelW)
	last := points[len(points)-1]
	return strings.Join([]string{
		subHeaderStyle.Render(fmt.Sprintf("Fuel  last %.1f L/h  range %s", last.Fuel, seriesRange(fuel))),
		padRight("fuel", labelW) + renderSparkline(fuel, sparkW, fuelSparkPalette),
		subHeaderStyle.Render(fmt.Sprintf("RPM   last %.0f  range %s", last.RPM, seriesRange(rpm))),
		padRight("rpm", labelW) + renderSparkline(rpm, sparkW, rpmSparkPalette),
		mutedTextStyle(fmt.Sprintf("%d points · %s → %s", len(points),
			console.FormatTimestamp(points[0].At), console.FormatTimestamp(last.At))),
	}, "\n")
}

func seriesRange(values []float64) string {
	low, high := minMax(values)
	return fmt.Sprintf("%.0f–%.0f", low, high)
}

func minMax(values []float64) (float64, float64) {
	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	if math.IsInf(low, 0) {
		return 0, 0
	}
	return low, high
}

// renderSparkline scales values into block glyphs, newest on the right.
func renderSparkline(values []float64, width int, palette []lipgloss.Color) string {
	width = maxInt(4, width)
	styles := sparkStyles(palette)
	glyphs := []rune(sparkGlyphsRaw)
	padStyle := lipgloss.NewStyle().Foreground(sparkLow).Background(sparkBandBG)

	cells := make([]string, width)
	for idx := range cells {
		cells[idx] = padStyle.Render(string(sparkPadRune))
	}
	if len(values) == 0 {
		return strings.Join(cells, "")
	}

	window := console.Downsample(values, width)
	if len(window) > width {
		window = window[len(window)-width:]
	}
	low, high := minMax(window)
	span := high - low
	start := width - len(window)
	for idx, v := range window {
		level := 0.5
		if span > 0 {
			level = (v - low) / span
		}
		glyph := clampInt(int(math.Round(level*float64(len(glyphs)-1))), 0, len(glyphs)-1)
		colorIdx := clampInt(int(math.Round(level*float64(len(styles)-1))), 0, len(styles)-1)
		cells[start+idx] = styles[colorIdx].Render(string(glyphs[glyph]))
	}
	return strings.Join(cells, "")
}

func sparkStyles(palette []lipgloss.Color) []lipgloss.Style {
	if len(palette) == 0 {
		palette = rpmSparkPalette
	}
	styles := make([]lipgloss.Style, len(palette))
	for idx, color := range palette {
		styles[idx] = lipgloss.NewStyle().
			Foreground(color).
			Background(sparkBandBG)
	}
	return styles
}

func padRight(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return text + strings.Repeat(" ", width-len(text))
}
