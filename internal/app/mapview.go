package app

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fleetmonitor-tui/internal/console"
)

const (
	// worldCols is how many cells 360° of longitude spans at zoom 0.
	worldCols  = 32.0
	maxZoom    = 18.0
	maxFitZoom = 14.0
)

var errMapNotSized = errors.New("map surface has no size yet")

var headingArrows = []rune("↑↗→↘↓↙←↖")

var (
	heavyTierColor  = lipgloss.Color("#FF6B6B")
	mediumTierColor = lipgloss.Color("#F6AE2D")
	lightTierColor  = lipgloss.Color("#20B6D9")
	trackColor      = lipgloss.Color("#50E3C2")
)

// flight is an animated move of the map center.
type flight struct {
	from, to         console.Coordinate
	fromZoom, toZoom float64
	frame            int
}

// mapView is the terminal map. It implements console.MapSurface: the
// reconciler tells it where to look and the model renders it.
type mapView struct {
	width  int
	height int

	center console.Coordinate
	zoom   float64

	frames int
	flight *flight

	fits    int
	centers int
}

func newMapView(center console.Coordinate, zoom, frames int) *mapView {
	if frames < 1 {
		frames = 1
	}
	return &mapView{center: center, zoom: float64(zoom), frames: frames}
}

func (v *mapView) resize(width, height int) {
	v.width = maxInt(0, width)
	v.height = maxInt(0, height)
}

func degPerCol(zoom float64) float64 {
	return 360 / (worldCols * math.Pow(2, zoom))
}

// Terminal cells are roughly twice as tall as they are wide.
func degPerRow(zoom float64) float64 {
	return degPerCol(zoom) * 2
}

func (v *mapView) FitBounds(intent console.FitIntent) error {
	if intent.Empty {
		return console.ErrEmptyBounds
	}
	if v.width <= 0 || v.height <= 0 {
		return errMapNotSized
	}
	availCols := float64(maxInt(1, v.width-2*intent.Padding-1))
	availRows := float64(maxInt(1, v.height-2*intent.Padding-1))
	spanLon := intent.Bounds.East - intent.Bounds.West
	spanLat := intent.Bounds.North - intent.Bounds.South

	zoom := 0.0
	for z := maxFitZoom; z >= 0; z-- {
		if spanLon/degPerCol(z) <= availCols && spanLat/degPerRow(z) <= availRows {
			zoom = z
			break
		}
	}
	v.flight = nil
	v.center = intent.Bounds.Center()
	v.zoom = zoom
	v.fits++
	return nil
}

func (v *mapView) CenterOn(intent console.CenterIntent) error {
	if !intent.Target.Valid() {
		return fmt.Errorf("invalid center target %s", console.FormatCoordinate(intent.Target))
	}
	zoom := clampFloat(float64(intent.Zoom), 0, maxZoom)
	v.centers++
	if !intent.Animate || v.frames <= 1 {
		v.flight = nil
		v.center = intent.Target
		v.zoom = zoom
		return nil
	}
	v.flight = &flight{from: v.center, to: intent.Target, fromZoom: v.zoom, toZoom: zoom}
	return nil
}

func (v *mapView) animating() bool {
	return v.flight != nil
}

// step advances the flight by one frame and reports whether it continues.
func (v *mapView) step() bool {
	if v.flight == nil {
		return false
	}
	f := v.flight
	f.frame++
	t := clampFloat(float64(f.frame)/float64(v.frames), 0, 1)
	e := t * t * (3 - 2*t)
	v.center = console.Coordinate{
		Lat: f.from.Lat + (f.to.Lat-f.from.Lat)*e,
		Lon: f.from.Lon + (f.to.Lon-f.from.Lon)*e,
	}
	v.zoom = f.fromZoom + (f.toZoom-f.fromZoom)*e
	if f.frame >= v.frames {
		v.center = f.to
		v.zoom = f.toZoom
		v.flight = nil
		return false
	}
	return true
}

func (v *mapView) zoomBy(delta float64) {
	v.flight = nil
	v.zoom = clampFloat(math.Round(v.zoom)+delta, 0, maxZoom)
}

func (v *mapView) project(c console.Coordinate) (int, int, bool) {
	col := int(math.Round((c.Lon-v.center.Lon)/degPerCol(v.zoom))) + v.width/2
	row := int(math.Round((v.center.Lat-c.Lat)/degPerRow(v.zoom))) + v.height/2
	return col, row, col >= 0 && col < v.width && row >= 0 && row < v.height
}

func markerGlyph(m console.Marker) rune {
	if m.Moving {
		heading := math.Mod(m.Heading, 360)
		if heading < 0 {
			heading += 360
		}
		return headingArrows[int(math.Round(heading/45))%len(headingArrows)]
	}
	switch m.Tier {
	case console.TierHeavy:
		return '◉'
	case console.TierMedium:
		return '●'
	default:
		return '•'
	}
}

func markerStyle(m console.Marker) lipgloss.Style {
	color := lightTierColor
	switch m.Tier {
	case console.TierHeavy:
		color = heavyTierColor
	case console.TierMedium:
		color = mediumTierColor
	}
	style := lipgloss.NewStyle().Foreground(color)
	switch {
	case m.Selected:
		style = style.Bold(true).Reverse(true)
	case m.Dimmed:
		style = style.Foreground(mutedText)
	}
	return style
}

// render draws the track and markers into width x height cells followed by a
// one-line footer.
func (v *mapView) render(track []console.Coordinate, markers []console.Marker) string {
	if v.width <= 0 || v.height <= 0 {
		return mutedTextStyle("Map is waiting for a terminal size.")
	}
	cells := make([][]string, v.height)
	for row := range cells {
		cells[row] = make([]string, v.width)
		for col := range cells[row] {
			cells[row][col] = " "
		}
	}

	trackStyle := lipgloss.NewStyle().Foreground(trackColor)
	for _, p := range track {
		if col, row, ok := v.project(p); ok {
			cells[row][col] = trackStyle.Render("·")
		}
	}

	var selected *console.Marker
	for i := range markers {
		m := markers[i]
		col, row, ok := v.project(m.Position)
		if !ok {
			continue
		}
		cells[row][col] = markerStyle(m).Render(string(markerGlyph(m)))
		if m.Selected {
			selected = &markers[i]
		}
	}
	if selected != nil {
		if col, row, ok := v.project(selected.Position); ok {
			label := []rune(" " + selected.Name)
			for i, r := range label {
				if col+1+i >= v.width {
					break
				}
				cells[row][col+1+i] = panelTitleStyle.Render(string(r))
			}
		}
	}

	lines := make([]string, 0, v.height+1)
	for _, row := range cells {
		lines = append(lines, strings.Join(row, ""))
	}
	lines = append(lines, mutedTextStyle(fmt.Sprintf("center %s · zoom %.0f", console.FormatCoordinate(v.center), v.zoom)))
	return strings.Join(lines, "\n")
}
