package console

import (
	"fmt"
	"math"
	"time"

	"fleetmonitor-tui/internal/telemetry"
)

// Vessels above this speed (knots) are drawn as moving.
const MovingThreshold = 0.5

// Weight tier thresholds in tonnes. Both are exclusive lower bounds.
const (
	MediumWeight = 1000.0
	HeavyWeight  = 4000.0
)

// Tier buckets vessels by displacement for marker styling.
type Tier int

const (
	TierLight Tier = iota
	TierMedium
	TierHeavy
)

func (t Tier) String() string {
	switch t {
	case TierHeavy:
		return "Heavy"
	case TierMedium:
		return "Medium"
	default:
		return "Light"
	}
}

// TierFor maps a weight to its tier. Unknown weight counts as light.
func TierFor(weight *float64) Tier {
	if weight == nil {
		return TierLight
	}
	switch {
	case *weight > HeavyWeight:
		return TierHeavy
	case *weight > MediumWeight:
		return TierMedium
	default:
		return TierLight
	}
}

func IsMoving(speed float64) bool {
	return speed > MovingThreshold
}

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid rejects NaN, infinities and out-of-range values.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// coordinateOf reports the sample's position. ok is false when a coordinate
// is missing or out of range; such samples are never plotted.
func coordinateOf(s telemetry.Sample) (Coordinate, bool) {
	lat, lon, ok := s.Position()
	if !ok {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: lat, Lon: lon}
	return c, c.Valid()
}

// Marker is one vessel as drawn on the map.
type Marker struct {
	VesselID int64      `json:"vessel_id"`
	Name     string     `json:"name"`
	MMSI     string     `json:"mmsi"`
	Position Coordinate `json:"position"`
	Moving   bool       `json:"moving"`
	Heading  float64    `json:"heading"`
	Speed    float64    `json:"speed"`
	Tier     Tier       `json:"tier"`
	Weight   *float64   `json:"weight,omitempty"`
	Selected bool       `json:"selected"`
	Dimmed   bool       `json:"dimmed"`
}

// NewMarker builds a marker from a vessel and its latest sample. It returns
// false when the sample has no usable position.
func NewMarker(v telemetry.Vessel, s telemetry.Sample) (Marker, bool) {
	pos, ok := coordinateOf(s)
	if !ok {
		return Marker{}, false
	}
	m := Marker{
		VesselID: v.ID,
		Name:     v.Name,
		MMSI:     v.MMSI,
		Position: pos,
		Moving:   IsMoving(s.Speed),
		Speed:    s.Speed,
		Tier:     TierFor(v.Weight),
		Weight:   v.Weight,
	}
	if s.Heading != nil {
		m.Heading = *s.Heading
	}
	return m, true
}

// Label is the hover text for the marker.
func (m Marker) Label() string {
	tier := m.Tier.String()
	if m.Weight != nil {
		tier = fmt.Sprintf("%s (%.0ft)", tier, *m.Weight)
	}
	if !m.Moving {
		return fmt.Sprintf("%s · %s · Stopped/Idling", m.Name, tier)
	}
	return fmt.Sprintf("%s · %s · %.1f kn · %.0f°", m.Name, tier, m.Speed, m.Heading)
}

// MarkersFrom turns overview entries into markers, skipping vessels without a
// usable last position. When a vessel is focused, the others are dimmed.
func MarkersFrom(entries []telemetry.OverviewEntry, focusID int64, focused bool) []Marker {
	markers := make([]Marker, 0, len(entries))
	for _, e := range entries {
		if e.LastTelemetry == nil {
			continue
		}
		m, ok := NewMarker(e.Vessel, *e.LastTelemetry)
		if !ok {
			continue
		}
		if focused {
			m.Selected = e.ID == focusID
			m.Dimmed = !m.Selected
		}
		markers = append(markers, m)
	}
	return markers
}

// TrackFrom extracts the plottable positions of a track, in order.
func TrackFrom(samples []telemetry.Sample) []Coordinate {
	out := make([]Coordinate, 0, len(samples))
	for _, s := range samples {
		if c, ok := coordinateOf(s); ok {
			out = append(out, c)
		}
	}
	return out
}

func FormatCoordinate(c Coordinate) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

// FormatTimestamp renders t in local time, or "-" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
