package console

import (
	"errors"
	"math"

	"fleetmonitor-tui/internal/logging"
)

// ErrEmptyBounds is returned by surfaces asked to fit nothing.
var ErrEmptyBounds = errors.New("no plottable coordinates")

var errNoSurface = errors.New("no map surface attached")

// Bounds is a lat/lon bounding box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the box around points, ignoring invalid coordinates.
func BoundsOf(points []Coordinate) (Bounds, bool) {
	b := Bounds{South: math.Inf(1), West: math.Inf(1), North: math.Inf(-1), East: math.Inf(-1)}
	found := false
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		found = true
		b.South = math.Min(b.South, p.Lat)
		b.North = math.Max(b.North, p.Lat)
		b.West = math.Min(b.West, p.Lon)
		b.East = math.Max(b.East, p.Lon)
	}
	if !found {
		return Bounds{}, false
	}
	return b, true
}

// Center is the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// FitIntent asks the surface to show Bounds with Padding cells of margin.
// Empty is set when there was nothing to fit.
type FitIntent struct {
	Bounds  Bounds
	Empty   bool
	Padding int
	Trigger uint64
	Auto    bool
}

// CenterIntent asks the surface to fly to a vessel.
type CenterIntent struct {
	VesselID int64
	Target   Coordinate
	Zoom     int
	Animate  bool
}

// MapSurface is the rendering side of the map. Implementations may reject
// degenerate requests with an error; the reconciler logs and carries on.
type MapSurface interface {
	FitBounds(FitIntent) error
	CenterOn(CenterIntent) error
}

// FocusTarget is the focused vessel as the reconciler sees it.
type FocusTarget struct {
	Focused  bool
	VesselID int64
	Position Coordinate
	Known    bool
}

// Reconciler turns data and focus changes into one-shot viewport commands.
type Reconciler struct {
	surface   MapSurface
	padding   int
	focusZoom int

	points     []Coordinate
	autoFitted bool
	trigger    uint64

	centered   bool
	centeredID int64
}

func NewReconciler(surface MapSurface, padding, focusZoom int) *Reconciler {
	return &Reconciler{surface: surface, padding: padding, focusZoom: focusZoom}
}

// SetSurface swaps the surface, e.g. once the terminal size is known.
func (r *Reconciler) SetSurface(surface MapSurface) {
	r.surface = surface
}

// Observe records the latest plottable coordinates and focus. The first
// non-empty coordinate set is fitted once; a newly focused vessel with a
// known position is centred once.
func (r *Reconciler) Observe(points []Coordinate, focus FocusTarget) {
	r.points = append(r.points[:0], points...)

	if !r.autoFitted && len(r.points) > 0 {
		if r.fit(true) == nil {
			r.autoFitted = true
		}
	}

	if !focus.Focused {
		r.centered = false
		r.centeredID = 0
		return
	}
	if r.centered && r.centeredID == focus.VesselID {
		return
	}
	if !focus.Known || !focus.Position.Valid() || r.surface == nil {
		return
	}
	err := r.surface.CenterOn(CenterIntent{
		VesselID: focus.VesselID,
		Target:   focus.Position,
		Zoom:     r.focusZoom,
		Animate:  true,
	})
	if err != nil {
		logging.Warn().Err(err).Int64("vessel_id", focus.VesselID).Msg("Map surface rejected re-center")
		return
	}
	r.centered = true
	r.centeredID = focus.VesselID
}

// RequestFit fits the latest coordinates unconditionally. Each call is a new
// trigger and produces one fit command.
func (r *Reconciler) RequestFit() {
	r.trigger++
	_ = r.fit(false)
}

// Trigger is the number of manual fit requests so far.
func (r *Reconciler) Trigger() uint64 {
	return r.trigger
}

func (r *Reconciler) fit(auto bool) error {
	if r.surface == nil {
		return errNoSurface
	}
	bounds, ok := BoundsOf(r.points)
	err := r.surface.FitBounds(FitIntent{
		Bounds:  bounds,
		Empty:   !ok,
		Padding: r.padding,
		Trigger: r.trigger,
		Auto:    auto,
	})
	if err != nil {
		logging.Warn().Err(err).Bool("auto", auto).Uint64("trigger", r.trigger).Msg("Map surface rejected fit")
	}
	return err
}
