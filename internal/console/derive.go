package console

import (
	"fmt"
	"time"

	"fleetmonitor-tui/internal/telemetry"
)

// FleetSnapshot is the latest fleet overview.
type FleetSnapshot struct {
	Entries    []telemetry.OverviewEntry `json:"entries"`
	ReceivedAt time.Time                 `json:"received_at"`
}

// Lookup finds a vessel's overview entry.
func (s FleetSnapshot) Lookup(id int64) (telemetry.OverviewEntry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return telemetry.OverviewEntry{}, false
}

// RosterRow is one line of the vessel list.
type RosterRow struct {
	Vessel   telemetry.Vessel `json:"vessel"`
	Tier     Tier             `json:"tier"`
	Live     bool             `json:"live"`
	Selected bool             `json:"selected"`
}

// ChartPoint is one downsampled chart sample.
type ChartPoint struct {
	At   time.Time `json:"at"`
	Fuel float64   `json:"fuel"`
	RPM  float64   `json:"rpm"`
}

// Field is a labelled summary value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary is the side-panel digest for the focused vessel.
type Summary struct {
	Title  string  `json:"title"`
	Vessel string  `json:"vessel"`
	MMSI   string  `json:"mmsi"`
	Fields []Field `json:"fields"`
}

// Value returns the value of the field with the given label.
func (s Summary) Value(label string) (string, bool) {
	for _, f := range s.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// DeriveInput is everything the presentation depends on.
type DeriveInput struct {
	Focus         FocusState
	Roster        []telemetry.Vessel
	Snapshot      FleetSnapshot
	Recent        []telemetry.Sample
	History       []telemetry.Sample
	HistoryStatus HistoryStatus
	HistoryErr    error
	ChartPoints   int
}

// PresentationModel is what the view draws. It is derived, never mutated.
type PresentationModel struct {
	Focus         FocusState    `json:"focus"`
	Roster        []RosterRow   `json:"roster"`
	Markers       []Marker      `json:"markers"`
	Track         []Coordinate  `json:"track"`
	Chart         []ChartPoint  `json:"chart"`
	Summary       Summary       `json:"summary"`
	Plottable     []Coordinate  `json:"-"`
	FocusTarget   FocusTarget   `json:"-"`
	HistoryStatus HistoryStatus `json:"-"`
	Status        Status        `json:"-"`
}

// Derive builds the presentation model from the current data.
func Derive(in DeriveInput) PresentationModel {
	focusID, focused := int64(0), in.Focus.Focused()
	if focused {
		focusID = in.Focus.Vessel.ID
	}

	pm := PresentationModel{
		Focus:         in.Focus,
		Roster:        rosterRows(in.Roster, in.Snapshot, focusID, focused),
		HistoryStatus: in.HistoryStatus,
	}

	var focusEntry *telemetry.OverviewEntry
	if focused {
		if e, ok := in.Snapshot.Lookup(focusID); ok {
			focusEntry = &e
		}
	}

	switch in.Focus.Mode {
	case ModeHistory:
		if focusEntry != nil {
			pm.Markers = MarkersFrom([]telemetry.OverviewEntry{*focusEntry}, focusID, false)
		}
		if focused {
			pm.Track = TrackFrom(in.History)
			pm.Chart = chartFrom(in.History, in.ChartPoints)
			pm.Summary = historySummary(*in.Focus.Vessel, in.Focus.Range, in.History, in.HistoryStatus, in.HistoryErr)
		}
		pm.Plottable = pm.Track
		if len(pm.Plottable) == 0 {
			pm.Plottable = markerPositions(pm.Markers)
		}
	default:
		pm.Markers = MarkersFrom(in.Snapshot.Entries, focusID, focused)
		pm.Plottable = markerPositions(pm.Markers)
		if focused {
			// The recent window is already bounded and is plotted as is.
			pm.Chart = chartFrom(in.Recent, 0)
			pm.Summary = liveSummary(*in.Focus.Vessel, focusEntry, in.Recent)
		}
	}

	if focused {
		pm.FocusTarget = FocusTarget{Focused: true, VesselID: focusID}
		for _, m := range pm.Markers {
			if m.VesselID == focusID {
				pm.FocusTarget.Position = m.Position
				pm.FocusTarget.Known = true
			}
		}
		if !pm.FocusTarget.Known && len(pm.Track) > 0 {
			pm.FocusTarget.Position = pm.Track[len(pm.Track)-1]
			pm.FocusTarget.Known = true
		}
	}
	return pm
}

func rosterRows(roster []telemetry.Vessel, snapshot FleetSnapshot, focusID int64, focused bool) []RosterRow {
	rows := make([]RosterRow, 0, len(roster))
	for _, v := range roster {
		row := RosterRow{Vessel: v, Tier: TierFor(v.Weight), Selected: focused && v.ID == focusID}
		if e, ok := snapshot.Lookup(v.ID); ok && e.LastTelemetry != nil {
			row.Live = true
		}
		rows = append(rows, row)
	}
	return rows
}

func markerPositions(markers []Marker) []Coordinate {
	out := make([]Coordinate, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.Position)
	}
	return out
}

func chartFrom(samples []telemetry.Sample, target int) []ChartPoint {
	points := make([]ChartPoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, ChartPoint{At: s.Timestamp.Time, Fuel: s.FuelConsumption, RPM: s.RPM})
	}
	return Downsample(points, target)
}

func latestSample(entry *telemetry.OverviewEntry, recent []telemetry.Sample) *telemetry.Sample {
	if entry != nil && entry.LastTelemetry != nil {
		return entry.LastTelemetry
	}
	if len(recent) > 0 {
		last := recent[len(recent)-1]
		return &last
	}
	return nil
}

func liveSummary(v telemetry.Vessel, entry *telemetry.OverviewEntry, recent []telemetry.Sample) Summary {
	s := Summary{Title: "Vessel Status", Vessel: v.Name, MMSI: v.MMSI}
	latest := latestSample(entry, recent)
	if latest == nil {
		s.Fields = []Field{
			{"Status", "No Signal"},
			{"RPM", "-"},
			{"Speed", "-"},
			{"Fuel", "-"},
			{"Last Update", "-"},
			{"Position", "-"},
		}
		return s
	}
	status := "Stopped"
	if IsMoving(latest.Speed) {
		status = "Underway"
	}
	position := "-"
	if c, ok := coordinateOf(*latest); ok {
		position = FormatCoordinate(c)
	}
	s.Fields = []Field{
		{"Status", status},
		{"RPM", fmt.Sprintf("%.0f", latest.RPM)},
		{"Speed", fmt.Sprintf("%.1f kn", latest.Speed)},
		{"Fuel", fmt.Sprintf("%.1f L/h", latest.FuelConsumption)},
		{"Last Update", FormatTimestamp(latest.Timestamp.Time)},
		{"Position", position},
	}
	return s
}

func historySummary(v telemetry.Vessel, r TimeRange, samples []telemetry.Sample, status HistoryStatus, err error) Summary {
	s := Summary{Title: "Period Analytics", Vessel: v.Name, MMSI: v.MMSI}
	s.Fields = []Field{
		{"Range", FormatTimestamp(r.Start) + " → " + FormatTimestamp(r.End)},
	}
	switch status {
	case HistoryLoading:
		s.Fields = append(s.Fields, Field{"Records", "loading…"})
		return s
	case HistoryFailed:
		msg := "request failed"
		if err != nil {
			msg = telemetry.KindOf(err) + " error"
		}
		s.Fields = append(s.Fields, Field{"Records", msg})
		return s
	case HistoryIdle:
		s.Fields = append(s.Fields, Field{"Records", "-"})
		return s
	}

	s.Fields = append(s.Fields, Field{"Records", fmt.Sprintf("%d records", len(samples))})
	if len(samples) == 0 {
		return s
	}
	var rpm, speed, fuel float64
	for _, sample := range samples {
		rpm += sample.RPM
		speed += sample.Speed
		fuel += sample.FuelConsumption
	}
	n := float64(len(samples))
	s.Fields = append(s.Fields,
		Field{"Start", FormatTimestamp(samples[0].Timestamp.Time)},
		Field{"End", FormatTimestamp(samples[len(samples)-1].Timestamp.Time)},
		Field{"Avg RPM", fmt.Sprintf("%.0f", rpm/n)},
		Field{"Avg Speed", fmt.Sprintf("%.1f kn", speed/n)},
		Field{"Avg Fuel", fmt.Sprintf("%.1f L/h", fuel/n)},
	)
	return s
}
