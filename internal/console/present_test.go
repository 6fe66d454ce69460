package console

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"fleetmonitor-tui/internal/telemetry"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		weight *float64
		want   Tier
	}{
		{nil, TierLight},
		{weight(500), TierLight},
		{weight(1000), TierLight},
		{weight(1000.5), TierMedium},
		{weight(4000), TierMedium},
		{weight(4001), TierHeavy},
	}
	for _, tt := range tests {
		if got := TierFor(tt.weight); got != tt.want {
			t.Fatalf("TierFor(%v) = %s, want %s", tt.weight, got, tt.want)
		}
	}
}

func TestIsMoving(t *testing.T) {
	t.Parallel()

	if IsMoving(0.5) {
		t.Fatalf("0.5 kn is not moving")
	}
	if !IsMoving(0.51) {
		t.Fatalf("0.51 kn is moving")
	}
}

func TestMarkersFromSkipsMissingPositions(t *testing.T) {
	t.Parallel()

	good := sampleAt(testNow, 10.5, 106.7, 12, 1200)
	heading := 270.0
	good.Heading = &heading
	bad := sampleAt(testNow, math.NaN(), 106, 0, 0)
	far := sampleAt(testNow, 95, 106, 0, 0)
	fleet := testFleet()
	entries := []telemetry.OverviewEntry{
		{Vessel: fleet[0], LastTelemetry: &good},
		{Vessel: fleet[1], LastTelemetry: &bad},
		{Vessel: fleet[2]},
		{Vessel: telemetry.Vessel{ID: 4, Name: "Vung Tau"}, LastTelemetry: &far},
	}

	markers := MarkersFrom(entries, 1, true)
	if len(markers) != 1 {
		t.Fatalf("expected only the vessel with a valid position, got %d", len(markers))
	}
	m := markers[0]
	if !m.Moving || m.Heading != 270 || m.Tier != TierHeavy || !m.Selected || m.Dimmed {
		t.Fatalf("unexpected marker: %+v", m)
	}
	if label := m.Label(); !strings.Contains(label, "Heavy (5200t)") || !strings.Contains(label, "12.0 kn") {
		t.Fatalf("unexpected label: %q", label)
	}
}

func TestVesselsWithoutPositionAreNotPlotted(t *testing.T) {
	t.Parallel()

	var entries []telemetry.OverviewEntry
	raw := `[
		{"id":1,"name":"Mekong Star","mmsi":"574001230","last_telemetry":{"timestamp":"2026-10-01T12:00:00Z","latitude":null,"longitude":null,"speed":8,"rpm":900,"fuel_consumption":30}},
		{"id":2,"name":"Saigon Pearl","mmsi":"574001231","last_telemetry":{"timestamp":"2026-10-01T12:00:00Z","speed":8,"rpm":900,"fuel_consumption":30}},
		{"id":3,"name":"Can Tho","mmsi":"574001232","last_telemetry":{"timestamp":"2026-10-01T12:00:00Z","longitude":106.5,"speed":8,"rpm":900,"fuel_consumption":30}}
	]`
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatalf("decode overview: %v", err)
	}

	if markers := MarkersFrom(entries, 1, true); len(markers) != 0 {
		t.Fatalf("expected no markers, got %+v", markers)
	}
	samples := make([]telemetry.Sample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, *e.LastTelemetry)
	}
	if track := TrackFrom(samples); len(track) != 0 {
		t.Fatalf("expected no track points, got %+v", track)
	}

	fleet := testFleet()
	pm := Derive(DeriveInput{
		Focus:       FocusState{Vessel: &fleet[0], Mode: ModeLive},
		Roster:      fleet,
		Snapshot:    FleetSnapshot{Entries: entries},
		ChartPoints: 100,
	})
	if len(pm.Plottable) != 0 || pm.FocusTarget.Known {
		t.Fatalf("vessels without a position must not be fitted or centered on: plottable=%+v target=%+v", pm.Plottable, pm.FocusTarget)
	}
	if got, _ := pm.Summary.Value("Position"); got != "-" {
		t.Fatalf("expected no position in summary, got %q", got)
	}
	if got, _ := pm.Summary.Value("RPM"); got != "900" {
		t.Fatalf("readings without a position still show, got RPM %q", got)
	}
}

func TestMarkerLabelWhenStopped(t *testing.T) {
	t.Parallel()

	m, ok := NewMarker(telemetry.Vessel{ID: 3, Name: "Can Tho"}, sampleAt(testNow, 10, 106, 0.2, 0))
	if !ok {
		t.Fatalf("expected a marker")
	}
	if m.Moving {
		t.Fatalf("0.2 kn should not be moving")
	}
	if got := m.Label(); got != "Can Tho · Light · Stopped/Idling" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	if got := FormatCoordinate(Coordinate{Lat: 10.762622, Lon: 106.660172}); got != "10.7626, 106.6602" {
		t.Fatalf("unexpected coordinate format: %q", got)
	}
	if got := FormatTimestamp(time.Time{}); got != "-" {
		t.Fatalf("zero timestamp should render as -, got %q", got)
	}
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatTimestamp(ts); got != ts.Local().Format("2006-01-02 15:04:05") {
		t.Fatalf("unexpected timestamp format: %q", got)
	}
}

func TestDeriveLiveWithoutSignal(t *testing.T) {
	t.Parallel()

	fleet := testFleet()
	pm := Derive(DeriveInput{
		Focus:  FocusState{Vessel: &fleet[2], Mode: ModeLive},
		Roster: fleet,
		Snapshot: FleetSnapshot{Entries: []telemetry.OverviewEntry{
			{Vessel: fleet[2]},
		}},
		ChartPoints: 100,
	})
	if got, _ := pm.Summary.Value("Status"); got != "No Signal" {
		t.Fatalf("expected No Signal, got %q", got)
	}
	if pm.FocusTarget.Known {
		t.Fatalf("focus position should be unknown without telemetry")
	}
	if len(pm.Roster) != 3 || !pm.Roster[2].Selected || pm.Roster[2].Live {
		t.Fatalf("unexpected roster rows: %+v", pm.Roster)
	}
}

func TestDeriveHistoryFallsBackToLastKnownPosition(t *testing.T) {
	t.Parallel()

	fleet := testFleet()
	last := sampleAt(testNow, 10.2, 106.3, 4, 800)
	pm := Derive(DeriveInput{
		Focus: FocusState{Vessel: &fleet[0], Mode: ModeHistory},
		Snapshot: FleetSnapshot{Entries: []telemetry.OverviewEntry{
			{Vessel: fleet[0], LastTelemetry: &last},
			{Vessel: fleet[1], LastTelemetry: &last},
		}},
		HistoryStatus: HistoryLoaded,
	})
	if len(pm.Markers) != 1 || pm.Markers[0].VesselID != 1 {
		t.Fatalf("history mode shows only the focused vessel, got %+v", pm.Markers)
	}
	if len(pm.Plottable) != 1 || pm.Plottable[0] != (Coordinate{Lat: 10.2, Lon: 106.3}) {
		t.Fatalf("expected last known position as plottable, got %+v", pm.Plottable)
	}
}

func TestDeriveLiveChartIsNotDownsampled(t *testing.T) {
	t.Parallel()

	fleet := testFleet()
	recent := make([]telemetry.Sample, 0, 150)
	for i := 0; i < 150; i++ {
		recent = append(recent, sampleAt(testNow.Add(time.Duration(i)*time.Second), 10, 106, 8, float64(900+i)))
	}
	pm := Derive(DeriveInput{
		Focus:       FocusState{Vessel: &fleet[0], Mode: ModeLive},
		Recent:      recent,
		ChartPoints: 100,
	})
	if len(pm.Chart) != 150 {
		t.Fatalf("expected the recent window unmodified, got %d points", len(pm.Chart))
	}
}
