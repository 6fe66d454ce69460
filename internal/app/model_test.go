package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"fleetmonitor-tui/internal/console"
	"fleetmonitor-tui/internal/export"
	"fleetmonitor-tui/internal/telemetry"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu         sync.Mutex
	overviewFn func() ([]telemetry.OverviewEntry, error)
	queries    []telemetry.Query
}

func weight(w float64) *float64 { return &w }

func testFleet() []telemetry.Vessel {
	return []telemetry.Vessel{
		{ID: 1, Name: "Mekong Star", MMSI: "574001230", Weight: weight(5200)},
		{ID: 2, Name: "Saigon Pearl", MMSI: "574001231", Weight: weight(1800)},
		{ID: 3, Name: "Can Tho", MMSI: "574001232"},
	}
}

func testSample(ts time.Time, lat, lon, rpm float64) telemetry.Sample {
	return telemetry.Sample{
		Timestamp:       telemetry.Timestamp{Time: ts},
		Latitude:        &lat,
		Longitude:       &lon,
		Speed:           8,
		RPM:             rpm,
		FuelConsumption: rpm / 25,
	}
}

func (g *fakeGateway) ListVessels(context.Context) ([]telemetry.Vessel, error) {
	return testFleet(), nil
}

func (g *fakeGateway) FleetOverview(context.Context) ([]telemetry.OverviewEntry, error) {
	g.mu.Lock()
	fn := g.overviewFn
	g.mu.Unlock()
	if fn != nil {
		return fn()
	}
	entries := make([]telemetry.OverviewEntry, 0, 3)
	for i, v := range testFleet() {
		s := testSample(testNow, 10+float64(i), 106+float64(i), 1000)
		entries = append(entries, telemetry.OverviewEntry{Vessel: v, LastTelemetry: &s})
	}
	return entries, nil
}

func (g *fakeGateway) Telemetry(_ context.Context, _ string, q telemetry.Query) ([]telemetry.Sample, error) {
	g.mu.Lock()
	g.queries = append(g.queries, q)
	g.mu.Unlock()
	return []telemetry.Sample{
		testSample(testNow.Add(-time.Minute), 10, 106, 950),
		testSample(testNow, 10.01, 106.01, 1000),
	}, nil
}

func (g *fakeGateway) lastQuery() telemetry.Query {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queries) == 0 {
		return telemetry.Query{}
	}
	return g.queries[len(g.queries)-1]
}

func newTestModel(t *testing.T, gw console.Gateway, store *export.Store) Model {
	t.Helper()
	core := console.NewCore(gw, nil, console.Options{
		PollInterval: time.Millisecond,
		Now:          func() time.Time { return testNow },
	})
	m := NewModel(core, store, ModelOptions{
		MapCenter:       console.Coordinate{Lat: 0, Lon: 0},
		MapZoom:         3,
		AnimationFrames: 3,
		FrameInterval:   time.Millisecond,
		Location:        time.UTC,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

// startedModel runs the console's startup fetches to completion.
func startedModel(t *testing.T, gw console.Gateway, store *export.Store) Model {
	t.Helper()
	m := newTestModel(t, gw, store)
	return drive(t, m, m.core.Init())
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func isPollTick(msg tea.Msg) bool {
	return fmt.Sprintf("%T", msg) == "console.pollTickMsg"
}

// drive delivers every message cmd produces, and everything those produce,
// leaving poll ticks and spinner frames undelivered.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := collect(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatalf("message loop did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case spinner.TickMsg, tea.QuitMsg:
			continue
		}
		if isPollTick(msg) {
			continue
		}
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		queue = append(queue, collect(nextCmd)...)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, cmd := m.Update(key(s))
	return drive(t, next.(Model), cmd)
}

func TestStartupFocusesFirstVesselAndFlysToIt(t *testing.T) {
	t.Parallel()

	m := startedModel(t, &fakeGateway{}, nil)

	state := m.core.Controller().State()
	if !state.Focused() || state.Vessel.ID != 1 {
		t.Fatalf("expected first vessel focused, got %+v", state.Vessel)
	}
	if m.mapView.fits != 1 {
		t.Fatalf("expected one auto-fit, got %d", m.mapView.fits)
	}
	if m.mapView.animating() {
		t.Fatalf("expected flight to finish")
	}
	if m.mapView.center != (console.Coordinate{Lat: 10, Lon: 106}) || m.mapView.zoom != 10 {
		t.Fatalf("expected map centred on focused vessel, got %+v zoom %.1f", m.mapView.center, m.mapView.zoom)
	}

	view := m.View()
	for _, want := range []string{"Mekong Star", "LIVE", "Vessels (3)", "polling every"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}

func TestEnterFocusesRosterCursor(t *testing.T) {
	t.Parallel()

	m := startedModel(t, &fakeGateway{}, nil)
	m = press(t, m, "down")
	if m.rosterCursor != 1 {
		t.Fatalf("expected cursor on second row, got %d", m.rosterCursor)
	}
	m = press(t, m, "enter")

	state := m.core.Controller().State()
	if state.Vessel == nil || state.Vessel.ID != 2 {
		t.Fatalf("expected vessel 2 focused, got %+v", state.Vessel)
	}
	if m.mapView.center != (console.Coordinate{Lat: 11, Lon: 107}) {
		t.Fatalf("expected map to re-center on vessel 2, got %+v", m.mapView.center)
	}
	if !strings.Contains(m.statusText, "Saigon Pearl") {
		t.Fatalf("unexpected status: %q", m.statusText)
	}
}

func TestModeKeysToggleHistory(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	m := startedModel(t, gw, nil)

	m = press(t, m, "h")
	if m.core.Controller().State().Mode != console.ModeHistory {
		t.Fatalf("expected history mode")
	}
	if m.core.Scheduler().Running() {
		t.Fatalf("expected polling paused in history mode")
	}
	if q := gw.lastQuery(); q.Limit != 5000 || !q.End.Equal(testNow) {
		t.Fatalf("unexpected history query: %+v", q)
	}
	if !strings.Contains(m.View(), "HISTORY") {
		t.Fatalf("expected history badge in view")
	}

	m = press(t, m, "l")
	if m.core.Controller().State().Mode != console.ModeLive || !m.core.Scheduler().Running() {
		t.Fatalf("expected live polling to resume")
	}
}

func TestRangePromptAppliesRangeAndEntersHistory(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	m := startedModel(t, gw, nil)

	m = press(t, m, "r")
	if !m.showRangePrompt {
		t.Fatalf("expected range prompt")
	}
	m.rangeStart.SetValue("2026-09-01 00:00")
	m.rangeEnd.SetValue("2026-09-02 06:30")
	m = press(t, m, "enter")

	if m.showRangePrompt {
		t.Fatalf("expected prompt closed, error %q", m.errorText)
	}
	state := m.core.Controller().State()
	if state.Mode != console.ModeHistory {
		t.Fatalf("expected history mode after applying a range")
	}
	wantStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 9, 2, 6, 30, 0, 0, time.UTC)
	q := gw.lastQuery()
	if !q.Start.Equal(wantStart) || !q.End.Equal(wantEnd) {
		t.Fatalf("unexpected history query: %+v", q)
	}
	if got := m.core.Model().Summary.Title; got != "Period Analytics" {
		t.Fatalf("expected period analytics summary, got %q", got)
	}
}

func TestRangePromptRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "inverted", start: "2026-09-02 00:00", end: "2026-09-01 00:00"},
		{name: "malformed", start: "yesterday", end: "2026-09-01 00:00"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := startedModel(t, &fakeGateway{}, nil)
			m = press(t, m, "r")
			m.rangeStart.SetValue(tc.start)
			m.rangeEnd.SetValue(tc.end)
			m = press(t, m, "enter")

			if !m.showRangePrompt {
				t.Fatalf("expected prompt to stay open")
			}
			if !strings.HasPrefix(m.errorText, "Invalid range") {
				t.Fatalf("unexpected error text: %q", m.errorText)
			}
			if m.core.Controller().State().Mode != console.ModeLive {
				t.Fatalf("mode changed on invalid range")
			}

			m = press(t, m, "esc")
			if m.showRangePrompt {
				t.Fatalf("expected esc to close prompt")
			}
		})
	}
}

func TestParseRangeInput(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ICT", 7*3600)
	start, end, err := parseRangeInput(" 2026-09-01 07:00", "2026-09-01 19:00 ", loc)
	if err != nil {
		t.Fatalf("parseRangeInput returned error: %v", err)
	}
	if !start.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) || end.Sub(start) != 12*time.Hour {
		t.Fatalf("unexpected range %s .. %s", start, end)
	}
	if _, _, err := parseRangeInput("2026-09-01", "2026-09-02 00:00", loc); err == nil {
		t.Fatalf("expected error for date without time")
	}
}

func TestExportWritesBundleForFocusedVessel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := export.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	m := startedModel(t, &fakeGateway{}, store)
	m = press(t, m, "e")

	if m.errorText != "" {
		t.Fatalf("unexpected error: %q", m.errorText)
	}
	if !strings.HasPrefix(m.statusText, "Exported 2 records") {
		t.Fatalf("unexpected status: %q", m.statusText)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("expected one bundle directory, got %d entries", len(entries))
	}
}

func TestExportRequiresFocus(t *testing.T) {
	t.Parallel()

	store, err := export.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	m := startedModel(t, &fakeGateway{}, store)
	m = press(t, m, "esc")
	if m.core.Controller().State().Focused() {
		t.Fatalf("expected focus cleared")
	}
	m = press(t, m, "e")
	if m.errorText != "Focus a vessel before exporting." {
		t.Fatalf("unexpected error text: %q", m.errorText)
	}

	noStore := startedModel(t, &fakeGateway{}, nil)
	noStore = press(t, noStore, "e")
	if noStore.errorText != "Export is disabled." {
		t.Fatalf("unexpected error text: %q", noStore.errorText)
	}
}

func TestAuthFailureIsShown(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{overviewFn: func() ([]telemetry.OverviewEntry, error) {
		return nil, fmt.Errorf("%w: token expired", telemetry.ErrAuth)
	}}
	m := startedModel(t, gw, nil)

	if !m.core.Model().Status.AuthFailed {
		t.Fatalf("expected auth failure in status")
	}
	if view := m.View(); !strings.Contains(view, "Authorization failed") {
		t.Fatalf("expected authorization failure in view")
	}
	if !m.core.Scheduler().Running() {
		t.Fatalf("polling should continue after an auth failure")
	}
}

func TestRefitAndZoomKeys(t *testing.T) {
	t.Parallel()

	m := startedModel(t, &fakeGateway{}, nil)
	zoom := m.mapView.zoom

	m = press(t, m, "+")
	if m.mapView.zoom != zoom+1 {
		t.Fatalf("expected zoom in, got %.1f", m.mapView.zoom)
	}
	m = press(t, m, "-")
	m = press(t, m, "-")
	if m.mapView.zoom != zoom-1 {
		t.Fatalf("expected zoom out, got %.1f", m.mapView.zoom)
	}

	m = press(t, m, "f")
	if m.mapView.fits != 2 || m.core.Viewport().Trigger() != 1 {
		t.Fatalf("expected manual refit, fits=%d trigger=%d", m.mapView.fits, m.core.Viewport().Trigger())
	}
}

func TestQuitStopsPolling(t *testing.T) {
	t.Parallel()

	m := startedModel(t, &fakeGateway{}, nil)
	next, cmd := m.Update(key("q"))
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if m.core.Scheduler().Running() {
		t.Fatalf("expected polling stopped on quit")
	}
}

func TestHelpToggle(t *testing.T) {
	t.Parallel()

	m := startedModel(t, &fakeGateway{}, nil)
	if !strings.Contains(m.View(), "e export") {
		t.Fatalf("expected help line")
	}
	m = press(t, m, "?")
	if strings.Contains(m.View(), "e export") {
		t.Fatalf("expected help hidden")
	}
}
