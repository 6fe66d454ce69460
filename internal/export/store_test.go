package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"fleetmonitor-tui/internal/console"
	"fleetmonitor-tui/internal/telemetry"
)

func testBundle(n int) Bundle {
	vessel := telemetry.Vessel{ID: 7, Name: "Mekong Star", MMSI: "574001230"}
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]telemetry.Sample, 0, n)
	chartPoints := make([]console.ChartPoint, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		heading := float64(i * 10)
		lat, lon := 10+float64(i)/100, 106.0
		samples = append(samples, telemetry.Sample{
			Timestamp:       telemetry.Timestamp{Time: ts},
			Latitude:        &lat,
			Longitude:       &lon,
			Speed:           9.5,
			Heading:         &heading,
			RPM:             1200 + float64(i),
			FuelConsumption: 40,
		})
		chartPoints = append(chartPoints, console.ChartPoint{At: ts, Fuel: 40, RPM: 1200 + float64(i)})
	}
	return Bundle{
		Focus: console.FocusState{
			Vessel: &vessel,
			Mode:   console.ModeHistory,
			Range:  console.TimeRange{Start: start, End: start.Add(24 * time.Hour)},
		},
		Summary: console.Summary{Fields: []console.Field{{Label: "Records", Value: "3 records"}}},
		Samples: samples,
		Chart:   chartPoints,
	}
}

func TestSaveWritesBundleFiles(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "exports"))
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	store.now = func() time.Time { return time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC) }

	bundle := testBundle(3)
	bundle.Samples[1].Latitude = nil
	summary, err := store.Save(bundle)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if summary.BundleID == "" || summary.Records != 3 || summary.MMSI != "574001230" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RangeStart != "2026-09-01T00:00:00Z" {
		t.Fatalf("unexpected range start: %q", summary.RangeStart)
	}
	if base := filepath.Base(summary.Directory); base[:15] != "20261002-080000" {
		t.Fatalf("unexpected bundle dir name: %q", base)
	}

	for _, name := range []string{"summary.json", "track.json", "track.csv", "chart.png"} {
		info, err := os.Stat(filepath.Join(summary.Directory, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}

	blob, err := os.ReadFile(filepath.Join(summary.Directory, "summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var stored Summary
	if err := json.Unmarshal(blob, &stored); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if stored.BundleID != summary.BundleID || len(stored.Files) != 4 {
		t.Fatalf("unexpected stored summary: %+v", stored)
	}

	f, err := os.Open(filepath.Join(summary.Directory, "track.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "2026-09-01T00:00:00Z" || rows[2][5] != "10" || rows[3][6] != "1202" {
		t.Fatalf("unexpected csv rows: %v", rows[1:])
	}
	if rows[1][2] != "10" || rows[2][2] != "" || rows[2][3] != "106" {
		t.Fatalf("a missing latitude must export as an empty cell: %v", rows[1:])
	}
}

func TestSaveSinglePointChart(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	summary, err := store.Save(testBundle(1))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(summary.Directory, "chart.png")); err != nil {
		t.Fatalf("expected chart for a single sample: %v", err)
	}
}

func TestSaveWithoutSamplesSkipsChart(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	summary, err := store.Save(testBundle(0))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(summary.Directory, "chart.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no chart without samples, got %v", err)
	}
	if summary.Records != 0 {
		t.Fatalf("expected zero records, got %d", summary.Records)
	}
}

func TestSaveRequiresFocus(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	if _, err := store.Save(Bundle{}); !errors.Is(err, telemetry.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"574001230": "574001230",
		"":          "vessel",
		"../x y":    "___x_y",
	}
	for in, want := range tests {
		if got := safeName(in); got != want {
			t.Fatalf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}
