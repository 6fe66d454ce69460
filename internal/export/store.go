// Package export writes snapshots of the focused vessel's view to disk.
// Bundles are write-only; the console never reads them back.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fleetmonitor-tui/internal/console"
	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

type Store struct {
	rootDir string
	now     func() time.Time
}

// Bundle is what gets exported for one vessel.
type Bundle struct {
	Focus   console.FocusState
	Summary console.Summary
	Samples []telemetry.Sample
	Chart   []console.ChartPoint
}

// Summary describes a written bundle. It is also stored as summary.json.
type Summary struct {
	BundleID   string          `json:"bundle_id"`
	SavedAt    string          `json:"saved_at"`
	VesselID   int64           `json:"vessel_id"`
	VesselName string          `json:"vessel_name"`
	MMSI       string          `json:"mmsi"`
	Mode       string          `json:"mode"`
	RangeStart string          `json:"range_start,omitempty"`
	RangeEnd   string          `json:"range_end,omitempty"`
	Records    int             `json:"records"`
	Fields     []console.Field `json:"fields"`
	Files      []string        `json:"files"`
	Directory  string          `json:"directory"`
}

func NewStore(rootDir string) (*Store, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("%w: export directory is required", telemetry.ErrValidation)
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Store{rootDir: rootDir, now: time.Now}, nil
}

func (s *Store) Dir() string {
	return s.rootDir
}

// Save writes summary.json, track.json, track.csv and, when there are data
// points, chart.png into a new directory under the export root.
func (s *Store) Save(b Bundle) (Summary, error) {
	if b.Focus.Vessel == nil {
		return Summary{}, fmt.Errorf("%w: no vessel focused", telemetry.ErrValidation)
	}
	vessel := *b.Focus.Vessel

	now := s.now().UTC()
	id := uuid.NewString()
	dirName := fmt.Sprintf("%s-%s-%s", now.Format("20060102-150405"), safeName(vessel.MMSI), id[:8])
	dirPath := filepath.Join(s.rootDir, dirName)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create bundle dir: %w", err)
	}

	summary := Summary{
		BundleID:   id,
		SavedAt:    now.Format(time.RFC3339),
		VesselID:   vessel.ID,
		VesselName: vessel.Name,
		MMSI:       vessel.MMSI,
		Mode:       string(b.Focus.Mode),
		Records:    len(b.Samples),
		Fields:     b.Summary.Fields,
		Directory:  dirPath,
	}
	if b.Focus.Mode == console.ModeHistory && !b.Focus.Range.IsZero() {
		summary.RangeStart = b.Focus.Range.Start.UTC().Format(time.RFC3339)
		summary.RangeEnd = b.Focus.Range.End.UTC().Format(time.RFC3339)
	}

	if err := writeJSON(filepath.Join(dirPath, "track.json"), b.Samples); err != nil {
		return Summary{}, err
	}
	summary.Files = append(summary.Files, "track.json")

	if err := writeCSV(filepath.Join(dirPath, "track.csv"), b.Samples); err != nil {
		return Summary{}, err
	}
	summary.Files = append(summary.Files, "track.csv")

	if len(b.Chart) > 0 {
		title := fmt.Sprintf("%s (%s) fuel and RPM", vessel.Name, vessel.MMSI)
		if err := writeChart(filepath.Join(dirPath, "chart.png"), title, b.Chart); err != nil {
			logging.Warn().Err(err).Str("dir", dirPath).Msg("Chart export failed")
		} else {
			summary.Files = append(summary.Files, "chart.png")
		}
	}

	summary.Files = append(summary.Files, "summary.json")
	if err := writeJSON(filepath.Join(dirPath, "summary.json"), summary); err != nil {
		return Summary{}, err
	}
	logging.Info().Str("bundle_id", id).Str("dir", dirPath).Int("records", summary.Records).Msg("Export written")
	return summary, nil
}

func writeJSON(path string, value any) error {
	blob, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json for %s: %w", path, err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, samples []telemetry.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"iso8601", "ts_ms", "latitude", "longitude", "speed", "heading", "rpm", "fuel_consumption",
	}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, s := range samples {
		row := []string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatInt(s.Timestamp.UnixMilli(), 10),
			formatOptional(s.Latitude),
			formatOptional(s.Longitude),
			formatFloat(s.Speed),
			formatOptional(s.Heading),
			formatFloat(s.RPM),
			formatFloat(s.FuelConsumption),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func writeChart(path, title string, points []console.ChartPoint) error {
	times := make([]time.Time, 0, len(points))
	fuel := make([]float64, 0, len(points))
	rpm := make([]float64, 0, len(points))
	for _, p := range points {
		times = append(times, p.At)
		fuel = append(fuel, p.Fuel)
		rpm = append(rpm, p.RPM)
	}
	// go-chart needs at least two X values.
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		fuel = append(fuel, fuel[0])
		rpm = append(rpm, rpm[0])
	}

	ch := chart.Chart{
		Title:      title,
		Width:      1024,
		Height:     480,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeMinuteValueFormatter},
		YAxis:      chart.YAxis{Name: "Fuel (L/h)", Range: paddedRange(fuel)},
		YAxisSecondary: chart.YAxis{
			Name:  "RPM",
			Range: paddedRange(rpm),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Fuel",
				XValues: times,
				YValues: fuel,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("F6AE2D"), StrokeWidth: 2},
			},
			chart.TimeSeries{
				Name:    "RPM",
				YAxis:   chart.YAxisSecondary,
				XValues: times,
				YValues: rpm,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("20B6D9"), StrokeWidth: 2},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := ch.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

// paddedRange widens flat series so the axis never has zero span.
func paddedRange(values []float64) *chart.ContinuousRange {
	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	if math.IsInf(low, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	pad := (high - low) * 0.05
	if pad == 0 {
		pad = math.Max(1, math.Abs(high)*0.05)
	}
	return &chart.ContinuousRange{Min: low - pad, Max: high + pad}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOptional leaves the cell empty for a missing value.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func safeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "vessel"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}
