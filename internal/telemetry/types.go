package telemetry

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Vessel is a roster entry as returned by GET /ships/.
type Vessel struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	MMSI   string   `json:"mmsi"`
	Weight *float64 `json:"weight"`
}

// Sample is one telemetry record. Latitude, Longitude and Heading are nil when
// the backend sends null or omits them.
type Sample struct {
	Timestamp       Timestamp `json:"timestamp"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	Speed           float64   `json:"speed"`
	Heading         *float64  `json:"heading"`
	RPM             float64   `json:"rpm"`
	FuelConsumption float64   `json:"fuel_consumption"`
}

// OverviewEntry is one vessel of the fleet overview with its most recent sample.
type OverviewEntry struct {
	Vessel
	LastTelemetry *Sample `json:"last_telemetry"`
}

// Position returns the reported coordinates. ok is false when either is missing.
func (s Sample) Position() (lat, lon float64, ok bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return 0, 0, false
	}
	return *s.Latitude, *s.Longitude, true
}

// Query bounds a telemetry fetch. Zero Start/End means unbounded on that side.
type Query struct {
	Limit int
	Start time.Time
	End   time.Time
}

// Timestamp reads both zoned and naive ISO 8601 values; naive values are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// ParseTimestamp parses the timestamp formats the backend emits.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
