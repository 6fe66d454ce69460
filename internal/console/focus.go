package console

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

// Mode selects between the live fleet view and a historical track.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeHistory Mode = "history"
)

// ParseMode accepts "live" or "history" in any case.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLive:
		return ModeLive, nil
	case ModeHistory:
		return ModeHistory, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", telemetry.ErrValidation, raw)
	}
}

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

func (r TimeRange) Equal(o TimeRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// FocusState is the operator's current selection. It serialises to JSON so
// exports can record what was on screen.
type FocusState struct {
	Vessel *telemetry.Vessel `json:"vessel,omitempty"`
	Mode   Mode              `json:"mode"`
	Range  TimeRange         `json:"range"`
}

// Focused reports whether a vessel is selected.
func (s FocusState) Focused() bool {
	return s.Vessel != nil
}

var (
	rangeValidator     *validator.Validate
	rangeValidatorOnce sync.Once
)

func validateRange(r TimeRange) error {
	rangeValidatorOnce.Do(func() {
		rangeValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := rangeValidator.Struct(r); err != nil {
		if r.Start.IsZero() || r.End.IsZero() {
			return fmt.Errorf("%w: range needs both a start and an end", telemetry.ErrValidation)
		}
		return fmt.Errorf("%w: range start %s is after end %s",
			telemetry.ErrValidation,
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339))
	}
	return nil
}

// Controller holds the focused vessel, the mode and the history range. Every
// mutating method reports whether the fetch context changed; callers treat a
// change as invalidating whatever telemetry was fetched for the old context.
type Controller struct {
	state         FocusState
	roster        []telemetry.Vessel
	historyWindow time.Duration
	now           func() time.Time
	revision      uint64
}

// NewController starts in live mode with nothing focused. historyWindow is the
// default range length when history mode is entered without a range.
func NewController(historyWindow time.Duration, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	if historyWindow <= 0 {
		historyWindow = 30 * 24 * time.Hour
	}
	return &Controller{
		state:         FocusState{Mode: ModeLive},
		historyWindow: historyWindow,
		now:           now,
	}
}

// State returns a copy of the focus state.
func (c *Controller) State() FocusState {
	out := c.state
	if c.state.Vessel != nil {
		v := *c.state.Vessel
		out.Vessel = &v
	}
	return out
}

func (c *Controller) Roster() []telemetry.Vessel {
	return append([]telemetry.Vessel(nil), c.roster...)
}

// Revision increases on every accepted change.
func (c *Controller) Revision() uint64 {
	return c.revision
}

// SetRoster replaces the known vessels. The focused vessel's attributes are
// refreshed from the new roster; when nothing is focused the first vessel is
// selected. It reports whether the focus changed.
func (c *Controller) SetRoster(vessels []telemetry.Vessel) bool {
	c.roster = append([]telemetry.Vessel(nil), vessels...)
	if c.state.Vessel != nil {
		if v, ok := c.lookup(c.state.Vessel.ID); ok {
			c.state.Vessel = &v
		}
		return false
	}
	if len(c.roster) == 0 {
		return false
	}
	first := c.roster[0]
	c.state.Vessel = &first
	c.revision++
	logging.Info().Int64("vessel_id", first.ID).Str("mmsi", first.MMSI).Msg("Focused first vessel in roster")
	return true
}

func (c *Controller) lookup(id int64) (telemetry.Vessel, bool) {
	for _, v := range c.roster {
		if v.ID == id {
			return v, true
		}
	}
	return telemetry.Vessel{}, false
}

// SelectVessel focuses the roster vessel with the given id.
func (c *Controller) SelectVessel(id int64) (bool, error) {
	v, ok := c.lookup(id)
	if !ok {
		return false, fmt.Errorf("%w: vessel %d is not in the roster", telemetry.ErrValidation, id)
	}
	if c.state.Vessel != nil && c.state.Vessel.ID == id {
		return false, nil
	}
	c.state.Vessel = &v
	c.revision++
	logging.Info().Int64("vessel_id", v.ID).Str("mmsi", v.MMSI).Msg("Vessel focused")
	return true, nil
}

// ClearFocus drops the selection.
func (c *Controller) ClearFocus() bool {
	if c.state.Vessel == nil {
		return false
	}
	c.state.Vessel = nil
	c.revision++
	logging.Info().Msg("Focus cleared")
	return true
}

// SetMode switches between live and history. Entering history without a range
// selects the trailing history window ending now.
func (c *Controller) SetMode(mode Mode) (bool, error) {
	if mode != ModeLive && mode != ModeHistory {
		return false, fmt.Errorf("%w: unknown mode %q", telemetry.ErrValidation, mode)
	}
	if c.state.Mode == mode {
		return false, nil
	}
	if mode == ModeHistory && c.state.Range.IsZero() {
		end := c.now().UTC()
		c.state.Range = TimeRange{Start: end.Add(-c.historyWindow), End: end}
	}
	c.state.Mode = mode
	c.revision++
	logging.Info().Str("mode", string(mode)).Msg("Mode changed")
	return true, nil
}

// SetRange sets the history bounds. An inverted or incomplete range is
// rejected and leaves the state untouched.
func (c *Controller) SetRange(start, end time.Time) (bool, error) {
	next := TimeRange{Start: start.UTC(), End: end.UTC()}
	if err := validateRange(next); err != nil {
		return false, err
	}
	if c.state.Range.Equal(next) {
		return false, nil
	}
	c.state.Range = next
	c.revision++
	logging.Info().
		Time("start", next.Start).
		Time("end", next.End).
		Msg("History range changed")
	return true, nil
}

// Context is the fetch context for the current state. The range only matters
// in history mode.
func (c *Controller) Context() FetchContext {
	ctx := FetchContext{Mode: c.state.Mode}
	if c.state.Vessel != nil {
		ctx.Focused = true
		ctx.VesselID = c.state.Vessel.ID
		ctx.MMSI = c.state.Vessel.MMSI
	}
	if c.state.Mode == ModeHistory {
		ctx.Range = c.state.Range
	}
	return ctx
}
