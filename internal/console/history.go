package console

import (
	"slices"

	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

// HistoryStatus tracks the history query lifecycle.
type HistoryStatus int

const (
	HistoryIdle HistoryStatus = iota
	HistoryLoading
	HistoryLoaded
	HistoryFailed
)

func (s HistoryStatus) String() string {
	switch s {
	case HistoryLoading:
		return "loading"
	case HistoryLoaded:
		return "loaded"
	case HistoryFailed:
		return "failed"
	default:
		return "idle"
	}
}

// HistoryQuery fetches the focused vessel's track for the selected range. It
// does not poll: a fetch happens only when the context changes.
type HistoryQuery struct {
	limit   int
	stream  stream
	status  HistoryStatus
	samples []telemetry.Sample
	err     error
	loaded  FetchContext
}

// NewHistoryQuery caps each fetch at limit points.
func NewHistoryQuery(limit int) *HistoryQuery {
	if limit <= 0 {
		limit = 5000
	}
	return &HistoryQuery{limit: limit, stream: newStream(StreamHistory)}
}

// Trigger issues a fetch for ctx when it is a focused history context.
func (h *HistoryQuery) Trigger(ctx FetchContext) (Tag, telemetry.Query, bool) {
	if ctx.Mode != ModeHistory || !ctx.Focused {
		return Tag{}, telemetry.Query{}, false
	}
	if h.status == HistoryLoaded && h.loaded.Matches(ctx) {
		return Tag{}, telemetry.Query{}, false
	}
	tag, ok := h.stream.issue(ctx)
	if !ok {
		return Tag{}, telemetry.Query{}, false
	}
	h.status = HistoryLoading
	h.err = nil
	return tag, telemetry.Query{Limit: h.limit, Start: ctx.Range.Start, End: ctx.Range.End}, true
}

// Invalidate drops the loaded track and any outstanding fetch.
func (h *HistoryQuery) Invalidate() {
	h.stream.abandon()
	h.samples = nil
	h.err = nil
	h.status = HistoryIdle
	h.loaded = FetchContext{}
}

// Apply stores a result when it answers the newest fetch and its context is
// still current. Samples are kept in chronological order.
func (h *HistoryQuery) Apply(tag Tag, samples []telemetry.Sample, err error, current FetchContext) bool {
	if !h.stream.settle(tag) {
		logging.Debug().Uint64("seq", tag.Seq).Msg("Dropped superseded history result")
		return false
	}
	if !tag.Context.Matches(current) {
		logging.Debug().Int64("vessel_id", tag.Context.VesselID).Msg("Dropped history result for stale focus")
		return false
	}
	if err != nil {
		h.status = HistoryFailed
		h.err = err
		return true
	}
	h.samples = chronological(samples)
	h.status = HistoryLoaded
	h.loaded = tag.Context
	logging.Info().
		Str("mmsi", tag.Context.MMSI).
		Int("records", len(h.samples)).
		Msg("History loaded")
	return true
}

func (h *HistoryQuery) Status() HistoryStatus { return h.status }
func (h *HistoryQuery) Err() error            { return h.err }

// Samples returns the loaded track, oldest first.
func (h *HistoryQuery) Samples() []telemetry.Sample {
	return h.samples
}

// chronological returns a reversed copy of the gateway's newest-first samples.
func chronological(samples []telemetry.Sample) []telemetry.Sample {
	out := slices.Clone(samples)
	if out == nil {
		out = []telemetry.Sample{}
	}
	slices.Reverse(out)
	return out
}
