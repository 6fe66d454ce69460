package console

// StreamKind names a logical stream of asynchronous gateway results.
type StreamKind string

const (
	StreamRoster   StreamKind = "roster"
	StreamOverview StreamKind = "overview"
	StreamRecent   StreamKind = "recent"
	StreamHistory  StreamKind = "history"
)

// FetchContext is the focus, mode, range and poll run a request was issued
// for. A result is applicable only while the context still matches.
type FetchContext struct {
	Focused  bool
	VesselID int64
	MMSI     string
	Mode     Mode
	Range    TimeRange
	Run      uint64
}

// Matches compares contexts field by field.
func (c FetchContext) Matches(o FetchContext) bool {
	return c.Focused == o.Focused &&
		c.VesselID == o.VesselID &&
		c.MMSI == o.MMSI &&
		c.Mode == o.Mode &&
		c.Run == o.Run &&
		c.Range.Equal(o.Range)
}

// Tag travels with a request and comes back with its result.
type Tag struct {
	Stream  StreamKind
	Seq     uint64
	Context FetchContext
}

// stream keeps at most one request in flight per context and recognises the
// newest one. Older results fail settle and are dropped.
type stream struct {
	kind     StreamKind
	seq      uint64
	inflight bool
	current  FetchContext

	issued  int
	dropped int
}

func newStream(kind StreamKind) stream {
	return stream{kind: kind}
}

// issue returns a tag for a new request, or false when a request for the same
// context is still outstanding.
func (s *stream) issue(ctx FetchContext) (Tag, bool) {
	if s.inflight && s.current.Matches(ctx) {
		return Tag{}, false
	}
	s.seq++
	s.inflight = true
	s.current = ctx
	s.issued++
	return Tag{Stream: s.kind, Seq: s.seq, Context: ctx}, true
}

// settle records an arrival and reports whether it answers the newest request.
func (s *stream) settle(tag Tag) bool {
	if tag.Stream != s.kind || tag.Seq != s.seq || !s.inflight {
		s.dropped++
		return false
	}
	s.inflight = false
	return true
}

// abandon forgets the outstanding request so its result is dropped on arrival.
func (s *stream) abandon() {
	if !s.inflight {
		return
	}
	s.seq++
	s.inflight = false
}

func (s *stream) pending() bool {
	return s.inflight
}
