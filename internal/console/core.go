// Package console keeps the operator's view consistent with the fleet
// backend: it owns focus and mode, live polling, history queries and the map
// viewport, and discards any result that no longer matches what is on screen.
//
// Core runs inside a bubbletea program. Its Update consumes the messages
// produced by its own commands; all state changes happen on that loop.
package console

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

// Gateway is the subset of the telemetry client the console needs.
type Gateway interface {
	ListVessels(ctx context.Context) ([]telemetry.Vessel, error)
	FleetOverview(ctx context.Context) ([]telemetry.OverviewEntry, error)
	Telemetry(ctx context.Context, mmsi string, q telemetry.Query) ([]telemetry.Sample, error)
}

// Options tunes the core. Zero values fall back to defaults.
type Options struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	RecentLimit    int
	HistoryLimit   int
	HistoryWindow  time.Duration
	ChartPoints    int
	FitPadding     int
	FocusZoom      int
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 50
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 5000
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 30 * 24 * time.Hour
	}
	if o.ChartPoints <= 0 {
		o.ChartPoints = 100
	}
	if o.FocusZoom <= 0 {
		o.FocusZoom = 10
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// StatusError is the most recent failure shown in the status line.
type StatusError struct {
	Stream  StreamKind
	Kind    string
	Message string
	At      time.Time
}

// Status summarises polling and connectivity.
type Status struct {
	Polling     bool
	Interval    time.Duration
	Loading     bool
	AuthFailed  bool
	LastError   *StatusError
	LastUpdated time.Time
}

type rosterMsg struct {
	tag     Tag
	vessels []telemetry.Vessel
	err     error
}

type overviewMsg struct {
	tag     Tag
	entries []telemetry.OverviewEntry
	err     error
}

type recentMsg struct {
	tag     Tag
	samples []telemetry.Sample
	err     error
}

type historyMsg struct {
	tag     Tag
	samples []telemetry.Sample
	err     error
}

// Core is the view-synchronization state machine.
type Core struct {
	gateway Gateway
	opts    Options

	controller *Controller
	scheduler  *Scheduler
	history    *HistoryQuery
	viewport   *Reconciler

	roster       stream
	rosterLoaded bool

	snapshot FleetSnapshot
	recent   []telemetry.Sample

	status Status
}

// NewCore wires the console around gateway and surface. surface may be nil
// until the view knows its size.
func NewCore(gateway Gateway, surface MapSurface, opts Options) *Core {
	opts = opts.withDefaults()
	return &Core{
		gateway:    gateway,
		opts:       opts,
		controller: NewController(opts.HistoryWindow, opts.Now),
		scheduler:  NewScheduler(opts.PollInterval),
		history:    NewHistoryQuery(opts.HistoryLimit),
		viewport:   NewReconciler(surface, opts.FitPadding, opts.FocusZoom),
		roster:     newStream(StreamRoster),
	}
}

func (c *Core) Controller() *Controller { return c.controller }
func (c *Core) Scheduler() *Scheduler   { return c.scheduler }
func (c *Core) History() *HistoryQuery  { return c.history }
func (c *Core) Viewport() *Reconciler   { return c.viewport }

// Init loads the roster and starts live polling.
func (c *Core) Init() tea.Cmd {
	return tea.Batch(c.fetchRoster(), c.enterLive())
}

// Shutdown stops polling. Outstanding results are dropped on arrival.
func (c *Core) Shutdown() {
	c.scheduler.Stop()
}

// Update handles the console's own messages. handled is false for anything
// else so the caller can route it elsewhere.
func (c *Core) Update(msg tea.Msg) (cmd tea.Cmd, handled bool) {
	switch msg := msg.(type) {
	case pollTickMsg:
		return c.handleTick(msg), true
	case rosterMsg:
		return c.handleRoster(msg), true
	case overviewMsg:
		c.handleOverview(msg)
		return nil, true
	case recentMsg:
		c.handleRecent(msg)
		return nil, true
	case historyMsg:
		c.handleHistory(msg)
		return nil, true
	}
	return nil, false
}

// SelectVessel focuses a roster vessel.
func (c *Core) SelectVessel(id int64) (tea.Cmd, error) {
	prev := c.controller.Context()
	if _, err := c.controller.SelectVessel(id); err != nil {
		return nil, err
	}
	return c.reconcile(prev), nil
}

func (c *Core) ClearFocus() tea.Cmd {
	prev := c.controller.Context()
	c.controller.ClearFocus()
	return c.reconcile(prev)
}

func (c *Core) SetMode(mode Mode) (tea.Cmd, error) {
	prev := c.controller.Context()
	if _, err := c.controller.SetMode(mode); err != nil {
		return nil, err
	}
	return c.reconcile(prev), nil
}

// SetRange changes the history bounds. An invalid range leaves everything as
// it was and returns a validation error.
func (c *Core) SetRange(start, end time.Time) (tea.Cmd, error) {
	prev := c.controller.Context()
	if _, err := c.controller.SetRange(start, end); err != nil {
		return nil, err
	}
	return c.reconcile(prev), nil
}

// RequestFit re-fits the map to the current coordinates.
func (c *Core) RequestFit() {
	c.viewport.RequestFit()
}

// AttachSurface installs the map surface and replays the current view onto it.
func (c *Core) AttachSurface(surface MapSurface) {
	c.viewport.SetSurface(surface)
	c.observeViewport()
}

// Model derives the presentation model.
func (c *Core) Model() PresentationModel {
	pm := Derive(DeriveInput{
		Focus:         c.controller.State(),
		Roster:        c.controller.Roster(),
		Snapshot:      c.snapshot,
		Recent:        c.recent,
		History:       c.history.Samples(),
		HistoryStatus: c.history.Status(),
		HistoryErr:    c.history.Err(),
		ChartPoints:   c.opts.ChartPoints,
	})
	status := c.status
	status.Polling = c.scheduler.Running()
	status.Interval = c.scheduler.Interval()
	status.AuthFailed = status.LastError != nil && status.LastError.Kind == telemetry.KindOf(telemetry.ErrAuth)
	status.Loading = c.roster.pending() || c.scheduler.overview.pending() ||
		c.scheduler.recent.pending() || c.history.Status() == HistoryLoading
	pm.Status = status
	return pm
}

// Snapshot returns the latest fleet overview.
func (c *Core) Snapshot() FleetSnapshot {
	return c.snapshot
}

// Recent returns the focused vessel's live window, oldest first.
func (c *Core) Recent() []telemetry.Sample {
	return c.recent
}

// reconcile brings polling, history and the viewport in line with the
// controller after a change from prev. Re-applying an unchanged history
// context retries a failed query.
func (c *Core) reconcile(prev FetchContext) tea.Cmd {
	next := c.controller.Context()
	if next.Matches(prev) {
		if next.Mode == ModeHistory && c.history.Status() == HistoryFailed {
			logging.Info().Str("mmsi", next.MMSI).Msg("Retrying history query")
			return c.fetchHistory()
		}
		return nil
	}
	c.invalidate()

	var cmds []tea.Cmd
	switch next.Mode {
	case ModeHistory:
		c.scheduler.Stop()
		cmds = append(cmds, c.fetchHistory())
	default:
		cmds = append(cmds, c.enterLive())
	}
	c.observeViewport()
	return tea.Batch(cmds...)
}

// invalidate drops telemetry fetched for the previous context.
func (c *Core) invalidate() {
	c.recent = nil
	c.scheduler.recent.abandon()
	c.history.Invalidate()
}

// enterLive starts polling if needed and fetches the focused vessel's window.
func (c *Core) enterLive() tea.Cmd {
	var cmds []tea.Cmd
	if !c.scheduler.Running() {
		cmds = append(cmds, c.scheduler.Start(), c.fetchOverview())
	}
	cmds = append(cmds, c.fetchRecent())
	return tea.Batch(cmds...)
}

func (c *Core) liveContext() FetchContext {
	ctx := c.controller.Context()
	ctx.Run = c.scheduler.Run()
	return ctx
}

func (c *Core) handleTick(msg pollTickMsg) tea.Cmd {
	if !c.scheduler.accept(msg) {
		logging.Debug().Uint64("run", msg.run).Msg("Ignored tick from stopped poll run")
		return nil
	}
	cmds := []tea.Cmd{c.scheduler.tick(), c.fetchOverview(), c.fetchRecent()}
	if !c.rosterLoaded {
		cmds = append(cmds, c.fetchRoster())
	}
	return tea.Batch(cmds...)
}

func (c *Core) fetchRoster() tea.Cmd {
	tag, ok := c.roster.issue(FetchContext{})
	if !ok {
		return nil
	}
	gw, timeout := c.gateway, c.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		vessels, err := gw.ListVessels(ctx)
		return rosterMsg{tag: tag, vessels: vessels, err: err}
	}
}

func (c *Core) fetchOverview() tea.Cmd {
	tag, ok := c.scheduler.overview.issue(FetchContext{Mode: ModeLive, Run: c.scheduler.Run()})
	if !ok {
		logging.Debug().Msg("Overview fetch still in flight; skipping")
		return nil
	}
	gw, timeout := c.gateway, c.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := gw.FleetOverview(ctx)
		return overviewMsg{tag: tag, entries: entries, err: err}
	}
}

func (c *Core) fetchRecent() tea.Cmd {
	fc := c.liveContext()
	if !fc.Focused || fc.Mode != ModeLive || !c.scheduler.Running() {
		return nil
	}
	tag, ok := c.scheduler.recent.issue(fc)
	if !ok {
		return nil
	}
	gw, timeout := c.gateway, c.opts.RequestTimeout
	query := telemetry.Query{Limit: c.opts.RecentLimit}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		samples, err := gw.Telemetry(ctx, fc.MMSI, query)
		return recentMsg{tag: tag, samples: samples, err: err}
	}
}

func (c *Core) fetchHistory() tea.Cmd {
	tag, query, ok := c.history.Trigger(c.controller.Context())
	if !ok {
		return nil
	}
	gw, timeout, mmsi := c.gateway, c.opts.RequestTimeout, tag.Context.MMSI
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		samples, err := gw.Telemetry(ctx, mmsi, query)
		return historyMsg{tag: tag, samples: samples, err: err}
	}
}

func (c *Core) handleRoster(msg rosterMsg) tea.Cmd {
	if !c.roster.settle(msg.tag) {
		return nil
	}
	if msg.err != nil {
		c.noteError(StreamRoster, msg.err)
		return nil
	}
	c.rosterLoaded = true
	c.clearError(StreamRoster)
	prev := c.controller.Context()
	c.controller.SetRoster(msg.vessels)
	logging.Info().Int("vessels", len(msg.vessels)).Msg("Roster loaded")
	return c.reconcile(prev)
}

func (c *Core) handleOverview(msg overviewMsg) {
	if !c.scheduler.overview.settle(msg.tag) {
		logging.Debug().Uint64("seq", msg.tag.Seq).Msg("Dropped superseded overview result")
		return
	}
	// Overview results are fleet-wide: they apply for the whole poll run
	// regardless of focus changes made while they were in flight.
	if !c.scheduler.Running() || msg.tag.Context.Run != c.scheduler.Run() {
		return
	}
	if msg.err != nil {
		c.noteError(StreamOverview, msg.err)
		return
	}
	c.clearError(StreamOverview)
	c.snapshot = FleetSnapshot{Entries: msg.entries, ReceivedAt: c.opts.Now()}
	c.status.LastUpdated = c.snapshot.ReceivedAt
	c.observeViewport()
}

func (c *Core) handleRecent(msg recentMsg) {
	if !c.scheduler.recent.settle(msg.tag) {
		logging.Debug().Uint64("seq", msg.tag.Seq).Msg("Dropped superseded telemetry result")
		return
	}
	if !msg.tag.Context.Matches(c.liveContext()) {
		logging.Debug().Int64("vessel_id", msg.tag.Context.VesselID).Msg("Dropped telemetry result for stale focus")
		return
	}
	if msg.err != nil {
		c.noteError(StreamRecent, msg.err)
		return
	}
	c.clearError(StreamRecent)
	c.recent = chronological(msg.samples)
	c.observeViewport()
}

func (c *Core) handleHistory(msg historyMsg) {
	if !c.history.Apply(msg.tag, msg.samples, msg.err, c.controller.Context()) {
		return
	}
	if msg.err != nil {
		c.noteError(StreamHistory, msg.err)
		return
	}
	c.clearError(StreamHistory)
	c.observeViewport()
}

func (c *Core) observeViewport() {
	pm := Derive(DeriveInput{
		Focus:         c.controller.State(),
		Snapshot:      c.snapshot,
		Recent:        c.recent,
		History:       c.history.Samples(),
		HistoryStatus: c.history.Status(),
		ChartPoints:   c.opts.ChartPoints,
	})
	c.viewport.Observe(pm.Plottable, pm.FocusTarget)
}

func (c *Core) noteError(stream StreamKind, err error) {
	kind := telemetry.KindOf(err)
	c.status.LastError = &StatusError{
		Stream:  stream,
		Kind:    kind,
		Message: err.Error(),
		At:      c.opts.Now(),
	}
	logging.Warn().Err(err).Str("stream", string(stream)).Str("kind", kind).Msg("Console request failed")
}

func (c *Core) clearError(stream StreamKind) {
	if c.status.LastError != nil && c.status.LastError.Stream == stream {
		c.status.LastError = nil
	}
}
