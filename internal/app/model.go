package app

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fleetmonitor-tui/internal/console"
	"fleetmonitor-tui/internal/export"
	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

var (
	chromeBG        = lipgloss.Color("#05090C")
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	fieldLabelStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	rosterSelectedLineStyle = lipgloss.NewStyle().
				Foreground(accentPrimary).
				Bold(true)

	liveBadgeStyle = lipgloss.NewStyle().
			Foreground(chromeBG).
			Background(accentPrimary).
			Bold(true)

	historyBadgeStyle = lipgloss.NewStyle().
				Foreground(chromeBG).
				Background(accentSecondary).
				Bold(true)
)

const (
	rangeInputLayout     = "2006-01-02 15:04"
	connectingStatus     = "Connecting to fleet backend..."
	defaultFrameInterval = 120 * time.Millisecond
	minTopPanelHeight    = 6
	minBottomPanelHeight = 5
)

type mapFrameMsg struct{}

type exportSavedMsg struct {
	summary export.Summary
	err     error
}

type rangeField int

const (
	rangeFieldStart rangeField = iota
	rangeFieldEnd
)

// ModelOptions configures the view. Zero values fall back to defaults.
type ModelOptions struct {
	MapCenter       console.Coordinate
	MapZoom         int
	AnimationFrames int
	FrameInterval   time.Duration
	Location        *time.Location
}

type Model struct {
	core    *console.Core
	store   *export.Store
	mapView *mapView

	ready  bool
	width  int
	height int

	roster  viewport.Model
	spinner spinner.Model

	rangeStart      textinput.Model
	rangeEnd        textinput.Model
	rangeField      rangeField
	showRangePrompt bool

	showHelp   bool
	statusText string
	errorText  string

	rosterCursor     int
	rosterCursorLine int
	lastFocusID      int64

	frameInterval time.Duration
	frameArmed    bool
	location      *time.Location

	rosterW  int
	rosterH  int
	mapW     int
	mapH     int
	summaryW int
	summaryH int
	chartW   int
	chartH   int
}

// NewModel builds the console view around core. store may be nil, in which
// case exports are disabled.
func NewModel(core *console.Core, store *export.Store, opts ModelOptions) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultFrameInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	roster := viewport.New(30, 12)
	roster.SetContent("Loading vessels...")

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	mv := newMapView(opts.MapCenter, opts.MapZoom, opts.AnimationFrames)
	core.AttachSurface(mv)

	return Model{
		core:          core,
		store:         store,
		mapView:       mv,
		roster:        roster,
		spinner:       spin,
		rangeStart:    newRangeInput("start"),
		rangeEnd:      newRangeInput("end"),
		showHelp:      true,
		statusText:    connectingStatus,
		frameInterval: opts.FrameInterval,
		location:      opts.Location,
		rosterW:       34,
		rosterH:       14,
		mapW:          60,
		mapH:          14,
		summaryW:      40,
		summaryH:      10,
		chartW:        54,
		chartH:        10,
	}
}

func newRangeInput(label string) textinput.Model {
	in := textinput.New()
	in.Prompt = label + " > "
	in.Placeholder = rangeInputLayout
	in.CharLimit = len(rangeInputLayout)
	in.Width = len(rangeInputLayout) + 2
	return in
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.core.Init(),
		m.spinner.Tick,
	)
}

func frameTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return mapFrameMsg{}
	})
}

func exportCmd(store *export.Store, bundle export.Bundle) tea.Cmd {
	return func() tea.Msg {
		summary, err := store.Save(bundle)
		return exportSavedMsg{summary: summary, err: err}
	}
}

// animationCmd arms the next map frame when a flight is in progress.
func (m *Model) animationCmd() tea.Cmd {
	if !m.mapView.animating() || m.frameArmed {
		return nil
	}
	m.frameArmed = true
	return frameTickCmd(m.frameInterval)
}

func mutedTextStyle(text string) string {
	return lipgloss.NewStyle().Foreground(mutedText).Render(text)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanels()
		// Replays any auto-fit that failed while the map had no size.
		m.core.AttachSurface(m.mapView)
		m.refreshRoster()
		return m, m.animationCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case mapFrameMsg:
		m.frameArmed = false
		m.mapView.step()
		return m, m.animationCmd()

	case exportSavedMsg:
		if msg.err != nil {
			m.errorText = "Export failed: " + msg.err.Error()
			return m, nil
		}
		m.errorText = ""
		m.statusText = fmt.Sprintf("Exported %d records to %s", msg.summary.Records, filepath.Base(msg.summary.Directory))
		return m, nil

	case tea.KeyMsg:
		if m.showRangePrompt {
			return m.updateRangePrompt(msg)
		}
		return m.updateKeys(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.roster, cmd = m.roster.Update(msg)
		return m, cmd
	}

	cmd, handled := m.core.Update(msg)
	if !handled {
		return m, nil
	}
	if m.statusText == connectingStatus && !m.core.Model().Status.LastUpdated.IsZero() {
		m.statusText = "Connected; following the fleet live."
	}
	m.refreshRoster()
	return m, tea.Batch(cmd, m.animationCmd())
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.core.Shutdown()
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		m.resizePanels()
		m.refreshRoster()
		return m, nil
	case "up", "k":
		m.moveRosterCursor(-1)
		return m, nil
	case "down", "j":
		m.moveRosterCursor(1)
		return m, nil
	case "enter":
		rows := m.core.Model().Roster
		if len(rows) == 0 {
			return m, nil
		}
		row := rows[clampInt(m.rosterCursor, 0, len(rows)-1)]
		cmd, err := m.core.SelectVessel(row.Vessel.ID)
		if err != nil {
			m.errorText = "Could not focus vessel: " + err.Error()
			return m, nil
		}
		logging.Debug().Int64("vessel_id", row.Vessel.ID).Msg("Vessel focused")
		m.errorText = ""
		m.statusText = "Focused " + row.Vessel.Name
		return m.afterCore(cmd)
	case "esc":
		cmd := m.core.ClearFocus()
		m.errorText = ""
		m.statusText = "Focus cleared; showing the whole fleet."
		return m.afterCore(cmd)
	case "l":
		return m.switchMode(console.ModeLive)
	case "h":
		return m.switchMode(console.ModeHistory)
	case "r":
		m.openRangePrompt()
		return m, nil
	case "f":
		m.core.RequestFit()
		m.statusText = "Map fitted to visible vessels."
		return m, nil
	case "+", "=":
		m.mapView.zoomBy(1)
		return m, nil
	case "-", "_":
		m.mapView.zoomBy(-1)
		return m, nil
	case "e":
		return m.startExport()
	}

	var cmd tea.Cmd
	m.roster, cmd = m.roster.Update(msg)
	return m, cmd
}

func (m Model) switchMode(mode console.Mode) (tea.Model, tea.Cmd) {
	cmd, err := m.core.SetMode(mode)
	if err != nil {
		m.errorText = "Could not switch mode: " + err.Error()
		return m, nil
	}
	logging.Debug().Str("mode", string(mode)).Msg("Mode switched")
	m.errorText = ""
	if mode == console.ModeHistory {
		m.statusText = "History mode; live polling paused. Press r to change the range."
	} else {
		m.statusText = "Live mode; polling resumed."
	}
	return m.afterCore(cmd)
}

func (m Model) afterCore(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.refreshRoster()
	return m, tea.Batch(cmd, m.animationCmd())
}

func (m *Model) openRangePrompt() {
	r := m.core.Controller().State().Range
	if r.IsZero() {
		now := time.Now()
		r = console.TimeRange{Start: now.Add(-30 * 24 * time.Hour), End: now}
	}
	m.rangeStart.SetValue(r.Start.In(m.location).Format(rangeInputLayout))
	m.rangeEnd.SetValue(r.End.In(m.location).Format(rangeInputLayout))
	m.rangeStart.CursorEnd()
	m.rangeEnd.CursorEnd()
	m.rangeField = rangeFieldStart
	m.showRangePrompt = true
	m.applyRangeFocus()
	m.statusText = "Edit the history range, then press Enter."
}

func (m *Model) closeRangePrompt() {
	m.showRangePrompt = false
	m.rangeStart.Blur()
	m.rangeEnd.Blur()
}

func (m *Model) applyRangeFocus() {
	if m.rangeField == rangeFieldStart {
		m.rangeEnd.Blur()
		m.rangeStart.Focus()
		return
	}
	m.rangeStart.Blur()
	m.rangeEnd.Focus()
}

func (m Model) updateRangePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.core.Shutdown()
		return m, tea.Quit
	case "esc":
		m.closeRangePrompt()
		m.statusText = "Range edit cancelled."
		return m, tea.ClearScreen
	case "tab", "shift+tab", "up", "down":
		if m.rangeField == rangeFieldStart {
			m.rangeField = rangeFieldEnd
		} else {
			m.rangeField = rangeFieldStart
		}
		m.applyRangeFocus()
		return m, nil
	case "enter":
		start, end, err := parseRangeInput(m.rangeStart.Value(), m.rangeEnd.Value(), m.location)
		if err != nil {
			m.errorText = "Invalid range: " + err.Error()
			return m, nil
		}
		cmd, err := m.core.SetRange(start, end)
		if err != nil {
			m.errorText = "Invalid range: " + err.Error()
			return m, nil
		}
		m.closeRangePrompt()
		logging.Debug().Time("start", start).Time("end", end).Msg("History range set")
		m.errorText = ""
		cmds := []tea.Cmd{cmd, tea.ClearScreen}
		if m.core.Controller().State().Mode != console.ModeHistory {
			modeCmd, err := m.core.SetMode(console.ModeHistory)
			if err != nil {
				m.errorText = "Could not switch mode: " + err.Error()
			}
			cmds = append(cmds, modeCmd)
		}
		m.statusText = fmt.Sprintf("History range %s → %s", start.Format(rangeInputLayout), end.Format(rangeInputLayout))
		m.refreshRoster()
		cmds = append(cmds, m.animationCmd())
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	if m.rangeField == rangeFieldStart {
		m.rangeStart, cmd = m.rangeStart.Update(msg)
	} else {
		m.rangeEnd, cmd = m.rangeEnd.Update(msg)
	}
	return m, cmd
}

// parseRangeInput reads both prompt fields in loc. Ordering is left to the
// controller so it is validated in one place.
func parseRangeInput(rawStart, rawEnd string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(rangeInputLayout, strings.TrimSpace(rawStart), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must look like %s", telemetry.ErrValidation, rangeInputLayout)
	}
	end, err := time.ParseInLocation(rangeInputLayout, strings.TrimSpace(rawEnd), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end must look like %s", telemetry.ErrValidation, rangeInputLayout)
	}
	return start, end, nil
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.errorText = "Export is disabled."
		return m, nil
	}
	pm := m.core.Model()
	if !pm.Focus.Focused() {
		m.errorText = "Focus a vessel before exporting."
		return m, nil
	}
	samples := m.core.Recent()
	if pm.Focus.Mode == console.ModeHistory {
		samples = m.core.History().Samples()
	}
	m.errorText = ""
	m.statusText = "Exporting " + pm.Focus.Vessel.Name + "..."
	return m, exportCmd(m.store, export.Bundle{
		Focus:   pm.Focus,
		Summary: pm.Summary,
		Samples: samples,
		Chart:   pm.Chart,
	})
}

func (m *Model) moveRosterCursor(delta int) {
	rows := m.core.Model().Roster
	if len(rows) == 0 {
		return
	}
	m.rosterCursor = clampInt(m.rosterCursor+delta, 0, len(rows)-1)
	m.refreshRoster()
}

func (m Model) View() string {
	if !m.ready {
		return "Booting fleetmonitor-tui..."
	}

	innerWidth := maxInt(40, m.width-2)
	innerHeight := maxInt(12, m.height-2)
	pm := m.core.Model()

	header := headerStyle.Render("Fleet Monitor Console") + " " + renderModeBadge(pm.Focus) + " " + subHeaderStyle.Render(renderFocusLine(pm))

	statusPrefix := "*"
	if pm.Status.Loading {
		statusPrefix = m.spinner.View()
	}
	statusBody := strings.TrimSpace(m.statusText)
	if statusBody == "" {
		statusBody = "Ready"
	}
	statusLine := statusStyle.Render(statusPrefix+" "+statusBody) + " " + subHeaderStyle.Render(renderPolling(pm.Status))
	if errLine := renderErrorLine(m.errorText, pm.Status); errLine != "" {
		statusLine = errLine
	}

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel(fmt.Sprintf("Vessels (%d)", len(pm.Roster)), m.roster.View(), m.rosterW, m.rosterH, true),
		renderPanel("Map", m.mapView.render(pm.Track, pm.Markers), m.mapW, m.mapH, false),
	)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel(summaryTitle(pm.Summary), renderSummary(pm), m.summaryW, m.summaryH, false),
		renderPanel(chartTitle(pm.Focus), renderChart(pm.Chart, m.chartW-2), m.chartW, m.chartH, false),
	)

	parts := []string{header, statusLine}
	if m.showRangePrompt {
		promptWidth := clampInt(innerWidth-4, 42, 70)
		promptBody := strings.Join([]string{
			"History range (" + m.location.String() + "):",
			m.rangeStart.View(),
			m.rangeEnd.View(),
			"",
			"tab switch field | enter apply | esc cancel",
		}, "\n")
		parts = append(parts, renderPanel("History Range", promptBody, promptWidth, 6, true))
	}
	parts = append(parts, topRow, bottomRow)
	if m.showHelp {
		parts = append(parts, helpStyle.Render("up/down select | enter focus | esc clear focus | l live | h history | r range | f fit map | +/- zoom | e export | ? help | q quit"))
	}

	body := strings.Join(parts, "\n")
	body = fitTextHeight(body, innerHeight)
	return lipgloss.NewStyle().
		Background(chromeBG).
		Foreground(lipgloss.Color("#E8F0F2")).
		Width(innerWidth).
		Height(innerHeight).
		Padding(0, 1).
		Render(body)
}

func renderModeBadge(focus console.FocusState) string {
	if focus.Mode == console.ModeHistory {
		return historyBadgeStyle.Render(" HISTORY ")
	}
	return liveBadgeStyle.Render(" LIVE ")
}

func renderFocusLine(pm console.PresentationModel) string {
	if !pm.Focus.Focused() {
		return "fleet overview"
	}
	line := fmt.Sprintf("%s (MMSI %s)", pm.Focus.Vessel.Name, pm.Focus.Vessel.MMSI)
	if pm.Focus.Mode == console.ModeHistory && !pm.Focus.Range.IsZero() {
		line += fmt.Sprintf(" · %s → %s",
			console.FormatTimestamp(pm.Focus.Range.Start), console.FormatTimestamp(pm.Focus.Range.End))
	}
	return line
}

func renderPolling(status console.Status) string {
	parts := []string{}
	if status.Polling {
		parts = append(parts, fmt.Sprintf("polling every %s", status.Interval))
	} else {
		parts = append(parts, "polling paused")
	}
	if !status.LastUpdated.IsZero() {
		parts = append(parts, "updated "+status.LastUpdated.In(time.Local).Format("15:04:05"))
	}
	return strings.Join(parts, " · ")
}

// renderErrorLine picks the most pressing message: a local error first, then
// an authorization failure, then the latest fetch error.
func renderErrorLine(local string, status console.Status) string {
	if strings.TrimSpace(local) != "" {
		return errorStyle.Render(local)
	}
	if status.LastError == nil {
		return ""
	}
	e := status.LastError
	if status.AuthFailed {
		return errorStyle.Render("Authorization failed: " + e.Message + " (check token or credentials)")
	}
	return errorStyle.Render(fmt.Sprintf("%s fetch failed (%s): %s", e.Stream, e.Kind, e.Message))
}

func summaryTitle(s console.Summary) string {
	if strings.TrimSpace(s.Title) == "" {
		return "Summary"
	}
	return s.Title
}

func chartTitle(focus console.FocusState) string {
	if focus.Mode == console.ModeHistory {
		return "Fuel & RPM (history)"
	}
	return "Fuel & RPM (recent)"
}

func renderSummary(pm console.PresentationModel) string {
	if !pm.Focus.Focused() {
		return mutedTextStyle("No vessel focused.\nSelect one with up/down and enter.")
	}
	labelW := 0
	for _, f := range pm.Summary.Fields {
		labelW = maxInt(labelW, len([]rune(f.Label)))
	}
	lines := []string{subHeaderStyle.Render(fmt.Sprintf("%s · MMSI %s", pm.Summary.Vessel, pm.Summary.MMSI))}
	for _, f := range pm.Summary.Fields {
		label := f.Label + strings.Repeat(" ", labelW-len([]rune(f.Label)))
		lines = append(lines, fieldLabelStyle.Render(label)+"  "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func renderPanel(title, body string, width, height int, focused bool) string {
	borderColor := panelBorder
	if focused {
		borderColor = accentSecondary
	}
	style := panelStyle.Copy().
		BorderForeground(borderColor).
		Width(width).
		Height(height)

	titleLine := panelTitleStyle.Render(title)
	return style.Render(titleLine + "\n" + fitTextHeight(body, maxInt(1, height-1)))
}

func (m *Model) resizePanels() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	usableW := maxInt(40, m.width-6)
	innerH := maxInt(12, m.height-2)
	verticalOverhead := 2
	if m.showHelp {
		verticalOverhead = 3
	}
	panelRowsBudget := maxInt(minTopPanelHeight+minBottomPanelHeight+4, innerH-verticalOverhead)

	topActual := int(math.Round(float64(panelRowsBudget) * 0.62))
	topActual = clampInt(topActual, minTopPanelHeight+2, maxInt(minTopPanelHeight+2, panelRowsBudget-minBottomPanelHeight-2))
	bottomActual := maxInt(minBottomPanelHeight+2, panelRowsBudget-topActual)

	rosterW := int(math.Round(float64(usableW) * 0.28))
	rosterW = clampInt(rosterW, 26, maxInt(26, usableW-30))
	mapW := usableW - rosterW

	summaryW := int(math.Round(float64(usableW) * 0.42))
	summaryW = clampInt(summaryW, 28, maxInt(28, usableW-24))
	chartW := usableW - summaryW

	rosterInnerW := maxInt(16, rosterW-6)
	m.rosterW = rosterInnerW + 4
	m.rosterH = topActual - 2
	m.roster.Width = rosterInnerW + 2
	m.roster.Height = maxInt(1, m.rosterH-1)

	mapInnerW := maxInt(20, mapW-6)
	m.mapW = mapInnerW + 4
	m.mapH = topActual - 2
	// Title and footer each take a line.
	m.mapView.resize(mapInnerW+2, maxInt(1, m.mapH-2))

	m.summaryW = maxInt(22, summaryW-6) + 4
	m.summaryH = bottomActual - 2
	m.chartW = maxInt(22, chartW-6) + 4
	m.chartH = bottomActual - 2
}

// refreshRoster redraws the vessel list. The cursor follows focus changes
// made elsewhere, such as the first roster load.
func (m *Model) refreshRoster() {
	pm := m.core.Model()
	rows := pm.Roster
	if len(rows) == 0 {
		m.roster.SetContent("No vessels yet.")
		m.roster.SetYOffset(0)
		return
	}

	focusID := int64(0)
	if pm.Focus.Focused() {
		focusID = pm.Focus.Vessel.ID
	}
	if focusID != m.lastFocusID {
		m.lastFocusID = focusID
		for idx, row := range rows {
			if row.Vessel.ID == focusID {
				m.rosterCursor = idx
			}
		}
	}
	m.rosterCursor = clampInt(m.rosterCursor, 0, len(rows)-1)

	contentWidth := maxInt(1, m.roster.Width)
	lines := make([]string, 0, len(rows))
	for idx, row := range rows {
		lines = append(lines, renderRosterRow(row, idx == m.rosterCursor, contentWidth))
	}
	m.rosterCursorLine = m.rosterCursor
	m.roster.SetContent(strings.Join(lines, "\n"))
	m.ensureRosterCursorVisible(len(lines))
}

func renderRosterRow(row console.RosterRow, cursor bool, width int) string {
	marker := " "
	if cursor {
		marker = "▶"
	}
	focus := " "
	if row.Selected {
		focus = "◆"
	}
	badge := ""
	if row.Live {
		badge = " " + liveBadgeStyle.Render("LIVE")
	}
	text := truncateText(fmt.Sprintf("%s%s %s · %s", marker, focus, row.Vessel.Name, row.Tier), maxInt(8, width-6))
	if cursor {
		text = rosterSelectedLineStyle.Render(text)
	}
	return text + badge
}

func (m *Model) ensureRosterCursorVisible(rendered int) {
	visibleRows := maxInt(1, m.roster.Height)
	top := clampInt(m.roster.YOffset, 0, maxInt(0, rendered-1))
	bottom := top + visibleRows - 1
	switch {
	case m.rosterCursorLine < top:
		m.roster.SetYOffset(m.rosterCursorLine)
	case m.rosterCursorLine > bottom:
		m.roster.SetYOffset(m.rosterCursorLine - visibleRows + 1)
	default:
		m.roster.SetYOffset(top)
	}
}

func truncateText(raw string, maxLen int) string {
	runes := []rune(raw)
	if maxLen <= 0 || len(runes) <= maxLen {
		return raw
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

func fitTextHeight(text string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
