package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-canvas/pkg/engine"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/pubsub"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/render"
	"github.com/dd0wney/cluso-canvas/pkg/router"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	edgeBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

// nudge is how far one drag key moves the pointer in world units
const nudge = 20.0

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Select   key.Binding
	Multi    key.Binding
	Connect  key.Binding
	Drag     key.Binding
	Enter    key.Binding
	Group    key.Binding
	NextGrp  key.Binding
	Inferred key.Binding
	Hidden   key.Binding
	Recenter key.Binding
	Escape   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Select:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Multi:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "multi-select")),
	Connect:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Drag:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "drag")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop/complete")),
	Group:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "expand/collapse")),
	NextGrp:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next group")),
	Inferred: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "inferred")),
	Hidden:   key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "hidden")),
	Recenter: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recenter")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Connect, k.Drag, k.Enter, k.Escape, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Select, k.Multi, k.Connect, k.Drag, k.Enter},
		{k.Group, k.NextGrp, k.Inferred, k.Hidden, k.Recenter},
		{k.Escape, k.Quit},
	}
}

type tickMsg time.Time

type frameMsg render.Frame

type noteMsg reconcile.Notification

// option is one relation type offered while disambiguating
type option struct {
	label     string
	direction string
}

func (o option) Title() string       { return o.label }
func (o option) Description() string { return o.direction }
func (o option) FilterValue() string { return o.label }

type model struct {
	e        *engine.Engine
	frames   *pubsub.Subscription
	notes    *pubsub.Subscription
	frame    render.Frame
	assets   table.Model
	options  list.Model
	help     help.Model
	keys     keyMap
	cursor   string
	group    int
	modifier bool
	message  string
	errMsg   bool
	width    int
}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitFrame(sub *pubsub.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.Channel()
		if !ok {
			return nil
		}
		return frameMsg(msg.(render.Frame))
	}
}

func waitNote(sub *pubsub.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.Channel()
		if !ok {
			return nil
		}
		return noteMsg(msg.(reconcile.Notification))
	}
}

func newModel(ctx context.Context, e *engine.Engine) (model, error) {
	frames, err := e.Bus().SubscribeWith(ctx, pubsub.TopicFrame, pubsub.Options{Buffer: 1, Policy: pubsub.KeepLatest})
	if err != nil {
		return model{}, err
	}
	notes, err := e.Bus().Subscribe(ctx, pubsub.TopicNotifications)
	if err != nil {
		return model{}, err
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 12},
			{Title: "Type", Width: 14},
			{Title: "Name", Width: 18},
			{Title: "Group", Width: 10},
			{Title: "State", Width: 30},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	l := list.New(nil, list.NewDefaultDelegate(), 40, 12)
	l.Title = "Choose relation type"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	m := model{
		e:       e,
		frames:  frames,
		notes:   notes,
		assets:  t,
		options: l,
		help:    help.New(),
		keys:    keys,
	}
	m.setFrame(e.Frame())
	return m, nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitFrame(m.frames), waitNote(m.notes))
}

func (m *model) setFrame(f render.Frame) {
	m.frame = f
	rows := make([]table.Row, 0, len(f.Assets))
	for _, a := range f.Assets {
		classes := make([]string, len(a.Classes))
		for i, c := range a.Classes {
			classes[i] = string(c)
		}
		rows = append(rows, table.Row{a.ID, a.Type, a.Name, a.GroupID, strings.Join(classes, ",")})
	}
	m.assets.SetRows(rows)
	if row := m.assets.SelectedRow(); row != nil {
		m.cursor = row[0]
	} else {
		m.cursor = ""
	}

	if f.Connection.Phase == interaction.PhaseDisambiguating {
		items := make([]list.Item, len(f.Connection.Options))
		for i, o := range f.Connection.Options {
			items[i] = option{label: o.Type.Label, direction: o.Direction.String()}
		}
		m.options.SetItems(items)
	}
}

func (m *model) report(err error) {
	if err != nil {
		m.message, m.errMsg = err.Error(), true
	}
}

// centre returns the world centre of an asset on the current frame
func (m *model) centre(id string) geom.Point {
	if a, ok := m.frame.Asset(id); ok {
		return a.Rect.Center()
	}
	return geom.Point{}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.e.Loop().Drain()
		return m, tickCmd()

	case frameMsg:
		m.setFrame(render.Frame(msg))
		return m, waitFrame(m.frames)

	case noteMsg:
		m.message = msg.Message
		m.errMsg = msg.Level != reconcile.LevelInfo
		return m, waitNote(m.notes)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.e.InteractionState()

	if state.Connection.Phase == interaction.PhaseDisambiguating {
		switch {
		case key.Matches(msg, m.keys.Enter):
			_, err := m.e.ChooseType(m.options.Index())
			m.report(err)
		case key.Matches(msg, m.keys.Escape):
			m.e.CancelConnection()
		default:
			var cmd tea.Cmd
			m.options, cmd = m.options.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if state.Mode == interaction.ModeDrag {
		p := state.Drag.Start.Add(state.Drag.Delta)
		switch {
		case key.Matches(msg, m.keys.Up):
			m.report(m.e.DragTo(p.Add(geom.Point{Y: -nudge})))
		case key.Matches(msg, m.keys.Down):
			m.report(m.e.DragTo(p.Add(geom.Point{Y: nudge})))
		case key.Matches(msg, m.keys.Left):
			m.report(m.e.DragTo(p.Add(geom.Point{X: -nudge})))
		case key.Matches(msg, m.keys.Right):
			m.report(m.e.DragTo(p.Add(geom.Point{X: nudge})))
		case key.Matches(msg, m.keys.Enter):
			m.report(m.e.EndDrag(p))
		case key.Matches(msg, m.keys.Escape):
			m.e.CancelDrag()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		prev := m.cursor
		var cmd tea.Cmd
		m.assets, cmd = m.assets.Update(msg)
		if row := m.assets.SelectedRow(); row != nil {
			m.cursor = row[0]
		}
		m.moveCursor(prev, state)
		return m, cmd

	case key.Matches(msg, m.keys.Select):
		m.report(m.e.Click(m.cursor))

	case key.Matches(msg, m.keys.Multi):
		if m.modifier {
			m.report(m.e.ModifierUp())
		} else {
			m.report(m.e.ModifierDown())
		}
		m.modifier = !m.modifier

	case key.Matches(msg, m.keys.Connect):
		m.report(m.e.StartConnection(m.cursor, m.centre(m.cursor)))

	case key.Matches(msg, m.keys.Enter):
		if state.Connection.Active() {
			out, err := m.e.CompleteConnection(m.cursor)
			m.report(err)
			if out.Kind == interaction.OutcomeCommit {
				m.message, m.errMsg = fmt.Sprintf("creating %s", out.Relation.Type.Label), false
			}
		}

	case key.Matches(msg, m.keys.Drag):
		m.report(m.e.StartAssetDrag(m.cursor, m.centre(m.cursor)))

	case key.Matches(msg, m.keys.NextGrp):
		if n := len(m.frame.Groups); n > 0 {
			m.group = (m.group + 1) % n
		}

	case key.Matches(msg, m.keys.Group):
		if m.group < len(m.frame.Groups) {
			m.report(m.e.ToggleGroup(m.frame.Groups[m.group].ID))
		}

	case key.Matches(msg, m.keys.Inferred):
		f := m.e.Filters()
		f.ShowInferred = !f.ShowInferred
		m.e.SetFilters(f)

	case key.Matches(msg, m.keys.Hidden):
		f := m.e.Filters()
		f.ShowHidden = !f.ShowHidden
		m.e.SetFilters(f)

	case key.Matches(msg, m.keys.Recenter):
		if sel := m.frame.Selected; len(sel) > 0 {
			m.report(m.e.RecenterOnEntities(sel))
		} else {
			m.report(m.e.Recenter())
		}

	case key.Matches(msg, m.keys.Escape):
		if state.Connection.Active() {
			m.e.CancelConnection()
		} else {
			m.e.Escape()
		}
	}
	return m, nil
}

// moveCursor turns a cursor move into hover or target-hover events
func (m *model) moveCursor(prev string, state interaction.State) {
	if prev == m.cursor {
		return
	}
	if state.Connection.Active() {
		m.report(m.e.MovePointer(m.centre(m.cursor)))
		if state.Connection.IsCandidate(m.cursor) {
			m.report(m.e.HoverTarget(m.cursor))
		} else if state.Connection.Phase == interaction.PhaseTargetHover {
			m.report(m.e.LeaveTarget())
		}
		return
	}
	if prev != "" {
		m.e.Unhover(prev)
	}
	if m.cursor != "" {
		m.report(m.e.Hover(m.cursor))
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("canvas"))
	b.WriteString("\n")

	f := m.frame
	status := fmt.Sprintf("mode %s | connection %s | pending %d | zoom %.2f",
		f.Mode, f.Connection.Phase, f.Pending, f.Transform.Zoom)
	if f.Stale {
		status += " | routing suppressed"
	}
	filters := m.e.Filters()
	status += fmt.Sprintf(" | inferred %t hidden %t", filters.ShowInferred, filters.ShowHidden)
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	groups := make([]string, len(f.Groups))
	for i, g := range f.Groups {
		mark := "▾"
		if g.Collapsed {
			mark = "▸"
		}
		label := fmt.Sprintf("%s %s (%d)", mark, g.Label, g.Members)
		if i == m.group {
			label = "[" + label + "]"
		}
		groups[i] = label
	}
	b.WriteString("groups: " + strings.Join(groups, "  "))
	b.WriteString("\n\n")

	if f.Connection.Phase == interaction.PhaseDisambiguating {
		b.WriteString(m.options.View())
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			m.assets.View(),
			edgeBoxStyle.Render(renderEdges(f.Edges)),
		))
	}
	b.WriteString("\n")

	if m.message != "" {
		style := infoStyle
		if m.errMsg {
			style = errorStyle
		}
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func renderEdges(edges []router.Edge) string {
	if len(edges) == 0 {
		return "no edges"
	}
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		line := fmt.Sprintf("%s → %s  %s", endpoint(e.Source), endpoint(e.Target), e.Label)
		if e.Style != "" {
			line += " (" + string(e.Style) + ")"
		}
		if e.Busy {
			line += " …"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func endpoint(ep router.Endpoint) string {
	if ep.ViaGroup != "" {
		return ep.ViaGroup + "/" + ep.AssetID
	}
	return ep.AssetID
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal canvas over the seeded diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s, err := openSession(ctx, sessionOptions{quiet: true})
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := newModel(ctx, s.engine)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
