package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"futures-monitor/internal/engine"
	"futures-monitor/internal/paginate"
	"futures-monitor/internal/present"
	"futures-monitor/internal/render"
)

type event struct {
	snap *engine.Snapshot
	err  error
}

type updateMsg event

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	headingStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	metricStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 2)
	metricLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tabStyle         = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("39"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type model struct {
	loc      *present.Locale
	pageSize int
	pages    *paginate.State
	updateCh <-chan event
	onQuit   func()

	idle    bool
	snap    *engine.Snapshot
	failure string
	active  int
	// height is the terminal height; zero until the first WindowSizeMsg.
	height int
}

func newModel(updateCh <-chan event, loc *present.Locale, pageSize int, idle bool, onQuit func()) model {
	return model{
		loc:      loc,
		pageSize: pageSize,
		pages:    paginate.NewState(),
		updateCh: updateCh,
		onQuit:   onQuit,
		idle:     idle,
	}
}

func (m model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		case "tab":
			m.active = (m.active + 1) % 3
		case "shift+tab":
			m.active = (m.active + 2) % 3
		case "right", "l":
			if table, ok := m.activeTable(); ok {
				page := m.pages.Paginate(table, m.pageSize)
				m.pages.Next(table.Key, page.Total)
			}
		case "left", "h":
			if table, ok := m.activeTable(); ok {
				page := m.pages.Paginate(table, m.pageSize)
				m.pages.Prev(table.Key, page.Total)
			}
		}
		return m, nil
	case updateMsg:
		if msg.err != nil {
			m.failure = present.FailureMessage(msg.err, m.loc)
			return m, nil
		}
		if msg.snap != nil {
			m.idle = false
			m.snap = msg.snap
		}
		return m, m.waitForUpdate()
	}
	return m, nil
}

func (m model) activeTable() (present.Table, bool) {
	if m.snap == nil {
		return present.Table{}, false
	}
	return m.tables()[m.active], true
}

func (m model) tables() []present.Table {
	return []present.Table{m.snap.Positions, m.snap.Orders, m.snap.Trades}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.loc.Title) + "\n\n")

	if m.idle && m.snap == nil {
		b.WriteString(warnStyle.Render(m.loc.IdleHint) + "\n")
		return b.String()
	}
	if m.failure != "" {
		b.WriteString(errorStyle.Render(m.failure) + "\n")
		b.WriteString(hintStyle.Render(m.loc.StoppedHint) + "\n")
		if m.snap == nil {
			return b.String()
		}
		b.WriteString("\n")
	}
	if m.snap == nil {
		return b.String() + hintStyle.Render("...") + "\n"
	}

	b.WriteString(headingStyle.Render(m.loc.AccountHeading) + "\n")
	boxes := make([]string, 0, len(m.snap.Account.Metrics))
	for _, metric := range m.snap.Account.Metrics {
		boxes = append(boxes, metricStyle.Render(metricLabelStyle.Render(metric.Label)+"\n"+metric.Value))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...) + "\n\n")

	footer := m.loc.Sprintf(m.loc.RefreshedFmt, present.FormatTime(m.snap.RefreshedAt, m.snap.RefreshedAt.Location())) + "\n" +
		hintStyle.Render(m.loc.KeysHint) + "\n"

	// All three tables are stacked when they fit; a short terminal gets
	// one table at a time behind tabs.
	stacked := b.String() + m.stackedTables() + footer
	if m.height == 0 || lipgloss.Height(stacked) <= m.height {
		return stacked
	}
	return b.String() + m.tabbedTable() + footer
}

func (m model) stackedTables() string {
	var b strings.Builder
	for i, table := range m.tables() {
		style := headingStyle
		if i == m.active {
			style = activeTabStyle
		}
		b.WriteString(m.tableBlock(table, style))
	}
	return b.String()
}

func (m model) tabbedTable() string {
	var b strings.Builder
	tables := m.tables()
	tabs := make([]string, 0, len(tables))
	for i, table := range tables {
		style := tabStyle
		if i == m.active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%s (%d)", table.Label, len(table.Rows))))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")
	b.WriteString(m.tableBlock(tables[m.active], headingStyle))
	return b.String()
}

func (m model) tableBlock(table present.Table, heading lipgloss.Style) string {
	var b strings.Builder
	page := m.pages.Paginate(table, m.pageSize)
	b.WriteString(heading.Render(table.Title) + "\n")
	if table.IsEmpty() {
		b.WriteString(warnStyle.Render(table.Empty) + "\n")
	} else {
		b.WriteString(render.TableString(table, page))
	}
	if line := render.PageLine(table, page, m.loc); line != "" {
		b.WriteString(hintStyle.Render(line) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// waitForUpdate delivers the newest pending event, dropping stale snapshots.
func (m model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.updateCh
		if !ok {
			return nil
		}
		for {
			if ev.err != nil {
				return updateMsg(ev)
			}
			select {
			case latest, ok := <-m.updateCh:
				if !ok {
					return updateMsg(ev)
				}
				ev = latest
			default:
				return updateMsg(ev)
			}
		}
	}
}
