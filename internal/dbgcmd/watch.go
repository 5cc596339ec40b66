package dbgcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
	"github.com/PinkuburuCC/dbgmgr/internal/manager"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupDiag,
	Short:   "Attach demo sessions and render their live state as a TUI",
	Long: `watch attaches --count demo sessions and subscribes to the manager's
event stream (spec.md §6 "Events"), rendering a live engine table
(bubbles table.Model, lipgloss-styled). Press "b"/"r" to BreakAll/RunAll,
the arrow keys to move the row cursor, "q" to quit. On a non-interactive terminal it
falls back to a single text status dump, grounded on the teacher's
x/term.IsTerminal detection alongside bubbletea.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchCount, "count", 2, "number of demo sessions to attach and watch")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, watchCount, engine.StartAttach); err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return printStatus(cmd.OutOrStdout(), s.mgr)
	}

	m := newWatchModel(s.mgr)
	p := tea.NewProgram(m, tea.WithAltScreen())
	unsub := s.mgr.Subscribe(func(ev events.Event) {
		p.Send(watchEventMsg{ev})
	})
	defer unsub()

	_, err = p.Run()
	return err
}

// watchEventMsg wraps a manager event as a bubbletea message so Update
// can react to it on the TUI's own goroutine (grounded on the teacher's
// internal/tui/feed.eventMsg pattern of forwarding a channel event into
// bubbletea via Program.Send).
type watchEventMsg struct{ ev events.Event }

// watchModel is the bubbletea model driving `dbgctl watch`.
type watchModel struct {
	mgr   *manager.Manager
	table table.Model

	lastDetail string
	width      int
	height     int
}

func newWatchModel(mgr *manager.Manager) *watchModel {
	columns := []table.Column{
		{Title: "PID", Width: 8},
		{Title: "Runtime", Width: 10},
		{Title: "State", Width: 10},
		{Title: "Kind", Width: 8},
		{Title: "Tags", Width: 20},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(10))

	style := table.DefaultStyles()
	style.Header = style.Header.BorderStyle(lipgloss.NormalBorder()).Bold(true)
	style.Selected = style.Selected.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	t.SetStyles(style)

	m := &watchModel{mgr: mgr, table: t}
	m.refreshRows()
	return m
}

func (m *watchModel) Init() tea.Cmd {
	return tea.SetWindowTitle("dbgctl watch")
}

func (m *watchModel) refreshRows() {
	engines := m.mgr.Engines()
	rows := make([]table.Row, len(engines))
	for i, e := range engines {
		rows[i] = table.Row{
			fmt.Sprintf("%d", e.ProcessID),
			shortID(e.RuntimeID),
			e.State.String(),
			e.StartKind.String(),
			strings.Join(e.DebugTags, ","),
		}
	}
	m.table.SetRows(rows)
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
	case watchEventMsg:
		m.refreshRows()
		if exMsg, ok := msg.ev.(*events.Message); ok && exMsg.Kind == events.MessageExceptionThrown {
			m.lastDetail = fmt.Sprintf("**exception** on pid %d: %s", exMsg.ProcessID, exMsg.Text)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "b":
			m.mgr.BreakAll()
		case "r":
			m.mgr.RunAll()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("dbgctl watch") + "  (b=breakAll r=runAll q=quit)\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("running: %s   debugging: %v\n", colorizeRunState(m.mgr.IsRunning().String()), m.mgr.IsDebugging()))

	if m.lastDetail != "" {
		rendered, err := glamour.Render(m.lastDetail, "dark")
		if err == nil {
			b.WriteString(rendered)
		} else {
			b.WriteString(m.lastDetail + "\n")
		}
	}
	return b.String()
}
