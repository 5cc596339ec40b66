package dbgcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/PinkuburuCC/dbgmgr/internal/events"
	"github.com/PinkuburuCC/dbgmgr/internal/manager"
)

// colorEnabled mirrors lipgloss's own profile detection but is queried
// directly so printStatus can skip ANSI codes entirely on a dumb
// terminal or when output is piped (e.g. into `less` or a log file),
// rather than emitting escape sequences a non-color consumer would have
// to strip itself.
func colorEnabled() bool {
	return termenv.ColorProfile() != termenv.Ascii
}

// styles mirrors the teacher's internal/style package in spirit (a
// handful of named lipgloss styles reused across commands) rather than
// its exact API, since only its test file — not its source — made it
// into the retrieval pack.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// statusReport is the JSON shape for --json output, and the source data
// for the text table.
type statusReport struct {
	IsDebugging bool             `json:"is_debugging"`
	IsRunning   string           `json:"is_running"`
	DebugTags   []string         `json:"debug_tags"`
	Processes   []processReport  `json:"processes"`
	Engines     []engineReport   `json:"engines"`
}

type processReport struct {
	PID      int    `json:"pid"`
	State    string `json:"state"`
	Runtimes int    `json:"runtimes"`
}

type engineReport struct {
	ProcessID int    `json:"process_id"`
	RuntimeID string `json:"runtime_id"`
	State     string `json:"state"`
	StartKind string `json:"start_kind"`
	DebugTags []string `json:"debug_tags"`
}

func buildStatusReport(mgr *manager.Manager) statusReport {
	procs := mgr.Processes()
	procReports := make([]processReport, len(procs))
	for i, p := range procs {
		procReports[i] = processReport{PID: p.ID, State: p.State.String(), Runtimes: p.RuntimeCount()}
	}

	engines := mgr.Engines()
	engReports := make([]engineReport, len(engines))
	for i, e := range engines {
		engReports[i] = engineReport{
			ProcessID: e.ProcessID,
			RuntimeID: e.RuntimeID,
			State:     e.State.String(),
			StartKind: e.StartKind.String(),
			DebugTags: e.DebugTags,
		}
	}

	return statusReport{
		IsDebugging: mgr.IsDebugging(),
		IsRunning:   mgr.IsRunning().String(),
		DebugTags:   mgr.DebugTags(),
		Processes:   procReports,
		Engines:     engReports,
	}
}

// printStatus writes either the JSON or the text rendering of mgr's
// current state to w, depending on the --json persistent flag.
func printStatus(w io.Writer, mgr *manager.Manager) error {
	report := buildStatusReport(mgr)
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%s %v   %s %s\n",
		headerStyle.Render("debugging:"), report.IsDebugging,
		headerStyle.Render("running:"), colorizeRunState(report.IsRunning))
	if len(report.DebugTags) > 0 {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("tags:"), strings.Join(report.DebugTags, ", "))
	}

	fmt.Fprintln(w, headerStyle.Render("\nprocesses:"))
	for _, p := range report.Processes {
		fmt.Fprintf(w, "  pid=%-8d state=%-10s runtimes=%d\n", p.PID, colorizeState(p.State), p.Runtimes)
	}

	fmt.Fprintln(w, headerStyle.Render("\nengines:"))
	for _, e := range report.Engines {
		fmt.Fprintf(w, "  pid=%-8d runtime=%-10s state=%-10s kind=%-8s tags=%s\n",
			e.ProcessID, shortID(e.RuntimeID), colorizeState(e.State), e.StartKind, strings.Join(e.DebugTags, ","))
	}
	return nil
}

func colorizeRunState(s string) string {
	if !colorEnabled() {
		return s
	}
	switch s {
	case events.RunTrue.String():
		return runningStyle.Render(s)
	case events.RunPartial.String():
		return pausedStyle.Render(s)
	default:
		return deadStyle.Render(s)
	}
}

func colorizeState(s string) string {
	if !colorEnabled() {
		return s
	}
	switch s {
	case "paused":
		return pausedStyle.Render(s)
	case "running", "starting":
		return runningStyle.Render(s)
	default:
		return deadStyle.Render(s)
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
