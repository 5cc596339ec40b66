package dbgcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

var runCount int

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: GroupControl,
	Short:   "Attach demo sessions, break them, then RunAll and print the running state",
	Long: `run demonstrates the full pause/resume round trip (spec.md §4.6): it
attaches --count demo sessions, BreakAlls them, waits for IsRunning to
settle at false, then RunAlls them and waits for IsRunning to return to
true before printing the resulting state.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runCount, "count", 2, "number of demo sessions to attach, break, and resume")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, runCount, engine.StartAttach); err != nil {
		return err
	}

	s.mgr.BreakAll()
	if !waitForIsRunning(s, events.RunFalse, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for BreakAll to pause every session")
	}

	s.mgr.RunAll()
	if !waitForIsRunning(s, events.RunTrue, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for RunAll to resume every session")
	}

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
