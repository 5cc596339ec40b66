package dbgcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

var breakCount int

var breakCmd = &cobra.Command{
	Use:     "break",
	GroupID: GroupControl,
	Short:   "Attach demo sessions, then BreakAll and print the paused state",
	Long: `break attaches --count demo sessions, waits for them to connect, then
calls BreakAll and waits for IsRunning to settle at false (spec.md §4.6,
§8 scenario 2) before printing the resulting state.`,
	RunE: runBreak,
}

func init() {
	breakCmd.Flags().IntVar(&breakCount, "count", 2, "number of demo sessions to attach and break")
	rootCmd.AddCommand(breakCmd)
}

func runBreak(cmd *cobra.Command, args []string) error {
	if breakCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, breakCount, engine.StartAttach); err != nil {
		return err
	}

	s.mgr.BreakAll()
	if !waitForIsRunning(s, events.RunFalse, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for BreakAll to pause every session")
	}

	return printStatus(cmd.OutOrStdout(), s.mgr)
}

// waitBriefly is a small grace period several subcommands give an
// async-posted control call before reporting state, since the manager
// never blocks the caller on its dispatcher (spec.md §4.1).
const waitBriefly = 150 * time.Millisecond
