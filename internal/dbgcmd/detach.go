package dbgcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var detachCount int

var detachCmd = &cobra.Command{
	Use:     "detach",
	GroupID: GroupControl,
	Short:   "Attach demo sessions, then DetachAll and print the resulting state",
	Long: `detach attaches --count demo sessions as StartAttach (so CanDetach is
true), waits for them to connect, then calls DetachAll (spec.md §4.6)
and waits for IsDebugging to go false before printing the final state.`,
	RunE: runDetach,
}

func init() {
	detachCmd.Flags().IntVar(&detachCount, "count", 1, "number of demo sessions to attach and detach")
	rootCmd.AddCommand(detachCmd)
}

func runDetach(cmd *cobra.Command, args []string) error {
	if detachCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, detachCount, engine.StartAttach); err != nil {
		return err
	}
	if !s.mgr.CanDetachWithoutTerminating() {
		return fmt.Errorf("dbgctl: demo sessions unexpectedly refused CanDetachWithoutTerminating")
	}

	s.mgr.DetachAll()
	if !waitForIsDebugging(s, false, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for DetachAll to disconnect every session")
	}
	time.Sleep(waitBriefly)

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
