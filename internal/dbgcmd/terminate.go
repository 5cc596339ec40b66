package dbgcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var terminateCount int

var terminateCmd = &cobra.Command{
	Use:     "terminate",
	GroupID: GroupControl,
	Short:   "Attach demo sessions, then TerminateAll and print the resulting state",
	Long: `terminate attaches --count demo sessions as launched (spec.md §6), waits
for them to connect, then calls TerminateAll unconditionally (spec.md
§4.6) and waits for IsDebugging to go false before printing the final
state.`,
	RunE: runTerminate,
}

func init() {
	terminateCmd.Flags().IntVar(&terminateCount, "count", 1, "number of demo sessions to attach and terminate")
	rootCmd.AddCommand(terminateCmd)
}

func runTerminate(cmd *cobra.Command, args []string) error {
	if terminateCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, terminateCount, engine.StartLaunch); err != nil {
		return err
	}

	s.mgr.TerminateAll()
	if !waitForIsDebugging(s, false, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for TerminateAll to disconnect every session")
	}
	time.Sleep(waitBriefly)

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
