package dbgcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var stopCmd = &cobra.Command{
	Use:     "stop",
	GroupID: GroupControl,
	Short:   "Attach one attached and one launched demo session, then StopDebuggingAll",
	Long: `stop demonstrates StopDebuggingAll's per-engine detach-or-terminate
decision (spec.md §4.6): it attaches one StartAttach and one StartLaunch
demo session, waits for both to connect, calls StopDebuggingAll, waits
for IsDebugging to go false, and prints the resulting state.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, 1, engine.StartAttach); err != nil {
		return err
	}
	if err := startDemoSessions(s, 1, engine.StartLaunch); err != nil {
		return err
	}

	s.mgr.StopDebuggingAll()
	if !waitForIsDebugging(s, false, startTimeout) {
		return fmt.Errorf("dbgctl: timed out waiting for StopDebuggingAll to disconnect every session")
	}
	time.Sleep(waitBriefly)

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
