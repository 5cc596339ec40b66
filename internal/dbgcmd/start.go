package dbgcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var (
	startCount  int
	startLaunch bool
)

var startCmd = &cobra.Command{
	Use:     "start",
	GroupID: GroupSession,
	Short:   "Attach one or more demo debug sessions and print the resulting state",
	Long: `start attaches --count demo engines (spec.md §4.4), waits for each to
report Connected, then prints the manager's resulting state and exits.
There is no daemon: the sessions and the manager they belong to do not
outlive this process (spec.md §6 "Persisted state: none").`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&startCount, "count", 1, "number of demo sessions to attach")
	startCmd.Flags().BoolVar(&startLaunch, "launch", false, "mark sessions as launched rather than attached (affects StopDebugging/Restart behavior)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	if startCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	kind := engine.StartAttach
	if startLaunch {
		kind = engine.StartLaunch
	}
	if err := startDemoSessions(s, startCount, kind); err != nil {
		return err
	}

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
