package dbgcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var statusCount int

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupDiag,
	Short:   "Attach demo sessions and print the manager's aggregate state",
	Long: `status attaches --count demo sessions, waits for them to connect, and
prints IsDebugging/IsRunning/DebugTags plus every tracked process and
engine (spec.md §4.3, §4.6, §4.7). Pass --json for machine-readable
output.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusCount, "count", 2, "number of demo sessions to attach before reporting")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, statusCount, engine.StartAttach); err != nil {
		return err
	}

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
