package dbgcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

var restartCount int

var restartCmd = &cobra.Command{
	Use:     "restart",
	GroupID: GroupControl,
	Short:   "Attach demo sessions, then Restart and print the re-attached state",
	Long: `restart attaches --count launched demo sessions (spec.md §8 scenario 3),
waits for them to connect, then calls Restart: every engine is stopped
and a fresh demo session is started for each recorded restart option.
It polls until the engine count returns to --count before printing the
resulting state.`,
	RunE: runRestart,
}

func init() {
	restartCmd.Flags().IntVar(&restartCount, "count", 2, "number of demo sessions to attach and restart")
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
	if restartCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := startDemoSessions(s, restartCount, engine.StartLaunch); err != nil {
		return err
	}

	if ok, reason := s.mgr.CanRestart(); !ok {
		return fmt.Errorf("dbgctl: CanRestart refused immediately after attaching: %v", reason)
	}

	before := make(map[engine.RuntimeID]bool)
	for _, e := range s.mgr.Engines() {
		before[e.RuntimeID] = true
	}

	if err := s.mgr.Restart(); err != nil {
		return fmt.Errorf("dbgctl: Restart: %w", err)
	}

	deadline := time.Now().Add(startTimeout)
	for {
		engines := s.mgr.Engines()
		fresh := 0
		for _, e := range engines {
			if e.RuntimeID != "" && !before[e.RuntimeID] {
				fresh++
			}
		}
		if len(engines) == restartCount && fresh == restartCount {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("dbgctl: timed out waiting for Restart to re-attach %d session(s)", restartCount)
		}
		time.Sleep(10 * time.Millisecond)
	}

	return printStatus(cmd.OutOrStdout(), s.mgr)
}
