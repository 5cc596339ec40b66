// Package dbgcmd provides the dbgctl CLI commands (SPEC_FULL.md §10),
// grounded on the teacher's internal/cmd: a root cobra.Command that
// delegates every subcommand to its own file, plus an Execute() that
// returns a process exit code for cmd/dbgctl/main.go to pass to os.Exit.
package dbgcmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dbgctl",
	Short: "Debug Session Manager CLI",
	Long: `dbgctl drives a Debug Session Manager: it attaches demo debug
engines, coordinates their run/break/detach/terminate lifecycle, and
renders the manager's live event stream.

Every subcommand runs its own short-lived manager — there is no daemon
and no persisted state (spec.md §6), matching the library's in-process,
no-persistence design.`,
	Version: version,
}

// Command group IDs, used by subcommands to organize help output
// (grounded on the teacher's GroupWork/GroupAgents/... scheme in
// internal/cmd/root.go).
const (
	GroupSession = "session"
	GroupControl = "control"
	GroupDiag    = "diag"
)

func init() {
	cobra.EnablePrefixMatching = true

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupSession, Title: "Session:"},
		&cobra.Group{ID: GroupControl, Title: "Control:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a dbgconfig TOML settings file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of text")
}

// configPath and jsonOutput are persistent flags every subcommand reads.
var (
	configPath string
	jsonOutput bool
)

// Execute runs the root command and returns an exit code; main should
// call os.Exit with it.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := IsSilentExit(err); ok {
			return code
		}
		return 1
	}
	return 0
}
