package dbgcmd

import "github.com/spf13/cobra"

// version is set at build time via -ldflags, matching the teacher's
// internal/version package convention; it defaults to "dev" for
// unreleased builds.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Print the dbgctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
