// dbgctl is the Debug Session Manager CLI.
package main

import (
	"os"

	"github.com/PinkuburuCC/dbgmgr/internal/dbgcmd"
)

func main() {
	os.Exit(dbgcmd.Execute())
}
