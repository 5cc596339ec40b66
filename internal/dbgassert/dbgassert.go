// Package dbgassert guards the internal invariants spec.md §7 calls
// "Configuration / programmer" errors: recursive start, closing a nil
// object, an unknown engine message, an unknown engine. These are raised
// as fatal assertions — abort in a strict/debug build, log and return
// otherwise — never as a panic that could take down a caller who merely
// raced the manager (spec.md §7: "The manager never panics on user
// input").
package dbgassert

import (
	"fmt"
	"os"

	"github.com/PinkuburuCC/dbgmgr/internal/dbglog"
)

var strict bool

// SetStrict controls whether Fatalf aborts the process. Intended to be
// wired to a startup flag or DBGMGR_STRICT_ASSERTS=1, the debug-build
// equivalent spec.md §7 describes.
func SetStrict(v bool) {
	strict = v
}

// Fatalf reports a violated internal invariant. It always logs; when
// strict mode is on it additionally terminates the process.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	dbglog.Component("assert").Error(msg)
	if strict {
		fmt.Fprintln(os.Stderr, "dbgmgr: fatal assertion: "+msg)
		os.Exit(1)
	}
}
