// Package dbgconfig loads the manager's user-facing settings from a TOML
// file, via BurntSushi/toml — the teacher pack's TOML library (used
// elsewhere in the corpus for structured config), since the original
// repo has no config format of its own to follow.
package dbgconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings is the subset of user-facing settings the manager consults
// directly (spec.md §4.5, §4.6, §4.7):
//   - IgnoreBreakInstructions gates the ProgramBreak force-pause rule.
//   - BreakAllProcesses makes every onEnginePaused initiate a BreakAll
//     fence.
//   - DelayedIsRunningQuiescenceMillis is the debounce window for
//     DelayedIsRunningChanged.
type Settings struct {
	IgnoreBreakInstructions          bool  `toml:"ignore_break_instructions"`
	BreakAllProcesses                bool  `toml:"break_all_processes"`
	DelayedIsRunningQuiescenceMillis int64 `toml:"delayed_is_running_quiescence_ms"`
}

// DefaultQuiescence is used when a settings file omits the field or sets
// it to zero.
const DefaultQuiescence = 300 * time.Millisecond

// Default returns the settings the manager runs with when no config
// file is present.
func Default() Settings {
	return Settings{
		DelayedIsRunningQuiescenceMillis: int64(DefaultQuiescence / time.Millisecond),
	}
}

// Quiescence returns the configured debounce window as a time.Duration.
func (s Settings) Quiescence() time.Duration {
	if s.DelayedIsRunningQuiescenceMillis <= 0 {
		return DefaultQuiescence
	}
	return time.Duration(s.DelayedIsRunningQuiescenceMillis) * time.Millisecond
}

// Load reads settings from a TOML file at path, layering them over
// Default. A missing file is not an error: it just yields Default().
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	if _, err := toml.DecodeFile(path, &s); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("dbgconfig: decoding %s: %w", path, err)
	}
	return s, nil
}
