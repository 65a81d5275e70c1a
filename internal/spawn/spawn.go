// Package spawn launches user-configured helper programs on hotkeys.
package spawn

import (
	"os/exec"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"

	"github.com/vhslib/vaporwm/internal/x11"
)

// Spawner maps key bindings to shell commands. It watches the same event
// stream as the manager and reacts only to key presses that match a bind.
type Spawner struct {
	binds map[x11.Key]string
}

// New creates a spawner with the given bind table.
func New(binds map[x11.Key]string) *Spawner {
	return &Spawner{binds: binds}
}

// SetBinds replaces the bind table, for configuration reloads.
func (s *Spawner) SetBinds(binds map[x11.Key]string) {
	s.binds = binds
}

// HandleEvent spawns the command bound to a pressed key, if any.
func (s *Spawner) HandleEvent(evt xgb.Event) {
	press, ok := evt.(xproto.KeyPressEvent)
	if !ok {
		return
	}
	command, ok := s.command(press)
	if !ok {
		return
	}
	log.Debug().Str("command", command).Msg("spawning")
	go func() {
		// Output is discarded; spawned programs are on their own.
		cmd := exec.Command("/bin/sh", "-c", command)
		if err := cmd.Run(); err != nil {
			log.Error().Err(err).Str("command", command).Msg("spawned command failed")
		}
	}()
}

func (s *Spawner) command(evt xproto.KeyPressEvent) (string, bool) {
	bind := x11.Key{Code: evt.Detail, Mod: x11.Keymod(evt.State) & x11.ModRelevant}
	command, ok := s.binds[bind]
	return command, ok
}
