package wm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// SessionState is the snapshot written before a soft restart and read back
// by the next instance.
type SessionState struct {
	Workspaces           [WorkspaceCount]SessionWorkspace `json:"workspaces"`
	ActiveWorkspaceIndex int                              `json:"active_workspace_index"`
}

// SessionWorkspace holds one workspace's stack in order plus the tasklist
// as window ids.
type SessionWorkspace struct {
	Stack    []SessionClient `json:"stack"`
	Tasklist []uint32        `json:"tasklist"`
}

// SessionClient records everything needed to re-adopt a window with its
// placement intact.
type SessionClient struct {
	ID        uint32 `json:"id"`
	X         int16  `json:"x"`
	Y         int16  `json:"y"`
	Width     uint16 `json:"width"`
	Height    uint16 `json:"height"`
	Maximized bool   `json:"maximized"`
}

// SessionPath returns the session file for the current display, one file
// per display so parallel X sessions do not clobber each other.
func SessionPath() string {
	return fmt.Sprintf("/tmp/vaporwm%s.json", os.Getenv("DISPLAY"))
}

// ReadSession reads and decodes the session file at the given path.
func ReadSession(path string) (SessionState, error) {
	var state SessionState
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionState{}, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return SessionState{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

// LoadSession reads the session file. A missing or corrupt file yields an
// empty state; prior sessions are best effort, never required.
func LoadSession(path string) SessionState {
	state, err := ReadSession(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("discarding unreadable session file")
		}
		return SessionState{}
	}
	return state
}

// SaveSession writes the snapshot through a temporary file and renames it
// into place, so a crash mid-write never leaves a truncated session behind.
func SaveSession(state SessionState, path string) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "vaporwm-*.json")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Snapshot captures the full workspace state for serialization.
func (w *Wm) Snapshot() SessionState {
	state := SessionState{ActiveWorkspaceIndex: w.active}
	for i := range w.workspaces {
		ws := &w.workspaces[i]
		out := &state.Workspaces[i]
		for _, c := range ws.stack {
			out.Stack = append(out.Stack, SessionClient{
				ID:        uint32(c.id),
				X:         c.x,
				Y:         c.y,
				Width:     c.width,
				Height:    c.height,
				Maximized: c.maximized,
			})
		}
		for _, c := range ws.tasklist {
			out.Tasklist = append(out.Tasklist, uint32(c.id))
		}
	}
	return state
}

// saveAndRestart persists the session and replaces the process image with a
// fresh invocation. The exec only happens after the snapshot is durably in
// place; a failed save leaves the current instance running.
func (w *Wm) saveAndRestart() {
	path := SessionPath()
	if err := SaveSession(w.Snapshot(), path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("session save failed, not restarting")
		return
	}
	exe, err := os.Executable()
	if err != nil {
		log.Error().Err(err).Msg("cannot resolve own executable, not restarting")
		return
	}
	log.Info().Str("path", path).Msg("restarting")
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Error().Err(err).Msg("exec failed")
	}
}
