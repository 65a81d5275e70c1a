// Package ctl implements the main window manager loop.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"

	"github.com/vhslib/vaporwm/internal/cfg"
	"github.com/vhslib/vaporwm/internal/panel"
	"github.com/vhslib/vaporwm/internal/spawn"
	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

// Controller owns every component of the window manager and routes events
// between them. It is the only goroutine that mutates window state.
type Controller struct {
	conf        *cfg.Profile
	profileName string
	profilePath string

	x       *x11.Client
	wm      *wm.Wm
	top     *panel.Top
	bottom  *panel.Bottom
	spawner *spawn.Spawner

	spawnBinds map[x11.Key]string
	watcher    *fsnotify.Watcher

	x11Events   <-chan xgb.Event
	x11Errors   <-chan error
	signals     <-chan os.Signal
	watchEvents <-chan fsnotify.Event
	watchErrors <-chan error
}

// Run creates a new controller with the given configuration profile and runs
// it until the window manager exits or fails.
func Run(conf *cfg.Profile, profileName string) error {
	defer log.Info().Msg("done")

	c := Controller{conf: conf, profileName: profileName}

	x, err := x11.NewClient()
	if err != nil {
		return fmt.Errorf("(init) create X client: %w", err)
	}
	defer x.Close()
	c.x = x

	if err = x.RegisterWm(); err != nil {
		if errors.Is(err, x11.ErrWmRunning) {
			return errors.New("(init) there is a window manager running already")
		}
		return fmt.Errorf("(init) register as window manager: %w", err)
	}
	x.SetCursor(x.RootWindow(), x.Cursors().LeftPtr)

	manager, err := wm.New(x, wm.LoadSession(wm.SessionPath()))
	if err != nil {
		return fmt.Errorf("(init) create window manager: %w", err)
	}
	c.wm = manager

	frame, err := panel.NewFrame(x)
	if err != nil {
		return fmt.Errorf("(init) create frame painter: %w", err)
	}
	c.top, err = panel.NewTop(x, manager)
	if err != nil {
		return fmt.Errorf("(init) create top panel: %w", err)
	}
	c.bottom, err = panel.NewBottom(x, manager)
	if err != nil {
		return fmt.Errorf("(init) create bottom panel: %w", err)
	}
	manager.Bind(c.top, c.bottom, frame)

	if err = c.grabKeys(); err != nil {
		return fmt.Errorf("(init) grab keys: %w", err)
	}
	c.spawner = spawn.New(c.spawnBinds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.x11Events, c.x11Errors, err = x.Poll(ctx)
	if err != nil {
		return fmt.Errorf("(init) X poll: %w", err)
	}

	signals := make(chan os.Signal, 8)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	c.signals = signals

	if err = c.watchConfig(); err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable, hot reload disabled")
	} else {
		defer c.watcher.Close()
		c.watchEvents = c.watcher.Events
		c.watchErrors = c.watcher.Errors
	}

	log.Info().Msg("ready")
	err = c.run()
	c.wm.Teardown()
	return err
}

// run runs the main loop for the controller.
func (c *Controller) run() error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case sig := <-c.signals:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			return nil
		case err, more := <-c.x11Errors:
			if !more {
				return x11.ErrConnectionDied
			}
			if errors.Is(err, x11.ErrConnectionDied) {
				return err
			}
			log.Error().Err(err).Msg("X error")
		case evt, more := <-c.x11Events:
			if !more {
				return x11.ErrConnectionDied
			}
			c.dispatch(evt)
			c.drainEvents()
			c.redraw()
		case <-ticker.C:
			c.redraw()
		case evt, more := <-c.watchEvents:
			if !more {
				c.watchEvents = nil
				continue
			}
			c.handleConfigEvent(evt)
		case err, more := <-c.watchErrors:
			if !more {
				c.watchErrors = nil
				continue
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

// dispatch routes a single event through every component that may care
// about it.
func (c *Controller) dispatch(evt xgb.Event) {
	c.wm.HandleEvent(evt)
	c.top.HandleEvent(evt)
	c.bottom.HandleEvent(evt)
	c.spawner.HandleEvent(evt)
}

// drainEvents handles any further events that are already queued so that a
// burst of events results in a single redraw pass.
func (c *Controller) drainEvents() {
	for {
		select {
		case evt, more := <-c.x11Events:
			if !more {
				return
			}
			c.dispatch(evt)
		default:
			return
		}
	}
}

func (c *Controller) redraw() {
	c.top.RequestRedraw()
	c.bottom.RequestRedraw()
	c.wm.RequestRedraw()
}

// grabKeys installs the window management binds and the user's spawn binds
// on the root window.
func (c *Controller) grabKeys() error {
	root := c.x.RootWindow()
	for _, key := range fixedKeys() {
		if err := c.x.GrabKey(key, root); err != nil {
			return fmt.Errorf("grab %s: %w", key, err)
		}
	}
	c.grabSpawnKeys(c.conf.Spawn)
	return nil
}

// grabSpawnKeys installs grabs for the given spawn binds and records them as
// the active set. Binds that shadow a window management key are dropped and
// grab conflicts with other clients are logged rather than treated as fatal.
func (c *Controller) grabSpawnKeys(binds map[x11.Key]string) {
	reserved := make(map[x11.Key]bool)
	for _, key := range fixedKeys() {
		reserved[key] = true
	}
	root := c.x.RootWindow()
	for bind := range binds {
		if reserved[bind] {
			log.Warn().Stringer("bind", bind).Msg("spawn bind shadows a window management key, ignoring")
			delete(binds, bind)
			continue
		}
		if err := c.x.GrabKey(bind, root); err != nil {
			log.Warn().Err(err).Stringer("bind", bind).Msg("failed to grab spawn bind")
		}
	}
	c.spawnBinds = binds
}

func (c *Controller) ungrabSpawnKeys() {
	root := c.x.RootWindow()
	for bind := range c.spawnBinds {
		if err := c.x.UngrabKey(bind, root); err != nil {
			log.Debug().Err(err).Stringer("bind", bind).Msg("failed to ungrab spawn bind")
		}
	}
}

// watchConfig starts watching the directory containing the active profile so
// that spawn bind edits apply without a restart. The directory is watched
// rather than the file itself to survive editors that replace the file on
// save.
func (c *Controller) watchConfig() error {
	path, err := cfg.GetPath(c.profileName)
	if err != nil {
		return err
	}
	c.profilePath = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(filepath.Dir(c.profilePath)); err != nil {
		watcher.Close()
		return err
	}
	c.watcher = watcher
	return nil
}

func (c *Controller) handleConfigEvent(evt fsnotify.Event) {
	if filepath.Clean(evt.Name) != c.profilePath {
		return
	}
	switch evt.Op {
	case fsnotify.Write, fsnotify.Create:
		c.reloadConfig()
	}
}

// reloadConfig re-reads the active profile and swaps in its spawn table. A
// profile that fails to parse leaves the previous table in place.
func (c *Controller) reloadConfig() {
	profile, err := cfg.GetProfile(c.profileName)
	if err != nil {
		log.Warn().Err(err).Msg("config reload failed, keeping previous binds")
		return
	}
	c.ungrabSpawnKeys()
	c.grabSpawnKeys(profile.Spawn)
	c.spawner.SetBinds(c.spawnBinds)
	log.Info().Int("spawn_binds", len(c.spawnBinds)).Msg("config reloaded")
}

// fixedKeys returns the window management keybinds. These are not
// configurable.
func fixedKeys() []x11.Key {
	keys := []x11.Key{
		{Code: x11.KeyEscape, Mod: x11.Mod4},
		{Code: x11.KeyLeft, Mod: x11.Mod4},
		{Code: x11.KeyRight, Mod: x11.Mod4},
		{Code: x11.KeyX, Mod: x11.Mod4},
		{Code: x11.KeyM, Mod: x11.Mod4},
	}
	for _, code := range []xproto.Keycode{x11.KeyJ, x11.KeyK} {
		keys = append(keys,
			x11.Key{Code: code, Mod: x11.Mod4},
			x11.Key{Code: code, Mod: x11.Mod4 | x11.ModShift},
		)
	}
	for i := 0; i < wm.WorkspaceCount; i++ {
		code := x11.Key1 + xproto.Keycode(i)
		keys = append(keys,
			x11.Key{Code: code, Mod: x11.Mod4},
			x11.Key{Code: code, Mod: x11.Mod4 | x11.ModShift},
		)
	}
	return keys
}
