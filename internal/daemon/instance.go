package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/soundboard/internal/audio"
	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/control"
	"github.com/jmylchreest/soundboard/internal/dbus"
	"github.com/jmylchreest/soundboard/internal/hotkey"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/store"
)

// rescanDebounce is the quiet period after a directory change before the tab
// is rescanned.
const rescanDebounce = 200 * time.Millisecond

// Options configures an Instance.
type Options struct {
	ConfigPath string
	SocketPath string

	// EditOnly starts read-only without trying to bind the socket.
	EditOnly bool

	// Sink overrides the configured sink command.
	Sink audio.Sink

	// Notify overrides desktop notification delivery over the session bus.
	Notify SendFunc

	// DisableHotkeys skips the keyboard listener.
	DisableHotkeys bool

	// DisableWatchers skips the config and directory watchers.
	DisableWatchers bool
}

// Instance is one running soundboard.
type Instance struct {
	logger *slog.Logger
	opts   Options

	store    *store.Store
	manager  *audio.Manager
	keys     *hotkey.PressedSet
	router   *hotkey.Router
	listener *hotkey.Listener
	server   *control.Server
	notifier *Notifier

	dirs      *media.Watcher
	cfgWatch  *ConfigWatcher
	rescanMu  sync.Mutex
	rescans   map[string]*time.Timer
	stopped   bool
	stopOnce  sync.Once
	scans     sync.WaitGroup
	startOnce sync.Once
}

// New builds an instance around cfg. If cfg is nil it is loaded from
// opts.ConfigPath. When another instance already owns the socket the new one
// falls back to edit-only mode.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Instance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SocketPath == "" {
		opts.SocketPath = config.SocketPath()
	}
	if cfg == nil {
		var err error
		cfg, err = config.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	send := opts.Notify
	if send == nil {
		send = dbus.NewClient(logger).Notify
	}

	i := &Instance{
		logger:   logger,
		opts:     opts,
		store:    store.New(cfg, opts.ConfigPath, opts.EditOnly, logger),
		notifier: NewNotifier(send, logger),
		rescans:  make(map[string]*time.Timer),
	}

	if !opts.EditOnly {
		srv, err := control.Listen(opts.SocketPath, i, logger)
		switch {
		case errors.Is(err, control.ErrEndpointExists):
			logger.Warn("another instance owns the control socket, running edit-only", "path", opts.SocketPath)
			i.store.SetEditOnly(true)
			i.notifier.NotifyEditOnly(opts.SocketPath)
		case err != nil:
			return nil, err
		default:
			i.server = srv
		}
	}

	var sink audio.Sink
	switch {
	case i.store.EditOnly():
		sink = audio.NullSink{}
	case opts.Sink != nil:
		sink = opts.Sink
	default:
		sink = audio.NewProcessSink(cfg.Sink.Command, i.sinkArgs, logger)
	}

	engineOpts := audio.OptionsFromConfig(cfg)
	engineOpts.OnSinkFailure = i.notifier.NotifySinkFailure
	i.manager = audio.NewManager(i.store, sink, engineOpts, logger)

	i.keys = hotkey.NewPressedSet()
	i.router = hotkey.NewRouter(i.store, i.manager, i.keys, logger)
	i.router.SetStrategy(hotkey.StrategyFor(cfg.Hotkeys.Trigger))
	i.router.Rebuild()

	if !opts.DisableWatchers {
		dirs, err := media.NewWatcher(i.manager.Cache(), i.rescanLater, logger)
		if err != nil {
			logger.Warn("directory watcher unavailable", "error", err)
		} else {
			i.dirs = dirs
		}
		if opts.ConfigPath != "" {
			cw, err := NewConfigWatcher(opts.ConfigPath, logger)
			if err != nil {
				logger.Warn("config watcher unavailable", "error", err)
			} else {
				cw.SetReloadCallback(i.onConfigFileChanged)
				cw.SetErrorCallback(i.notifier.NotifyConfigError)
				i.cfgWatch = cw
			}
		}
	}

	return i, nil
}

func (i *Instance) sinkArgs(channels int) []string {
	var args []string
	i.store.View(func(cfg *config.Config) {
		args = cfg.SinkArgs(channels)
	})
	return args
}

// Store returns the shared state.
func (i *Instance) Store() *store.Store {
	return i.store
}

// Manager returns the audio engine.
func (i *Instance) Manager() *audio.Manager {
	return i.manager
}

// Router returns the hotkey router.
func (i *Instance) Router() *hotkey.Router {
	return i.router
}

// HotkeysActive reports whether the global key listener is running.
func (i *Instance) HotkeysActive() bool {
	return i.listener != nil
}

// Notifier returns the desktop notifier.
func (i *Instance) Notifier() *Notifier {
	return i.notifier
}

// SocketPath returns the control socket path, bound or not.
func (i *Instance) SocketPath() string {
	return i.opts.SocketPath
}

// Exited is closed when a client sends exit. It is nil for instances that
// do not own the socket.
func (i *Instance) Exited() <-chan struct{} {
	if i.server == nil {
		return nil
	}
	return i.server.Exited()
}

// Start launches every long-lived component and an initial scan of all tabs.
func (i *Instance) Start(ctx context.Context) {
	i.startOnce.Do(func() {
		i.manager.Start(ctx)
		if i.server != nil {
			i.server.Start(ctx)
		}

		if i.dirs != nil {
			i.dirs.Start()
		}
		if i.cfgWatch != nil {
			if err := i.cfgWatch.Start(); err != nil {
				i.logger.Warn("failed to watch config file", "path", i.opts.ConfigPath, "error", err)
			}
		}

		i.startHotkeys(ctx)

		i.scans.Add(1)
		go func() {
			defer i.scans.Done()
			i.RescanAll()
		}()

		i.logger.Info("soundboard started", "edit_only", i.store.EditOnly(), "socket", i.opts.SocketPath)
	})
}

func (i *Instance) startHotkeys(ctx context.Context) {
	var hk config.HotkeyConfig
	i.store.View(func(cfg *config.Config) { hk = cfg.Hotkeys })
	if i.opts.DisableHotkeys || !hk.Enabled {
		return
	}

	l := hotkey.NewListener(hk.Devices, i.router.Handle, i.logger)
	if err := l.Start(ctx); err != nil {
		if errors.Is(err, hotkey.ErrUnsupported) {
			i.logger.Debug("global hotkeys unsupported on this platform")
			return
		}
		i.logger.Warn("global hotkeys unavailable", "error", err)
		i.notifier.NotifyHotkeysUnavailable(err)
		return
	}
	i.listener = l
}

// Stop shuts every component down and waits for pending config writes.
func (i *Instance) Stop() {
	i.stopOnce.Do(func() {
		i.rescanMu.Lock()
		i.stopped = true
		for dir, t := range i.rescans {
			t.Stop()
			delete(i.rescans, dir)
		}
		i.rescanMu.Unlock()

		if i.server != nil {
			i.server.Stop()
		}
		if i.listener != nil {
			i.listener.Stop()
		}
		if i.cfgWatch != nil {
			_ = i.cfgWatch.Stop()
		}
		if i.dirs != nil {
			_ = i.dirs.Stop()
		}

		i.scans.Wait()
		i.manager.Stop()
		i.manager.Wait()
		i.store.Flush()
		i.logger.Info("soundboard stopped")
	})
}

// Run starts the instance and blocks until ctx is done or a client sends
// exit, then stops it.
func (i *Instance) Run(ctx context.Context) error {
	i.Start(ctx)
	defer i.Stop()

	select {
	case <-ctx.Done():
	case <-i.Exited():
	}
	return nil
}

// ApplyConfig swaps in cfg: play state of the old entities is cleared,
// bindings are rebuilt and every tab is rescanned in the background.
func (i *Instance) ApplyConfig(cfg *config.Config) {
	old := i.store.ReplaceConfig(cfg)
	i.manager.UpdateConfig(old, cfg)
	i.router.SetStrategy(hotkey.StrategyFor(cfg.Hotkeys.Trigger))
	i.router.Rebuild()

	i.rescanMu.Lock()
	defer i.rescanMu.Unlock()
	if i.stopped {
		return
	}
	i.scans.Add(1)
	go func() {
		defer i.scans.Done()
		i.RescanAll()
	}()
}

// Reload re-reads the config file and applies it.
func (i *Instance) Reload() error {
	cfg, err := config.LoadConfig(i.store.ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	i.ApplyConfig(cfg)
	return nil
}

// onConfigFileChanged applies an externally edited config. Writes that only
// echo the in-memory state back are ignored.
func (i *Instance) onConfigFileChanged(cfg *config.Config) {
	next, err := cfg.Marshal()
	if err != nil {
		return
	}
	var cur []byte
	i.store.View(func(c *config.Config) {
		cur, err = c.Marshal()
	})
	if err == nil && string(cur) == string(next) {
		i.logger.Debug("config file matches running config")
		return
	}

	i.ApplyConfig(cfg)
	i.notifier.NotifyConfigReloaded()
	i.logger.Info("config reloaded from disk", "path", i.opts.ConfigPath)
}
