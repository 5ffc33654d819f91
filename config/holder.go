package config

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDebounce coalesces the bursts of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Holder provides thread-safe access to the current configuration and
// reloads it from disk on file changes or SIGHUP.
type Holder struct {
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	current   *Config
	raw       []byte // file content current was parsed from
	listeners []func(*Config)

	reloadMu sync.Mutex
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the configuration at path.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	raw, cfg, err := loadFile(absPath)
	if err != nil {
		return nil, err
	}

	return &Holder{
		path:    absPath,
		logger:  logger.With().Str("config", absPath).Logger(),
		current: cfg,
		raw:     raw,
		stopCh:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched file.
func (h *Holder) Path() string {
	return h.path
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnChange registers fn to run after every successful reload.
// Listeners run sequentially on the reloading goroutine.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the file. An invalid file leaves the current
// configuration in place; an unchanged file is a no-op.
func (h *Holder) Reload() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	raw, next, err := loadFile(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping current config")
		return err
	}

	h.mu.Lock()
	if bytes.Equal(raw, h.raw) {
		h.mu.Unlock()
		h.logger.Debug().Msg("config file unchanged")
		return nil
	}
	prev := h.current
	h.current, h.raw = next, raw
	listeners := append([]func(*Config){}, h.listeners...)
	h.mu.Unlock()

	h.logChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}

	h.logger.Info().Msg("configuration reloaded")
	return nil
}

// WatchFile reloads whenever the file is written or replaced.
// The parent directory is watched so atomic renames are seen.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()
	h.logger.Info().Msg("watching config file for changes")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP")
				h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. Safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	name := filepath.Base(h.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			h.Reload()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(prev, next *Config) {
	ev := h.logger.Info()
	if prev.Service.Name != next.Service.Name {
		ev = ev.Str("service", next.Service.Name)
	}
	if prev.Logging.Level != next.Logging.Level {
		ev = ev.Str("log_level", next.Logging.Level)
	}
	if prev.Gateway.HideErrorDetails != next.Gateway.HideErrorDetails {
		ev = ev.Bool("hide_error_details", next.Gateway.HideErrorDetails)
	}
	ev.Int("versions", len(next.Service.Versions)).
		Int("modules", next.Service.ModuleCount()).
		Msg("config changed")
}

// ReloadableFields returns which fields take effect on reload.
func ReloadableFields() []string {
	return []string{
		"service.name",
		"service.documentation_url",
		"service.versions",
		"gateway.hide_error_details",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"service.base_path",
		"auth.mode",
		"request_log.mode",
		"database.dsn",
		"metrics.enabled",
		"metrics.path",
	}
}

// RestartRequired lists the non-reloadable fields that differ between prev and next.
func RestartRequired(prev, next *Config) []string {
	changed := []bool{
		prev.Server.Host != next.Server.Host,
		prev.Server.Port != next.Server.Port,
		prev.Service.BasePath != next.Service.BasePath,
		prev.Auth.Mode != next.Auth.Mode,
		prev.RequestLog.Mode != next.RequestLog.Mode,
		prev.Database.DSN != next.Database.DSN,
		prev.Metrics.Enabled != next.Metrics.Enabled,
		prev.Metrics.Path != next.Metrics.Path,
	}
	var out []string
	for i, field := range NonReloadableFields() {
		if changed[i] {
			out = append(out, field)
		}
	}
	return out
}
