package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads configuration when files under the loader's directory
// change and notifies registered callbacks of the new value.
type Watcher struct {
	loader    *Loader
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	delay     time.Duration
	stopCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// NewWatcher starts watching the loader's directory.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(loader.BasePath()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.BasePath(), err)
	}

	w := &Watcher{
		loader:  loader,
		config:  initial,
		logger:  logger.Named("config_watcher"),
		watcher: fsWatcher,
		delay:   250 * time.Millisecond,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.watchLoop()

	w.logger.Info("configuration hot reloading enabled", zap.String("dir", loader.BasePath()))
	return w, nil
}

// OnChange registers a callback run after every successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.done
	})
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	// Editors write files in several steps; coalesce them into one reload.
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.delay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// reload keeps the previous configuration when the new one is invalid.
func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("configuration reload rejected", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.config = cfg
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded",
		zap.Strings("sources", cfg.LoadedFrom),
		zap.Int("callbacks_notified", len(callbacks)))

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("configuration callback panicked",
						zap.Int("callback_index", i),
						zap.Any("panic", r))
				}
			}()
			cb(cfg)
		}()
	}
}
