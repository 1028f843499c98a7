package core

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a config file whenever it is written and hands the
// parsed result to every subscriber. Invalid files are logged and skipped.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher

	mutex       sync.RWMutex
	subscribers []func(*Config)
	current     *Config

	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		LogError(err.Error())
		return nil, err
	}
	// Watch the directory: editors replace files instead of writing them in place.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		_ = fsWatch.Close()
		LogError(err.Error())
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     filepath.Clean(path),
		fsnotify: fsWatch,
		current:  cfg,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.start()
	return cw, nil
}

// Current returns the last successfully parsed configuration.
func (cw *ConfigWatcher) Current() *Config {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.current
}

// Subscribe registers fn to be called with every reloaded configuration.
func (cw *ConfigWatcher) Subscribe(fn func(*Config)) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	cw.subscribers = append(cw.subscribers, fn)
}

func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	if cw.isClosed {
		cw.mutex.Unlock()
		return errors.New("config watcher already closed")
	}
	cw.isClosed = true
	cw.mutex.Unlock()

	close(cw.done)
	err := cw.fsnotify.Close()
	cw.wg.Wait()
	return err
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cw.reload()
		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err)
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		LogWarn("config %s not reloaded: %s", cw.path, err)
		return
	}
	SetLogLevel(cfg.LogLevel)

	cw.mutex.Lock()
	cw.current = cfg
	subs := make([]func(*Config), len(cw.subscribers))
	copy(subs, cw.subscribers)
	cw.mutex.Unlock()

	LogInfo("config %s reloaded", cw.path)
	for _, fn := range subs {
		fn(cfg)
	}
}
