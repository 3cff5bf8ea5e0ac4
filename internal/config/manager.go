package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current configuration and swaps it when the file on
// disk changes. Invalid edits are logged and the previous config is kept.
type Manager struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
	onReload []func(*Config)
}

// NewManager loads path, or the default location when path is empty.
func NewManager(path string) (*Manager, error) {
	log.Printf("Config manager: initializing configuration system...")

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
		if _, err := Load(); err != nil {
			log.Printf("Config manager: failed to load initial configuration: %v", err)
			return nil, err
		}
	}

	config, err := LoadFile(path)
	if err != nil {
		log.Printf("Config manager: failed to load initial configuration: %v", err)
		return nil, err
	}

	log.Printf("Config manager: validating initial configuration...")
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		path:   path,
		config: config,
	}

	log.Printf("Config manager: initialization completed successfully")
	return m, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnReload registers fn to run after each successful reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.onReload = append(m.onReload, fn)
	m.mu.Unlock()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	m.watcher = watcher

	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Printf("Config manager: watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Printf("Config manager: file change detected: %s. Reloading config...", event.Name)
				m.reloadConfig()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reloadConfig() {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		log.Printf("Config manager: failed to reload config: %v", err)
		return
	}

	if err := newConfig.Validate(); err != nil {
		log.Printf("Config manager: invalid config after reload: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	hooks := append([]func(*Config){}, m.onReload...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(newConfig)
	}

	log.Printf("Config manager: configuration successfully reloaded")
}
