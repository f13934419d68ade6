package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"dnsrelay/internal/logger"
)

// FileWatcher monitors a single file for changes and invokes a callback on
// modification.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewFileWatcher creates a generic file watcher that calls onChange when
// the file is modified.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	log := logger.WithComponent("file-watcher")

	// Watch the directory, not the file: editors and config management
	// tools replace files, which drops a watch set on the file itself.
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		return err
	}

	log.Info().Str("path", fw.path).Msg("Started watching file")

	go fw.watch()
	return nil
}

// Stop stops watching and releases the underlying watcher. Safe to call
// whether or not Start succeeded.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	wasRunning := fw.running
	fw.running = false
	fw.mu.Unlock()

	if wasRunning {
		close(fw.stopChan)
	}
	return fw.watcher.Close()
}

func (fw *FileWatcher) watch() {
	log := logger.WithComponent("file-watcher")
	filename := filepath.Base(fw.path)

	for {
		select {
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Info().
					Str("path", fw.path).
					Str("event", event.Op.String()).
					Msg("File changed, reloading")

				if fw.onChange != nil {
					fw.onChange()
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("File watcher error")
		}
	}
}

// NewLoggingWatcher watches the relay configuration file and invokes the
// callback with the re-parsed logging section. Only logging is hot
// reloadable; the engine keeps the configuration it was started with.
func NewLoggingWatcher(path string, onReload func(logger.Config)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		log := logger.WithComponent("file-watcher")

		cfg, err := Load(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Ignoring config change, reload failed")
			return
		}

		onReload(cfg.Logging)
	})
}
