package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/burrow-dns/burrow/pkg/log"
)

// Watcher reports changes to the config file as non-blocking
// notifications. The housekeeper polls Changed between phases.
type Watcher struct {
	fw     *fsnotify.Watcher
	path   string
	events chan struct{}
	done   chan struct{}
}

// Watch starts watching the directory containing path. Watching the
// directory instead of the file keeps the watch alive across the
// write-temp-then-rename dance most editors and config managers do.
func Watch(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fw:     fw,
		path:   filepath.Clean(path),
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	logger := log.WithComponent("config")
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Coalesce bursts into a single pending notification
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")
		case <-w.done:
			return
		}
	}
}

// Changed reports whether the config file changed since the last call,
// without blocking.
func (w *Watcher) Changed() bool {
	select {
	case <-w.events:
		return true
	default:
		return false
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
