// Package catalogwatch watches a catalog store's backing file for
// external changes (a patch applied by another process, a hand edit)
// and notifies a callback so a long-running command can pick them up
// without restarting.
package catalogwatch

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps an fsnotify.Watcher scoped to one file.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
}

// New starts watching path. The file must already exist: the watch is
// placed on the file itself, so New fails for a missing path, and the
// watch is not re-armed after the file is renamed or replaced.
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalogwatch: creating watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("catalogwatch: watching %s: %w", path, err)
	}
	return &Watcher{fsw: fsw, path: path}, nil
}

// Run blocks, calling onChange once per write/create/rename event
// until stop is closed or the underlying watcher errors out.
func (w *Watcher) Run(stop <-chan struct{}, onChange func(), onError func(error)) {
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
