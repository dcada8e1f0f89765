package preset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cwbudde/algo-sid/sid"
)

// reloadDelay coalesces the burst of events an editor emits for one save.
const reloadDelay = 50 * time.Millisecond

// Watcher reloads a preset file whenever it changes on disk.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
}

// NewWatcher starts watching path. The parent directory is watched so that
// editors which save by rename are picked up too.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Watcher{path: filepath.Clean(abs), w: w}, nil
}

// Run delivers every successfully reloaded patch to onChange and every load
// or watch error to onError until ctx is done. It closes the watcher.
func (pw *Watcher) Run(ctx context.Context, onChange func(sid.Patch), onError func(error)) error {
	defer pw.w.Close()

	reload := time.NewTimer(reloadDelay)
	if !reload.Stop() {
		<-reload.C
	}

	for {
		select {
		case <-ctx.Done():
			reload.Stop()
			return nil
		case ev, ok := <-pw.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != pw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload.Reset(reloadDelay)
			}
		case err, ok := <-pw.w.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-reload.C:
			p, err := LoadJSON(pw.path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onChange != nil {
				onChange(p)
			}
		}
	}
}

// Watch watches path and calls onChange with each reloaded patch until ctx is
// done.
func Watch(ctx context.Context, path string, onChange func(sid.Patch), onError func(error)) error {
	w, err := NewWatcher(path)
	if err != nil {
		return err
	}
	return w.Run(ctx, onChange, onError)
}
