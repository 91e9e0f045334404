package persist

import (
	"context"
	"fmt"
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// pollInterval is used when fsnotify is unavailable.
const pollInterval = 2 * time.Second

// changeWatcher calls onChange once writes under root have settled.
type changeWatcher struct {
	root     string
	debounce time.Duration
	logger   zerolog.Logger
	onChange func()
}

// run blocks until ctx is cancelled.
func (w *changeWatcher) run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Debug().Err(err).Msg("fsnotify unavailable, polling for changes")
		w.poll(ctx)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := w.addTree(watcher, w.root); err != nil {
		w.logger.Debug().Err(err).Msg("watch failed, polling for changes")
		w.poll(ctx)
		return
	}

	// single debounce timer, started by the first event
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			w.onChange()

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// new subdirectories need their own watch
				_ = w.addTree(watcher, event.Name)
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *changeWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
		}
		return nil
	})
}

func (w *changeWatcher) poll(ctx context.Context) {
	interval := pollInterval
	if w.debounce > interval {
		interval = w.debounce
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := treeFingerprint(w.root)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if fp := treeFingerprint(w.root); fp != last {
				last = fp
				w.onChange()
			}
		}
	}
}

// treeFingerprint hashes names, sizes and modification times under root.
func treeFingerprint(root string) uint64 {
	h := fnv.New64a()
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	return h.Sum64()
}
