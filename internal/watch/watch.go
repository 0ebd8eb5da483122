// Package watch reports batches of changed source files under a set of
// directories.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/phobologic/docgen/internal/discover"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/lang"
)

// DefaultDebounce is the quiet period used when New is given zero.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches directory trees for changes to files of the given
// languages. Bursts of events are collapsed into one callback per quiet
// period.
type Watcher struct {
	fsw       *fsnotify.Watcher
	languages map[string]bool
	debounce  time.Duration
	logger    zerolog.Logger
}

// New creates a Watcher over dirs, recursively. Directories skipped by
// discovery are not watched.
func New(dirs, languages []string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "creating file watcher")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fsw:       fsw,
		languages: make(map[string]bool, len(languages)),
		debounce:  debounce,
		logger:    logger,
	}
	for _, l := range languages {
		w.languages[l] = true
	}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done, calling fn with the sorted, de-duplicated
// paths that changed during each burst. fn runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(changed []string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("not watching new directory")
					}
					continue
				}
			}
			if !w.relevant(event) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			fn(changed)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.languages[lang.ForFileName(event.Name)]
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.Attr(errors.Wrapf(err, errors.KindNotFound, "watching %s", root), "path", root)
			}
			w.logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn().Err(err).Str("dir", path).Msg("not watching directory")
		}
		return nil
	})
}
