// Package watcher reloads configuration-adjacent files (classifier rules,
// reference CSVs) when they change on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	log      *logrus.Entry
}

// New creates a new file watcher
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: defaultDebounce,
		log:      logrus.WithField("component", "watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	return watchFiles(ctx, []string{w.path}, w.debounce, w.log, func(string) { w.onChange() })
}

// WatchMultiple watches multiple files and calls onChange when any of them change
func WatchMultiple(ctx context.Context, paths []string, onChange func(path string)) error {
	return watchFiles(ctx, paths, defaultDebounce, logrus.WithField("component", "watcher"), onChange)
}

func watchFiles(ctx context.Context, paths []string, debounce time.Duration, log *logrus.Entry, onChange func(string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directories, not the files: editors replace files on save
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				return err
			}
			watchedDirs[dir] = true
		}
		fileSet[absPath] = true
		log.WithField("path", absPath).Info("Watching file for changes")
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce rapid changes
			mu.Lock()
			if t, ok := timers[absPath]; ok {
				t.Stop()
			}
			timers[absPath] = time.AfterFunc(debounce, func() {
				if ctx.Err() != nil {
					return
				}
				log.WithField("path", absPath).Info("File changed")
				onChange(absPath)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
