package options

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceInterval = 200 * time.Millisecond

// ApplyFunc applies one document. The watcher clears the file only when it
// returns nil.
type ApplyFunc func(ctx context.Context, d Document) error

// Watcher applies the options file whenever it is written, then truncates it
// so the same overrides are not applied again.
type Watcher struct {
	path  string
	apply ApplyFunc
	log   zerolog.Logger

	watcher *fsnotify.Watcher

	mu            sync.Mutex
	debounceTimer *time.Timer
	stopChan      chan struct{}
	closeOnce     sync.Once
	ctx           context.Context
}

// Watch starts watching path. A document already present at start is applied
// right away.
func Watch(ctx context.Context, path string, apply ApplyFunc, log zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory to catch editors that replace the file.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close watcher")
		}
		return nil, err
	}

	w := &Watcher{
		path:     path,
		apply:    apply,
		log:      log.With().Str("component", "options").Str("path", path).Logger(),
		watcher:  fw,
		stopChan: make(chan struct{}),
		ctx:      ctx,
	}
	go w.watchLoop()
	w.handleFileChange()
	return w, nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.mu.Lock()
				if w.debounceTimer != nil {
					w.debounceTimer.Stop()
				}
				w.debounceTimer = time.AfterFunc(debounceInterval, w.handleFileChange)
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watch error")

		case <-w.stopChan:
			return

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleFileChange() {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Error().Err(err).Msg("read options")
		}
		return
	}
	doc, err := Parse(raw)
	if err != nil {
		w.log.Warn().Err(err).Msg("malformed options file left in place")
		return
	}
	if doc.IsZero() {
		return
	}
	if err := w.apply(w.ctx, doc); err != nil {
		w.log.Error().Err(err).Msg("apply options")
		return
	}
	if err := os.WriteFile(w.path, nil, 0o644); err != nil {
		w.log.Error().Err(err).Msg("clear options")
		return
	}
	w.log.Info().Msg("one-shot options applied and cleared")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
