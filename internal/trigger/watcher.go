// Package trigger starts runs from outside events: documents landing in a
// watched directory, or a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled file. name is the base file name.
type Handler func(ctx context.Context, name string) error

// ─────────────────────────────────────────────────────────────
// Watcher: runs a Handler for each *.json written into a directory
// ─────────────────────────────────────────────────────────────

// Watcher watches a single directory. Writes to the same file within the
// debounce window collapse into one call.
type Watcher struct {
	Dir      string
	Pattern  string // glob on the base name, defaults to *.json
	Debounce time.Duration
	Handle   Handler

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	loopDone    chan struct{}
	pending     sync.WaitGroup
}

// NewWatcher creates a Watcher for *.json files in dir.
func NewWatcher(dir string, handle Handler) *Watcher {
	return &Watcher{Dir: dir, Pattern: "*.json", Debounce: DefaultDebounce, Handle: handle}
}

// Start begins watching. Handler calls receive ctx; Stop ends the watch.
func (w *Watcher) Start(ctx context.Context) error {
	w.Stop()
	logger := zerolog.Ctx(ctx)

	dir, err := filepath.Abs(w.Dir)
	if err != nil {
		return fmt.Errorf("bad watch dir %q: %w", w.Dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	pattern := w.Pattern
	if pattern == "" {
		pattern = "*.json"
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watchCtx, cancel := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	w.mu.Lock()
	w.watcher = watcher
	w.watchCancel = cancel
	w.loopDone = loopDone
	w.mu.Unlock()

	go func() {
		defer close(loopDone)
		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				if t.Stop() {
					w.pending.Done()
				}
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				if match, _ := filepath.Match(pattern, name); !match || strings.HasPrefix(name, ".") {
					continue
				}
				if t, exists := timers[name]; exists && t.Stop() {
					w.pending.Done()
				}
				w.pending.Add(1)
				timers[name] = time.AfterFunc(debounce, func() {
					defer w.pending.Done()
					logger.Info().Str("file", name).Msg("watcher: file settled")
					if err := w.Handle(watchCtx, name); err != nil {
						logger.Error().Err(err).Str("file", name).Msg("watcher: run failed")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Msg("watcher: error")
			}
		}
	}()

	logger.Info().Str("dir", dir).Str("pattern", pattern).Msg("watcher: watching")
	return nil
}

// Stop ends the watch and waits for handlers already started. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.watchCancel != nil {
		w.watchCancel()
		w.watchCancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	loopDone := w.loopDone
	w.loopDone = nil
	w.mu.Unlock()

	// the loop is the only caller of pending.Add
	if loopDone != nil {
		<-loopDone
	}
	w.pending.Wait()
}
