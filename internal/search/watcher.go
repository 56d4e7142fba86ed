package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/workspace"
)

// Watcher refreshes the index when note files change outside the server.
// The filesystem is authoritative, so an external edit only needs the
// derived cache updated; events are debounced because editors write in
// bursts.
type Watcher struct {
	svc      *Service
	ws       *workspace.Workspace
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	stopOnce sync.Once
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// NewWatcher creates a watcher over every note type directory plus the root
// (to pick up new type directories).
func NewWatcher(svc *Service, ws *workspace.Workspace, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		svc:      svc,
		ws:       ws,
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
		log:      log.With().Str("component", "watcher").Logger(),
		pending:  map[string]bool{},
		doneCh:   make(chan struct{}),
	}

	if err := fsw.Add(ws.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	typeDirs, err := ws.ListTypeDirs()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, name := range typeDirs {
		dir, err := ws.TypeDir(name)
		if err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.log.Warn().Str("dir", dir).Err(err).Msg("cannot watch note type directory")
		}
	}

	return w, nil
}

// Start begins processing events until the context is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

// Stop stops the watcher (idempotent).
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)

	// New note type directory: start watching it.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if base != workspace.MetaDirName && !strings.HasPrefix(base, ".") {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn().Str("dir", event.Name).Err(err).Msg("cannot watch new directory")
				}
			}
			return
		}
	}

	if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
		return
	}
	rel, err := filepath.Rel(w.ws.Root(), event.Name)
	if err != nil || strings.HasPrefix(rel, workspace.MetaDirName) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = map[string]bool{}
	w.mu.Unlock()

	for rel := range batch {
		typeName := filepath.Dir(rel)
		filename := filepath.Base(rel)
		id := typeName + "/" + filename

		abs, err := w.ws.ResolvePath(rel)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			if err := w.svc.Drop(id); err != nil {
				w.log.Warn().Str("note", id).Err(err).Msg("failed to drop externally deleted note from index")
			}
			continue
		}
		if err := w.svc.Upsert(typeName, filename); err != nil {
			w.log.Warn().Str("note", id).Err(err).Msg("failed to reindex externally edited note")
			continue
		}
		w.log.Debug().Str("note", id).Msg("reindexed after external edit")
	}
}
