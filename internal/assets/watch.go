package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/logger"
)

// CatalogWatcher reloads a catalog file whenever it changes on disk.
type CatalogWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
}

// WatchCatalog watches path and calls onChange with every successfully parsed
// version. onChange runs on the watcher goroutine. A file that fails to parse
// is logged and the previous catalog stays in use.
func WatchCatalog(path string, onChange func(*Catalog)) (*CatalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &CatalogWatcher{
		path:    abs,
		watcher: fw,
		done:    make(chan struct{}),
		log:     logger.Named("assets"),
	}
	w.wg.Add(1)
	go w.run(onChange)
	return w, nil
}

func (w *CatalogWatcher) run(onChange func(*Catalog)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cat, err := LoadCatalog(w.path)
			if err != nil {
				w.log.Warn("catalog reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("catalog reloaded",
				zap.Int("vehicles", len(cat.Vehicles)),
				zap.Int("furniture", len(cat.Furniture)),
				zap.Int("materials", len(cat.Materials)))
			onChange(cat)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("catalog watcher", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *CatalogWatcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
