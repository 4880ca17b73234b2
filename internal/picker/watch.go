package picker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gde-go/internal/debounce"
)

const autoReloadDebounceDelay = 350 * time.Millisecond

// autoReload calls reload after the git directory settles following a change
// (new commits, ref updates, fetches).
type autoReload struct {
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
}

func startAutoReload(root string, reload func()) (*autoReload, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	path := watchPath(root)
	slog.Debug("adding path to FS watcher", slog.String("path", path))
	if err := watcher.Add(path); err != nil {
		err := errors.Join(err, watcher.Close())
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	a := &autoReload{
		watcher:  watcher,
		debounce: debounce.New(autoReloadDebounceDelay, reload),
		done:     make(chan struct{}),
	}
	go a.loop()
	return a, nil
}

func (a *autoReload) Close() error {
	a.debounce.Stop()
	err := a.watcher.Close()
	<-a.done
	return err
}

func (a *autoReload) loop() {
	defer close(a.done)
	for {
		select {
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
			a.debounce.Trigger()
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// watchPath prefers the .git directory so edits in the working tree itself do
// not trigger reloads.
func watchPath(root string) string {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return gitDir
	}
	return root
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
