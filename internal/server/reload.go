package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"
)

// ReloadDebounce is how long the reloader waits after the last change.
const ReloadDebounce = 500 * time.Millisecond

// Reloader rebuilds the served deployment when its file changes.
//
// The parent directory is watched rather than the file so that editors
// replacing the file by rename, and files created after startup, are seen.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
	files   map[string]bool
	paths   []string
}

// NewReloader watches the given deployment files. Empty paths are skipped;
// a path whose directory does not exist is an error.
func NewReloader(server *Server, paths []string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	r := &Reloader{watcher: watcher, server: server, files: make(map[string]bool)}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if _, err := os.Stat(dir); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("failed to watch %q: %w", p, err)
			}
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
			}
			dirs[dir] = true
		}
		r.files[abs] = true
		r.paths = append(r.paths, abs)
	}
	return r, nil
}

// Paths returns the absolute paths of the watched files.
func (r *Reloader) Paths() []string { return r.paths }

func (r *Reloader) relevant(ev fsnotify.Event) bool {
	if !r.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Run reloads the deployment after changes settle for ReloadDebounce.
// Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !r.relevant(ev) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			file := ev.Name
			debounce = time.AfterFunc(ReloadDebounce, func() { r.reload(file) })

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error", "err", err)
		}
	}
}

func (r *Reloader) reload(file string) {
	before := r.server.node.ConfigHash()
	if err := r.server.ReloadDeployment(); err != nil {
		log.Error("Hot-reload failed, keeping current deployment", "file", file, "config", before, "err", err)
		return
	}
	if after := r.server.node.ConfigHash(); after != before {
		log.Info("Hot-reload: deployment replaced", "file", file, "config", after)
	}
}
