// Package dropwatch turns a folder into an upload device: every image that
// lands in the folder is posted to the analysis server.
package dropwatch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce timings: a file is handed off once it has not changed for settle.
const (
	tick   = 250 * time.Millisecond
	settle = 300 * time.Millisecond
)

// Watch emits full paths of images created in dir once they are stable. The
// returned channel closes when ctx is done or the watcher fails.
func Watch(ctx context.Context, dir string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer w.Close()
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsSupportedExt(ev.Name) {
					continue
				}
				pending[ev.Name] = time.Now()
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) <= settle {
						continue
					}
					delete(pending, name)
					if fi, err := os.Stat(name); err != nil || fi.IsDir() {
						continue
					}
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()
	return out, nil
}

// Existing lists images already sitting in dir, oldest name first.
func Existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsSupportedExt(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsSupportedExt reports whether name looks like an image the server accepts.
func IsSupportedExt(name string) bool {
	base := filepath.Base(name)
	// editors and partial downloads
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg":
		return true
	}
	return false
}
