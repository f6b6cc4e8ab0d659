package dropwatch

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Relay uploads every image dropped into a folder, then files it under
// DoneDir or FailedDir so it is never sent twice.
type Relay struct {
	Uploader      Uploader
	DefaultWeight float64 // grams, used when the file name has no "_<n>g" tag
	DoneDir       string
	FailedDir     string
	Workers       int
}

// Handle uploads one file.
func (r Relay) Handle(ctx context.Context, path string) error {
	weight := WeightFromName(path, r.DefaultWeight)
	rec, err := r.Uploader.Upload(ctx, path, weight)
	if err != nil {
		log.Printf("upload %s (%gg) failed: %v", filepath.Base(path), weight, err)
		if r.FailedDir != "" && ctx.Err() == nil {
			if mvErr := moveTo(path, r.FailedDir); mvErr != nil {
				log.Printf("WARN move %s: %v", path, mvErr)
			}
		}
		return err
	}
	log.Printf("uploaded %s (%gg) as record %s", filepath.Base(path), weight, rec.ID)
	if r.DoneDir != "" {
		if err := moveTo(path, r.DoneDir); err != nil {
			log.Printf("WARN move %s: %v", path, err)
		}
	}
	return nil
}

// Run sends the images already in dir, then watches it until ctx is done.
func (r Relay) Run(ctx context.Context, dir string) error {
	initial, err := Existing(dir)
	if err != nil {
		return err
	}
	events, err := Watch(ctx, dir)
	if err != nil {
		return err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	fileCh := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileCh {
				_ = r.Handle(ctx, path)
			}
		}()
	}
	feed := func(path string) bool {
		select {
		case fileCh <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, f := range initial {
		if !feed(f) {
			break
		}
	}
	for path := range events {
		if !feed(path) {
			break
		}
	}
	close(fileCh)
	wg.Wait()
	return ctx.Err()
}

// moveTo moves src into dir, keeping its name. It attempts an atomic rename and
// falls back to copy+remove when necessary.
func moveTo(src, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
