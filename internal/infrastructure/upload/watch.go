package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SpecWatcher re-uploads a spec file each time it settles after a write.
// The parent directory is watched so editors that replace the file on save
// are picked up too.
type SpecWatcher struct {
	uploader *Uploader
	path     string
	debounce time.Duration
	onResult func(*Receipt, error)
}

// NewSpecWatcher creates a watcher for path. onResult is called after every
// upload attempt and may be nil.
func NewSpecWatcher(u *Uploader, path string, debounce time.Duration, onResult func(*Receipt, error)) (*SpecWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &SpecWatcher{
		uploader: u,
		path:     abs,
		debounce: debounce,
		onResult: onResult,
	}, nil
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *SpecWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var (
		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
		wg      sync.WaitGroup
	)
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			wg.Add(1)
			mu.Unlock()
			defer wg.Done()
			receipt, err := w.uploader.UploadWithReceipt(ctx, w.path)
			if w.onResult != nil && ctx.Err() == nil {
				w.onResult(receipt, err)
			}
		})
	}
	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				trigger()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
