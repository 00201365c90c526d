package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher calls onChange when a file is written or recreated. Bursts of
// events are debounced.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onChange func()
	delay    time.Duration
	logger   *slog.Logger
}

// NewFileWatcher starts watching filePath and its directory
func NewFileWatcher(filePath string, onChange func(), logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filePath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	// Editors that save by rename drop the file watch; the directory catches
	// the recreation
	dir := filepath.Dir(filePath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("couldn't watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		onChange: onChange,
		delay:    100 * time.Millisecond,
		logger:   logger,
	}, nil
}

// Start processes events until ctx is done or the watcher is closed
func (fw *FileWatcher) Start(ctx context.Context) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(fw.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(fw.delay, fw.onChange)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops watching
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
