package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RihenUniverse/jenga/internal/config"
	"github.com/RihenUniverse/jenga/internal/executor"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Rebuild on source changes",
	Long:         `Build the workspace, then watch its source tree and rebuild whenever a file changes.`,
	RunE:         runWatch,
	SilenceUsage: true,
}

const watchDebounce = 300 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Initial build. Failures are reported but keep the watcher alive so a
	// fix triggers the next attempt.
	if err := buildWorkspace(ctx, opts); err != nil {
		slog.Error("Build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, ws.Location); err != nil {
		return err
	}

	rebuildReq, trigger := debounced(watchDebounce)

	fmt.Println("watching for changes, press Ctrl-C to stop")

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-rebuildReq:
			if err := buildWorkspace(ctx, opts); err != nil {
				slog.Error("Build failed", "error", err)
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ignoredPath(ws.Location, event.Name) {
				continue
			}

			if event.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				_ = addWatchDirs(watcher, event.Name)
			}

			if event.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				slog.Debug("Change detected", "path", event.Name)
				trigger()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("Watcher error", "error", err)
		}
	}
}

// addWatchDirs registers root and every directory below it, skipping
// generated trees. fsnotify watches are not recursive.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		if ignoredPath(root, path) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// ignoredPath filters out generated and hidden trees that change during
// builds. Watching them would retrigger forever.
func ignoredPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}

	top := strings.Split(filepath.ToSlash(rel), "/")[0]

	switch top {
	case executor.StateDirName, "bin", "obj", ".git":
		return true
	}

	return false
}

// debounced returns a request channel and a trigger that coalesces bursts of
// events into one request per quiet period.
func debounced(quiet time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(quiet, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}

	return req, trigger
}
