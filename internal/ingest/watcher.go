package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lickdex/internal/storage"
)

// settleDelay is how long a file must stay quiet before it is ingested, so
// that a tab being copied in is read once, whole.
const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the inbox root and ingests tab files
// as they appear until ctx is cancelled. cb (if non-nil) is called for every
// song stored.
//
// New directories created at runtime are added to the watch list and their
// tab files queued. Removing a file from the inbox does not remove its song.
func (s *Service) Watch(ctx context.Context, inbox storage.Provider, root string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for rel := range pending {
				song, err := s.ingestFile(ctx, inbox, rel)
				if err != nil {
					s.logger.Warn("watcher: ingest failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				if song != nil && cb != nil {
					cb(EventIngested, song.ID)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						s.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					for _, rel := range tabFilesUnder(root, absPath) {
						schedule(rel)
					}
					continue
				}
			}

			name := filepath.Base(absPath)
			if !storage.IsTabFile(name) || strings.HasPrefix(name, ".") {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// tabFilesUnder lists tab files below dir, relative to root.
func tabFilesUnder(root, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsTabFile(d.Name()) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
