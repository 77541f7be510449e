package graph

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the in-process cache for triadID whenever its
// graph.json is written by another process, so long-lived callers (the
// stop-hook orchestrator processing several blocks in one invocation)
// never act on a stale cached graph. It blocks until ctx is canceled.
func (s *Store) Watch(ctx context.Context, triadID string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := s.triadDir(triadID)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := s.graphPath(triadID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name == target && (ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0) {
				s.Refresh(triadID)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}
