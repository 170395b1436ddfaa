package store

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startWatch watches the catalog's directory (renames replace the file, so
// watching the file itself would lose track of it) and re-reads the file
// once events for it have been quiet for the debounce period.
func (s *FileStore) startWatch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn().Err(err).Msg("file watch unavailable")
		return
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		s.log.Warn().Err(err).Msg("file watch unavailable")
		_ = w.Close()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer w.Close()

		timer := time.NewTimer(time.Hour)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(s.opts.Debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("file watch error")
			case <-timer.C:
				s.reloadFromDisk()
			}
		}
	}()
}
