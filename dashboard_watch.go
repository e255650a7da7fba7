package raceiq

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cj123/watcher"
	"github.com/pkg/errors"
)

const watchInterval = 500 * time.Millisecond

// Watch reloads the dashboard whenever the lap table or its summary is
// replaced, until ctx is done. The directory is watched rather than the file
// since outputs are written to a temporary file and renamed into place.
func (d *Dashboard) Watch(ctx context.Context) error {
	dataPath, err := filepath.Abs(d.dataPath)

	if err != nil {
		return errors.Wrapf(err, "raceiq: could not resolve %s", d.dataPath)
	}

	watched := map[string]bool{
		dataPath:              true,
		SummaryPath(dataPath): true,
	}

	w := watcher.New()
	w.FilterOps(watcher.Write, watcher.Create, watcher.Rename, watcher.Move)

	if err := w.Add(filepath.Dir(dataPath)); err != nil {
		return errors.Wrapf(err, "raceiq: could not watch %s", filepath.Dir(dataPath))
	}

	started := make(chan error, 1)
	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		started <- w.Start(watchInterval)
	}()

	d.logger.Infof("Watching %s for changes", dataPath)

	done := ctx.Done()

	for {
		select {
		case event := <-w.Event:
			if !watched[filepath.Clean(event.Path)] && !watched[filepath.Clean(event.OldPath)] {
				continue
			}

			d.logger.Debugf("Detected change: %s", event.String())

			if err := d.Reload(); err != nil {
				d.logger.WithError(err).Errorf("Could not reload %s", dataPath)
			}
		case err := <-w.Error:
			d.logger.WithError(err).Warn("File watcher error")
		case <-w.Closed:
			// Start returns next
		case err := <-started:
			if err != nil {
				return errors.Wrap(err, "raceiq: file watcher stopped")
			}

			return nil
		case <-done:
			done = nil

			go closeWatcher(w, stopped)
		}
	}
}

// closeWatcher keeps closing w until Watch returns. Close does nothing when
// called before Start has begun polling.
func closeWatcher(w *watcher.Watcher, stopped <-chan struct{}) {
	for {
		w.Close()

		select {
		case <-stopped:
			return
		case <-time.After(watchInterval):
		}
	}
}
