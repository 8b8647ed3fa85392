package repositories

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tezuka-planner/logging"
)

// selfWriteWindow is how long after one of our own saves a file event is
// still attributed to us rather than to another process.
const selfWriteWindow = 500 * time.Millisecond

// StateWatcher observes the state file for writes made by other processes
// and cues the callback to reload everything. It is the local propagation
// channel: events carry no diff, only "the durable state changed", and the
// writer's own saves are filtered out.
type StateWatcher struct {
	repo      *StateRepository
	onChange  func()
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewStateWatcher starts watching the repository's file. The parent
// directory is watched because atomic saves rename over the file, which
// drops a direct file watch.
func NewStateWatcher(repo *StateRepository, onChange func()) (*StateWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(repo.Path())
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &StateWatcher{
		repo:     repo,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *StateWatcher) run() {
	target := filepath.Clean(w.repo.Path())
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.repo.SavedWithin(selfWriteWindow) {
				// Our own save; same-origin observers only care about
				// writes from other contexts.
				continue
			}
			logging.Logger.Infof("Event ID: STATE_FILE_CHANGED, Description: External change detected on %s, reloading", event.Name)
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Logger.Warnf("Event ID: STATE_WATCH_ERROR, Description: Watcher error: %v", err)
		}
	}
}

// Close is idempotent; a second call is a no-op.
func (w *StateWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
