package credential

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce window for editor save storms (atomic rename + write pairs)
const watchDebounce = 500 * time.Millisecond

// Watcher observes a credential source file and invokes a callback when it
// changes. The parent directory is watched because most tools replace the
// file via atomic rename rather than writing in place.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
}

// WatchFile starts watching the given credential file
func WatchFile(path string, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{watcher: fsWatcher, onChange: onChange}
	go w.loop(filepath.Base(path))

	log.Printf("👁️ Watching credential source: %s", path)
	return w, nil
}

func (w *Watcher) loop(base string) {
	var timer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				log.Printf("📝 Credential source changed, re-checking drift")
				w.onChange()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Credential watcher error: %v", err)
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
