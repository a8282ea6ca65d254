// Package watch reports edits to interchange files in a directory.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a file must stay quiet before a change is reported.
const Debounce = 100 * time.Millisecond

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // file written or created
	ChangeRemoved                    // file deleted or renamed away
)

// String returns the lower-case name of the change kind.
func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "modified"
}

// Change is one settled edit to a watched file.
type Change struct {
	Kind ChangeKind
	File string
}

// Watcher monitors a directory for interchange file changes using fsnotify.
type Watcher struct {
	Dir     string
	Ext     string
	Changes <-chan Change

	changes chan Change
	stop    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for files under dir whose extension matches ext,
// compared case-insensitively.
func New(dir, ext string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 16)
	return &Watcher{
		Dir:     dir,
		Ext:     ext,
		Changes: ch,
		changes: ch,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Pending changes are
// flushed while the channel has room; the rest are dropped, so Stop never
// waits on a reader.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(Debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.flush(file)
				}
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case now := <-ticker.C:
			for file, t := range pending {
				if now.Sub(t) >= Debounce {
					w.emit(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

func (w *Watcher) matches(name string) bool {
	return strings.EqualFold(filepath.Ext(name), w.Ext)
}

// emit delivers a settled change, giving up once Stop has been called.
func (w *Watcher) emit(file string) {
	select {
	case w.changes <- change(file):
	case <-w.stop:
	}
}

// flush delivers a change only if the channel has room.
func (w *Watcher) flush(file string) {
	select {
	case w.changes <- change(file):
	default:
	}
}

func change(file string) Change {
	kind := ChangeModified
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		kind = ChangeRemoved
	}
	return Change{Kind: kind, File: file}
}
