package syncbus

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher is the surface-side counterpart of the Bus marker: it watches the
// marker file and emits a debounced signal whenever the core publishes a
// refresh. A pull triggered by the signal observes either the pre- or the
// post-mutation store state, never a torn one.
type Watcher struct {
	watcher    *fsnotify.Watcher
	events     chan struct{}
	errors     chan error
	done       chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	markerPath string
	debounce   time.Duration
}

// NewWatcher creates a watcher for the given marker file. The watcher must
// be started with Start() before it will emit events.
func NewWatcher(markerPath string, debounce time.Duration) (*Watcher, error) {
	if markerPath == "" {
		return nil, fmt.Errorf("marker path cannot be empty")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:    fw,
		events:     make(chan struct{}, 1),
		errors:     make(chan error, 10),
		done:       make(chan struct{}),
		markerPath: markerPath,
		debounce:   debounce,
	}, nil
}

// Start begins watching the marker's directory. Watching the directory
// rather than the file survives the marker being replaced or created late.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(w.markerPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch marker directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Events delivers one signal per (debounced) marker change.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Errors delivers watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop halts the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.done)
	w.watcher.Close()
	w.wg.Wait()
	w.running = false
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.markerPath) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Batch rapid marker bumps into one re-pull.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}
