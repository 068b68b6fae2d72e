// Package corpuswatch optionally watches a corpus directory for externally
// added seed files — dropped in by an operator, a minimization tool, or a
// synced remote corpus — and hands their raw bytes back to the driver loop
// between iterations (§4.9).
//
// Grounded directly on the teacher's internal/runtime/vfs.FSNotifyWatcher:
// the same fsnotify event-translation shape, reused here to feed raw seed
// bytes rather than to drive a generic filesystem-change API. This package
// never decides what a project's corpus layout is; it only reads whatever
// file just changed.
package corpuswatch

import (
	"io"

	"github.com/orizon-lang/orizon-fuzz/internal/runtime/vfs"
)

// Watcher observes one corpus directory and surfaces newly written or
// created files' contents on Seeds.
type Watcher struct {
	fsw  *vfs.FSNotifyWatcher
	fs   vfs.FileSystem
	out  chan []byte
	errs chan error
	done chan struct{}
}

// New starts watching dir. Seeds already present in dir at call time are
// not replayed; only subsequent create/write events are observed, matching
// fsnotify's own semantics.
func New(dir string) (*Watcher, error) {
	fsw, err := vfs.NewFSWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()

		return nil, err
	}

	w := &Watcher{
		fsw:  fsw,
		fs:   vfs.NewOS(),
		out:  make(chan []byte, 64),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events():
			if !ok {
				return
			}

			if ev.Op&(vfs.OpCreate|vfs.OpWrite) == 0 {
				continue
			}

			w.emit(ev.Path)
		case err, ok := <-w.fsw.Errors():
			if !ok {
				return
			}

			select {
			case w.errs <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) emit(path string) {
	f, err := w.fs.Open(path)
	if err != nil {
		// The file may have already been removed or renamed away between
		// the event firing and the open; skip it rather than surface a
		// transient race as an error.
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return
	}

	select {
	case w.out <- data:
	default:
		// Best-effort: a full queue drops the seed rather than blocking
		// the watcher goroutine indefinitely.
	}
}

// Seeds returns the channel of newly observed file contents.
func (w *Watcher) Seeds() <-chan []byte {
	return w.out
}

// Errors returns the channel of watcher-level errors (e.g. a removed
// directory).
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)

	return w.fsw.Close()
}
