// Package vfs abstracts the file operations orizon-fuzz needs to manage a
// pool root on disk: the NDJSON event log, the VERSION compatibility
// marker (internal/corpusversion), and an optional seed corpus directory
// watched for externally-added files (internal/corpuswatch). Swapping
// OSFS for MemFS lets those packages be tested without touching a real
// filesystem.
package vfs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// File represents an open file handle within a FileSystem.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderAt
	io.WriterAt
	io.Closer
	Stat() (fs.FileInfo, error)
	Sync() error
}

// FileSystem abstracts the pool-root operations a backing store must
// support.
type FileSystem interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	Mkdir(name string, perm fs.FileMode) error
	MkdirAll(name string, perm fs.FileMode) error
	Remove(name string) error
	RemoveAll(name string) error
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Walk(root string, fn func(fullPath string, d fs.DirEntry, err error) error) error
}

// WatchOp indicates a change operation reported for a watched seed corpus
// directory.
type WatchOp uint32

const (
	OpCreate WatchOp = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes a filesystem change event.
type Event struct {
	Path string
	Op   WatchOp
	Time time.Time
}

// Watcher provides a platform-independent file watching API, satisfied by
// FSNotifyWatcher (backed by fsnotify) and SimpleWatcher (a polling
// fallback for platforms fsnotify doesn't cover).
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Add(name string) error
	Remove(name string) error
	Close() error
}

// Join joins any number of path elements into a single pool-root-relative
// path, using forward slashes.
func Join(elem ...string) string { return path.Join(elem...) }

// Clean returns the shortest path name equivalent to path by purely
// lexical processing.
func Clean(p string) string { return path.Clean(p) }
