package port

import (
	"io"
	"io/fs"
)

// WalkFunc is invoked for every regular file found under a walked directory.
// relPath is the path of the file relative to the walk root, using forward
// slashes. open opens the file for reading; the callback owns the returned
// reader and must close it.
type WalkFunc func(relPath string, info fs.FileInfo, open func() (io.ReadCloser, error)) error

// FileSystem defines the interface to the layer that holds shared content.
// Paths are the share paths as stored on the share record; implementations
// resolve them against their own root and must reject traversal outside it.
type FileSystem interface {
	// IsDirectory reports whether path refers to a directory
	IsDirectory(path string) (bool, error)

	// Stat returns file metadata for path
	Stat(path string) (fs.FileInfo, error)

	// Open opens the file at path for reading
	Open(path string) (io.ReadCloser, error)

	// Walk visits every regular file under the directory at path
	Walk(path string, fn WalkFunc) error
}
