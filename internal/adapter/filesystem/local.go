package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/port"
)

// Local serves shared content from a directory tree on the local filesystem.
// Share paths are resolved against the root; paths that escape it are
// rejected before touching the disk.
type Local struct {
	rootDir string
}

// Ensure Local implements port.FileSystem
var _ port.FileSystem = (*Local)(nil)

// NewLocal creates a filesystem rooted at rootDir
func NewLocal(rootDir string) (*Local, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root dir: %w", err)
	}
	return &Local{rootDir: abs}, nil
}

// RootDir returns the content root directory
func (l *Local) RootDir() string {
	return l.rootDir
}

// resolve maps a share path to an absolute path under the root
func (l *Local) resolve(sharePath string) (string, error) {
	cleaned, err := domain.NormalizePath(sharePath)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.rootDir, filepath.FromSlash(cleaned))
	if full != l.rootDir && !strings.HasPrefix(full, l.rootDir+string(filepath.Separator)) {
		return "", domain.ErrInvalidPath
	}
	return full, nil
}

// IsDirectory reports whether path refers to a directory
func (l *Local) IsDirectory(sharePath string) (bool, error) {
	info, err := l.Stat(sharePath)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Stat returns file metadata for path
func (l *Local) Stat(sharePath string) (fs.FileInfo, error) {
	full, err := l.resolve(sharePath)
	if err != nil {
		return nil, err
	}
	return os.Stat(full)
}

// Open opens the file at path for reading
func (l *Local) Open(sharePath string) (io.ReadCloser, error) {
	full, err := l.resolve(sharePath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Walk visits every regular file under the directory at path, in lexical
// order, handing the callback a lazy opener for each
func (l *Local) Walk(sharePath string, fn port.WalkFunc) error {
	root, err := l.resolve(sharePath)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		open := func() (io.ReadCloser, error) {
			return os.Open(p)
		}
		return fn(filepath.ToSlash(rel), info, open)
	})
}
