package domain

import (
	"path"
	"strings"
)

// NormalizePath cleans a share path and rejects traversal outside the
// content root. The returned path is rooted, forward-slashed, and safe to
// store on a share record. Nested paths survive normalization; only paths
// escaping the root are rejected.
func NormalizePath(sharePath string) (string, error) {
	if sharePath == "" {
		return "", ErrInvalidPath
	}
	// Clean the path as a relative one so ".." segments that climb above
	// the root survive cleaning and can be rejected, instead of being
	// silently swallowed by a rooted Clean.
	trimmed := strings.TrimLeft(strings.ReplaceAll(sharePath, "\\", "/"), "/")
	cleaned := path.Clean(trimmed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	if cleaned == "." {
		return "/", nil
	}
	return "/" + cleaned, nil
}
