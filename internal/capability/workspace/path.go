package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolver maps model-supplied paths onto the workspace and refuses anything
// that leaves it, including through symlinks.
type resolver struct {
	root string
}

// canonicalRoot makes root absolute, resolves its symlinks and checks it is a
// directory.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Root: root, Cause: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &RootError{Root: abs, Cause: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &RootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &RootError{Root: resolved, Cause: ErrNotADirectory}
	}
	return resolved, nil
}

func (r resolver) contains(abs string) bool {
	return abs == r.root || strings.HasPrefix(abs, r.root+string(filepath.Separator))
}

// resolve returns the absolute and slash-separated relative form of path.
// An empty path is the root. The relative form of the root is ".".
func (r resolver) resolve(path string) (abs, rel string, err error) {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(r.root, path))
	}
	if !r.contains(abs) {
		return "", "", fmt.Errorf("%s: %w", path, ErrOutsideWorkspace)
	}

	// A symlink inside the workspace may still point outside it.
	if target, err := filepath.EvalSymlinks(abs); err == nil && !r.contains(target) {
		return "", "", fmt.Errorf("%s: %w", path, ErrOutsideWorkspace)
	}

	rel, err = filepath.Rel(r.root, abs)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, ErrOutsideWorkspace)
	}
	return abs, filepath.ToSlash(rel), nil
}
