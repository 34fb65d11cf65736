package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreMatcher applies the workspace root .gitignore. A nil matcher ignores
// nothing.
type ignoreMatcher struct {
	matcher gitignore.Matcher
}

// loadIgnore reads root/.gitignore. A missing file is not an error.
func loadIgnore(root string) (*ignoreMatcher, error) {
	path := filepath.Join(root, ".gitignore")
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ignoreMatcher{}, nil
	}
	if err != nil {
		return nil, &IgnoreReadError{Path: path, Cause: err}
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &ignoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ignored reports whether the slash-separated relative path is excluded.
func (m *ignoreMatcher) ignored(rel string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	var segments []string
	for _, part := range strings.Split(rel, "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		return false
	}
	return m.matcher.Match(segments, isDir)
}
