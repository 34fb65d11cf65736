// Package workspace provides a read-only capability over one directory tree:
// listing entries with .gitignore applied and reading text files.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Cyclone1070/reactor/internal/config"
	"github.com/Cyclone1070/reactor/internal/tool"
)

// ID is the capability id.
const ID = "workspace"

// Entry is one listed path.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// ListResponse is the result of workspace.list_directory.
type ListResponse struct {
	Path      string  `json:"path"`
	Entries   []Entry `json:"entries"`
	Truncated bool    `json:"truncated,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// ReadResponse is the result of workspace.read_file.
type ReadResponse struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Offset    int64  `json:"offset,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

type listRequest struct {
	Thought        string `json:"thought"`
	Path           string `json:"path"`
	MaxDepth       int    `json:"max_depth"`
	IncludeIgnored bool   `json:"include_ignored"`
}

type readRequest struct {
	Thought string `json:"thought"`
	Path    string `json:"path"`
	Offset  int64  `json:"offset"`
	Limit   int64  `json:"limit"`
}

func (r *readRequest) Validate() error {
	if r.Offset < 0 {
		return ErrNegativeOffset
	}
	if r.Limit < 0 {
		return ErrNegativeLimit
	}
	return nil
}

// Workspace serves the tools of one root directory.
type Workspace struct {
	paths       resolver
	ignore      *ignoreMatcher
	maxFileSize int64
	maxResults  int
}

// New opens the workspace described by cfg. An empty root is the current
// directory.
func New(cfg config.ToolsConfig) (*Workspace, error) {
	root := cfg.WorkspaceRoot
	if root == "" {
		root = "."
	}
	canonical, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}
	ignore, err := loadIgnore(canonical)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		paths:       resolver{root: canonical},
		ignore:      ignore,
		maxFileSize: cfg.MaxFileSize,
		maxResults:  cfg.MaxListDirectoryResults,
	}, nil
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string { return w.paths.root }

// Capability returns the toolset exposing the workspace.
func (w *Workspace) Capability() *tool.Toolset {
	return tool.NewToolset(ID,
		tool.NewFuncTool("workspace.list_directory",
			"Lists files and directories under a workspace path. Directories come first. "+
				"Entries matched by .gitignore are hidden unless include_ignored is set.",
			[]tool.Parameter{
				tool.ThoughtParameter,
				{Name: "path", Type: tool.TypeString, Description: "Directory relative to the workspace root. Defaults to the root."},
				{Name: "max_depth", Type: tool.TypeInteger, Description: "0 lists only direct children, a negative value recurses without limit."},
				{Name: "include_ignored", Type: tool.TypeBoolean, Description: "Include entries matched by .gitignore."},
			},
			func(ctx context.Context, req listRequest) (any, error) {
				return w.List(ctx, req.Path, req.MaxDepth, req.IncludeIgnored)
			}),
		tool.NewFuncTool("workspace.read_file",
			"Reads a text file from the workspace. Use offset and limit, in bytes, to read part of a large file.",
			[]tool.Parameter{
				tool.ThoughtParameter,
				{Name: "path", Type: tool.TypeString, Description: "File relative to the workspace root.", Required: true},
				{Name: "offset", Type: tool.TypeInteger, Description: "Byte offset to start reading from."},
				{Name: "limit", Type: tool.TypeInteger, Description: "Maximum number of bytes to read. 0 reads to the end."},
			},
			func(ctx context.Context, req readRequest) (any, error) {
				return w.Read(ctx, req.Path, req.Offset, req.Limit)
			}),
	)
}

// List returns the entries below path, directories first and each group
// sorted by path. maxDepth 0 lists direct children only; a negative maxDepth
// is unlimited.
func (w *Workspace) List(ctx context.Context, path string, maxDepth int, includeIgnored bool) (*ListResponse, error) {
	abs, rel, err := w.paths.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotADirectory)
	}

	walk := &walker{
		ws:             w,
		ctx:            ctx,
		maxDepth:       maxDepth,
		includeIgnored: includeIgnored,
		visited:        make(map[string]bool),
	}
	if err := walk.dir(abs, 0); err != nil {
		return nil, err
	}

	entries := walk.entries
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Path < entries[j].Path
	})

	resp := &ListResponse{Path: rel, Entries: entries}
	if walk.capped {
		resp.Truncated = true
		resp.Reason = fmt.Sprintf("Results capped at %d entries.", w.maxResults)
	}
	if resp.Entries == nil {
		resp.Entries = []Entry{}
	}
	return resp, nil
}

type walker struct {
	ws             *Workspace
	ctx            context.Context
	maxDepth       int
	includeIgnored bool
	visited        map[string]bool
	entries        []Entry
	capped         bool
}

func (wk *walker) full() bool {
	return wk.ws.maxResults > 0 && len(wk.entries) >= wk.ws.maxResults
}

func (wk *walker) dir(abs string, depth int) error {
	if err := wk.ctx.Err(); err != nil {
		return err
	}
	if wk.maxDepth >= 0 && depth > wk.maxDepth {
		return nil
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		canonical = abs
	}
	if wk.visited[canonical] || !wk.ws.paths.contains(canonical) {
		return nil
	}
	wk.visited[canonical] = true

	children, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("list %s: %w", abs, err)
	}
	for _, child := range children {
		if wk.full() {
			wk.capped = true
			return nil
		}
		childAbs := filepath.Join(abs, child.Name())
		rel, err := filepath.Rel(wk.ws.paths.root, childAbs)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", childAbs, err)
		}
		rel = filepath.ToSlash(rel)
		isDir := child.IsDir()
		if child.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(childAbs); err == nil {
				isDir = info.IsDir()
			}
		}
		if rel == ".git" {
			continue
		}
		if !wk.includeIgnored && wk.ws.ignore.ignored(rel, isDir) {
			continue
		}

		wk.entries = append(wk.entries, Entry{Path: rel, IsDir: isDir})
		if isDir {
			if err := wk.dir(childAbs, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read returns up to limit bytes of the file at path starting at offset. A
// zero limit reads to the end of the file. Files larger than the configured
// maximum and binary files are refused.
func (w *Workspace) Read(ctx context.Context, path string, offset, limit int64) (*ReadResponse, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	if limit < 0 {
		return nil, ErrNegativeLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, rel, err := w.paths.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, ErrIsDirectory)
	}
	if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
		return nil, &TooLargeError{Path: rel, Size: info.Size(), Limit: w.maxFileSize}
	}

	size := info.Size()
	resp := &ReadResponse{Path: rel, Size: size, Offset: offset}
	if offset >= size {
		return resp, nil
	}

	n := size - offset
	if limit > 0 && limit < n {
		n = limit
		resp.Truncated = true
	}
	buf := make([]byte, n)
	read, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	buf = buf[:read]
	if isBinary(buf) {
		return nil, fmt.Errorf("%s: %w", rel, ErrBinaryFile)
	}
	resp.Content = string(buf)
	return resp, nil
}
