// Package mocks provides in-memory doubles for the filesystem seams used by
// configuration loading.
package mocks

import (
	"os"
	"sync"
)

// MockFileSystem implements config.FileSystem with in-memory storage.
type MockFileSystem struct {
	Mu         sync.RWMutex
	Files      map[string][]byte // path -> content
	Errors     map[string]error  // path -> error to return
	OpErrors   map[string]error  // operation -> error to return
	HomeDir    string
	HomeDirErr error

	// Reads records every path passed to ReadFile, in order
	Reads []string
}

// NewMockFileSystem creates a new mock filesystem rooted at /home/user
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:    make(map[string][]byte),
		Errors:   make(map[string]error),
		OpErrors: make(map[string]error),
		HomeDir:  "/home/user",
	}
}

// SetError sets an error to return for a specific path
func (f *MockFileSystem) SetError(path string, err error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.Errors[path] = err
}

// SetOperationError sets an error to return for a specific operation.
func (f *MockFileSystem) SetOperationError(operation string, err error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.OpErrors[operation] = err
}

// CreateFile creates a file with content
func (f *MockFileSystem) CreateFile(path string, content []byte) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.Files[path] = append([]byte(nil), content...)
}

func (f *MockFileSystem) UserHomeDir() (string, error) {
	f.Mu.RLock()
	defer f.Mu.RUnlock()

	if err, ok := f.OpErrors["UserHomeDir"]; ok {
		return "", err
	}
	return f.HomeDir, f.HomeDirErr
}

func (f *MockFileSystem) ReadFile(path string) ([]byte, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()

	f.Reads = append(f.Reads, path)

	if err, ok := f.OpErrors["ReadFile"]; ok {
		return nil, err
	}
	if err, ok := f.Errors[path]; ok {
		return nil, err
	}

	content, ok := f.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), content...), nil
}
