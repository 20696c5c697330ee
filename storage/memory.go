package storage

import (
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"sync"
)

// Memory is an in-memory FileSystem.
//
// Names are cleaned with filepath.Clean before use. WriteFile does not require the parent directory to exist. Memory
// is safe for concurrent use.
//
// The zero value is ready for use.
type Memory struct {
	// Errors maps cleaned paths to the errors returned by any operation on that path.
	Errors map[string]error

	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]fs.FileMode
}

// NewMemory returns a new Memory instance with the given files.
func NewMemory(files map[string][]byte) *Memory {
	m := &Memory{}
	for name, data := range files {
		_ = m.WriteFile(name, data, 0644)
	}

	return m
}

func (m *Memory) MkdirAll(path string, perm fs.FileMode) error {
	path = filepath.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.Errors[path]; ok {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}

	if m.dirs == nil {
		m.dirs = make(map[string]fs.FileMode)
	}
	for p := path; ; p = filepath.Dir(p) {
		if _, ok := m.dirs[p]; !ok {
			m.dirs[p] = perm
		}
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}

	return nil
}

func (m *Memory) WriteFile(name string, data []byte, _ fs.FileMode) error {
	name = filepath.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.Errors[name]; ok {
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}

	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = slices.Clone(data)
	return nil
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	name = filepath.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.Errors[name]; ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}

	return slices.Clone(data), nil
}

// Files returns a copy of all files written so far.
func (m *Memory) Files() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.files)
}

// Dirs returns the sorted list of directories created so far, including implicit parents.
func (m *Memory) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Sorted(maps.Keys(m.dirs))
}

var _ FileSystem = (*Memory)(nil)
