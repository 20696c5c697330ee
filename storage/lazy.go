package storage

import (
	"io/fs"
	"sync"
)

// Lazy defers creating a FileSystem until its first use.
//
// If New fails, every subsequent call returns the same error.
type Lazy struct {
	New func() (FileSystem, error)

	once sync.Once
	fs   FileSystem
	err  error
}

func (l *Lazy) get() (FileSystem, error) {
	l.once.Do(func() {
		l.fs, l.err = l.New()
	})

	return l.fs, l.err
}

func (l *Lazy) MkdirAll(path string, perm fs.FileMode) error {
	f, err := l.get()
	if err != nil {
		return err
	}

	return f.MkdirAll(path, perm)
}

func (l *Lazy) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := l.get()
	if err != nil {
		return err
	}

	return f.WriteFile(name, data, perm)
}

func (l *Lazy) ReadFile(name string) ([]byte, error) {
	f, err := l.get()
	if err != nil {
		return nil, err
	}

	return f.ReadFile(name)
}

var _ FileSystem = (*Lazy)(nil)
