package storage

import (
	"io/fs"
	"os"
)

// OS implements FileSystem using the os package.
type OS struct{}

func (OS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

var _ FileSystem = OS{}
