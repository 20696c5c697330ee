// Package storage provides the file-write and file-read collaborators used by the archive codecs.
//
// Codecs never manage file handles themselves; they only ask a FileSystem to create directories, write whole files,
// and read whole files.
package storage

import (
	"io/fs"
	"strings"
)

// FileSystem abstracts the storage operations needed to extract and create archives.
type FileSystem interface {
	// MkdirAll creates a directory along with any necessary parents.
	//
	// MkdirAll must be idempotent and safe to call concurrently for overlapping paths.
	MkdirAll(path string, perm fs.FileMode) error

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)
}

// Mux routes names starting with "s3://" to S3 and every other name to Local.
type Mux struct {
	Local FileSystem
	S3    FileSystem
}

// NewMux returns a Mux using OS for local names and the given FileSystem for S3 names.
//
// s3 may be nil, in which case S3 names are treated as local names.
func NewMux(s3 FileSystem) *Mux {
	return &Mux{Local: OS{}, S3: s3}
}

func (m *Mux) pick(name string) FileSystem {
	if m.S3 != nil && IsS3URI(name) {
		return m.S3
	}

	return m.Local
}

func (m *Mux) MkdirAll(path string, perm fs.FileMode) error {
	return m.pick(path).MkdirAll(path, perm)
}

func (m *Mux) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return m.pick(name).WriteFile(name, data, perm)
}

func (m *Mux) ReadFile(name string) ([]byte, error) {
	return m.pick(name).ReadFile(name)
}

// IsS3URI returns true if name starts with "s3://".
func IsS3URI(name string) bool {
	return strings.HasPrefix(name, "s3://")
}

var _ FileSystem = (*Mux)(nil)
