package z

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEOCDFound is returned if no EOCD signature was found.
	ErrNoEOCDFound = errors.New("end of central directory not found; most likely not a ZIP file")

	// ErrChecksum is returned when an entry's decompressed content does not match its CRC-32.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrDecodedSize is returned when an entry decodes to more bytes than its recorded uncompressed size.
	ErrDecodedSize = errors.New("decoded data exceeds uncompressed size")

	// ErrSizeOverflow is returned when a name, size, offset, or count does not fit in its fixed-width ZIP field.
	ErrSizeOverflow = errors.New("value does not fit in fixed-width ZIP field")

	// ErrInsecurePath matches every PathTraversalError with errors.Is.
	ErrInsecurePath = errors.New("insecure file path")
)

// MalformedArchiveError is returned when a signature, header, or trailer is missing, or when reading a fixed-size
// block would go past the end of the buffer.
type MalformedArchiveError struct {
	// Name is the entry being processed, empty if the error is not tied to a specific entry.
	Name string
	// Offset is the byte offset into the archive where the problem was detected.
	Offset int64
	// Reason describes what was wrong.
	Reason string
	// Err is the optional underlying cause.
	Err error
}

func (e *MalformedArchiveError) Error() string {
	msg := fmt.Sprintf("malformed archive at offset %d", e.Offset)
	if e.Name != "" {
		msg += fmt.Sprintf(` (entry "%s")`, e.Name)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MalformedArchiveError) Unwrap() error {
	return e.Err
}

// PathTraversalError is returned when an entry would be written outside the extraction root.
//
// This is distinct from WriteFailureError so that callers can tell a malicious archive apart from a disk failure.
type PathTraversalError struct {
	Root string
	Name string
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf(`entry "%s" resolves to "%s" which is outside of destination "%s"`, e.Name, e.Path, e.Root)
}

// Is makes errors.Is(err, ErrInsecurePath) true.
func (e *PathTraversalError) Is(target error) bool {
	return target == ErrInsecurePath
}

// UnreadableArchiveError is returned when the archive bytes could not be obtained from the storage collaborator.
type UnreadableArchiveError struct {
	Name string
	Err  error
}

func (e *UnreadableArchiveError) Error() string {
	return fmt.Sprintf(`read archive "%s" error: %v`, e.Name, e.Err)
}

func (e *UnreadableArchiveError) Unwrap() error {
	return e.Err
}

// WriteFailureError is returned when the storage collaborator rejects a directory-create or file-write.
type WriteFailureError struct {
	// Op is either "mkdir" or "write".
	Op   string
	Path string
	Err  error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf(`%s "%s" error: %v`, e.Op, e.Path, e.Err)
}

func (e *WriteFailureError) Unwrap() error {
	return e.Err
}

func malformed(name string, offset int64, reason string, err error) *MalformedArchiveError {
	return &MalformedArchiveError{Name: name, Offset: offset, Reason: reason, Err: err}
}
