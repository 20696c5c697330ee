package z

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{name: "simple", entry: "a.txt", want: filepath.Join(root, "a.txt")},
		{name: "nested", entry: "path/to/b.txt", want: filepath.Join(root, "path", "to", "b.txt")},
		{name: "backslashes", entry: `path\to\c.txt`, want: filepath.Join(root, "path", "to", "c.txt")},
		{name: "dot dot inside root", entry: "path/../d.txt", want: filepath.Join(root, "d.txt")},
		{name: "leading slash stays inside root", entry: "/etc/passwd", want: filepath.Join(root, "etc", "passwd")},
		{name: "parent", entry: "../evil", wantErr: true},
		{name: "grandparent", entry: "../../evil", wantErr: true},
		{name: "grandparent with backslashes", entry: `..\..\evil`, wantErr: true},
		{name: "escape after descent", entry: "a/b/../../../evil", wantErr: true},
		{name: "sibling sharing prefix", entry: "../" + filepath.Base(root) + "-evil/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin(root, tt.entry)
			if tt.wantErr {
				var pe *PathTraversalError
				assert.ErrorAsf(t, err, &pe, "SafeJoin(%s) error = %v", tt.entry, err)
				assert.ErrorIs(t, err, ErrInsecurePath)
				return
			}

			assert.NoErrorf(t, err, "SafeJoin(%s) error = %v", tt.entry, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsBelow_Symlink(t *testing.T) {
	root, outside := t.TempDir(), t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("Symlink() error = %v", err)
	}

	ok, err := IsBelow(root, filepath.Join(root, "link", "evil"))
	assert.NoErrorf(t, err, "IsBelow() error = %v", err)
	assert.False(t, ok)

	_, err = SafeJoin(root, "link/evil")
	assert.True(t, errors.Is(err, ErrInsecurePath))
}

func TestIsBelow(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		candidate string
		want      bool
	}{
		{candidate: root, want: true},
		{candidate: filepath.Join(root, "a", "b"), want: true},
		{candidate: filepath.Join(root, "a", "..", "..", "b"), want: false},
		{candidate: root + "-sibling", want: false},
		{candidate: filepath.Dir(root), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			got, err := IsBelow(root, tt.candidate)
			assert.NoErrorf(t, err, "IsBelow(%s) error = %v", tt.candidate, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
