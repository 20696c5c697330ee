package z

import (
	"os"
	"path/filepath"
	"strings"
)

// IsBelow returns true only if candidate, once canonicalised, is root or is inside root.
//
// Both paths are made absolute and cleaned, then symlinks are resolved on their longest existing prefix so that a
// symlink inside root pointing elsewhere is caught as well. The check is done on the canonical strings, never on the raw
// joined path, which defeats `../` sequences.
func IsBelow(root, candidate string) (bool, error) {
	r, err := canonicalize(root)
	if err != nil {
		return false, err
	}

	c, err := canonicalize(candidate)
	if err != nil {
		return false, err
	}

	if c == r {
		return true, nil
	}
	if !strings.HasSuffix(r, string(os.PathSeparator)) {
		r += string(os.PathSeparator)
	}

	return strings.HasPrefix(c, r), nil
}

// SafeJoin joins root and the entry name and verifies the result stays inside root.
//
// Both `/` and `\` in name are treated as separators. Returns a *PathTraversalError if the joined path escapes root.
func SafeJoin(root, name string) (string, error) {
	path := filepath.Clean(filepath.FromSlash(root + "/" + strings.ReplaceAll(name, `\`, "/")))

	ok, err := IsBelow(root, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &PathTraversalError{Root: root, Name: name, Path: path}
	}

	return path, nil
}

// SafeJoinFile is a variant of SafeJoin for entries that are written as files.
//
// Names such as "", "." or "a/.." resolve to root itself which can never be written as a file, so they are rejected
// with a *MalformedArchiveError naming the entry.
func SafeJoinFile(root, name string) (string, error) {
	path, err := SafeJoin(root, name)
	if err != nil {
		return "", err
	}

	if path == filepath.Clean(filepath.FromSlash(root)) {
		return "", &MalformedArchiveError{Name: name, Reason: "entry resolves to the destination directory"}
	}

	return path, nil
}

// canonicalize returns the absolute, cleaned, symlink-resolved form of path.
//
// path does not need to exist; only its longest existing prefix is resolved.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var rest []string
	for cur := abs; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}

		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}
