package internal

import (
	"regexp"
)

var sep = regexp.MustCompile(`[\\/]`)

// RootDir is the top-level directory shared by every entry of an archive.
//
// The zero value means there is no common root, in which case Trim returns paths unchanged.
type RootDir string

// Trim removes the root directory and the separator that follows it from the given archive path.
//
// Paths that do not start with the root are returned unchanged.
func (r RootDir) Trim(path string) string {
	if n := len(r); n != 0 && len(path) > n && path[:n] == string(r) && (path[n] == '/' || path[n] == '\\') {
		return path[n+1:]
	}

	return path
}

// FindZipRootDir returns the common root directory of the given file names in a ZIP archive.
//
// Given these three names (both `/` and `\` are accepted as separator):
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory of those files is `test`. The returned value is empty if the given files have no common
// root directory.
func FindZipRootDir(names []string) (rootDir RootDir) {
	fn := NewZipRootDirFinder()

	var ok bool
	for _, name := range names {
		rootDir, ok = fn(name)
		if !ok {
			break
		}
	}

	return
}

// NewZipRootDirFinder returns a function that can be passed the file names to compute the common root.
//
// NewZipRootDirFinder is a functional variant of FindZipRootDir. It returns the current root dir and a boolean
// indicating whether there is a common root so far. As soon as the returned boolean value is false, the search can stop
// since there is no common root and subsequent calls will keep returning `"", false`.
func NewZipRootDirFinder() func(string) (rootDir RootDir, hasRoot bool) {
	noRoot, root := false, ""

	return func(name string) (RootDir, bool) {
		if noRoot {
			return "", false
		}

		paths := sep.Split(name, 2)
		if len(paths) == 1 || paths[0] == "" || paths[0] == "." || paths[0] == ".." {
			// this is a file at top level (or an unsafe name) so there is no root for sure.
			noRoot = true
			return "", false
		}

		switch root {
		case paths[0]:
		case "":
			root = paths[0]
		default:
			noRoot = true
			return "", false
		}

		return RootDir(root), true
	}
}
