package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// FileName is the name of the configuration file that Load searches for.
const FileName = ".xarchive"

// Loader can be used for loading .xarchive configuration as well as overridden with default settings.
type Loader struct {
	// Profile is the AWS profile to use, taking precedence over the [aws] profile setting.
	Profile string

	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".xarchive" file
// available and load its contents into the Loader.
//
// The name of the .xarchive file is returned, or empty string if none was found.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts searching from the given directory instead of the working directory.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(cur, FileName)
	for {
		if err = ctx.Err(); err != nil {
			return "", err
		}

		fi, err := os.Stat(path)
		if err == nil && !fi.IsDir() {
			break
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			l.cfg = ini.Empty()
			return "", nil
		}

		cur = parent
		path = filepath.Join(cur, FileName)
	}

	if l.cfg, err = ini.Load(path); err != nil {
		l.cfg = ini.Empty()
		return path, err
	}

	return path, nil
}

// LoadProfile is a convenient method to set Loader.Profile then call Load.
func (l *Loader) LoadProfile(ctx context.Context, profile string) (string, error) {
	l.Profile = profile
	return l.Load(ctx)
}

func (l *Loader) file() *ini.File {
	if l.cfg == nil {
		return ini.Empty()
	}

	return l.cfg
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

// LoadProfile calls Loader.LoadProfile on the DefaultLoader instance.
func LoadProfile(ctx context.Context, profile string) (string, error) {
	return DefaultLoader.LoadProfile(ctx, profile)
}
