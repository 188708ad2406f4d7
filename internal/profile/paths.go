package profile

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "retain-sync"

// DataDir returns the platform-specific directory under which every
// profile's state lives. On Linux, respects XDG_DATA_HOME (defaults to
// ~/.local/share/retain-sync); on macOS, uses the Application Support
// convention; other platforms fall back to ~/.local/share.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		return filepath.Join(home, ".local", "share", appName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	default:
		return filepath.Join(home, ".local", "share", appName), nil
	}
}

// DefaultTrashDir returns the per-user trash directory used as the
// TrashDirs default: $XDG_DATA_HOME/Trash/files.
func DefaultTrashDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(base, "Trash", "files"), nil
}

// Dir returns the directory holding everything for a named profile.
func Dir(name string) (string, error) {
	base, err := DataDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(base, "profiles", name), nil
}

// ConfigPath returns the path to a profile's config file.
func ConfigPath(name string) (string, error) {
	dir, err := Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// ExcludePath returns the path to a profile's exclude pattern file.
func ExcludePath(name string) (string, error) {
	dir, err := Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "exclude"), nil
}

// InfoPath returns the path to a profile's metadata document.
func InfoPath(name string) (string, error) {
	dir, err := Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "info.json"), nil
}

// LocalDBPath returns the path to a profile's priority database.
func LocalDBPath(name string) (string, error) {
	dir, err := Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "local.db"), nil
}

// MountDir returns the path to a profile's remote mountpoint.
func MountDir(name string) (string, error) {
	dir, err := Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mnt"), nil
}

// ListProfileNames returns every profile name with a directory under
// DataDir()/profiles. Returns an empty slice if the profiles directory
// doesn't exist yet.
func ListProfileNames() ([]string, error) {
	base, err := DataDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(base, "profiles"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return names, nil
}
