package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns where the broker keeps persisted topics when no
// --data-dir is given. FLOQ_DATA_DIR wins, then XDG_DATA_HOME, then the
// first existing OS-specific parent, then ~/.floq. Without a home
// directory it is ./data.
func DefaultDataDir() string {
	if dir := os.Getenv("FLOQ_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "floq")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	candidates := []struct{ parent, dir string }{
		{"/var/lib", "/var/lib/floq"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Floq")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Floq")},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, ".floq")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
