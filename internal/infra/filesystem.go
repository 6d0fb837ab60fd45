package infra

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const bytesPerMB = 1024 * 1024

// Exists checks if a path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveTree removes a file or directory recursively, clearing read-only
// permissions first so locked leftovers do not abort the removal.
func RemoveTree(path string) error {
	unsetReadonlyRecursive(path)
	return os.RemoveAll(path)
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// unsetReadonlyRecursive restores owner write permission on path and
// everything under it. Failures on individual entries are ignored; the
// caller's removal will surface anything that still matters.
func unsetReadonlyRecursive(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mode := info.Mode()
		if mode&0200 == 0 {
			_ = os.Chmod(p, mode.Perm()|0200)
		}
		return nil
	})
}

// dirSizeMB sums the size of every regular file under root, in MB.
// Best-effort: unreadable children are skipped, not fatal. A missing root
// contributes zero.
func dirSizeMB(root string) float64 {
	var total int64
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return float64(total) / bytesPerMB
}
