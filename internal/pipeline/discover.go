package pipeline

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// MediaExtensions lists the extensions batch mode picks up, lowercase with
// the leading dot.
var MediaExtensions = []string{
	".mkv", ".mp4", ".m4v", ".mov", ".avi", ".wmv", ".flv", ".webm",
	".ts", ".mts", ".m2ts", ".mpg", ".mpeg", ".vob", ".ogv", ".3gp",
}

// Discover returns every media file under inputDir in sorted order.
// Directories named "extras" are not descended into, and dot-prefixed
// entries (hidden folders, "._" resource forks) are ignored.
func Discover(inputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != inputDir && (strings.HasPrefix(name, ".") || strings.EqualFold(name, "extras")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		if slices.Contains(MediaExtensions, strings.ToLower(filepath.Ext(name))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
