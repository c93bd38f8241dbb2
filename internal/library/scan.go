// Package library turns a media folder into playlists and keeps them current.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
	".mp4": {}, ".webm": {}, ".ogg": {}, ".mov": {},
}

// Supported reports whether name has an image or video extension the
// slideshow can show.
func Supported(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Scan lists the supported files directly inside dir, sorted by name, as
// absolute paths. Hidden files and subdirectories are skipped.
func Scan(dir string) ([]string, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("scan media dir: %w", err)
	}
	entries, err := os.ReadDir(absolute)
	if err != nil {
		return nil, fmt.Errorf("scan media dir: %w", err)
	}

	refs := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !Supported(name) {
			continue
		}
		refs = append(refs, filepath.Join(absolute, name))
	}

	sort.SliceStable(refs, func(i, j int) bool {
		left, right := strings.ToLower(filepath.Base(refs[i])), strings.ToLower(filepath.Base(refs[j]))
		if left == right {
			return refs[i] < refs[j]
		}
		return left < right
	})
	return refs, nil
}
