package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// File is one playable entry of a tab.
type File struct {
	Path     string
	Name     string
	Duration time.Duration
}

// ScanDir lists the playable audio files directly inside dir, sorted by name.
// Files that fail to probe are skipped.
func ScanDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := Probe(path)
		if err != nil {
			continue
		}
		files = append(files, File{
			Path:     path,
			Name:     e.Name(),
			Duration: info.Duration,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}
