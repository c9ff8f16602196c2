package enex2all

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// archiveExtension is the only file extension treated as an export archive.
const archiveExtension = ".enex"

// FindArchives resolves an input path to the list of archives to
// process. A file path must point at an archive; a directory is scanned
// for archives, descending into subdirectories only when recursive is
// set. Results are sorted for deterministic processing order.
func FindArchives(inputPath string, recursive bool) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveOpen, err)
	}

	if !info.IsDir() {
		if !isArchive(inputPath) {
			return nil, fmt.Errorf("%w: %s is not a %s file", ErrNoArchives, inputPath, archiveExtension)
		}
		return []string{inputPath}, nil
	}

	var archives []string
	if recursive {
		err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if !d.IsDir() && isArchive(path) {
				archives = append(archives, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(inputPath)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", inputPath, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isArchive(e.Name()) {
				archives = append(archives, filepath.Join(inputPath, e.Name()))
			}
		}
	}

	if len(archives) == 0 {
		return nil, fmt.Errorf("%w: under %s", ErrNoArchives, inputPath)
	}
	sort.Strings(archives)
	return archives, nil
}

func isArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), archiveExtension)
}
