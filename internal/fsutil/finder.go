// Package fsutil finds spec documents and cache artifacts on disk.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SpecPatterns are the file names considered spec documents when a
// directory is given instead of a file.
var SpecPatterns = []string{"*.yaml", "*.yml", "*.json"}

// FindSpecs expands every entry of paths into spec files. Files are kept
// as given; directories are searched recursively. ignore holds doublestar
// patterns matched against the slash-separated path relative to the
// directory being searched. The result is sorted and free of duplicates.
func FindSpecs(paths []string, ignore []string) ([]string, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if rel != "." && (strings.HasPrefix(d.Name(), ".") || ignored(rel, ignore)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSpec(d.Name()) || ignored(rel, ignore) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// Artifact patterns removed by Clean. Directories matching CacheDirName are
// removed as a whole.
const CacheDirName = ".apispec-cache"

var artifactPatterns = []string{"*.apispec.db", "*.apispec.db-wal", "*.apispec.db-shm"}

// IsArtifact reports whether a file name is a cache artifact.
func IsArtifact(name string) bool {
	for _, p := range artifactPatterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// FindArtifacts lists cache artifacts under root: CacheDirName directories
// and result database files. Nested entries of a matched directory are not
// listed separately.
func FindArtifacts(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == CacheDirName {
				found = append(found, path)
				return filepath.SkipDir
			}
			return nil
		}
		if IsArtifact(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

func isSpec(name string) bool {
	for _, p := range SpecPatterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func ignored(rel string, ignore []string) bool {
	for _, p := range ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
