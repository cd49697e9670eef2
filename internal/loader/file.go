package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/dag"
	"github.com/vk/apispec/internal/errs"
)

// Loader is the interface for anything that can produce a Document from a
// location.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// FileLoader reads spec documents from the local file system.
type FileLoader struct {
	readFile func(string) ([]byte, error)
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithFS makes the loader read from fsys instead of the operating system.
// Paths are interpreted relative to the root of fsys.
func WithFS(fsys fs.FS) Option {
	return func(l *FileLoader) {
		l.readFile = func(name string) ([]byte, error) {
			return fs.ReadFile(fsys, filepath.ToSlash(filepath.Clean(name)))
		}
	}
}

// NewFileLoader creates a loader backed by os.ReadFile.
func NewFileLoader(opts ...Option) *FileLoader {
	l := &FileLoader{readFile: os.ReadFile}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Loader = (*FileLoader)(nil)

// Load reads and decodes a single file. Include statements are recorded on
// the document but not followed.
func (l *FileLoader) Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.Component(ctx, "loader")
	logger.Debug("Reading spec file.", "path", path)

	raw, err := l.readFile(path)
	if err != nil {
		kind := errs.KindNotFound
		if !errors.Is(err, fs.ErrNotExist) {
			kind = errs.KindParse
		}
		return nil, errs.New("loader.read", kind, path, err)
	}

	doc, err := Decode(raw)
	if err != nil {
		var oe *errs.OpError
		if errors.As(err, &oe) && oe.Path == "" {
			oe.Path = path
		}
		return nil, err
	}
	doc.Path = path

	logger.Debug("Spec file decoded.", "path", path, "top_level_keys", len(doc.Data), "includes", len(doc.Includes))
	return doc, nil
}

// LoadWithIncludes loads path and merges every file it includes, directly or
// transitively. Include targets are relative to the including file. Each
// file is merged once, depth-first in statement order; an include cycle is
// an error.
func (l *FileLoader) LoadWithIncludes(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.Component(ctx, "loader")

	root, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	docs := map[string]*Document{path: root}
	children := map[string][]string{}
	graph := dag.New()
	graph.AddNode(path)

	queue := []string{path}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue[0]
		queue = queue[1:]

		for _, inc := range docs[current].Includes {
			target := resolveInclude(current, inc)
			children[current] = append(children[current], target)

			if !graph.HasNode(target) {
				graph.AddNode(target)
			}
			if err := graph.AddEdge(current, target); err != nil {
				return nil, includeCycle(path, err)
			}
			if _, loaded := docs[target]; loaded {
				continue
			}

			doc, err := l.Load(ctx, target)
			if err != nil {
				return nil, errs.New("loader.include", errs.KindNotFound, current, err)
			}
			docs[target] = doc
			queue = append(queue, target)
		}
	}

	if err := graph.DetectCycles(); err != nil {
		return nil, includeCycle(path, err)
	}

	merged := &Document{
		Path:      root.Path,
		Raw:       root.Raw,
		Data:      root.Data,
		Positions: root.Positions,
		Includes:  root.Includes,
	}
	visited := map[string]bool{path: true}
	var walk func(file string)
	walk = func(file string) {
		for _, child := range children[file] {
			if visited[child] {
				continue
			}
			visited[child] = true
			logger.Debug("Merging included spec.", "include", child, "into", path)
			Merge(merged, docs[child])
			walk(child)
		}
	}
	walk(path)

	logger.Debug("Includes merged.", "path", path, "files", len(visited))
	return merged, nil
}

func resolveInclude(from, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(filepath.Dir(from), target)
}

func includeCycle(path string, err error) error {
	var cycle *dag.CycleError
	if errors.As(err, &cycle) {
		return errs.New("loader.include", errs.KindIncludeCycle, cycle.Start(), errors.Join(errs.ErrIncludeCycle, err))
	}
	return errs.New("loader.include", errs.KindIncludeCycle, path, err)
}
