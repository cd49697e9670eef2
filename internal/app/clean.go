package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/fsutil"
)

// Clean deletes the cache artifacts under root and returns what was
// removed. Any other file is left untouched. The application's own result
// cache is closed first.
func (a *App) Clean(ctx context.Context, root string) ([]string, error) {
	ctx = a.context(ctx)
	logger := ctxlog.Component(ctx, "app").With("root", root)

	if err := a.Close(); err != nil {
		logger.Warn("Closing the result cache failed.", "error", err)
	}
	a.cache = nil

	artifacts, err := fsutil.FindArtifacts(root)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(artifacts))
	for _, path := range artifacts {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		logger.Debug("Cache artifact removed.", "path", path)
		removed = append(removed, path)
	}
	logger.Info("🧹 Clean finished.", "removed", len(removed))
	return removed, nil
}
