package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vk/apispec/internal/ctxlog"
)

// Bundle output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Bundle loads the spec at path and returns it with every external
// reference inlined, encoded as YAML or JSON.
func (a *App) Bundle(ctx context.Context, path, format string) ([]byte, error) {
	ctx = a.context(ctx)
	logger := ctxlog.Component(ctx, "app").With("path", path)

	doc, err := a.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	bundled, err := a.BundleDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	out, err := Encode(bundled, format)
	if err != nil {
		return nil, err
	}
	logger.Info("📦 Spec bundled.", "format", format, "bytes", len(out))
	return out, nil
}

// Encode renders a document tree as YAML or JSON. Keys come out sorted.
func Encode(data map[string]any, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q: must be %s or %s", format, FormatYAML, FormatJSON)
	}
	return buf.Bytes(), nil
}
