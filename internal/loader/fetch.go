package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
)

// maxRemoteSize caps the body of a remote document.
const maxRemoteSize = 16 << 20

// HTTPFetcher loads remote documents referenced by URL. A single fetcher is
// shared by all resolutions of a run so connections are reused.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout. A
// zero timeout means 30 seconds.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// NewHTTPFetcherWithClient wraps an existing client.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

var _ Loader = (*HTTPFetcher)(nil)

// Load downloads and decodes the document at url.
func (f *HTTPFetcher) Load(ctx context.Context, url string) (*Document, error) {
	logger := ctxlog.Component(ctx, "fetcher").With("url", url)
	logger.Debug("Fetching remote spec.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New("loader.fetch", errs.KindNotFound, url, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, */*")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.New("loader.fetch", errs.KindNotFound, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New("loader.fetch", errs.KindNotFound, url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, errs.New("loader.fetch", errs.KindNotFound, url, err)
	}
	if len(raw) > maxRemoteSize {
		return nil, errs.New("loader.fetch", errs.KindUnsupported, url, fmt.Errorf("document exceeds %d bytes", maxRemoteSize))
	}

	doc, err := Decode(raw)
	if err != nil {
		return nil, errs.New("loader.fetch", errs.KindParse, url, err)
	}
	doc.Path = url

	logger.Debug("Remote spec fetched.", "status", resp.StatusCode, "bytes", len(raw), "duration", time.Since(start))
	return doc, nil
}
