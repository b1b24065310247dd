// Package fetch downloads feed bodies into the staging directory. Every
// failure it returns carries the services.ErrFetch marker: a feed that
// cannot be downloaded is skipped by the pipeline, never retried.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"epgmerge/internal/fileutil"
	"epgmerge/internal/services"
)

// Fetcher downloads feed bodies over HTTP with a fixed per-request timeout.
type Fetcher struct {
	client     *http.Client
	stagingDir string
	userAgent  string
}

// New creates a Fetcher staging downloads into stagingDir.
func New(timeout time.Duration, stagingDir, userAgent string) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		stagingDir: stagingDir,
		userAgent:  userAgent,
	}
}

// Fetch downloads rawURL and streams the body to a staged file named after
// the URL path basename. Name collisions within the staging directory are
// resolved with an incrementing "(n)" suffix before the extension. On any
// failure the staged path is removed and an ErrFetch-tagged error returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	staged, err := f.stagedPath(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "fetcher", "request", rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "fetcher", "download", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", services.Wrap(services.ErrFetch, "fetcher", "download",
			fmt.Sprintf("%s: status %s", rawURL, resp.Status), nil)
	}

	out, err := os.Create(staged)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "fetcher", "stage", staged, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrFetch, "fetcher", "stage", staged, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(staged)
		return "", services.Wrap(services.ErrFetch, "fetcher", "stage", staged, err)
	}

	return staged, nil
}

// stagedPath derives the staging filename from the URL path basename.
func (f *Fetcher) stagedPath(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "fetcher", "parse url", rawURL, err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", services.Wrap(services.ErrFetch, "fetcher", "parse url",
			fmt.Sprintf("%s: no file name in url path", rawURL), nil)
	}
	return fileutil.UniquePath(filepath.Join(f.stagingDir, name)), nil
}
