package landmark

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/teslashibe/go-facemesh/internal/httpc"
	"github.com/teslashibe/go-facemesh/internal/log"
)

// Fetcher resolves model locations to local files, downloading remote ones
// into a cache directory once.
type Fetcher struct {
	client   *resty.Client
	cacheDir string
}

// NewFetcher creates a fetcher using the shared download client.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		client:   httpc.NewResty(httpc.DownloadTimeout),
		cacheDir: cacheDir,
	}
}

// Fetch is a convenience wrapper around NewFetcher(cacheDir).Fetch.
func Fetch(ctx context.Context, src, cacheDir string) (string, error) {
	return NewFetcher(cacheDir).Fetch(ctx, src)
}

// Fetch returns a local path for src. Local paths must exist; http(s)
// URLs are downloaded into the cache unless already present.
func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	if !isRemote(src) {
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		return src, nil
	}

	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("%w: no file name in %s", ErrModelLoad, src)
	}
	dst := filepath.Join(f.cacheDir, name)
	if _, err := os.Stat(dst); err == nil {
		log.Debug("model cache hit", "path", dst)
		return dst, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	log.Info("downloading model", "url", src)
	resp, err := f.client.R().SetContext(ctx).Get(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: %s returned %s", ErrModelLoad, src, resp.Status())
	}

	tmp := dst + ".part"
	if err := os.WriteFile(tmp, resp.Body(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	log.Info("model cached", "path", dst, "bytes", len(resp.Body()))
	return dst, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
