package assets

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 30 * time.Second

// Fetcher downloads remote assets into a per-render directory. Local
// paths pass through untouched. Every download is bounded by a timeout
// so one stalled CDN cannot wedge a render.
type Fetcher struct {
	Dir     string
	Timeout time.Duration
	Client  *http.Client
	Log     *log.Logger
}

// Get returns a local path for the asset source. Remote sources are
// downloaded; local paths are verified and passed through.
func (f *Fetcher) Get(ctx context.Context, src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", fmt.Errorf("empty asset source")
	}

	if !isRemote(src) {
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("local asset %s: %w", src, err)
		}
		return src, nil
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure assets dir: %w", err)
	}

	// Completed downloads are keyed by URL hash, so a prefetched or
	// previously fetched asset is reused instead of downloaded again.
	if matches, err := filepath.Glob(filepath.Join(f.Dir, cacheKey(src)+"*")); err == nil && len(matches) > 0 {
		return matches[0], nil
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", src, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", src, resp.Status)
	}

	target := filepath.Join(f.Dir, localName(src, resp.Header.Get("Content-Type")))
	tmp, err := os.CreateTemp(f.Dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("download %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close download: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize download: %w", err)
	}

	f.logf("fetched %s -> %s", src, filepath.Base(target))
	return target, nil
}

// Prefetch downloads a set of sources concurrently. Failed sources are
// logged and omitted from the result; the caller degrades those assets
// to placeholders instead of failing the render.
func (f *Fetcher) Prefetch(ctx context.Context, sources []string) map[string]string {
	type fetched struct {
		src, path string
	}

	results := make(chan fetched, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		src := src
		if src == "" || !isRemote(src) || seen[src] {
			continue
		}
		seen[src] = true
		g.Go(func() error {
			path, err := f.Get(gctx, src)
			if err != nil {
				f.logf("prefetch %s failed: %v", src, err)
				return nil
			}
			results <- fetched{src: src, path: path}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	out := make(map[string]string, len(sources))
	for r := range results {
		out[r.src] = r.path
	}
	return out
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// cacheKey is the stable on-disk name prefix for one source URL.
func cacheKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return fmt.Sprintf("%x", sum[:8])
}

// localName derives a stable on-disk name from the source URL, keeping
// the extension so ffmpeg and image decoders can sniff formats.
func localName(src, contentType string) string {
	ext := ""
	if u, err := url.Parse(src); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return cacheKey(src) + ext
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Log != nil {
		f.Log.Printf(format, args...)
	}
}
