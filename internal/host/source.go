package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ohler55/ojg/oj"

	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
)

// Source produces document snapshots. A source that is not ready yet
// returns an error wrapping sitemap.ErrInputUnavailable.
type Source interface {
	Load(ctx context.Context) (*Document, error)
}

// FileSource reads a JSON snapshot from disk.
type FileSource struct {
	Path  string
	Paths Paths
}

func (s *FileSource) Load(ctx context.Context) (*Document, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", sitemap.ErrInputUnavailable, s.Path)
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", s.Path, err)
	}
	return parse(raw, s.Paths, s.Path)
}

// HTTPSource fetches a JSON snapshot over HTTP, for example from a running
// prototype export server.
type HTTPSource struct {
	URL    string
	Paths  Paths
	Client *http.Client
}

func (s *HTTPSource) Load(ctx context.Context) (*Document, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sitemap.ErrInputUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", sitemap.ErrInputUnavailable, s.URL, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	return parse(raw, s.Paths, s.URL)
}

// StaticSource serves a fixed document.
type StaticSource struct {
	Doc *Document
}

func (s *StaticSource) Load(ctx context.Context) (*Document, error) {
	if s.Doc == nil || s.Doc.RootNodes == nil {
		return nil, sitemap.ErrInputUnavailable
	}
	return s.Doc, nil
}

func parse(raw []byte, paths Paths, origin string) (*Document, error) {
	data, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", origin, err)
	}
	if paths.Roots == "" {
		paths = DefaultPaths()
	}
	return Decode(data, paths)
}

// NewSource picks an HTTPSource for http(s) locations and a FileSource otherwise.
func NewSource(location string, paths Paths) Source {
	if len(location) > 7 && (location[:7] == "http://" || (len(location) > 8 && location[:8] == "https://")) {
		return &HTTPSource{URL: location, Paths: paths}
	}
	return &FileSource{Path: location, Paths: paths}
}

// Wait polls src until it yields a document, retrying only while the input
// is unavailable. It gives up after attempts tries spaced by interval, or
// when ctx is cancelled.
func Wait(ctx context.Context, src Source, attempts int, interval time.Duration, logger *slog.Logger) (*Document, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		doc, err := src.Load(ctx)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, sitemap.ErrInputUnavailable) {
			return nil, err
		}
		lastErr = err
		if i == attempts {
			break
		}
		logger.Debug("host document not ready", "attempt", i, "of", attempts, "error", err)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrEnvironmentNotFound, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrEnvironmentNotFound, attempts, lastErr)
}

// Discover returns snapshot files under root matching a doublestar pattern,
// sorted for stable batch output.
func Discover(root, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}
	sort.Strings(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return paths, nil
}
