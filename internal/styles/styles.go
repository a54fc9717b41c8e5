// Package styles loads the viewer stylesheet from remote URLs, falling back
// to an embedded copy when a URL is slow or unreachable.
package styles

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/sitemermaid/internal/notifications"
)

//go:embed fallback.css
var fallbackCSS string

// DefaultTimeout bounds each stylesheet fetch.
const DefaultTimeout = 5 * time.Second

// Warner records a user-visible warning. *notifications.Notifier satisfies it.
type Warner interface {
	Warn(ctx context.Context, op, message string) notifications.Notification
}

// Stylesheet is the loaded, minified CSS.
type Stylesheet struct {
	CSS      string
	Fallback bool
	// Failed lists the URLs that could not be loaded.
	Failed []string
}

// Loader fetches and caches the stylesheet.
type Loader struct {
	urls    []string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
	warner  Warner
	min     *minify.M

	mu     sync.Mutex
	cached *Stylesheet
}

// NewLoader creates a Loader. warner may be nil.
func NewLoader(urls []string, timeout time.Duration, logger *slog.Logger, warner Warner) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return &Loader{
		urls:    urls,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
		warner:  warner,
		min:     m,
	}
}

// Load fetches every URL in parallel, each bounded by the loader timeout,
// and concatenates them in order. Any failure adds the fallback stylesheet
// and records a warning; Load itself never fails. The result is cached
// unless ctx ended before the fetches completed.
func (l *Loader) Load(ctx context.Context) Stylesheet {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return *l.cached
	}

	parts := make([]string, len(l.urls))
	errs := make([]error, len(l.urls))
	var g errgroup.Group
	for i, url := range l.urls {
		g.Go(func() error {
			parts[i], errs[i] = l.fetch(ctx, url)
			return nil
		})
	}
	g.Wait()

	sheet := Stylesheet{}
	var b strings.Builder
	for i, part := range parts {
		if errs[i] != nil {
			sheet.Failed = append(sheet.Failed, l.urls[i])
			l.logger.Warn("stylesheet unavailable, using fallback", "url", l.urls[i], "error", errs[i])
			continue
		}
		b.WriteString(part)
		b.WriteByte('\n')
	}
	if len(sheet.Failed) > 0 || len(l.urls) == 0 {
		sheet.Fallback = true
		b.WriteString(fallbackCSS)
	}
	sheet.CSS = l.minify(b.String())

	// Failures under a finished ctx say nothing about the URLs themselves.
	if len(sheet.Failed) > 0 && ctx.Err() != nil {
		return sheet
	}
	if len(sheet.Failed) > 0 && l.warner != nil {
		l.warner.Warn(ctx, "load styles", fmt.Sprintf("using fallback stylesheet, %d of %d failed", len(sheet.Failed), len(l.urls)))
	}
	l.cached = &sheet
	return sheet
}

// Reset drops the cached stylesheet so the next Load fetches again. The
// server calls it when the watched snapshot changes.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// Handler serves the stylesheet as text/css.
func (l *Loader) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet := l.Load(r.Context())
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		io.WriteString(w, sheet.CSS)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (l *Loader) minify(s string) string {
	out, err := l.min.String("text/css", s)
	if err != nil {
		l.logger.Warn("minifying stylesheet failed, serving original", "error", err)
		return s
	}
	return out
}

// Fallback returns the embedded stylesheet, unminified.
func Fallback() string { return fallbackCSS }
