package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/host"
	"github.com/ziadkadry99/sitemermaid/internal/notifications"
	"github.com/ziadkadry99/sitemermaid/internal/progress"
	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/session"
	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type fakeOpener struct {
	urls []string
}

func (o *fakeOpener) Open(url string) error {
	o.urls = append(o.urls, url)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	store      *store.DiagramStore
	clipboard  *fakeClipboard
	opener     *fakeOpener
	dir        string
}

func newFixture(t *testing.T, renderStatus int) *fixture {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if renderStatus != http.StatusOK {
			http.Error(w, "render failed", renderStatus)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/img/") {
			w.Write([]byte("PNG"))
			return
		}
		w.Write([]byte("<svg/>"))
	}))
	t.Cleanup(srv.Close)

	doc := &host.Document{
		ProjectName: "Shop",
		RootNodes: []sitemap.RawNode{
			{ID: "1", PageName: "Home", URL: "home.html", Children: []sitemap.RawNode{
				{ID: "2", PageName: "About", URL: "about.html"},
			}},
		},
	}
	st := store.New()
	f := &fixture{
		store:     st,
		clipboard: &fakeClipboard{},
		opener:    &fakeOpener{},
		dir:       t.TempDir(),
	}
	f.dispatcher = NewDispatcher(Deps{
		Generator: session.New(doc, st, session.Options{ProjectTitle: true}),
		Store:     st,
		Renderer:  render.NewClient(srv.URL, "default", 5*time.Second),
		Clipboard: f.clipboard,
		Opener:    f.opener,
	}, Options{OutputDir: f.dir, CopyOnGenerate: true})
	return f
}

func TestDispatchGenerateCopiesToClipboard(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	res, err := f.dispatcher.Dispatch(context.Background(), actions.GenerateAll, Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Diagram == "" || f.clipboard.text != res.Diagram {
		t.Errorf("clipboard = %q, diagram = %q", f.clipboard.text, res.Diagram)
	}
	if res.Notification.Severity != notifications.SeverityInfo {
		t.Errorf("severity = %q", res.Notification.Severity)
	}
	if res.Notification.Message != "Sitemap generated and copied to clipboard" {
		t.Errorf("message = %q", res.Notification.Message)
	}
	if res.Kind != actions.KindGenerate {
		t.Errorf("kind = %q", res.Kind)
	}
}

func TestDispatchGenerateClipboardFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.clipboard.err = errors.New("no display")

	res, err := f.dispatcher.Dispatch(context.Background(), actions.GenerateAll, Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Notification.Message != "Sitemap generated" {
		t.Errorf("message = %q", res.Notification.Message)
	}
}

func TestDispatchStartHere(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	res, err := f.dispatcher.Dispatch(context.Background(), actions.GenerateStartHere, Request{PageURL: "http://proto/?id=2"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if strings.Contains(res.Diagram, "Home") {
		t.Errorf("start-here diagram includes ancestor:\n%s", res.Diagram)
	}

	res, err = f.dispatcher.Dispatch(context.Background(), actions.GenerateStartHere, Request{PageURL: "http://proto/?id=404"})
	if !errors.Is(err, sitemap.ErrNodeNotFound) {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
	if res.Notification.Severity != notifications.SeverityCritical {
		t.Errorf("severity = %q, want critical", res.Notification.Severity)
	}
	if !strings.HasPrefix(res.Notification.Message, "Failed to generate sitemap from current page: ") {
		t.Errorf("message = %q", res.Notification.Message)
	}
}

func TestDispatchStartHereByID(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	// StartID wins over a page URL pointing elsewhere.
	res, err := f.dispatcher.Dispatch(context.Background(), actions.GenerateStartHere,
		Request{StartID: "2", PageURL: "http://proto/?id=1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if strings.Contains(res.Diagram, "Home") || !strings.Contains(res.Diagram, `2["About"]`) {
		t.Errorf("diagram:\n%s", res.Diagram)
	}
	if res.Notification.Title != actions.GenerateStartHere.Operation() {
		t.Errorf("title = %q", res.Notification.Title)
	}
	if f.clipboard.text != res.Diagram {
		t.Errorf("clipboard = %q, want the generated diagram", f.clipboard.text)
	}

	res, err = f.dispatcher.Dispatch(context.Background(), actions.GenerateStartHere, Request{StartID: "404"})
	if !errors.Is(err, sitemap.ErrNodeNotFound) {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
	if res.Notification.Title != actions.GenerateStartHere.Operation() {
		t.Errorf("title = %q", res.Notification.Title)
	}
}

func TestExportActionsRequireDiagram(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	for _, a := range []actions.Action{actions.Copy, actions.DownloadText, actions.DownloadSVG, actions.OpenPNG} {
		_, err := f.dispatcher.Dispatch(context.Background(), a, Request{})
		if !errors.Is(err, ErrNoDiagram) {
			t.Errorf("%s: err = %v, want ErrNoDiagram", a, err)
		}
	}
}

func TestDispatchCopy(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.store.Set("graph TD", store.Settings{})

	if _, err := f.dispatcher.Dispatch(context.Background(), actions.Copy, Request{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if f.clipboard.text != "graph TD" {
		t.Errorf("clipboard = %q", f.clipboard.text)
	}

	f.clipboard.err = ErrClipboard
	res, err := f.dispatcher.Dispatch(context.Background(), actions.Copy, Request{})
	if !errors.Is(err, ErrClipboard) {
		t.Fatalf("err = %v, want ErrClipboard", err)
	}
	if res.Notification.Title != "copy sitemap" || res.Notification.Severity != notifications.SeverityCritical {
		t.Errorf("notification = %+v", res.Notification)
	}
}

func TestDispatchDownloads(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.store.Set("graph TD", store.Settings{})

	tests := []struct {
		action actions.Action
		file   string
		want   string
	}{
		{actions.DownloadText, TextFile, "graph TD"},
		{actions.DownloadSVG, SVGFile, "<svg/>"},
		{actions.DownloadPNG, PNGFile, "PNG"},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			res, err := f.dispatcher.Dispatch(context.Background(), tt.action, Request{})
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if res.Path != filepath.Join(f.dir, tt.file) {
				t.Errorf("Path = %q", res.Path)
			}
			data, err := os.ReadFile(res.Path)
			if err != nil {
				t.Fatalf("reading %s: %v", res.Path, err)
			}
			if string(data) != tt.want {
				t.Errorf("%s = %q, want %q", tt.file, data, tt.want)
			}
			if !strings.HasPrefix(res.Notification.Message, "Saved ") {
				t.Errorf("message = %q", res.Notification.Message)
			}
		})
	}
}

func TestDispatchDownloadServiceFailure(t *testing.T) {
	f := newFixture(t, http.StatusServiceUnavailable)
	f.store.Set("graph TD", store.Settings{})

	res, err := f.dispatcher.Dispatch(context.Background(), actions.DownloadSVG, Request{})
	if !errors.Is(err, render.ErrServiceFailure) {
		t.Fatalf("err = %v, want ErrServiceFailure", err)
	}
	if res.Notification.Message != "Failed to download SVG: render service returned status 503" {
		t.Errorf("message = %q", res.Notification.Message)
	}
	if _, statErr := os.Stat(filepath.Join(f.dir, SVGFile)); statErr == nil {
		t.Error("svg file written despite failure")
	}
}

func TestDispatchOpenURL(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.store.Set("graph TD", store.Settings{})

	res, err := f.dispatcher.Dispatch(context.Background(), actions.OpenPNG, Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(f.opener.urls) != 1 || f.opener.urls[0] != res.URL {
		t.Fatalf("opened %v, result url %q", f.opener.urls, res.URL)
	}
	if !strings.Contains(res.URL, "/img/pako:") || !strings.HasSuffix(res.URL, "?type=png") {
		t.Errorf("URL = %q", res.URL)
	}
	code, err := render.Deserialize(strings.TrimSuffix(res.URL[strings.Index(res.URL, "pako:")+5:], "?type=png"))
	if err != nil || code != "graph TD" {
		t.Errorf("decoded %q, %v", code, err)
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"svg", "TXT", "svg"})
	if err != nil {
		t.Fatalf("ParseFormats: %v", err)
	}
	if len(got) != 2 || got[0] != FormatSVG || got[1] != FormatText {
		t.Errorf("got %v", got)
	}
	if all, _ := ParseFormats([]string{"all"}); len(all) != len(AllFormats) {
		t.Errorf("all = %v", all)
	}
	if _, err := ParseFormats([]string{"gif"}); err == nil {
		t.Error("expected error for gif")
	}
}

type countingReporter struct {
	mu       sync.Mutex
	total    int
	advanced int
	finished bool
}

func (r *countingReporter) Start(total int) { r.total = total }
func (r *countingReporter) Advance(string) {
	r.mu.Lock()
	r.advanced++
	r.mu.Unlock()
}
func (r *countingReporter) Finish() { r.finished = true }

var _ progress.Reporter = (*countingReporter)(nil)

func TestExportAll(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	if _, err := f.dispatcher.Dispatch(context.Background(), actions.GenerateAll, Request{}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	reporter := &countingReporter{}
	paths, err := f.dispatcher.ExportAll(context.Background(), AllFormats, reporter)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(paths) != len(AllFormats) {
		t.Fatalf("paths = %v", paths)
	}
	if reporter.total != 5 || reporter.advanced != 5 || !reporter.finished {
		t.Errorf("reporter = %+v", reporter)
	}

	md, err := os.ReadFile(filepath.Join(f.dir, MarkdownFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(md), "# Shop Sitemap\n") || !strings.Contains(string(md), "```mermaid\n") {
		t.Errorf("markdown =\n%s", md)
	}

	page, err := os.ReadFile(filepath.Join(f.dir, HTMLFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "<title>Shop Sitemap</title>") || !strings.Contains(string(page), "<h1") {
		t.Errorf("html =\n%s", page)
	}
}

func TestExportAllEmpty(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	if _, err := f.dispatcher.ExportAll(context.Background(), AllFormats, nil); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("err = %v, want ErrNoDiagram", err)
	}
}

func TestExportAllFailure(t *testing.T) {
	f := newFixture(t, http.StatusBadGateway)
	f.store.Set("graph TD", store.Settings{})
	_, err := f.dispatcher.ExportAll(context.Background(), []Format{FormatText, FormatPNG}, nil)
	if !errors.Is(err, render.ErrServiceFailure) {
		t.Errorf("err = %v, want ErrServiceFailure", err)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown("", "graph TD", "")
	want := "# Sitemap\n\n```mermaid\ngraph TD\n```\n"
	if got != want {
		t.Errorf("Markdown = %q, want %q", got, want)
	}
}
