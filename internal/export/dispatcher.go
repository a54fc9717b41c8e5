package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/notifications"
	"github.com/ziadkadry99/sitemermaid/internal/progress"
	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

// Generator produces diagrams and publishes them to the store.
type Generator interface {
	GenerateAll(ctx context.Context) (string, error)
	GenerateFrom(ctx context.Context, startID string) (string, error)
	GenerateHere(ctx context.Context, pageURL string) (string, error)
}

// Deps are the collaborators a Dispatcher drives. Clipboard and Opener
// default to the system implementations.
type Deps struct {
	Generator Generator
	Store     *store.DiagramStore
	Renderer  *render.Client
	Notifier  *notifications.Notifier
	Clipboard Clipboard
	Opener    Opener
}

// Options tune dispatch behaviour.
type Options struct {
	OutputDir string
	// CopyOnGenerate copies freshly generated markup to the clipboard.
	CopyOnGenerate bool
	Logger         *slog.Logger
}

// Request carries per-invocation context for an action.
type Request struct {
	// PageURL is the viewer location, used by start-here generation.
	PageURL string `json:"page_url,omitempty"`
	// StartID names the start page directly and takes precedence over PageURL.
	StartID string `json:"start_id,omitempty"`
}

// Result describes what an action produced.
type Result struct {
	Action       actions.Action             `json:"action"`
	Kind         actions.Kind               `json:"kind"`
	Diagram      string                     `json:"diagram,omitempty"`
	URL          string                     `json:"url,omitempty"`
	Path         string                     `json:"path,omitempty"`
	Notification notifications.Notification `json:"notification"`
}

// Dispatcher runs toolbar actions and reports their outcome as notifications.
type Dispatcher struct {
	deps   Deps
	opts   Options
	writer Writer
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps Deps, opts Options) *Dispatcher {
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}
	if deps.Opener == nil {
		deps.Opener = BrowserOpener{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNotifier(nil, notifications.Options{Logger: opts.Logger})
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewClient("", "", 0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{deps: deps, opts: opts, writer: Writer{Dir: opts.OutputDir}, logger: logger}
}

// Dispatch runs action a. Every outcome is also recorded as a notification,
// returned in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, a actions.Action, req Request) (Result, error) {
	res := Result{Action: a, Kind: a.Kind()}
	var (
		msg string
		err error
	)

	if a.Kind() == actions.KindGenerate && d.deps.Generator == nil {
		return res, fmt.Errorf("action %q needs a generator", a)
	}

	switch a {
	case actions.GenerateAll:
		res.Diagram, err = d.deps.Generator.GenerateAll(ctx)
		if err == nil {
			msg = d.afterGenerate(ctx, res.Diagram)
		}
	case actions.GenerateStartHere:
		if req.StartID != "" {
			res.Diagram, err = d.deps.Generator.GenerateFrom(ctx, req.StartID)
		} else {
			res.Diagram, err = d.deps.Generator.GenerateHere(ctx, req.PageURL)
		}
		if err == nil {
			msg = d.afterGenerate(ctx, res.Diagram)
		}
	case actions.Copy:
		if res.Diagram, err = d.current(); err == nil {
			err = d.deps.Clipboard.WriteAll(res.Diagram)
			msg = "Sitemap copied to clipboard"
		}
	case actions.DownloadText:
		res.Path, err = d.saveText()
	case actions.DownloadSVG:
		res.Path, err = d.saveImage(ctx, render.FormatSVG)
	case actions.DownloadPNG:
		res.Path, err = d.saveImage(ctx, render.FormatPNG)
	case actions.OpenSVG:
		res.URL, err = d.open(render.FormatSVG)
	case actions.OpenPNG:
		res.URL, err = d.open(render.FormatPNG)
	default:
		return res, fmt.Errorf("unknown action %q", a)
	}

	if err != nil {
		res.Notification = d.deps.Notifier.Error(ctx, a.Operation(), err)
		return res, err
	}
	switch {
	case msg != "":
	case res.Path != "":
		msg = "Saved " + res.Path
	case res.URL != "":
		msg = "Opened " + a.Label() + " in browser"
	}
	res.Notification = d.deps.Notifier.Success(ctx, a.Operation(), msg)
	return res, nil
}

func (d *Dispatcher) afterGenerate(ctx context.Context, diagram string) string {
	if !d.opts.CopyOnGenerate {
		return "Sitemap generated"
	}
	if err := d.deps.Clipboard.WriteAll(diagram); err != nil {
		d.deps.Notifier.Warn(ctx, "copy sitemap", err.Error())
		return "Sitemap generated"
	}
	return "Sitemap generated and copied to clipboard"
}

func (d *Dispatcher) current() (string, error) {
	text := d.deps.Store.Text()
	if text == "" {
		return "", ErrNoDiagram
	}
	return text, nil
}

func (d *Dispatcher) saveText() (string, error) {
	text, err := d.current()
	if err != nil {
		return "", err
	}
	return d.writer.Write(TextFile, []byte(text))
}

func (d *Dispatcher) saveImage(ctx context.Context, format render.Format) (string, error) {
	text, err := d.current()
	if err != nil {
		return "", err
	}
	data, err := d.deps.Renderer.Fetch(ctx, text, format)
	if err != nil {
		return "", err
	}
	name := SVGFile
	if format == render.FormatPNG {
		name = PNGFile
	}
	return d.writer.Write(name, data)
}

func (d *Dispatcher) open(format render.Format) (string, error) {
	text, err := d.current()
	if err != nil {
		return "", err
	}
	url, err := d.deps.Renderer.URL(text, format)
	if err != nil {
		return "", err
	}
	if err := d.deps.Opener.Open(url); err != nil {
		return url, fmt.Errorf("opening browser: %w", err)
	}
	return url, nil
}

// Format is a batch export format.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
)

// AllFormats lists every batch export format.
var AllFormats = []Format{FormatText, FormatMarkdown, FormatHTML, FormatSVG, FormatPNG}

// ParseFormats validates a list such as ["txt", "svg"]. "all" expands to
// every format.
func ParseFormats(list []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "all" {
			return append([]Format(nil), AllFormats...), nil
		}
		f := Format(s)
		switch f {
		case FormatText, FormatMarkdown, FormatHTML, FormatSVG, FormatPNG:
		default:
			return nil, fmt.Errorf("unsupported export format %q", s)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// ExportAll writes the current diagram in every requested format
// concurrently and returns the written paths in format order.
func (d *Dispatcher) ExportAll(ctx context.Context, formats []Format, reporter progress.Reporter) ([]string, error) {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	state := d.deps.Store.Get()
	if state.Empty() {
		err := ErrNoDiagram
		d.deps.Notifier.Error(ctx, "export sitemap", err)
		return nil, err
	}

	reporter.Start(len(formats))
	defer reporter.Finish()

	paths := make([]string, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range formats {
		g.Go(func() error {
			path, err := d.exportOne(gctx, f, state)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			paths[i] = path
			reporter.Advance(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.deps.Notifier.Error(ctx, "export sitemap", err)
		return nil, err
	}

	d.deps.Notifier.Success(ctx, "export sitemap", fmt.Sprintf("Exported %d file(s) to %s", len(paths), d.writer.Dir))
	return paths, nil
}

func (d *Dispatcher) exportOne(ctx context.Context, f Format, state store.State) (string, error) {
	switch f {
	case FormatText:
		return d.writer.Write(TextFile, []byte(state.Diagram))
	case FormatMarkdown, FormatHTML:
		imageURL, err := d.deps.Renderer.URL(state.Diagram, render.FormatSVG)
		if err != nil {
			return "", err
		}
		md := Markdown(state.Settings.Title, state.Diagram, imageURL)
		if f == FormatMarkdown {
			return d.writer.Write(MarkdownFile, []byte(md))
		}
		page, err := HTMLPage(state.Settings.Title, md)
		if err != nil {
			return "", err
		}
		return d.writer.Write(HTMLFile, page)
	case FormatSVG, FormatPNG:
		rf := render.FormatSVG
		name := SVGFile
		if f == FormatPNG {
			rf, name = render.FormatPNG, PNGFile
		}
		data, err := d.deps.Renderer.Fetch(ctx, state.Diagram, rf)
		if err != nil {
			return "", err
		}
		return d.writer.Write(name, data)
	default:
		return "", fmt.Errorf("unsupported export format %q", f)
	}
}
