package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// File names used for downloads.
const (
	TextFile     = "sitemap.txt"
	SVGFile      = "sitemap.svg"
	PNGFile      = "sitemap.png"
	MarkdownFile = "sitemap.md"
	HTMLFile     = "sitemap.html"
)

// Writer saves downloads into a directory, creating it on first use.
type Writer struct {
	Dir string
}

// Write stores data under name and returns the full path.
func (w Writer) Write(name string, data []byte) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// Markdown wraps markup in a document with an optional rendered image link.
func Markdown(title, markup, imageURL string) string {
	if title == "" {
		title = "Sitemap"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if imageURL != "" {
		fmt.Fprintf(&b, "![%s](%s)\n\n", title, imageURL)
	}
	b.WriteString("```mermaid\n")
	b.WriteString(markup)
	b.WriteString("\n```\n")
	return b.String()
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// RenderMarkdown converts markdown to an HTML fragment.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := newMarkdown().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTMLPage renders a standalone page from markdown.
func HTMLPage(title, markdown string) ([]byte, error) {
	body, err := RenderMarkdown(markdown)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Sitemap"
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, body}); err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return buf.Bytes(), nil
}
