package host

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/jp"

	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
)

// ErrEnvironmentNotFound is returned by Wait when the host document never
// became available.
var ErrEnvironmentNotFound = errors.New("host environment not found")

// Document is a read-only snapshot of the prototyping tool's document.
type Document struct {
	ProjectName   string
	ProjectID     string
	CurrentPageID string
	RootNodes     []sitemap.RawNode
}

// Title returns the diagram title derived from the project name.
func (d *Document) Title() string {
	if d.ProjectName == "" {
		return ""
	}
	return d.ProjectName + " Sitemap"
}

// Paths are JSONPath expressions locating document fields in a snapshot.
type Paths struct {
	Roots       string `yaml:"roots" koanf:"roots"`
	ProjectName string `yaml:"project_name" koanf:"project_name"`
	ProjectID   string `yaml:"project_id" koanf:"project_id"`
	CurrentPage string `yaml:"current_page" koanf:"current_page"`
}

// DefaultPaths match an exported Axure document object.
func DefaultPaths() Paths {
	return Paths{
		Roots:       "$.sitemap.rootNodes",
		ProjectName: "$.configuration.projectName",
		ProjectID:   "$.configuration.projectId",
		CurrentPage: "$.page.shortId",
	}
}

// Decode extracts a Document from parsed JSON data.
func Decode(data any, paths Paths) (*Document, error) {
	rootsExpr, err := jp.ParseString(paths.Roots)
	if err != nil {
		return nil, fmt.Errorf("invalid roots path %q: %w", paths.Roots, err)
	}

	doc := &Document{}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{paths.ProjectName, &doc.ProjectName},
		{paths.ProjectID, &doc.ProjectID},
		{paths.CurrentPage, &doc.CurrentPageID},
	} {
		if f.path == "" {
			continue
		}
		x, err := jp.ParseString(f.path)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", f.path, err)
		}
		*f.dst = scalarString(x.First(data))
	}

	list, ok := rootsExpr.First(data).([]any)
	if !ok {
		return nil, fmt.Errorf("%w: no node list at %s", sitemap.ErrInputUnavailable, paths.Roots)
	}
	doc.RootNodes = decodeNodes(list)
	return doc, nil
}

func decodeNodes(list []any) []sitemap.RawNode {
	nodes := make([]sitemap.RawNode, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		n := sitemap.RawNode{
			ID:       scalarString(m["id"]),
			PageName: scalarString(m["pageName"]),
			Type:     scalarString(m["type"]),
			URL:      scalarString(m["url"]),
		}
		if children, ok := m["children"].([]any); ok && len(children) > 0 {
			n.Children = decodeNodes(children)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// scalarString renders JSON scalars as strings; ids may be numeric.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
