package host

import (
	"fmt"
	"net/url"

	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
)

// ResolveCurrentPage finds the node the viewer is currently on. It tries the
// document's current page id, then the "id" query parameter of pageURL,
// then the "p" parameter matched against node URLs without ".html".
func ResolveCurrentPage(doc *Document, idx *sitemap.Index, pageURL string) (string, error) {
	var candidates []string
	if doc != nil && doc.CurrentPageID != "" {
		candidates = append(candidates, doc.CurrentPageID)
	}

	var query url.Values
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("parsing page url: %w", err)
		}
		query = u.Query()
		if id := query.Get("id"); id != "" {
			candidates = append(candidates, id)
		}
	}

	for _, id := range candidates {
		if _, ok := idx.Lookup(id); ok {
			return id, nil
		}
	}

	if p := query.Get("p"); p != "" {
		if id, ok := idx.FindByURL(p); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: current page could not be determined", sitemap.ErrNodeNotFound)
}
