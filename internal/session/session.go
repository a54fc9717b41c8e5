// Package session ties one host document to the diagram store: it flattens
// the sitemap once, generates markup on demand and publishes the result.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ziadkadry99/sitemermaid/internal/diagrams"
	"github.com/ziadkadry99/sitemermaid/internal/host"
	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

// Options configure generation.
type Options struct {
	Grouping diagrams.Grouping
	// Title is emitted as diagram front matter. When empty and ProjectTitle
	// is set, "<project name> Sitemap" is used instead.
	Title        string
	ProjectTitle bool
	// Theme is recorded with each published diagram for the renderer.
	Theme  string
	Logger *slog.Logger
}

// Session is safe for concurrent use; generation is serialized.
type Session struct {
	opts   Options
	store  *store.DiagramStore
	logger *slog.Logger

	mu    sync.Mutex
	doc   *host.Document
	nodes []sitemap.FlatNode
	index *sitemap.Index
}

// New creates a Session over doc publishing to st.
func New(doc *host.Document, st *store.DiagramStore, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{opts: opts, store: st, logger: logger, doc: doc}
}

// Store returns the store diagrams are published to.
func (s *Session) Store() *store.DiagramStore { return s.store }

// Document returns the current host document.
func (s *Session) Document() *host.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// SetDocument swaps in a new host document and drops the flatten memo.
func (s *Session) SetDocument(doc *host.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.nodes = nil
	s.index = nil
}

// Nodes returns the flattened sitemap, computing it on first use.
func (s *Session) Nodes() ([]sitemap.FlatNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flattenLocked(); err != nil {
		return nil, err
	}
	return s.nodes, nil
}

func (s *Session) flattenLocked() error {
	if s.index != nil {
		return nil
	}
	if s.doc == nil {
		return sitemap.ErrInputUnavailable
	}
	nodes, err := sitemap.Flatten(s.doc.RootNodes)
	if err != nil {
		return err
	}
	s.nodes = nodes
	s.index = sitemap.NewIndex(nodes)
	s.logger.Debug("sitemap flattened", "nodes", len(nodes), "project", s.doc.ProjectName)
	return nil
}

// GenerateAll renders the whole sitemap.
func (s *Session) GenerateAll(ctx context.Context) (string, error) {
	return s.GenerateFrom(ctx, "")
}

// GenerateFrom renders the subtree rooted at startID, or everything when
// startID is empty, and publishes it.
func (s *Session) GenerateFrom(ctx context.Context, startID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateLocked(startID)
}

// GenerateHere renders the subtree of the page the viewer is on.
func (s *Session) GenerateHere(ctx context.Context, pageURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flattenLocked(); err != nil {
		return "", err
	}
	startID, err := host.ResolveCurrentPage(s.doc, s.index, pageURL)
	if err != nil {
		return "", err
	}
	return s.generateLocked(startID)
}

func (s *Session) generateLocked(startID string) (string, error) {
	if err := s.flattenLocked(); err != nil {
		return "", err
	}

	title := s.opts.Title
	if title == "" && s.opts.ProjectTitle {
		title = s.doc.Title()
	}
	gen := diagrams.NewGenerator(diagrams.Options{Grouping: s.opts.Grouping, Title: title})

	markup, err := gen.Generate(s.nodes, startID)
	if err != nil {
		return "", fmt.Errorf("generating diagram: %w", err)
	}

	if s.store != nil {
		s.store.Set(markup, store.Settings{
			Theme:    s.opts.Theme,
			Grouping: string(gen.Options().Grouping),
			StartID:  startID,
			Title:    title,
		})
	}
	s.logger.Debug("diagram generated", "start", startID, "bytes", len(markup))
	return markup, nil
}
