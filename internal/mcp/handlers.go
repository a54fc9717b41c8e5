package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
)

// handleGenerateDiagram regenerates the diagram, optionally from a subtree.
func (s *Server) handleGenerateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startID := request.GetString("start_id", "")
	pageURL := request.GetString("page_url", "")

	var (
		diagram string
		err     error
	)
	switch {
	case startID != "":
		diagram, err = s.session.GenerateFrom(ctx, startID)
	case pageURL != "":
		diagram, err = s.session.GenerateHere(ctx, pageURL)
	default:
		diagram, err = s.session.GenerateAll(ctx)
	}
	if err != nil {
		if errors.Is(err, sitemap.ErrNodeNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%v. Use list_pages to find valid ids.", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("generate failed: %v", err)), nil
	}
	return mcp.NewToolResultText(diagram), nil
}

// handleGetDiagram returns the current diagram without regenerating it.
func (s *Server) handleGetDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := s.session.Store().Text()
	if text == "" {
		return mcp.NewToolResultError("No diagram generated yet. Call generate_diagram first."), nil
	}
	return mcp.NewToolResultText(text), nil
}

// handleListPages lists the flattened sitemap.
func (s *Server) handleListPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.session.Nodes()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading sitemap: %v", err)), nil
	}

	typeFilter := request.GetString("type_filter", "")
	var selected []sitemap.FlatNode
	for _, n := range nodes {
		if typeFilter != "" && !strings.EqualFold(n.Type, typeFilter) {
			continue
		}
		selected = append(selected, n)
	}
	if len(selected) == 0 {
		return mcp.NewToolResultText("No pages found."), nil
	}
	return mcp.NewToolResultText(formatPages(selected)), nil
}

// handleRenderURL builds an image URL for the current diagram.
func (s *Server) handleRenderURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := render.ParseFormat(request.GetString("format", string(render.FormatSVG)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := s.session.Store().Text()
	if text == "" {
		return mcp.NewToolResultError("No diagram generated yet. Call generate_diagram first."), nil
	}
	url, err := s.renderer.URL(text, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building render url: %v", err)), nil
	}
	return mcp.NewToolResultText(url), nil
}

// formatPages renders nodes as an indented outline, one per line.
func formatPages(nodes []sitemap.FlatNode) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d page(s):\n", len(nodes)))
	for _, n := range nodes {
		sb.WriteString(strings.Repeat("  ", max(n.Level-1, 0)))
		sb.WriteString(fmt.Sprintf("- %s [id: %s]", n.Name, n.ID))
		if n.Type != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", n.Type))
		}
		if n.URL != "" {
			sb.WriteString(" " + n.URL)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
