package mcp

import "github.com/mark3labs/mcp-go/mcp"

// generateDiagramTool defines the generate_diagram MCP tool.
var generateDiagramTool = mcp.NewTool("generate_diagram",
	mcp.WithDescription("Generate a Mermaid flowchart of the prototype sitemap. Returns the diagram markup and publishes it to the viewer."),
	mcp.WithString("start_id",
		mcp.Description("Only include this page and its descendants"),
	),
	mcp.WithString("page_url",
		mcp.Description("Prototype page URL; the diagram starts at the page it identifies"),
	),
)

// getDiagramTool defines the get_diagram MCP tool.
var getDiagramTool = mcp.NewTool("get_diagram",
	mcp.WithDescription("Get the most recently generated sitemap diagram."),
)

// listPagesTool defines the list_pages MCP tool.
var listPagesTool = mcp.NewTool("list_pages",
	mcp.WithDescription("List the pages and folders of the sitemap in document order, with ids usable as start_id."),
	mcp.WithString("type_filter",
		mcp.Description("Only list nodes of this type, e.g. Wireframe or Folder"),
	),
)

// renderURLTool defines the render_url MCP tool.
var renderURLTool = mcp.NewTool("render_url",
	mcp.WithDescription("Get a mermaid.ink URL rendering the current diagram as an image."),
	mcp.WithString("format",
		mcp.Description("Image format (default svg)"),
		mcp.Enum("svg", "png"),
	),
)
