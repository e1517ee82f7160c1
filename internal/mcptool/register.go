package mcptool

import "github.com/modelcontextprotocol/go-sdk/mcp"

func ptrBool(b bool) *bool { return &b }

// RegisterAll registers the dealsearch MCP tools on s.
func RegisterAll(s *mcp.Server, h *Handler) {
	readOnly := &mcp.ToolAnnotations{
		ReadOnlyHint:    true,
		DestructiveHint: ptrBool(false),
	}

	mcp.AddTool(s, &mcp.Tool{
		Name: "search_deals",
		Description: "Search current grocery deals and coupons by keyword or " +
			"natural-language description. Returns matching deals ranked by " +
			"relevance. Use query=\"*\" with an expiry filter to list deals " +
			"ending soon regardless of topic.",
		Annotations: readOnly,
	}, h.SearchDeals)
}
