package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/jsonkv/pkg/engine"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

func NewMCPServer(eng *engine.Engine) *mcp.Server {
	service := NewService(eng)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "jsonkv",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "record_get",
		Description: "Read the JSON value stored for a key (user id).",
	}, service.Get)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "record_put",
		Description: "Store any JSON value under a key, replacing the previous value. The write is durable when the tool returns.",
	}, service.Put)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "record_delete",
		Description: "Delete the value stored for a key.",
	}, service.Delete)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "record_list",
		Description: "List stored keys in ascending order, optionally filtered by prefix.",
	}, service.List)

	return s
}

// NewHTTPHandler serves the MCP server over the streamable HTTP transport.
func NewHTTPHandler(eng *engine.Engine) http.Handler {
	s := NewMCPServer(eng)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s
	}, nil)
}
