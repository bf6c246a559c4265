// types.go — MCP typed response structs.
package mcpserver

// MCPContentBlock is a single content block in an MCP tool result: "text" or "image".
type MCPContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`     // base64 for image blocks
	MimeType string `json:"mimeType,omitempty"` // e.g. image/png
}

// MCPToolResult is the result of an MCP tool call.
type MCPToolResult struct {
	Content  []MCPContentBlock `json:"content"`
	IsError  bool              `json:"isError"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// MCPInitializeResult is the result of the MCP initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ServerInfo      MCPServerInfo   `json:"serverInfo"`
	Capabilities    MCPCapabilities `json:"capabilities"`
	Instructions    string          `json:"instructions,omitempty"`
}

// MCPServerInfo identifies the server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPCapabilities declares which MCP capability groups the server supports.
type MCPCapabilities struct {
	Tools MCPToolsCapability `json:"tools"`
}

// MCPToolsCapability declares tool support.
type MCPToolsCapability struct{}

// MCPToolsListResult is the result of a tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}
