// dispatch.go — the transport-agnostic JSON-RPC 2.0 method router. Both
// RunStdio and the HTTP handlers in this package call HandleRequest with one
// decoded JSONRPCRequest and get back the JSONRPCResponse to serialize.
// Grounded on the teacher's MCPHandler.HandleRequest method switch in
// cmd/dev-console/main.go, generalized from the teacher's fixed dev-tools
// vocabulary to PageMap's five tools.
package mcpserver

import (
	"context"
	"encoding/json"
)

// codeParseError and friends follow the JSON-RPC 2.0 reserved error code
// ranges (-32700..-32600).
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// toolsCallParams is the params payload of a tools/call request.
type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// HandleRequest routes one JSON-RPC request to the matching MCP method and
// returns the response to serialize. sessionID identifies the calling
// session (a fixed value for stdio; header/IP-derived for HTTP).
func (s *Server) HandleRequest(ctx context.Context, req JSONRPCRequest, sessionID string) JSONRPCResponse {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}

	if req.HasInvalidID() {
		resp.Error = &JSONRPCError{Code: codeInvalidRequest, Message: "id must be a string, number, or omitted"}
		return resp
	}

	switch req.Method {
	case "initialize":
		resp.Result = SafeMarshal(s.Initialize(), `{}`)
	case "initialized", "notifications/initialized":
		// Notification: no response body expected by the caller; callers that
		// reach here via HTTP still get an empty result for a uniform envelope.
		resp.Result = SafeMarshal(map[string]any{}, `{}`)
	case "tools/list":
		resp.Result = SafeMarshal(MCPToolsListResult{Tools: s.ToolsList()}, `{"tools":[]}`)
	case "tools/call":
		var params toolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			resp.Error = &JSONRPCError{Code: codeInvalidParams, Message: "params must include a tool name"}
			return resp
		}
		resp.Result = s.HandleToolCall(ctx, sessionID, params.Name, params.Arguments)
	default:
		resp.Error = &JSONRPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
	return resp
}

// DecodeRequest parses one line/body of JSON-RPC input, reporting a parse
// error distinctly from a request whose method is simply unrecognized.
func DecodeRequest(data []byte) (JSONRPCRequest, *JSONRPCError) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return JSONRPCRequest{}, &JSONRPCError{Code: codeParseError, Message: "invalid JSON: " + err.Error()}
	}
	if req.JSONRPC != "2.0" {
		return JSONRPCRequest{}, &JSONRPCError{Code: codeInvalidRequest, Message: `jsonrpc must be "2.0"`}
	}
	return req, nil
}
