// response.go — Response formatting and JSON serialization helpers.
package mcpserver

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// SafeMarshal performs defensive JSON marshaling with a fallback value.
func SafeMarshal(v any, fallback string) json.RawMessage {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("mcpserver: marshal failure, using fallback")
		return json.RawMessage(fallback)
	}
	return json.RawMessage(resultJSON)
}

// LenientUnmarshal parses optional JSON params, logging failures rather than rejecting
// the call: malformed optional params fall through to zero-value defaults.
func LenientUnmarshal(args json.RawMessage, v any) {
	if len(args) == 0 {
		return
	}
	if err := json.Unmarshal(args, v); err != nil {
		log.Warn().Err(err).Str("args_preview", truncateForLog(args)).Msg("mcpserver: optional param parse failed")
	}
}

func truncateForLog(args json.RawMessage) string {
	s := string(args)
	if len(s) > 100 {
		return s[:100]
	}
	return s
}

// TextResponse constructs an MCP tool result containing a single text content block.
func TextResponse(text string) json.RawMessage {
	result := MCPToolResult{Content: []MCPContentBlock{{Type: "text", Text: text}}}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}]}`)
}

// ImageAndTextResponse constructs a result carrying a PNG image block plus a text block,
// used by take_screenshot.
func ImageAndTextResponse(pngBase64, text string) json.RawMessage {
	result := MCPToolResult{Content: []MCPContentBlock{
		{Type: "image", Data: pngBase64, MimeType: "image/png"},
		{Type: "text", Text: text},
	}}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}]}`)
}

// JSONResponse constructs an MCP tool result with a summary prefix followed by compact JSON.
func JSONResponse(summary string, data any) json.RawMessage {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return TextResponse("Failed to serialize response: " + err.Error())
	}
	var text string
	if summary != "" {
		text = summary + "\n" + string(dataJSON)
	} else {
		text = string(dataJSON)
	}
	result := MCPToolResult{Content: []MCPContentBlock{{Type: "text", Text: text}}}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}]}`)
}

// AppendWarningsToResponse adds a warnings content block to an MCP response if there are any.
func AppendWarningsToResponse(resp JSONRPCResponse, warnings []string) JSONRPCResponse {
	if len(warnings) == 0 {
		return resp
	}
	var result MCPToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return resp
	}
	result.Content = append(result.Content, MCPContentBlock{
		Type: "text",
		Text: "_warnings: " + strings.Join(warnings, "; "),
	})
	resultJSON, _ := json.Marshal(result)
	resp.Result = json.RawMessage(resultJSON)
	return resp
}
