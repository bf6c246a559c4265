package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
)

func TestDecodeRequestRejectsBadJSON(t *testing.T) {
	_, rpcErr := DecodeRequest([]byte("{not json"))
	if rpcErr == nil || rpcErr.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", rpcErr)
	}
}

func TestDecodeRequestRejectsWrongVersion(t *testing.T) {
	_, rpcErr := DecodeRequest([]byte(`{"jsonrpc":"1.0","method":"initialize"}`))
	if rpcErr == nil || rpcErr.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request error, got %+v", rpcErr)
	}
}

func TestDecodeRequestAccepts(t *testing.T) {
	req, rpcErr := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	if req.Method != "initialize" {
		t.Fatalf("unexpected method: %s", req.Method)
	}
}

func TestHandleRequestInitialize(t *testing.T) {
	s := New()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var result MCPInitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.ServerInfo.Name != "pagemap" {
		t.Fatalf("unexpected server name: %s", result.ServerInfo.Name)
	}
}

func TestHandleRequestToolsList(t *testing.T) {
	s := New()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	var result MCPToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Tools) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(result.Tools))
	}
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	s := New()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"bogus"}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleRequestRejectsInvalidID(t *testing.T) {
	s := New()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":null,"method":"initialize"}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request error for explicit null id, got %+v", resp.Error)
	}
}

func TestHandleRequestToolsCallMissingName(t *testing.T) {
	s := New()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestHandleRequestToolsCallUnknownTool(t *testing.T) {
	s := New()
	s.Sessions = newTestManager()
	req, _ := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"bogus_tool","arguments":{}}}`))
	resp := s.HandleRequest(context.Background(), req, "stdio")
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %+v", resp.Error)
	}
	var result MCPToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool result to be an error for an unknown tool")
	}
}
