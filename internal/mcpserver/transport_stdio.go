// transport_stdio.go — the local stdio JSON-RPC transport (spec.md §6.1):
// one JSON-RPC request per line on stdin, one JSON-RPC response per line on
// stdout. Grounded on the teacher's runMCPMode stdio loop in
// cmd/dev-console/main.go: a bufio.Scanner with an enlarged token buffer so
// a single long line (a large tools/call params blob) doesn't get silently
// dropped, and fmt.Fprintln writing each response as its own line.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// maxScanTokenSize bounds a single stdio line (10MiB), matching the
// teacher's scanner.Buffer sizing for large tool payloads.
const maxScanTokenSize = 10 * 1024 * 1024

// stdioSessionID is the fixed session identity for the stdio transport: one
// process, one caller, one browser session (spec.md §6.1).
const stdioSessionID = "stdio"

// RunStdio reads one JSON-RPC request per line from in and writes one
// response per line to out, until in is exhausted or ctx is canceled.
func (s *Server) RunStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		req, parseErr := DecodeRequest(line)
		var resp JSONRPCResponse
		if parseErr != nil {
			resp = JSONRPCResponse{JSONRPC: "2.0", Error: parseErr}
		} else {
			resp = s.HandleRequest(ctx, req, stdioSessionID)
		}

		encoded, err := json.Marshal(resp)
		if err != nil {
			s.Logger.Error().Err(err).Msg("mcpserver: stdio response marshal failed")
			continue
		}
		if _, err := fmt.Fprintln(out, string(encoded)); err != nil {
			return fmt.Errorf("mcpserver: stdio write failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("mcpserver: stdio read failed: %w", err)
	}
	return nil
}

// LogLevel maps a config log-level name to a zerolog.Level, defaulting to
// info for an empty or unrecognized name. cmd/pagemap applies it to the
// logger it builds before constructing the Server.
func LogLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
