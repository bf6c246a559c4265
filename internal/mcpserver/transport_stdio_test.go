package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogLevelParsesKnownNames(t *testing.T) {
	if got := LogLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
	if got := LogLevel("warn"); got != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", got)
	}
}

func TestLogLevelDefaultsToInfoForUnknownName(t *testing.T) {
	if got := LogLevel("not-a-level"); got != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %v", got)
	}
}

func TestRunStdioRoundTripsOneRequest(t *testing.T) {
	s := New()
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	var out bytes.Buffer

	if err := s.RunStdio(context.Background(), in, &out); err != nil {
		t.Fatalf("RunStdio: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	if !scanner.Scan() {
		t.Fatal("expected one response line")
	}
	line := scanner.Text()
	if !strings.Contains(line, `"pagemap"`) {
		t.Fatalf("expected initialize result on the line, got %s", line)
	}
}

func TestRunStdioSkipsBlankLines(t *testing.T) {
	s := New()
	in := strings.NewReader("\n\n" + `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer

	if err := s.RunStdio(context.Background(), in, &out); err != nil {
		t.Fatalf("RunStdio: %v", err)
	}
	if n := strings.Count(out.String(), "\n"); n != 1 {
		t.Fatalf("expected exactly one response line despite leading blank lines, got %d", n)
	}
}

func TestRunStdioReportsParseErrorsInline(t *testing.T) {
	s := New()
	in := strings.NewReader("{not json}\n")
	var out bytes.Buffer

	if err := s.RunStdio(context.Background(), in, &out); err != nil {
		t.Fatalf("RunStdio: %v", err)
	}
	if !strings.Contains(out.String(), "invalid JSON") {
		t.Fatalf("expected inline parse error, got %s", out.String())
	}
}
