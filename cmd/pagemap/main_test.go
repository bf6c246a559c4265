package main

import (
	"errors"
	"testing"
)

func TestExitCodeForUserError(t *testing.T) {
	err := newUserError("bad flag: %s", "--url")
	if got := exitCodeFor(err); got != 1 {
		t.Fatalf("expected exit code 1 for a user error, got %d", got)
	}
}

func TestExitCodeForInternalError(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != 2 {
		t.Fatalf("expected exit code 2 for an internal error, got %d", got)
	}
}

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	if !names["build"] || !names["serve"] {
		t.Fatalf("expected build and serve subcommands, got %v", names)
	}
}
