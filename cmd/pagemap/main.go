// Command pagemap is PageMap's CLI entry point: a one-shot `build` for
// scripting and a long-running `serve` for the stdio/HTTP MCP transports
// (spec.md §6.3). Grounded on the teacher's cmd/dev-console/main.go, which
// hand-parses stdlib flag for a single run mode; this module instead wires
// cobra's two-subcommand tree, since the retrieval pack overwhelmingly
// favors cobra for exactly this shape of CLI (see SPEC_FULL.md's Ambient
// Stack).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to spec.md §6.3's exit code table: 1 for
// a user error (bad flags, validation failure), 2 for anything internal.
func exitCodeFor(err error) int {
	if ue, ok := err.(userError); ok {
		_ = ue
		return 1
	}
	return 2
}

// userError marks an error as the caller's fault (bad input), so main
// reports exit code 1 instead of 2 and skips a stack-trace-flavored message.
type userError struct{ error }

func newUserError(format string, args ...any) error {
	return userError{fmt.Errorf(format, args...)}
}
