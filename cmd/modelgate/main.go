package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Comparison ran and every enabled gate passed
	ExitTestFailed = 1 // An enabled gate failed
	ExitError      = 2 // Configuration, input or runtime error
)

// TestFailureError indicates that the comparison ran successfully,
// but an enabled gate failed.
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode reports err on stderr and classifies it.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, err)

	var testFailureErr *TestFailureError
	if errors.As(err, &testFailureErr) {
		return ExitTestFailed
	}

	// All other errors are configuration/runtime errors
	return ExitError
}
