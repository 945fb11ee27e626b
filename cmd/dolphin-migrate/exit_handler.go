package main

import (
	"fmt"
	"io"
	"os"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	Fatal(prefix string, err error)
}

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct {
	stderr io.Writer
}

// NewDefaultExitHandler creates a new default exit handler
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{stderr: os.Stderr}
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// Fatal prints a one-line diagnostic to stderr and exits with status 1
func (h *DefaultExitHandler) Fatal(prefix string, err error) {
	_, _ = fmt.Fprintf(h.stderr, "%s: %v\n", prefix, err)
	h.Exit(1)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = NewDefaultExitHandler()
