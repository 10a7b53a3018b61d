package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for components under test. Output goes to
// stdout unless CAMPUS_TEST_QUIET is set.
func TestLogger(t testing.TB) *log.Logger {
	var w io.Writer = os.Stdout
	if os.Getenv("CAMPUS_TEST_QUIET") != "" {
		w = io.Discard
	}

	logger := log.New(w, "[test] ", log.LstdFlags|log.Lmicroseconds)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
