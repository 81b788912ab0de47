package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/joshuapare/framealloc/internal/config"
	"github.com/joshuapare/framealloc/internal/logger"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot block on a full pipe.
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done

	return string(out), fnErr
}

// useConfig installs c (or the defaults) as the loaded configuration and
// resets the global flags.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()

	if c == nil {
		d := config.Default
		c = &d
	}
	conf = c
	verbose = false
	quiet = false
	jsonOut = false
	logger.Discard()

	t.Cleanup(func() { conf = nil })
}
