// Package logging builds the process logger. The terminal belongs to the UI,
// so logs only ever go to a file, and only in debug mode.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

type Options struct {
	Debug bool
	File  string
	Level string
}

// New returns a logger and a closer for its file. Without Debug the logger
// discards everything and the closer is a no-op.
func New(opts Options) (hclog.Logger, io.Closer, error) {
	if !opts.Debug {
		return hclog.NewNullLogger(), nopCloser{}, nil
	}
	path := opts.File
	if path == "" {
		path = "xplore.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return newLogger(f, opts.Level), f, nil
}

func newLogger(w io.Writer, level string) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "xplore",
		Level:  lvl,
		Output: w,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
