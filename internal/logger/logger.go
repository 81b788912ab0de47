// Package logger holds the process-wide logger.
package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// L is the global logger instance. It discards all output until Init is
// called, so library code can log unconditionally.
var L = &logrus.Logger{
	Out:       io.Discard,
	Level:     logrus.InfoLevel,
	Hooks:     make(logrus.LevelHooks),
	Formatter: newFormatter(),
}

// Options configures the logger initialization.
type Options struct {
	Level string    // logrus level name. Default: info
	Out   io.Writer // Default: os.Stderr
}

// Init configures L in place. Loggers already handed out (pools hold L)
// pick up the change.
func Init(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return errors.Wrapf(err, "logger: level %q", opts.Level)
		}
		level = lvl
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	L.SetOutput(out)
	L.SetLevel(level)
	L.SetFormatter(newFormatter())
	return nil
}

// Discard silences L.
func Discard() {
	L.SetOutput(io.Discard)
}

func newFormatter() logrus.Formatter {
	return &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}
}
