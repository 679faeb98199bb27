// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// Options selects the log level and output format.
type Options struct {
	Level  slog.Level
	Format string // "console", "json", or "" to detect from the terminal
}

// Setup installs the default slog logger on stderr: a text handler when
// attached to a terminal, a JSON handler otherwise.
func Setup(opts Options) {
	format := opts.Format
	if format == "" {
		if isTerminal(os.Stderr) {
			format = "console"
		} else {
			format = "json"
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
