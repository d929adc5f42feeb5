// Package logger writes console output for commands. It is injected, never global.
package logger

import (
	"fmt"
	"io"

	"github.com/meza/coverage-gate/internal/style"
)

type Logger struct {
	out        io.Writer
	err        io.Writer
	quiet      bool
	debug      bool
	outPalette style.Palette
	errPalette style.Palette
}

func New(out io.Writer, err io.Writer, quiet bool, debug bool) *Logger {
	return &Logger{
		out:        out,
		err:        err,
		quiet:      quiet,
		debug:      debug,
		outPalette: style.NewPalette(style.NewRenderer(out)),
		errPalette: style.NewPalette(style.NewRenderer(err)),
	}
}

func (logger *Logger) Log(message string, forceShow bool) {
	if logger.quiet && !forceShow && !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, message); err != nil {
		return
	}
}

func (logger *Logger) Debug(message string) {
	if !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, logger.outPalette.Muted.Render(message)); err != nil {
		return
	}
}

// Success reports a passing result. Quiet mode hides it.
func (logger *Logger) Success(message string) {
	if logger.quiet && !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, style.RenderLines(logger.outPalette.Pass, message)); err != nil {
		return
	}
}

// Failure reports a failing result. It is shown even in quiet mode.
func (logger *Logger) Failure(message string) {
	if _, err := fmt.Fprintln(logger.out, style.RenderLines(logger.outPalette.Fail, message)); err != nil {
		return
	}
}

func (logger *Logger) Error(message string) {
	if _, err := fmt.Fprintln(logger.err, style.RenderLines(logger.errPalette.Fail, message)); err != nil {
		return
	}
}

func (logger *Logger) Errorf(format string, args ...any) {
	if _, err := fmt.Fprintf(logger.err, format, args...); err != nil {
		return
	}
}
