package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"github.com/meza/coverage-gate/cmd/covgate"
)

var exit = os.Exit

var execute = covgate.Execute

type exitCoder interface {
	ExitCode() int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exit(code)
}

// run executes the CLI and maps its error to a process exit code. Errors
// carrying their own exit code keep it; anything else exits with 1.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	err := execute(ctx, args, stdout, stderr)
	if err == nil {
		return 0
	}

	_, _ = fmt.Fprintln(stderr, err.Error())

	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return 1
}
