package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericogr/mcp3021-reader/pkg/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.New(app.FileHandle).Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
