// Command mcp3021-thermistor reads a thermistor divider through an MCP3021 and
// prints its resistance and temperature.
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
	code := app.New(app.Thermistor).Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
