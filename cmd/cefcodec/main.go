// cefcodec converts between ArcSight CEF lines and structured events.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrzor/cefcodec/cmd/cefcodec/cmd"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.NewRootCommand(cmd.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
