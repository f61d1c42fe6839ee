// Command image-stitch-mcp serves the image stitcher over MCP on stdio.
//
// Run without arguments it reads JSON-RPC requests from stdin and writes
// responses to stdout. Logs go to stderr. The stitch subcommand runs a
// single stitch from the command line instead.
package main

import (
	"os"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
