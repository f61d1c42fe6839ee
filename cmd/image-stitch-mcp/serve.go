package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-stitch-mcp/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a)
		},
	}
}

func runServe(cmd *cobra.Command, a *app) error {
	server.Version = Version
	a.logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(
		server.WithStitcher(a.stitcher()),
		server.WithLogger(a.logger),
		server.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
	)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
