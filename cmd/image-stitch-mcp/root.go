package main

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-stitch-mcp/internal/config"
	"github.com/ironsheep/image-stitch-mcp/pkg/stitcher"
)

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *log.Logger
}

// newLogger creates a stderr-style logger with short timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stitcher builds the process-wide stitcher from the loaded configuration.
func (a *app) stitcher() *stitcher.Stitcher {
	return stitcher.New(a.cfg.Stitcher(a.logger))
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "image-stitch-mcp",
		Short: "MCP server for stitching and clipping images",
		Long: `image-stitch-mcp combines images vertically or horizontally, scaling each
to a common extent, and clips results to rectangles, circles or rounded
rectangles.

With no subcommand it serves the MCP protocol over stdin/stdout. Configure
it in your MCP client as a stdio server.

Settings come from defaults, then --config, then IMAGE_STITCH_* environment
variables, then flags:
  IMAGE_STITCH_LOG_LEVEL=debug
  IMAGE_STITCH_POOL_CAPACITY=15
  IMAGE_STITCH_OUTPUT_QUALITY=90`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Level())
			a.logger.Debug("configuration loaded", "file", a.cfgFile, "pool", cfg.PoolCapacity, "quality", cfg.Quality)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a)
		},
	}
	root.SetVersionTemplate("image-stitch-mcp {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Int("pool-capacity", 0, "number of decode buffers kept for reuse")
	flags.Bool("exact-match", false, "reuse decode buffers only for identical dimensions")
	flags.Int("quality", 0, "default JPEG quality (1-100)")
	flags.Int64("max-pixels", 0, "largest canvas a stitch may produce, in pixels")

	a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	a.v.BindPFlag(config.KeyPoolCapacity, flags.Lookup("pool-capacity"))
	a.v.BindPFlag(config.KeyPoolExactMatch, flags.Lookup("exact-match"))
	a.v.BindPFlag(config.KeyOutputQuality, flags.Lookup("quality"))
	a.v.BindPFlag(config.KeyMaxPixels, flags.Lookup("max-pixels"))

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newStitchCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}
