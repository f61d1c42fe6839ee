package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
	"github.com/ironsheep/image-stitch-mcp/pkg/stitcher"
)

type stitchFlags struct {
	output       string
	format       string
	horizontal   bool
	targetExtent int
	native       bool
	spacing      int
	fill         string
	repeat       int
	dryRun       bool
}

func newStitchCmd(a *app) *cobra.Command {
	var f stitchFlags

	cmd := &cobra.Command{
		Use:   "stitch [flags] IMAGE...",
		Short: "Stitch images into one file without starting the server",
		Example: `  # Stack two screenshots, scaled to the wider one, 8px apart on white
  image-stitch-mcp stitch -o out.png --spacing 8 --fill '#ffffff' a.png b.png

  # Repeat one tile four times side by side at 64px tall
  image-stitch-mcp stitch -o strip.png --horizontal --target-extent 64 --repeat 4 tile.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStitch(cmd, a, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (required unless --dry-run)")
	flags.StringVarP(&f.format, "format", "f", "", "output format (png|jpeg|gif|tiff|bmp), default from the extension")
	flags.BoolVar(&f.horizontal, "horizontal", false, "stitch left to right instead of top to bottom")
	flags.IntVar(&f.targetExtent, "target-extent", 0, "cross-axis size: 0 largest, -1 smallest, >0 fixed pixels")
	flags.BoolVar(&f.native, "native", false, "keep every image at its own size")
	flags.IntVar(&f.spacing, "spacing", 0, "gap between images in pixels")
	flags.StringVar(&f.fill, "fill", "", "background color as #RRGGBB or #RRGGBBAA")
	flags.IntVar(&f.repeat, "repeat", 0, "repeat a single image this many times")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the output size without decoding")
	return cmd
}

func runStitch(cmd *cobra.Command, a *app, f stitchFlags, paths []string) error {
	opts := stitcher.Options{
		TargetExtent: f.targetExtent,
		Native:       f.native,
		Spacing:      f.spacing,
	}
	if f.fill != "" {
		c, err := imaging.ParseColor(f.fill)
		if err != nil {
			return err
		}
		opts.FillColor = c
	}
	if f.repeat > 0 && len(paths) != 1 {
		return fmt.Errorf("--repeat takes exactly one image, got %d", len(paths))
	}

	st := a.stitcher()

	if f.dryRun {
		if f.repeat > 0 {
			return errors.New("--dry-run does not support --repeat")
		}
		size := st.Measure(paths, f.horizontal, opts)
		if size.Empty() {
			return fmt.Errorf("%w: no readable layout", stitcher.ErrEmptyInput)
		}
		fmt.Fprintln(cmd.OutOrStdout(), size)
		return nil
	}

	if f.output == "" {
		return errors.New("--output is required")
	}
	if _, err := imaging.ResolveFormat(f.output, f.format); err != nil {
		return err
	}

	var (
		out *stitcher.Raster
		err error
	)
	switch {
	case f.repeat > 0 && f.horizontal:
		out, err = st.StitchHorizontalRepeat(paths[0], f.repeat, opts)
	case f.repeat > 0:
		out, err = st.StitchVerticalRepeat(paths[0], f.repeat, opts)
	case f.horizontal:
		out, err = st.StitchHorizontal(paths, opts)
	default:
		out, err = st.StitchVertical(paths, opts)
	}
	if err != nil {
		return err
	}

	width, height := out.Width(), out.Height()
	if err := st.Save(out, f.output, stitcher.SaveOptions{Format: f.format, Release: true}); err != nil {
		out.Release()
		return err
	}
	a.logger.Info("wrote", "output", f.output, "width", width, "height", height)
	return nil
}
