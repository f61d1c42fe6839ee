// Package stitcher is the public entry point for stitching images.
//
// A Stitcher owns one buffer pool and one bounds cache and is meant to be
// created once per process and shared:
//
//	s := stitcher.New(stitcher.DefaultConfig())
//	out, err := s.StitchVertical([]string{"a.jpg", "b.jpg"}, stitcher.Options{Spacing: 8})
//	if err != nil {
//		return err
//	}
//	return s.Save(out, "out.png", stitcher.SaveOptions{Release: true})
//
// Stitch calls return either a complete raster or an error and nil.
// Clip calls return nil when there is no result, and return their input
// unchanged when the region does not fit.
package stitcher

import (
	"image/color"
	"io"

	"github.com/charmbracelet/log"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
	"github.com/ironsheep/image-stitch-mcp/internal/layout"
	"github.com/ironsheep/image-stitch-mcp/internal/pool"
	"github.com/ironsheep/image-stitch-mcp/internal/raster"
	"github.com/ironsheep/image-stitch-mcp/internal/stitch"
)

type (
	// Raster is a stitched or clipped image. Call Release when done.
	Raster = raster.Raster

	// Bounds are orientation-corrected image dimensions.
	Bounds = imaging.Bounds

	// Size is a canvas size.
	Size = layout.Size

	// SaveOptions controls Save.
	SaveOptions = imaging.SaveOptions

	// PoolStats are buffer pool counters.
	PoolStats = pool.Stats
)

// Errors returned by the Stitcher. Use errors.Is to test for them.
var (
	ErrEmptyInput       = stitch.ErrEmptyInput
	ErrOversizeResult   = stitch.ErrOversizeResult
	ErrDecodeFailure    = stitch.ErrDecodeFailure
	ErrCompositeFailure = stitch.ErrCompositeFailure
	ErrSaveFailure      = imaging.ErrSaveFailure
)

// QualityDefault in SaveOptions.Quality selects Config.Quality.
const QualityDefault = imaging.QualityDefault

// Options controls a single stitch.
//
// The zero value scales every image to the largest one, adds no spacing
// and leaves gaps transparent.
type Options struct {
	// TargetExtent is the cross-axis size of every item: the width when
	// stitching vertically, the height when stitching horizontally.
	// 0 scales to the largest item, a negative value to the smallest,
	// and a positive value is a fixed size in pixels.
	TargetExtent int

	// Native draws every image at its own size and ignores TargetExtent.
	Native bool

	// Spacing is the gap between items in pixels. Negative means 0.
	Spacing int

	// FillColor paints the background. Nil or fully transparent leaves
	// it transparent.
	FillColor color.Color
}

func (o Options) policy(d layout.Direction) layout.Policy {
	extent := layout.ExtentFromTarget(o.TargetExtent)
	if o.Native {
		extent = layout.Extent{Mode: layout.PreserveNative}
	}
	return layout.Policy{
		Direction: d,
		Extent:    extent,
		Spacing:   o.Spacing,
		FillColor: o.FillColor,
	}
}

// Config configures a Stitcher.
type Config struct {
	// PoolCapacity bounds the number of retained decode buffers.
	PoolCapacity int

	// ExactMatch limits buffer reuse to identical dimensions at full
	// resolution.
	ExactMatch bool

	// MaxPixels is the largest canvas a stitch may produce.
	MaxPixels int64

	// ReducedPrecisionPixels is the canvas size above which RGB565 is
	// used.
	ReducedPrecisionPixels int64

	// Quality is the JPEG quality Save uses when SaveOptions.Quality is
	// QualityDefault.
	Quality int

	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger

	// Decoder reads image files. Nil uses the registered Go codecs.
	Decoder imaging.Decoder
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		PoolCapacity:           pool.DefaultCapacity,
		MaxPixels:              layout.MaxPixels,
		ReducedPrecisionPixels: stitch.DefaultReducedPrecisionPixels,
		Quality:                imaging.DefaultJPEGQuality,
	}
}

// Stitcher stitches, clips and saves images. It is safe for concurrent
// use.
type Stitcher struct {
	pool    *pool.Pool
	engine  *stitch.Engine
	cache   *imaging.BoundsCache
	decoder imaging.Decoder
	quality int
	logger  *log.Logger
}

// New creates a Stitcher. Zero fields in cfg take their defaults.
func New(cfg Config) *Stitcher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	decoder := cfg.Decoder
	if decoder == nil {
		decoder = imaging.FileDecoder{}
	}

	poolOpts := []pool.Option{
		pool.WithCapacity(cfg.PoolCapacity),
		pool.WithLogger(logger),
	}
	if cfg.ExactMatch {
		poolOpts = append(poolOpts, pool.WithExactMatch())
	}
	p := pool.New(poolOpts...)

	return &Stitcher{
		pool: p,
		engine: stitch.New(p,
			stitch.WithLogger(logger),
			stitch.WithMaxPixels(cfg.MaxPixels),
			stitch.WithReducedPrecisionPixels(cfg.ReducedPrecisionPixels),
		),
		cache:   imaging.NewBoundsCache(),
		decoder: decoder,
		quality: cfg.Quality,
		logger:  logger,
	}
}

func (s *Stitcher) source(path string) *imaging.Source {
	return imaging.NewSource(path,
		imaging.WithDecoder(s.decoder),
		imaging.WithBoundsCache(s.cache),
		imaging.WithSourceLogger(s.logger),
	)
}

func (s *Stitcher) sources(paths []string) []stitch.Source {
	out := make([]stitch.Source, len(paths))
	for i, p := range paths {
		out[i] = s.source(p)
	}
	return out
}

// StitchVertical stacks the images at paths top to bottom.
//
// Parameters:
//   - paths: Image files in drawing order. Each is measured before any is
//     decoded.
//   - opts: Target extent, native sizing, spacing and fill colour.
//
// Returns:
//   - *Raster: The new canvas. The caller owns it and should Release it.
//   - error: Non-nil when nothing was produced.
//
// # Errors
//
//   - ErrEmptyInput if paths is empty, a file cannot be measured or the
//     fixed extent is not positive
//   - ErrOversizeResult if the canvas would exceed Config.MaxPixels. No
//     memory is allocated in that case
//   - ErrDecodeFailure if a file cannot be decoded
//   - ErrCompositeFailure if the canvas cannot be allocated or drawn
func (s *Stitcher) StitchVertical(paths []string, opts Options) (*Raster, error) {
	return s.engine.Stitch(s.sources(paths), opts.policy(layout.Vertical))
}

// StitchVerticalRepeat stacks the image at path repeat times, top to
// bottom.
//
// Parameters:
//   - path: The image file. It is decoded once whatever the count.
//   - repeat: Number of copies, at least 1.
//   - opts: Target extent, spacing and fill colour. Only a positive
//     TargetExtent rescales.
//
// Returns:
//   - *Raster: The new canvas. The caller owns it and should Release it.
//   - error: Non-nil when nothing was produced.
//
// # Errors
//
//   - ErrEmptyInput if repeat is below 1 or the file cannot be measured
//   - ErrOversizeResult if the canvas would exceed Config.MaxPixels,
//     however large repeat is. No memory is allocated in that case
//   - ErrDecodeFailure if the file cannot be decoded
//   - ErrCompositeFailure if the canvas cannot be allocated or drawn
func (s *Stitcher) StitchVerticalRepeat(path string, repeat int, opts Options) (*Raster, error) {
	return s.engine.StitchRepeat(s.source(path), repeat, opts.policy(layout.Vertical))
}

// StitchHorizontal places the images at paths left to right. See
// StitchVertical for parameters and errors.
func (s *Stitcher) StitchHorizontal(paths []string, opts Options) (*Raster, error) {
	return s.engine.Stitch(s.sources(paths), opts.policy(layout.Horizontal))
}

// StitchHorizontalRepeat places the image at path repeat times, left to
// right. See StitchVerticalRepeat for parameters and errors.
func (s *Stitcher) StitchHorizontalRepeat(path string, repeat int, opts Options) (*Raster, error) {
	return s.engine.StitchRepeat(s.source(path), repeat, opts.policy(layout.Horizontal))
}

// Measure returns the canvas size a vertical or horizontal stitch of paths
// would produce, without decoding any pixels. An empty Size means the
// stitch would fail.
func (s *Stitcher) Measure(paths []string, horizontal bool, opts Options) Size {
	d := layout.Vertical
	if horizontal {
		d = layout.Horizontal
	}
	ls := make([]layout.Source, len(paths))
	for i, p := range paths {
		ls[i] = s.source(p)
	}
	return layout.CalculateSize(ls, opts.policy(d))
}

// Bounds returns the orientation-corrected bounds of the image at path.
func (s *Stitcher) Bounds(path string) (Bounds, error) {
	return s.source(path).Bounds()
}

// Load decodes the image at path at full resolution, upright.
func (s *Stitcher) Load(path string) (*Raster, error) {
	return s.source(path).Load()
}

// Save writes r to path.
//
// Parameters:
//   - r: The raster to write, usually a stitch or clip result.
//   - path: Destination file. The format follows opts.Format, else the
//     extension.
//   - opts: Format, JPEG quality and release. Quality QualityDefault (zero)
//     takes Config.Quality. JPEG has no quality 0, so the lowest quality
//     is requested with 1; negative values also clamp to 1.
//
// Returns:
//   - error: Nil when the file was written. With opts.Release the raster
//     is released only on success.
//
// # Errors
//
//   - Returns an error wrapping ErrSaveFailure for an empty raster, an
//     unknown format, or a file that cannot be created or encoded
func (s *Stitcher) Save(r *Raster, path string, opts SaveOptions) error {
	if opts.Quality == QualityDefault {
		opts.Quality = s.quality
	}
	if err := imaging.Save(r, path, opts); err != nil {
		s.logger.Warn("save failed", "path", path, "err", err)
		return err
	}
	return nil
}

// Clip extracts the width x height region at (x, y). See imaging.Clip for
// the result contract.
func (s *Stitcher) Clip(r *Raster, x, y, width, height int) *Raster {
	return imaging.Clip(r, x, y, width, height)
}

// ClipFromCenter extracts a centred width x height region.
func (s *Stitcher) ClipFromCenter(r *Raster, width, height int) *Raster {
	return imaging.ClipFromCenter(r, width, height)
}

// ClipXFromCenter keeps a centred span of width at full height.
func (s *Stitcher) ClipXFromCenter(r *Raster, width int) *Raster {
	return imaging.ClipXFromCenter(r, width)
}

// ClipYFromCenter keeps a centred span of height at full width.
func (s *Stitcher) ClipYFromCenter(r *Raster, height int) *Raster {
	return imaging.ClipYFromCenter(r, height)
}

// ClipToSquare centre-crops r to its shorter side.
func (s *Stitcher) ClipToSquare(r *Raster) *Raster {
	return imaging.ClipToSquare(r)
}

// ClipToCircle masks r to its largest centred circle on a square canvas.
func (s *Stitcher) ClipToCircle(r *Raster) *Raster {
	return imaging.ClipToCircle(r)
}

// ClipToRound rounds the corners of r with the given radius.
func (s *Stitcher) ClipToRound(r *Raster, radius int) *Raster {
	return imaging.ClipToRound(r, radius)
}

// ClearCache destroys every pooled buffer and forgets cached bounds.
func (s *Stitcher) ClearCache() {
	s.pool.Clear()
	s.cache.Clear()
	s.logger.Debug("caches cleared")
}

// PoolStats returns buffer pool counters.
func (s *Stitcher) PoolStats() PoolStats {
	return s.pool.Stats()
}
