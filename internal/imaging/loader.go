package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// ErrEmptyBounds is returned when a source decodes to a zero-sized image.
var ErrEmptyBounds = errors.New("image has empty bounds")

// Bounds is the size of a source as it should be displayed.
//
// Width and Height are orientation-corrected: for a Rotation of 90 or 270
// they are the raw decode dimensions swapped. Raw returns the dimensions
// the decoder actually produces.
type Bounds struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Rotation int `json:"rotation"`
}

// NewBounds builds oriented bounds from raw decode dimensions.
func NewBounds(rawWidth, rawHeight, rotation int) Bounds {
	if swapsAxes(rotation) {
		rawWidth, rawHeight = rawHeight, rawWidth
	}
	return Bounds{Width: rawWidth, Height: rawHeight, Rotation: rotation}
}

// Raw returns the dimensions before orientation correction.
func (b Bounds) Raw() (width, height int) {
	if swapsAxes(b.Rotation) {
		return b.Height, b.Width
	}
	return b.Width, b.Height
}

func swapsAxes(rotation int) bool {
	return rotation == 90 || rotation == 270
}

// Decoder turns a path into pixels. It is the seam to the external codec
// layer; the engine never parses image formats itself.
type Decoder interface {
	// DecodeConfig returns the raw dimensions without decoding pixels.
	DecodeConfig(path string) (image.Config, error)

	// Decode returns the raw, unrotated pixels.
	Decode(path string) (image.Image, error)
}

// FileDecoder decodes files with the codecs registered in the image
// package: PNG, JPEG, GIF, BMP, TIFF and WebP.
type FileDecoder struct{}

// DecodeConfig reads only the image header.
func (FileDecoder) DecodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to decode image bounds: %w", err)
	}
	return cfg, nil
}

// Decode reads and decodes the whole image.
func (FileDecoder) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// OrientationFunc resolves the rotation in degrees for a path.
type OrientationFunc func(path string) int

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithDecoder replaces the default FileDecoder.
func WithDecoder(d Decoder) SourceOption {
	return func(s *Source) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithOrientation replaces EXIF-based orientation lookup.
func WithOrientation(fn OrientationFunc) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.orient = fn
		}
	}
}

// WithBoundsCache shares bounds across Source instances for the same path.
func WithBoundsCache(c *BoundsCache) SourceOption {
	return func(s *Source) { s.cache = c }
}

// WithSourceLogger sets the logger for orientation read failures.
func WithSourceLogger(l *log.Logger) SourceOption {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// Source is an image on disk whose bounds are computed once, on first use.
//
// Bounds and Decode may be called any number of times. Source is safe for
// concurrent use.
type Source struct {
	path    string
	decoder Decoder
	orient  OrientationFunc
	cache   *BoundsCache
	logger  *log.Logger

	once   sync.Once
	bounds Bounds
	err    error
}

// NewSource creates a lazily-measured source for path.
func NewSource(path string, opts ...SourceOption) *Source {
	s := &Source{
		path:    path,
		decoder: FileDecoder{},
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.orient == nil {
		logger := s.logger
		s.orient = func(p string) int { return ResolveOrientation(p, logger) }
	}
	return s
}

// Path returns the file path of the source.
func (s *Source) Path() string { return s.path }

// Bounds returns the orientation-corrected bounds.
//
// Only the file header and EXIF block are read, never the pixels. The
// first result is kept for the life of the Source, and shared through the
// bounds cache when one is set.
//
// Returns:
//   - Bounds: Width and Height after rotation, plus the Rotation in
//     degrees (0, 90, 180 or 270).
//   - error: Non-nil if the header cannot be read.
//
// # Errors
//
//   - Returns error if the file does not exist or has no registered
//     decoder
//   - Returns an error wrapping ErrEmptyBounds if the header reports a
//     zero dimension
func (s *Source) Bounds() (Bounds, error) {
	s.once.Do(func() {
		if s.cache != nil {
			s.bounds, s.err = s.cache.Get(s.path, s.measure)
			return
		}
		s.bounds, s.err = s.measure()
	})
	return s.bounds, s.err
}

func (s *Source) measure() (Bounds, error) {
	cfg, err := s.decoder.DecodeConfig(s.path)
	if err != nil {
		return Bounds{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Bounds{}, fmt.Errorf("%s: %w", s.path, ErrEmptyBounds)
	}
	return NewBounds(cfg.Width, cfg.Height, s.orient(s.path)), nil
}

// Decode returns the raw pixels. Orientation is not applied.
func (s *Source) Decode() (image.Image, error) {
	img, err := s.decoder.Decode(s.path)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s: %w", s.path, ErrEmptyBounds)
	}
	return img, nil
}

// Load decodes the source at full resolution with its orientation applied.
// The returned raster owns a private copy of the pixels.
func (s *Source) Load() (*raster.Raster, error) {
	b, err := s.Bounds()
	if err != nil {
		return nil, err
	}
	img, err := s.Decode()
	if err != nil {
		return nil, err
	}
	upright := Orient(img, b.Rotation)
	if nrgba, ok := upright.(*image.NRGBA); ok && upright != img {
		return raster.Wrap(nrgba), nil
	}
	return raster.Wrap(imaging.Clone(upright)), nil
}

// BoundsCache provides thread-safe caching of measured bounds, so repeated
// stitches of the same files do not re-read headers and EXIF data.
//
// Entries are keyed by path and invalidated when the file's size or
// modification time changes.
type BoundsCache struct {
	mu      sync.RWMutex
	entries map[string]boundsEntry
}

type boundsEntry struct {
	bounds  Bounds
	size    int64
	modTime time.Time
}

// NewBoundsCache creates an empty cache.
func NewBoundsCache() *BoundsCache {
	return &BoundsCache{entries: make(map[string]boundsEntry)}
}

// Get returns cached bounds for path, or calls measure and caches a
// successful result. Failures are never cached.
func (c *BoundsCache) Get(path string, measure func() (Bounds, error)) (Bounds, error) {
	stat, statErr := os.Stat(path)
	if statErr == nil {
		c.mu.RLock()
		e, ok := c.entries[path]
		c.mu.RUnlock()
		if ok && e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
			return e.bounds, nil
		}
	}

	b, err := measure()
	if err != nil {
		return Bounds{}, err
	}
	if statErr == nil {
		c.mu.Lock()
		c.entries[path] = boundsEntry{bounds: b, size: stat.Size(), modTime: stat.ModTime()}
		c.mu.Unlock()
	}
	return b, nil
}

// Evict removes the entry for path, if any.
func (c *BoundsCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *BoundsCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]boundsEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *BoundsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
