package imaging

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// ErrSaveFailure is wrapped by every error returned from Save.
var ErrSaveFailure = errors.New("save failed")

// DefaultJPEGQuality is used when SaveOptions.Quality is QualityDefault.
const DefaultJPEGQuality = 90

// QualityDefault leaves the JPEG quality unset. JPEG has no quality 0
// (image/jpeg treats anything below 1 as 1), so zero is free to mean
// "use the default". Ask for the lowest quality with 1.
const QualityDefault = 0

// SaveOptions controls how a raster is written to disk.
type SaveOptions struct {
	// Format is one of "png", "jpeg" (or "jpg"), "gif", "tiff" (or "tif")
	// and "bmp". Empty selects the format from the file extension.
	Format string

	// Quality is the JPEG quality, 1 to 100. QualityDefault (zero)
	// selects DefaultJPEGQuality. Negative values clamp to 1 and values
	// above 100 clamp to 100. Other formats ignore it.
	Quality int

	// Release releases the raster after a successful write.
	Release bool
}

// Save encodes r to path.
//
// Parameters:
//   - r: The raster to write. Its pixels are not modified.
//   - path: Destination file. It is created or truncated.
//   - opts: Format, JPEG quality and whether to release r after writing.
//
// Returns:
//   - error: Nil when the whole file was written.
//
// On failure no partial file is left behind and the raster is not
// released, so the caller still owns it.
//
// # Errors
//
//   - Every error wraps ErrSaveFailure
//   - Returns error if r is nil, released or empty
//   - Returns error if the format cannot be resolved from opts.Format or
//     the path extension
//   - Returns error if the file cannot be created or encoding fails
func Save(r *raster.Raster, path string, opts SaveOptions) error {
	if r.Empty() {
		return fmt.Errorf("%w: empty raster", ErrSaveFailure)
	}
	format, err := ResolveFormat(path, opts.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailure, err)
	}

	quality := opts.Quality
	switch {
	case quality == QualityDefault:
		quality = DefaultJPEGQuality
	case quality > 100:
		quality = 100
	case quality < 1:
		quality = 1
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailure, err)
	}

	encodeErr := imaging.Encode(f, r.Image(), format, imaging.JPEGQuality(quality))
	closeErr := f.Close()
	if err := errors.Join(encodeErr, closeErr); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %w", ErrSaveFailure, err)
	}

	if opts.Release {
		r.Release()
	}
	return nil
}

// ResolveFormat picks the output format from an explicit name, falling back
// to the extension of path.
func ResolveFormat(path, name string) (imaging.Format, error) {
	if name == "" {
		return imaging.FormatFromFilename(path)
	}
	return imaging.FormatFromExtension(strings.TrimPrefix(name, "."))
}
