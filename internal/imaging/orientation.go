package imaging

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// EXIF orientation tag values that describe a pure rotation. Mirrored
// orientations (2, 4, 5, 7) are treated as unrotated.
const (
	exifRotate180 = 3
	exifRotate90  = 6
	exifRotate270 = 8
)

// ReadOrientation reads the EXIF orientation tag from r and returns the
// clockwise rotation, in degrees, needed to display the image upright.
func ReadOrientation(r io.Reader) (int, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read exif: %w", err)
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, fmt.Errorf("failed to read orientation tag: %w", err)
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, fmt.Errorf("invalid orientation tag: %w", err)
	}
	return DegreesForOrientation(v), nil
}

// DegreesForOrientation maps an EXIF orientation value to 0, 90, 180 or 270.
func DegreesForOrientation(v int) int {
	switch v {
	case exifRotate90:
		return 90
	case exifRotate180:
		return 180
	case exifRotate270:
		return 270
	default:
		return 0
	}
}

// ResolveOrientation returns the rotation for the file at path. Any failure
// to read it, including files with no EXIF block at all, yields 0.
func ResolveOrientation(path string, logger *log.Logger) int {
	f, err := os.Open(path)
	if err != nil {
		if logger != nil {
			logger.Debug("orientation unavailable", "path", path, "err", err)
		}
		return 0
	}
	defer f.Close()

	deg, err := ReadOrientation(f)
	if err != nil {
		if logger != nil {
			logger.Debug("orientation unavailable", "path", path, "err", err)
		}
		return 0
	}
	return deg
}

// Orient rotates img clockwise by degrees. For 0 (or any value that is not
// a quarter turn) img is returned as is; otherwise the result is a new
// *image.NRGBA and img is no longer referenced.
func Orient(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		// disintegration/imaging rotates counter-clockwise
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
