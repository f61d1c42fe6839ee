// Package imaging provides the per-image operations used by the stitcher:
// source loading with EXIF-aware bounds, orientation, clipping, masking
// and saving.
//
// # Coordinate System
//
// Coordinates are 0-based with (0,0) at the top-left corner. X increases
// rightward and Y increases downward. A region (x, y, w, h) covers
// [x, x+w) by [y, y+h).
//
// # Bounds and Orientation
//
// Source.Bounds reports the dimensions an image has after its EXIF
// orientation is applied, so a 4000x3000 JPEG tagged "rotate 90" measures
// 3000x4000. Only tags 3, 6 and 8 rotate; mirrored variants are treated as
// upright. Bounds are read from the image header without decoding pixels.
//
// # Ownership
//
// The clip and mask operations consume their input. When they return a
// new raster the source is released; when they return the source itself
// (the region did not fit, or covered the whole image) it stays live.
// A nil result means the input was nil or already released.
//
// # Thread Safety
//
// BoundsCache and Source are safe for concurrent use. The clip, mask and
// save functions are stateless, but a single Raster must not be passed to
// two of them at once.
package imaging
