// Package layout computes the canvas size of a stitch and the extent of
// every item placed on it.
//
// Items are stacked along the primary axis (height for Vertical, width
// for Horizontal) and scaled on the cross axis according to the policy's
// Extent. Sizing is pure: it reads only orientation-corrected bounds and
// never decodes pixels.
//
// Plan and PlanRepeat are the single source of placement geometry. The
// stitch engine draws from the same Plan it sized the canvas with, so the
// two cannot disagree.
package layout
