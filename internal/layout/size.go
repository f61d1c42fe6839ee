package layout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
)

// MaxPixels is the largest canvas a stitch may produce (7000x7000).
const MaxPixels int64 = 49_000_000

var (
	// ErrNoSources is returned when there is nothing to lay out.
	ErrNoSources = errors.New("no sources")

	// ErrInvalidRepeat is returned for a repeat count below one.
	ErrInvalidRepeat = errors.New("repeat count must be positive")

	// ErrInvalidExtent is returned for a fixed extent below one.
	ErrInvalidExtent = errors.New("fixed extent must be positive")
)

// Size is the pixel size of a canvas.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports a failed sizing: either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Pixels returns Width*Height, saturating at math.MaxInt64.
func (s Size) Pixels() int64 {
	if s.Empty() {
		return 0
	}
	return satMul(int64(s.Width), int64(s.Height))
}

// Exceeds reports whether the pixel count is above limit. It compares by
// division, so no dimensions can wrap it.
func (s Size) Exceeds(limit int64) bool {
	if s.Empty() {
		return false
	}
	if limit < 0 {
		return true
	}
	w, h := int64(s.Width), int64(s.Height)
	if w > limit || h > limit {
		return true
	}
	return w > limit/h
}

// Oversize reports whether the size exceeds MaxPixels.
func (s Size) Oversize() bool {
	return s.Exceeds(MaxPixels)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Source is anything that can report oriented bounds.
type Source interface {
	Bounds() (imaging.Bounds, error)
}

// Item is the placement of one source on the canvas.
type Item struct {
	// Bounds are the source's oriented bounds.
	Bounds imaging.Bounds

	// Primary and Cross are the drawn extents on each axis.
	Primary int
	Cross   int
}

// Plan is a complete layout: the canvas size and the extent of every item
// in drawing order. A repeat plan holds a single item and a Repeat count
// instead of one item per copy.
type Plan struct {
	Direction Direction
	Spacing   int
	Items     []Item
	Repeat    int
	Size      Size
}

// Len returns the number of items drawn.
func (p Plan) Len() int {
	if p.Repeat > 0 {
		return p.Repeat
	}
	return len(p.Items)
}

// Item returns the i-th drawn item.
func (p Plan) Item(i int) Item {
	if p.Repeat > 0 {
		return p.Items[0]
	}
	return p.Items[i]
}

// ScaledExtent scales primary so that cross becomes target, preserving the
// aspect ratio. The result is rounded to nearest and is at least 1. When
// target equals cross, primary is returned unchanged. A result that does
// not fit an int saturates at math.MaxInt.
func ScaledExtent(primary, cross, target int) int {
	if target == cross || cross <= 0 {
		return primary
	}
	if primary <= 0 || target <= 0 {
		return 1
	}

	// (2pt + c) / 2c in 128 bits
	hi, lo := bits.Mul64(2*uint64(primary), uint64(target))
	lo, carry := bits.Add64(lo, uint64(cross), 0)
	hi += carry
	div := 2 * uint64(cross)
	if hi >= div {
		return math.MaxInt
	}
	q, _ := bits.Div64(hi, lo, div)
	if q > math.MaxInt {
		return math.MaxInt
	}
	return int(max(q, 1))
}

// CalculateSize returns the canvas size for sources under p. Any error
// yields the empty Size.
func CalculateSize(sources []Source, p Policy) Size {
	plan, err := NewPlan(sources, p)
	if err != nil {
		return Size{}
	}
	return plan.Size
}

// CalculateRepeatSize returns the canvas size for src drawn repeat times.
// Any error yields the empty Size.
func CalculateRepeatSize(src Source, repeat int, p Policy) Size {
	plan, err := NewRepeatPlan(src, repeat, p)
	if err != nil {
		return Size{}
	}
	return plan.Size
}

// NewPlan lays out sources in order. It fails on the first source whose
// bounds cannot be read.
func NewPlan(sources []Source, p Policy) (Plan, error) {
	if len(sources) == 0 {
		return Plan{}, ErrNoSources
	}
	if p.Extent.Mode == FixedExtent && p.Extent.Value <= 0 {
		return Plan{}, ErrInvalidExtent
	}

	bounds := make([]imaging.Bounds, len(sources))
	for i, src := range sources {
		b, err := src.Bounds()
		if err != nil {
			return Plan{}, fmt.Errorf("source %d: %w", i, err)
		}
		bounds[i] = b
	}

	target := p.Extent.Value
	switch p.Extent.Mode {
	case ScaleToLargest, ScaleToSmallest:
		target = crossTarget(bounds, p)
	}

	items := make([]Item, len(bounds))
	for i, b := range bounds {
		items[i] = placeItem(b, p, target)
	}
	return newPlan(items, 0, p), nil
}

// NewRepeatPlan lays out src repeat times. Only FixedExtent rescales; every
// other mode draws the source at its own size since the largest and
// smallest of one item are that item. The plan holds one item whatever the
// count, so a huge repeat costs nothing until it is drawn.
func NewRepeatPlan(src Source, repeat int, p Policy) (Plan, error) {
	if repeat <= 0 {
		return Plan{}, ErrInvalidRepeat
	}
	if p.Extent.Mode == FixedExtent && p.Extent.Value <= 0 {
		return Plan{}, ErrInvalidExtent
	}
	b, err := src.Bounds()
	if err != nil {
		return Plan{}, err
	}

	_, cross := p.Direction.Split(b.Width, b.Height)
	target := cross
	if p.Extent.Mode == FixedExtent {
		target = p.Extent.Value
	}
	return newPlan([]Item{placeItem(b, p, target)}, repeat, p), nil
}

func crossTarget(bounds []imaging.Bounds, p Policy) int {
	_, target := p.Direction.Split(bounds[0].Width, bounds[0].Height)
	for _, b := range bounds[1:] {
		_, cross := p.Direction.Split(b.Width, b.Height)
		if p.Extent.Mode == ScaleToSmallest {
			target = min(target, cross)
		} else {
			target = max(target, cross)
		}
	}
	return target
}

func placeItem(b imaging.Bounds, p Policy, target int) Item {
	primary, cross := p.Direction.Split(b.Width, b.Height)
	if p.Extent.Mode == PreserveNative {
		return Item{Bounds: b, Primary: primary, Cross: cross}
	}
	return Item{Bounds: b, Primary: ScaledExtent(primary, cross, target), Cross: target}
}

// newPlan totals the primary axis in saturating int64 arithmetic so an
// absurd layout reports an oversize canvas instead of wrapping negative.
func newPlan(items []Item, repeat int, p Policy) Plan {
	gap := p.Gap()
	var total int64
	cross := 0
	for _, it := range items {
		total = satAdd(total, int64(it.Primary))
		cross = max(cross, it.Cross)
	}

	n := int64(len(items))
	if repeat > 0 {
		n = int64(repeat)
		total = satMul(total, n)
	}
	if gap > 0 && n > 1 {
		total = satAdd(total, satMul(int64(gap), n-1))
	}

	return Plan{
		Direction: p.Direction,
		Spacing:   gap,
		Items:     items,
		Repeat:    repeat,
		Size:      p.Direction.Join(clampInt(total), cross),
	}
}

// satAdd and satMul expect non-negative operands.
func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func clampInt(v int64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
