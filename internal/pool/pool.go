// Package pool implements a bounded reuse pool for decode buffers.
//
// Decoding many large images one after another allocates and discards the
// same amount of memory over and over. A Pool keeps up to Capacity retired
// buffers and hands a compatible one to the next decode instead.
//
// # Ordering
//
// Entries are kept in insertion order. When the pool is full the oldest
// entry is destroyed before a new one is inserted, and Get returns the
// first compatible entry in that same order.
//
// # Thread Safety
//
// Put, Get and Clear each run under a single mutex, so a buffer is never
// handed to two concurrent decodes and a scan never observes a half-done
// insert or eviction. Construct one Pool per process and share it.
package pool

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// DefaultCapacity is the number of free buffers a pool retains.
const DefaultCapacity = 15

// Request describes the buffer a decode needs.
type Request struct {
	// Bytes is the minimum capacity in bytes.
	Bytes int

	// Format is the pixel format the decode will write.
	Format raster.Format

	// Width and Height are the decoded dimensions. They are used for
	// per-candidate capacity accounting and for exact-match mode.
	Width  int
	Height int

	// Subsample is the power-of-two decode reduction. Exact-match mode
	// only reuses buffers when it is 1.
	Subsample int
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Len       int `json:"len"`
	Puts      int `json:"puts"`
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
	Rejected  int `json:"rejected"`
}

// Option configures a Pool.
type Option func(*Pool)

// WithCapacity sets the maximum number of retained buffers. Values below 1
// are ignored.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.capacity = n
		}
	}
}

// WithExactMatch restricts reuse to buffers whose last configuration had the
// exact requested dimensions, and only for non-subsampled decodes.
func WithExactMatch() Option {
	return func(p *Pool) { p.exact = true }
}

// WithLogger sets the logger used for eviction and rejection events.
func WithLogger(l *log.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pool is a bounded FIFO of free buffers.
type Pool struct {
	mu       sync.Mutex
	entries  []*Buffer
	capacity int
	exact    bool
	logger   *log.Logger
	stats    Stats
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		capacity: DefaultCapacity,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capacity returns the maximum number of retained buffers.
func (p *Pool) Capacity() int { return p.capacity }

// Put retires b to the pool and reports whether it was retained.
//
// Nil and destroyed buffers are rejected. Immutable buffers are destroyed
// and never pooled. A buffer already held by the pool is not added twice.
// If the pool is full the oldest entry is destroyed first.
func (p *Pool) Put(b *Buffer) bool {
	if !b.Live() {
		p.mu.Lock()
		p.stats.Rejected++
		p.mu.Unlock()
		return false
	}
	if !b.Mutable() {
		b.Destroy()
		p.mu.Lock()
		p.stats.Rejected++
		p.mu.Unlock()
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e == b {
			p.stats.Rejected++
			return false
		}
	}

	for len(p.entries) >= p.capacity {
		oldest := p.entries[0]
		p.entries[0] = nil
		p.entries = p.entries[1:]
		p.logger.Debug("evicting pooled buffer", "bytes", oldest.Capacity(), "format", oldest.Format())
		oldest.Destroy()
		p.stats.Evictions++
	}

	p.entries = append(p.entries, b)
	p.stats.Puts++
	return true
}

// Get removes and returns the first compatible free buffer. Dead entries
// met during the scan are pruned.
func (p *Pool) Get(req Request) (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.entries[:0]
	var found *Buffer
	for _, e := range p.entries {
		switch {
		case found != nil:
			kept = append(kept, e)
		case !e.Live() || !e.Mutable():
			// pruned
		case p.compatible(e, req):
			found = e
		default:
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(p.entries); i++ {
		p.entries[i] = nil
	}
	p.entries = kept

	if found == nil {
		p.stats.Misses++
		return nil, false
	}
	found.format = req.Format
	p.stats.Hits++
	return found, true
}

// compatible applies the reuse rule. Capacity is compared in raw bytes, but
// the candidate's own bytes-per-pixel is also charged for the requested
// dimensions so a buffer last used at a wider format is never undersized.
func (p *Pool) compatible(b *Buffer, req Request) bool {
	if p.exact {
		w, h := b.Size()
		return req.Subsample == 1 &&
			w == req.Width && h == req.Height &&
			b.Format().BytesPerPixel() == req.Format.BytesPerPixel()
	}
	need := req.Bytes
	if own := req.Width * req.Height * b.Format().BytesPerPixel(); own > need {
		need = own
	}
	return need > 0 && b.Capacity() >= need
}

// Clear destroys every pooled buffer.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.entries {
		e.Destroy()
		p.entries[i] = nil
	}
	p.entries = p.entries[:0]
}

// Len returns the number of retained buffers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Len = len(p.entries)
	return s
}
