package port

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"panelport/hal"
)

// Owner is the role currently holding a frame buffer.
type Owner uint32

const (
	OwnerNone Owner = iota
	OwnerDrawer
	OwnerBus
)

func (o Owner) String() string {
	switch o {
	case OwnerNone:
		return "none"
	case OwnerDrawer:
		return "drawer"
	case OwnerBus:
		return "bus"
	default:
		return fmt.Sprintf("owner(%d)", uint32(o))
	}
}

// FrameBuffer is one full-frame pixel buffer. The drawer may write Pix only
// between BackBuffer and Flush; the bus reads it until FlushReady.
type FrameBuffer struct {
	index  int
	pix    []byte
	width  int
	height int
	stride int
	format hal.PixelFormat

	owner atomic.Uint32
	// free holds a token while the bus does not own the buffer.
	free chan struct{}
	// pack receives partial areas row by row for the panel.
	pack []byte
}

func newFrameBuffer(index int, pix []byte, w, h int, format hal.PixelFormat) *FrameBuffer {
	b := &FrameBuffer{
		index:  index,
		pix:    pix,
		width:  w,
		height: h,
		stride: w * format.BytesPerPixel(),
		format: format,
		free:   make(chan struct{}, 1),
	}
	b.free <- struct{}{}
	return b
}

// NewFrameBuffer returns a heap buffer outside any port, for off-screen
// rendering and tests.
func NewFrameBuffer(w, h int, format hal.PixelFormat) *FrameBuffer {
	return newFrameBuffer(0, make([]byte, w*h*format.BytesPerPixel()), w, h, format)
}

func (b *FrameBuffer) Index() int              { return b.index }
func (b *FrameBuffer) Pix() []byte             { return b.pix }
func (b *FrameBuffer) Len() int                { return len(b.pix) }
func (b *FrameBuffer) Width() int              { return b.width }
func (b *FrameBuffer) Height() int             { return b.height }
func (b *FrameBuffer) Stride() int             { return b.stride }
func (b *FrameBuffer) Format() hal.PixelFormat { return b.format }
func (b *FrameBuffer) Owner() Owner            { return Owner(b.owner.Load()) }

// Addr returns the address of the first pixel.
func (b *FrameBuffer) Addr() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.pix)))
}

// SetPixel stores an RGB565 value; out of frame writes are dropped.
func (b *FrameBuffer) SetPixel(x, y int, c uint16) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	off := y*b.stride + x*2
	b.pix[off] = byte(c)
	b.pix[off+1] = byte(c >> 8)
}

// Fill paints area a with an RGB565 value.
func (b *FrameBuffer) Fill(a Area, c uint16) {
	a = a.Clip(b.width, b.height)
	if a.Empty() {
		return
	}
	lo, hi := byte(c), byte(c>>8)
	row := b.pix[a.Y1*b.stride+a.X1*2 : a.Y1*b.stride+a.X2*2]
	for i := 0; i < len(row); i += 2 {
		row[i] = lo
		row[i+1] = hi
	}
	for y := a.Y1 + 1; y < a.Y2; y++ {
		off := y*b.stride + a.X1*2
		copy(b.pix[off:off+len(row)], row)
	}
}

// region returns the pixels of a as one tightly packed slice. Full-width
// areas alias the buffer, anything else is copied into the pack scratch.
func (b *FrameBuffer) region(a Area) []byte {
	if a.X1 == 0 && a.X2 == b.width {
		return b.pix[a.Y1*b.stride : a.Y2*b.stride]
	}
	row := a.Width() * b.format.BytesPerPixel()
	n := row * a.Height()
	if cap(b.pack) < n {
		b.pack = make([]byte, n)
	}
	out := b.pack[:n]
	for y := 0; y < a.Height(); y++ {
		src := (a.Y1+y)*b.stride + a.X1*b.format.BytesPerPixel()
		copy(out[y*row:(y+1)*row], b.pix[src:src+row])
	}
	return out
}

// BufferPair holds the frame buffers. The second entry is nil in
// single-buffer mode.
type BufferPair [2]*FrameBuffer

// Count returns the number of allocated buffers.
func (p BufferPair) Count() int {
	n := 0
	for _, b := range p {
		if b != nil {
			n++
		}
	}
	return n
}

// Allocator returns size bytes whose first byte is aligned to align.
type Allocator interface {
	Alloc(size, align int) ([]byte, error)
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(size, align int) ([]byte, error)

func (f AllocatorFunc) Alloc(size, align int) ([]byte, error) { return f(size, align) }

// HeapAllocator over-allocates from the Go heap and slices at the first
// aligned offset.
var HeapAllocator Allocator = AllocatorFunc(heapAlloc)

func heapAlloc(size, align int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc %d bytes: invalid size", size)
	}
	if align <= 1 {
		return make([]byte, size), nil
	}
	raw := make([]byte, size+align-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % uintptr(align)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+size : off+size], nil
}

func isAligned(p []byte, align int) bool {
	if len(p) == 0 {
		return false
	}
	if align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))%uintptr(align) == 0
}

// allocBuffers allocates n frame buffers. Any failure, short buffer or
// misaligned buffer is reported as an error; nothing is returned partially.
func allocBuffers(alloc Allocator, n, w, h int, format hal.PixelFormat, align int) (BufferPair, error) {
	var pair BufferPair
	size := w * h * format.BytesPerPixel()
	for i := 0; i < n; i++ {
		pix, err := alloc.Alloc(size, align)
		if err != nil {
			return BufferPair{}, fmt.Errorf("buffer %d (%d bytes): %w", i, size, err)
		}
		if len(pix) < size {
			return BufferPair{}, fmt.Errorf("buffer %d: got %d of %d bytes", i, len(pix), size)
		}
		if !isAligned(pix, align) {
			return BufferPair{}, fmt.Errorf("buffer %d: not %d-byte aligned", i, align)
		}
		pair[i] = newFrameBuffer(i, pix[:size], w, h, format)
	}
	return pair, nil
}

// BackBuffer hands the drawer the buffer it should render the next frame
// into. It blocks until the bus has finished with that buffer. Calling it
// again before Flush returns the same buffer.
func (p *Port) BackBuffer(ctx context.Context) (*FrameBuffer, error) {
	if !p.ready.Load() {
		return nil, ErrNotInitialized
	}
	p.bufMu.Lock()
	defer p.bufMu.Unlock()

	if p.drawing != nil {
		return p.drawing, nil
	}
	b := p.bufs[p.next]
	select {
	case <-b.free:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.runCtx.Done():
		return nil, p.runCtx.Err()
	}
	b.owner.Store(uint32(OwnerDrawer))
	p.drawing = b
	return b, nil
}

// handToBus moves the drawer's buffer to the bus and advances the ping-pong
// index.
func (p *Port) handToBus(buf *FrameBuffer) error {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	if buf == nil || p.drawing != buf {
		return ErrBufferState
	}
	p.drawing = nil
	buf.owner.Store(uint32(OwnerBus))
	if n := p.bufs.Count(); n > 1 {
		p.next = (buf.index + 1) % n
	}
	return nil
}

// release gives a buffer back to BackBuffer waiters.
func (p *Port) release(buf *FrameBuffer) {
	select {
	case buf.free <- struct{}{}:
	default:
		p.log.Error("frame buffer released twice", "buf", buf.index)
	}
}
