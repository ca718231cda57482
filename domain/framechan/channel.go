package framechan

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrLayoutMismatch is returned when an arena does not match the expected layout.
	ErrLayoutMismatch = errors.New("framechan: layout mismatch")
	// ErrReleased is returned when attaching to a channel whose owner released it.
	ErrReleased = errors.New("framechan: channel released")
)

// writeClaimAttempts bounds how long a writer yields while another writer
// holds the sequence. A write that cannot claim it is dropped.
const writeClaimAttempts = 64

// Sample is one read of the channel. Frame and Boxes are private copies.
type Sample struct {
	Frame    Frame
	Boxes    []Box
	Sequence uint32
	// Consistent is false when the bounded retry loop was exhausted and the
	// last, possibly torn, sample was returned.
	Consistent bool
}

// Stats counts channel activity seen through this handle.
type Stats struct {
	Writes        uint64
	DroppedWrites uint64
	Reads         uint64
	ReadRetries   uint64
	TornReads     uint64
}

// Channel is one handle onto a named arena. Writers never block readers and
// readers never block anyone; consistency comes from sequence parity.
type Channel struct {
	name    string
	layout  Layout
	backend Backend
	region  Region
	owner   bool
	refs    *refs

	seq   *int32
	count *int32
	boxes []int32
	img   []byte

	readAttempts int
	closed       atomic.Bool

	writes, dropped, reads, retries, torn atomic.Uint64
}

// refs tracks in-process attachments so the OS resource is unlinked exactly
// once, after the owner released it and every attached handle detached.
type refs struct {
	mu       sync.Mutex
	attached int
	released bool
	once     sync.Once
}

var registry = struct {
	mu sync.Mutex
	m  map[string]*refs
}{m: map[string]*refs{}}

// Create allocates a new arena named name and returns the owning handle.
func Create(b Backend, name string, l Layout) (*Channel, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	r, err := b.Create(name, l.Size())
	if err != nil {
		return nil, err
	}
	c, err := bind(b, r, name, l)
	if err != nil {
		r.Close()
		b.Unlink(name)
		return nil, err
	}
	c.owner = true
	c.refs = &refs{}
	registry.mu.Lock()
	registry.m[name] = c.refs
	registry.mu.Unlock()
	return c, nil
}

// Attach opens an existing arena. It never creates one.
func Attach(b Backend, name string, l Layout) (*Channel, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	registry.mu.Lock()
	rf := registry.m[name]
	registry.mu.Unlock()
	if rf != nil {
		rf.mu.Lock()
		if rf.released {
			rf.mu.Unlock()
			return nil, ErrReleased
		}
		rf.attached++
		rf.mu.Unlock()
	}
	r, err := b.Open(name, l.Size())
	if err != nil {
		if rf != nil {
			rf.detach(b, name)
		}
		return nil, err
	}
	c, err := bind(b, r, name, l)
	if err != nil {
		r.Close()
		if rf != nil {
			rf.detach(b, name)
		}
		return nil, err
	}
	c.refs = rf
	return c, nil
}

func bind(b Backend, r Region, name string, l Layout) (*Channel, error) {
	buf := r.Bytes()
	if len(buf) < l.Size() {
		return nil, fmt.Errorf("%w: region %d bytes, want %d", ErrLayoutMismatch, len(buf), l.Size())
	}
	if uintptr(unsafe.Pointer(&buf[0]))%4 != 0 {
		return nil, fmt.Errorf("framechan: region %q is not 4-byte aligned", name)
	}
	meta := unsafe.Slice((*int32)(unsafe.Pointer(&buf[0])), l.MetaInts())
	return &Channel{
		name:         name,
		layout:       l,
		backend:      b,
		region:       r,
		seq:          &meta[0],
		count:        &meta[1],
		boxes:        meta[metaHeaderInts:],
		img:          buf[l.MetaSize():l.Size()],
		readAttempts: DefaultReadAttempts,
	}, nil
}

// Name returns the arena name other participants attach with.
func (c *Channel) Name() string { return c.name }

// Layout returns the channel geometry.
func (c *Channel) Layout() Layout { return c.layout }

// Center returns the fixed reference point of the frame.
func (c *Channel) Center() (float64, float64) { return c.layout.Center() }

// Sequence returns the current raw sequence value.
func (c *Channel) Sequence() uint32 { return uint32(atomic.LoadInt32(c.seq)) }

// SetReadAttempts overrides the bounded retry count (minimum 1).
func (c *Channel) SetReadAttempts(n int) {
	if n < 1 {
		n = 1
	}
	c.readAttempts = n
}

// Write stores f and boxes as the latest sample. f is cropped or zero-padded
// to the channel size; boxes beyond MaxBoxes are dropped, keeping input order.
// It returns false when the channel is closed or another writer held the
// sequence for longer than the claim bound.
func (c *Channel) Write(f Frame, boxes []Box) bool {
	_, ok := c.Publish(f, boxes)
	return ok
}

// Publish is Write that also returns the sequence value the write published.
func (c *Channel) Publish(f Frame, boxes []Box) (uint32, bool) {
	if c.closed.Load() {
		return 0, false
	}
	pre, ok := c.claim()
	if !ok {
		c.dropped.Add(1)
		return 0, false
	}
	// Publishing in a defer keeps parity even if a copy panics.
	defer atomic.StoreInt32(c.seq, pre+2)

	c.copyImage(f)
	n := min(len(boxes), c.layout.MaxBoxes)
	for i := 0; i < n; i++ {
		b := boxes[i]
		cell := c.boxes[i*boxInts : i*boxInts+boxInts]
		cell[0], cell[1], cell[2], cell[3] = int32(b.X1), int32(b.Y1), int32(b.X2), int32(b.Y2)
	}
	clear(c.boxes[n*boxInts:])
	atomic.StoreInt32(c.count, int32(n))
	c.writes.Add(1)
	return uint32(pre + 2), true
}

// claim moves the sequence from even to odd. Competing writers yield and
// retry a bounded number of times.
func (c *Channel) claim() (int32, bool) {
	for i := 0; i < writeClaimAttempts; i++ {
		s := atomic.LoadInt32(c.seq)
		if s&1 == 0 && atomic.CompareAndSwapInt32(c.seq, s, s+1) {
			return s, true
		}
		runtime.Gosched()
	}
	return 0, false
}

func (c *Channel) copyImage(f Frame) {
	w, h := c.layout.Width, c.layout.Height
	row := w * Channels
	if f.Width == w && f.Height == h && f.stride() == row && len(f.Pix) >= row*h {
		copy(c.img, f.Pix[:row*h])
		return
	}
	srcStride := f.stride()
	srcRow := min(max(f.Width, 0), w) * Channels
	for y := 0; y < h; y++ {
		dst := c.img[y*row : (y+1)*row]
		n := 0
		if y < f.Height {
			off := y * srcStride
			if off < len(f.Pix) {
				n = copy(dst[:srcRow], f.Pix[off:min(off+srcRow, len(f.Pix))])
			}
		}
		clear(dst[n:])
	}
}

// Read returns the latest sample. It never blocks and never fails: after
// the bounded number of attempts it returns the last sample it copied.
func (c *Channel) Read() Sample {
	c.reads.Add(1)
	out := Sample{Frame: NewFrame(c.layout.Width, c.layout.Height)}
	if c.closed.Load() {
		out.Boxes = []Box{}
		return out
	}
	for attempt := 0; attempt < c.readAttempts; attempt++ {
		pre := atomic.LoadInt32(c.seq)
		n := int(atomic.LoadInt32(c.count))
		n = max(0, min(n, c.layout.MaxBoxes))
		boxes := make([]Box, n)
		for i := range boxes {
			cell := c.boxes[i*boxInts : i*boxInts+boxInts]
			boxes[i] = Box{X1: int(cell[0]), Y1: int(cell[1]), X2: int(cell[2]), Y2: int(cell[3])}
		}
		copy(out.Frame.Pix, c.img)
		post := atomic.LoadInt32(c.seq)

		out.Boxes = boxes
		out.Sequence = uint32(post)
		if pre == post && pre&1 == 0 {
			out.Consistent = true
			return out
		}
		c.retries.Add(1)
	}
	c.torn.Add(1)
	return out
}

// Stats returns counters for this handle.
func (c *Channel) Stats() Stats {
	return Stats{
		Writes:        c.writes.Load(),
		DroppedWrites: c.dropped.Load(),
		Reads:         c.reads.Load(),
		ReadRetries:   c.retries.Load(),
		TornReads:     c.torn.Load(),
	}
}

// Detach unmaps this handle. Safe to call more than once. On the owning
// handle Detach is equivalent to Release.
func (c *Channel) Detach() error {
	if c.owner {
		return c.Release()
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.region.Close()
	if c.refs != nil {
		c.refs.detach(c.backend, c.name)
	}
	return err
}

// Release is called by the owner at shutdown. The arena is unlinked once
// every in-process attached handle has detached.
func (c *Channel) Release() error {
	if !c.owner {
		return c.Detach()
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.region.Close()
	c.refs.mu.Lock()
	c.refs.released = true
	done := c.refs.attached == 0
	c.refs.mu.Unlock()
	if done {
		if uerr := c.refs.unlink(c.backend, c.name); err == nil {
			err = uerr
		}
	}
	return err
}

func (r *refs) detach(b Backend, name string) {
	r.mu.Lock()
	r.attached--
	done := r.released && r.attached == 0
	r.mu.Unlock()
	if done {
		_ = r.unlink(b, name)
	}
}

func (r *refs) unlink(b Backend, name string) error {
	var err error
	r.once.Do(func() {
		err = b.Unlink(name)
		registry.mu.Lock()
		if registry.m[name] == r {
			delete(registry.m, name)
		}
		registry.mu.Unlock()
	})
	return err
}
