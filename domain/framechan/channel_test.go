package framechan

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T, l Layout) (*Channel, *Memory) {
	t.Helper()
	mem := NewMemory()
	c, err := Create(mem, NewName(), l)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Release() })
	return c, mem
}

func filledFrame(w, h int, v byte) Frame {
	f := NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestRead_NeverWritten(t *testing.T) {
	c, _ := newTestChannel(t, DefaultLayout())
	s := c.Read()
	assert.True(t, s.Consistent)
	assert.Equal(t, uint32(0), s.Sequence)
	assert.Len(t, s.Boxes, 0)
	assert.Equal(t, 640, s.Frame.Width)
	assert.Equal(t, 640, s.Frame.Height)
	for i, b := range s.Frame.Pix {
		if b != 0 {
			t.Fatalf("pixel byte %d = %d, want zero", i, b)
		}
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 8, Height: 4, MaxBoxes: 8})
	f := NewFrame(8, 4)
	f.SetBGR(3, 2, 10, 20, 30)
	boxes := []Box{{1, 2, 3, 4}, {5, 6, 7, 8}}
	require.True(t, c.Write(f, boxes))

	s := c.Read()
	assert.True(t, s.Consistent)
	assert.Equal(t, uint32(2), s.Sequence)
	if diff := cmp.Diff(boxes, s.Boxes); diff != "" {
		t.Fatalf("boxes mismatch (-want +got):\n%s", diff)
	}
	b, g, r := s.Frame.BGR(3, 2)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{b, g, r})
}

func TestWrite_TruncatesBoxesAndZeroesTail(t *testing.T) {
	l := Layout{Width: 4, Height: 4, MaxBoxes: 4}
	c, _ := newTestChannel(t, l)
	var many []Box
	for i := 0; i < 7; i++ {
		many = append(many, Box{i, i, i + 10, i + 10})
	}
	require.True(t, c.Write(NewFrame(4, 4), many))
	s := c.Read()
	if diff := cmp.Diff(many[:4], s.Boxes); diff != "" {
		t.Fatalf("truncation mismatch (-want +got):\n%s", diff)
	}
	// Image region directly after the metadata must be untouched.
	for i, b := range s.Frame.Pix {
		require.Zerof(t, b, "image byte %d corrupted by box overflow", i)
	}

	require.True(t, c.Write(NewFrame(4, 4), []Box{{9, 9, 9, 9}}))
	s = c.Read()
	assert.Equal(t, []Box{{9, 9, 9, 9}}, s.Boxes)
	for i, v := range c.boxes[boxInts:] {
		require.Zerof(t, v, "stale box cell %d", i+boxInts)
	}
}

func TestWrite_NormalizesOversizedStridedAndShortFrames(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 4, Height: 2, MaxBoxes: 1})

	big := filledFrame(6, 3, 7)
	require.True(t, c.Write(big, nil))
	s := c.Read()
	for _, b := range s.Frame.Pix {
		require.Equal(t, byte(7), b)
	}

	// 4x2 view into a 6-pixel wide buffer.
	parent := NewFrame(6, 2)
	for x := 0; x < 6; x++ {
		parent.SetBGR(x, 0, byte(x), 0, 0)
		parent.SetBGR(x, 1, byte(x+100), 0, 0)
	}
	view := Frame{Width: 4, Height: 2, Stride: parent.Stride, Pix: parent.Pix}
	require.True(t, c.Write(view, nil))
	s = c.Read()
	for x := 0; x < 4; x++ {
		b0, _, _ := s.Frame.BGR(x, 0)
		b1, _, _ := s.Frame.BGR(x, 1)
		assert.Equal(t, byte(x), b0)
		assert.Equal(t, byte(x+100), b1)
	}

	small := filledFrame(2, 1, 9)
	require.True(t, c.Write(small, nil))
	s = c.Read()
	b, _, _ := s.Frame.BGR(1, 0)
	assert.Equal(t, byte(9), b)
	b, _, _ = s.Frame.BGR(2, 0)
	assert.Equal(t, byte(0), b, "padding must be zero")
	b, _, _ = s.Frame.BGR(0, 1)
	assert.Equal(t, byte(0), b, "missing rows must be zero")
}

func TestRead_ReturnsIndependentCopy(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 2, Height: 2, MaxBoxes: 1})
	require.True(t, c.Write(filledFrame(2, 2, 5), []Box{{0, 0, 1, 1}}))
	s := c.Read()
	s.Frame.Pix[0] = 99
	s.Boxes[0].X1 = 99
	again := c.Read()
	assert.Equal(t, byte(5), again.Frame.Pix[0])
	assert.Equal(t, 0, again.Boxes[0].X1)
}

func TestRead_OddSequenceExhaustsRetries(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 2, Height: 2, MaxBoxes: 1})
	require.True(t, c.Write(filledFrame(2, 2, 1), []Box{{1, 1, 2, 2}}))
	atomic.StoreInt32(c.seq, 3) // simulate a writer stuck mid-write

	s := c.Read()
	assert.False(t, s.Consistent)
	assert.Equal(t, []Box{{1, 1, 2, 2}}, s.Boxes, "best-effort sample is still returned")
	st := c.Stats()
	assert.Equal(t, uint64(DefaultReadAttempts), st.ReadRetries)
	assert.Equal(t, uint64(1), st.TornReads)

	// A competing writer cannot claim an odd sequence and drops its write.
	assert.False(t, c.Write(filledFrame(2, 2, 2), nil))
	assert.Equal(t, uint64(1), c.Stats().DroppedWrites)
}

// Every consistent sample must come from exactly one write: the image fill
// value and the box payload are written together and must agree.
func TestConcurrentWriteRead_NoMixedSamples(t *testing.T) {
	l := Layout{Width: 32, Height: 32, MaxBoxes: 4}
	c, mem := newTestChannel(t, l)
	reader, err := Attach(mem, c.Name(), l)
	require.NoError(t, err)
	defer reader.Detach()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := 1; ; v++ {
			select {
			case <-stop:
				return
			default:
			}
			k := byte(v % 251)
			c.Write(filledFrame(32, 32, k), []Box{{int(k), int(k), int(k), int(k)}})
		}
	}()

	deadline := time.Now().Add(150 * time.Millisecond)
	checked := 0
	for time.Now().Before(deadline) {
		s := reader.Read()
		if !s.Consistent || len(s.Boxes) == 0 {
			continue
		}
		want := byte(s.Boxes[0].X1)
		for i, b := range s.Frame.Pix {
			if b != want {
				close(stop)
				wg.Wait()
				t.Fatalf("mixed sample: byte %d = %d, boxes say %d", i, b, want)
			}
		}
		checked++
	}
	close(stop)
	wg.Wait()
	if checked == 0 {
		t.Fatalf("no consistent samples observed")
	}
}

func TestConcurrentWriters_KeepParity(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 16, Height: 16, MaxBoxes: 2})
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(v byte) {
			defer wg.Done()
			f := filledFrame(16, 16, v)
			for i := 0; i < 500; i++ {
				c.Write(f, []Box{{int(v), 0, 0, 0}})
			}
		}(byte(w + 1))
	}
	wg.Wait()
	st := c.Stats()
	seq := c.Sequence()
	assert.Zero(t, seq%2, "sequence must be even once writers are done")
	assert.Equal(t, uint64(seq/2), st.Writes)
	assert.Equal(t, uint64(1000), st.Writes+st.DroppedWrites)
}

func TestLifecycle_UnlinkAfterLastDetach(t *testing.T) {
	mem := NewMemory()
	l := Layout{Width: 2, Height: 2, MaxBoxes: 1}
	owner, err := Create(mem, "lifecycle", l)
	require.NoError(t, err)
	a, err := Attach(mem, "lifecycle", l)
	require.NoError(t, err)
	b, err := Attach(mem, "lifecycle", l)
	require.NoError(t, err)

	require.NoError(t, owner.Release())
	assert.True(t, mem.Exists("lifecycle"), "attached handles keep the arena alive")
	require.NoError(t, a.Detach())
	require.NoError(t, a.Detach())
	assert.True(t, mem.Exists("lifecycle"))
	require.NoError(t, b.Detach())
	assert.False(t, mem.Exists("lifecycle"))

	_, err = Attach(mem, "lifecycle", l)
	assert.Error(t, err)
}

func TestAttach_AfterReleaseWithLiveHandle(t *testing.T) {
	mem := NewMemory()
	l := Layout{Width: 2, Height: 2, MaxBoxes: 1}
	owner, err := Create(mem, "released", l)
	require.NoError(t, err)
	a, err := Attach(mem, "released", l)
	require.NoError(t, err)
	require.NoError(t, owner.Release())
	_, err = Attach(mem, "released", l)
	assert.ErrorIs(t, err, ErrReleased)
	require.NoError(t, a.Detach())
}

func TestAttach_LayoutMismatch(t *testing.T) {
	mem := NewMemory()
	owner, err := Create(mem, "mismatch", Layout{Width: 4, Height: 4, MaxBoxes: 1})
	require.NoError(t, err)
	defer owner.Release()
	_, err = Attach(mem, "mismatch", Layout{Width: 8, Height: 4, MaxBoxes: 1})
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestWrite_AfterDetachIsRejected(t *testing.T) {
	mem := NewMemory()
	l := Layout{Width: 2, Height: 2, MaxBoxes: 1}
	owner, err := Create(mem, "closed", l)
	require.NoError(t, err)
	defer owner.Release()
	h, err := Attach(mem, "closed", l)
	require.NoError(t, err)
	require.NoError(t, h.Detach())
	assert.False(t, h.Write(NewFrame(2, 2), nil))
}

func TestPublish_ReturnsPublishedSequence(t *testing.T) {
	c, _ := newTestChannel(t, Layout{Width: 2, Height: 2, MaxBoxes: 1})
	seq, ok := c.Publish(NewFrame(2, 2), nil)
	require.True(t, ok)
	assert.Equal(t, uint32(2), seq)
	seq, ok = c.Publish(NewFrame(2, 2), nil)
	require.True(t, ok)
	assert.Equal(t, uint32(4), seq)
	assert.Equal(t, seq, c.Read().Sequence)
}
