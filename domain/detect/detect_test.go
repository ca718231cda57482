package detect

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

func noiseFrame(w, h int, seed int64) framechan.Frame {
	r := rand.New(rand.NewSource(seed))
	f := framechan.NewFrame(w, h)
	r.Read(f.Pix)
	return f
}

func TestFallback_CentreBox(t *testing.T) {
	f := framechan.NewFrame(640, 640)
	boxes, drawn, err := Fallback{}.Detect(f, 0.9, []int{5})
	require.NoError(t, err)
	if diff := cmp.Diff([]Box{{X1: 240, Y1: 240, X2: 400, Y2: 400}}, boxes); diff != "" {
		t.Fatalf("boxes mismatch (-want +got):\n%s", diff)
	}
	b, g, r := drawn.BGR(240, 300)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{b, g, r})
	b, g, r = drawn.BGR(241, 300)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{b, g, r}, "outline is 2px wide")
	b, g, r = drawn.BGR(320, 320)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{b, g, r})
	_, g, _ = f.BGR(240, 300)
	assert.Zero(t, g, "input frame must not be modified")
}

func TestFallback_NonSquare(t *testing.T) {
	boxes, _, err := Fallback{}.Detect(framechan.NewFrame(200, 100), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []Box{{X1: 88, Y1: 38, X2: 113, Y2: 63}}, boxes)
}

func newPatchDetector(t *testing.T, f framechan.Frame, x, y, size int) *TemplateDetector {
	t.Helper()
	patch := framechan.Frame{Width: size, Height: size, Stride: f.Stride, Pix: f.Pix[y*f.Stride+x*framechan.Channels:]}
	d, err := NewTemplateDetectorFromImage("patch", patch.ToRGBA(), TemplateOptions{Scales: []float64{1}, Stride: 1})
	require.NoError(t, err)
	return d
}

func TestTemplateDetector_FindsEmbeddedPatch(t *testing.T) {
	f := noiseFrame(64, 48, 1)
	d := newPatchDetector(t, f, 30, 20, 12)

	boxes, drawn, err := d.Detect(f, 0.9, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []Box{{X1: 30, Y1: 20, X2: 42, Y2: 32}}, boxes)
	b, g, r := drawn.BGR(30, 25)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{b, g, r})
}

func TestTemplateDetector_Filters(t *testing.T) {
	f := noiseFrame(64, 48, 2)
	d := newPatchDetector(t, f, 5, 5, 10)

	boxes, _, err := d.Detect(f, 0.9, []int{1, 2})
	require.NoError(t, err)
	assert.Empty(t, boxes, "class filter without class 0")

	boxes, _, err = d.Detect(f, 1.5, nil)
	require.NoError(t, err)
	assert.Empty(t, boxes, "score below confidence")

	boxes, _, err = d.Detect(framechan.NewFrame(6, 6), 0.1, nil)
	require.NoError(t, err)
	assert.Empty(t, boxes, "template larger than frame")
}

func TestNewTemplateDetector_RejectsUniformImage(t *testing.T) {
	flat := framechan.NewFrame(8, 8).ToRGBA()
	_, err := NewTemplateDetectorFromImage("flat", flat, TemplateOptions{})
	assert.Error(t, err)
}

func TestNew_FallsBackWhenModelUnavailable(t *testing.T) {
	assert.Equal(t, "fallback", New(filepath.Join(t.TempDir(), "missing.png"), nil).Name())
	assert.Equal(t, "fallback", New("models/yolo12n.pt", nil).Name())
}

func TestLoadClassLabels(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "yolo.onnx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yolo.yaml"), []byte("names:\n  - person\n  - head\n"), 0o644))

	labels, err := LoadClassLabels(model)
	require.NoError(t, err)
	assert.Equal(t, []Label{{0, "person"}, {1, "head"}}, labels)

	other := filepath.Join(dir, "other.pt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.yaml"), []byte("names:\n  2: car\n  0: person\n"), 0o644))
	labels, err = LoadClassLabels(other)
	require.NoError(t, err)
	assert.Equal(t, []Label{{0, "person"}, {2, "car"}}, labels)

	labels, err = LoadClassLabels("anything/target.PNG")
	require.NoError(t, err)
	assert.Equal(t, []Label{{0, "target"}}, labels)

	_, err = LoadClassLabels(filepath.Join(t.TempDir(), "none.pt"))
	assert.ErrorIs(t, err, ErrNoLabels)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("names: 3\n"), 0o644))
	_, err = LoadClassLabels(filepath.Join(dir, "bad.pt"))
	assert.ErrorIs(t, err, ErrNoLabels)
}

type mockDetector struct {
	calls atomic.Int32
	boxes []Box
	err   error
}

func (m *mockDetector) Name() string { return "mock" }

func (m *mockDetector) Detect(f framechan.Frame, _ float64, _ []int) ([]Box, framechan.Frame, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, framechan.Frame{}, m.err
	}
	out := f.Clone()
	out.SetBGR(0, 0, 1, 2, 3)
	return m.boxes, out, nil
}

func newWorkerChannel(t *testing.T) *framechan.Channel {
	t.Helper()
	ch, err := framechan.Create(framechan.NewMemory(), framechan.NewName(), framechan.Layout{Width: 8, Height: 8, MaxBoxes: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Release() })
	return ch
}

func TestWorker_AnnotatesEachFrameOnce(t *testing.T) {
	ch := newWorkerChannel(t)
	det := &mockDetector{boxes: []Box{{X1: 1, Y1: 1, X2: 4, Y2: 4}}}
	w := NewWorker(det, ch, Settings{Confidence: 0.5}, nil)
	h := worker.Spawn("inference", nil, w.Run)
	defer h.Stop(time.Second)

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, det.calls.Load(), "nothing written yet")

	require.True(t, ch.Write(framechan.NewFrame(8, 8), nil))
	require.Eventually(t, func() bool { return len(ch.Read().Boxes) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), det.calls.Load())

	s := ch.Read()
	b, g, r := s.Frame.BGR(0, 0)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{b, g, r})

	require.True(t, ch.Write(framechan.NewFrame(8, 8), nil))
	require.Eventually(t, func() bool { return det.calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestWorker_PassesFrameThroughOnFailure(t *testing.T) {
	ch := newWorkerChannel(t)
	det := &mockDetector{err: errors.New("model crashed")}
	w := NewWorker(det, ch, Settings{}, nil)

	h := worker.Spawn("inference", nil, w.Run)
	require.Eventually(t, func() bool { return w.Stats().Skipped > 0 }, time.Second, time.Millisecond)

	f := framechan.NewFrame(8, 8)
	f.SetBGR(2, 2, 9, 9, 9)
	require.True(t, ch.Write(f, []Box{{X1: 0, Y1: 0, X2: 1, Y2: 1}}))
	require.Eventually(t, func() bool { return w.Stats().Failures >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return ch.Sequence() == 4 }, time.Second, time.Millisecond)
	require.True(t, h.Stop(time.Second))

	s := ch.Read()
	assert.Empty(t, s.Boxes)
	b, _, _ := s.Frame.BGR(2, 2)
	assert.Equal(t, uint8(9), b)
	assert.Equal(t, uint64(1), w.Stats().Failures)
}

type panicOnceDetector struct {
	calls atomic.Int32
	seen  map[int]bool
}

func (p *panicOnceDetector) Name() string { return "flaky" }

func (p *panicOnceDetector) Detect(f framechan.Frame, _ float64, _ []int) ([]Box, framechan.Frame, error) {
	if p.calls.Add(1) == 1 {
		p.seen[0] = true
	}
	return []Box{{X1: 1, Y1: 1, X2: 3, Y2: 3}}, f, nil
}

func TestWorker_SurvivesDetectorPanic(t *testing.T) {
	ch := newWorkerChannel(t)
	det := &panicOnceDetector{}
	w := NewWorker(det, ch, Settings{}, nil)
	h := worker.Spawn("inference", nil, w.Run)
	defer h.Stop(time.Second)
	require.Eventually(t, func() bool { return w.Stats().Skipped > 0 }, time.Second, time.Millisecond)

	require.True(t, ch.Write(framechan.NewFrame(8, 8), nil))
	require.Eventually(t, func() bool { return w.Stats().Failures == 1 }, time.Second, time.Millisecond)
	assert.False(t, h.Exited(), "a panicking detector must not end the loop")
	assert.Empty(t, ch.Read().Boxes)

	require.True(t, ch.Write(framechan.NewFrame(8, 8), nil))
	require.Eventually(t, func() bool { return len(ch.Read().Boxes) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), det.calls.Load())
	assert.NoError(t, h.Err())
}

func TestWorker_DoesNotReannotateOnRestart(t *testing.T) {
	ch := newWorkerChannel(t)
	det := &mockDetector{boxes: []Box{{X1: 1, Y1: 1, X2: 4, Y2: 4}}}
	first := NewWorker(det, ch, Settings{}, nil)
	h := worker.Spawn("inference", nil, first.Run)
	require.Eventually(t, func() bool { return first.Stats().Skipped > 0 }, time.Second, time.Millisecond)
	require.True(t, ch.Write(framechan.NewFrame(8, 8), nil))
	require.Eventually(t, func() bool { return det.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.True(t, h.Stop(time.Second))

	second := NewWorker(det, ch, Settings{}, nil)
	h = worker.Spawn("inference", nil, second.Run)
	defer h.Stop(time.Second)
	require.Eventually(t, func() bool { return second.Stats().Skipped > 5 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), det.calls.Load())
	assert.Zero(t, second.Stats().Inferences)
}
