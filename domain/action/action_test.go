package action

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeys struct {
	mu   sync.Mutex
	down map[uint16]bool
}

func newFakeKeys(vks ...uint16) *fakeKeys {
	f := &fakeKeys{down: map[uint16]bool{}}
	for _, vk := range vks {
		f.down[vk] = true
	}
	return f
}

func (f *fakeKeys) Down(vk uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down[vk]
}

func (f *fakeKeys) set(vk uint16, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down[vk] = down
}

func TestParseHotkey(t *testing.T) {
	cases := map[string]uint16{
		"x1": 0x05, "X2": 0x06, "left": 0x01, "f1": 0x70, "F12": 0x7B, "f24": 0x87,
		"a": 0x41, "Z": 0x5A, "0": 0x30, "9": 0x39, "shift": 0x10, " esc ": 0x1B, "caps_lock": 0x14,
	}
	for name, vk := range cases {
		k, err := ParseHotkey(name)
		require.NoError(t, err, name)
		assert.Equal(t, vk, k.VK, name)
	}
	_, err := ParseHotkey("f25")
	assert.Error(t, err)
	_, err = ParseHotkey("")
	assert.Error(t, err)
}

func TestKeys_UniqueNames(t *testing.T) {
	assert.Len(t, keys, 73)
	assert.Len(t, keysByName, len(keys), "duplicate identifier")
	assert.Equal(t, "left", keys[0].Name)
}

func TestHotkeySource(t *testing.T) {
	state := newFakeKeys()
	h, err := NewHotkeySource(state, "x1")
	require.NoError(t, err)
	defer h.Close()
	assert.False(t, h.Pressed())
	state.set(0x05, true)
	assert.True(t, h.Pressed())

	_, err = NewHotkeySource(nil, "x1")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = NewHotkeySource(state, "bogus")
	assert.Error(t, err)
}

func TestCaptureHotkey_IgnoresKeysHeldAtStart(t *testing.T) {
	state := newFakeKeys(0x01) // left button held while clicking the UI
	go func() {
		time.Sleep(15 * time.Millisecond)
		state.set(0x71, true)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	name, err := CaptureHotkey(ctx, state, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "f2", name)
}

func TestCaptureHotkey_ReleasedThenPressed(t *testing.T) {
	state := newFakeKeys(0x41)
	go func() {
		time.Sleep(10 * time.Millisecond)
		state.set(0x41, false)
		time.Sleep(10 * time.Millisecond)
		state.set(0x41, true)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	name, err := CaptureHotkey(ctx, state, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "a", name)
}

func TestCaptureHotkey_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := CaptureHotkey(ctx, newFakeKeys(), time.Millisecond)
	assert.ErrorIs(t, err, ErrCaptureTimeout)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = CaptureHotkey(ctx, newFakeKeys(), time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = CaptureHotkey(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}
