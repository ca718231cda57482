package framechan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Region is one mapping of a named arena.
type Region interface {
	Bytes() []byte
	Close() error
}

// Backend creates, opens and removes named arenas.
type Backend interface {
	Create(name string, size int) (Region, error)
	Open(name string, size int) (Region, error)
	Unlink(name string) error
}

// NewName returns a unique arena name suitable for every backend.
func NewName() string {
	return "pixelaim-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Memory is an in-process Backend. Every Open of a name returns a view of
// the same byte slice, so it behaves like shared memory between goroutines.
type Memory struct {
	mu     sync.Mutex
	arenas map[string][]byte
}

// NewMemory returns an empty in-process backend.
func NewMemory() *Memory { return &Memory{arenas: map[string][]byte{}} }

type memRegion struct{ buf []byte }

func (r *memRegion) Bytes() []byte { return r.buf }
func (r *memRegion) Close() error  { return nil }

func (m *Memory) Create(name string, size int) (Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.arenas[name]; ok {
		return nil, fmt.Errorf("framechan: arena %q already exists", name)
	}
	// int32 cells at offset 0 need 4-byte alignment; make guarantees it.
	buf := make([]byte, size)
	m.arenas[name] = buf
	return &memRegion{buf: buf}, nil
}

func (m *Memory) Open(name string, size int) (Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.arenas[name]
	if !ok {
		return nil, fmt.Errorf("framechan: arena %q not found", name)
	}
	if len(buf) != size {
		return nil, fmt.Errorf("%w: arena %q is %d bytes, want %d", ErrLayoutMismatch, name, len(buf), size)
	}
	return &memRegion{buf: buf}, nil
}

func (m *Memory) Unlink(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.arenas, name)
	return nil
}

// Exists reports whether name is still registered.
func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.arenas[name]
	return ok
}
