//go:build unix

package framechan

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SharedMemory is the OS-backed Backend: an mmap'd file under /dev/shm
// (or the temp dir where /dev/shm does not exist).
type SharedMemory struct {
	dir string
}

// NewSharedMemory returns the platform shared-memory backend.
func NewSharedMemory() *SharedMemory {
	dir := "/dev/shm"
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		dir = os.TempDir()
	}
	return &SharedMemory{dir: dir}
}

type mmapRegion struct {
	data []byte
}

func (r *mmapRegion) Bytes() []byte { return r.data }

func (r *mmapRegion) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}

func (s *SharedMemory) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *SharedMemory) Create(name string, size int) (Region, error) {
	p := s.path(name)
	fd, err := unix.Open(p, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("framechan: create %s: %w", p, err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Unlink(p)
		return nil, fmt.Errorf("framechan: size %s: %w", p, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Unlink(p)
		return nil, fmt.Errorf("framechan: mmap %s: %w", p, err)
	}
	return &mmapRegion{data: data}, nil
}

func (s *SharedMemory) Open(name string, size int) (Region, error) {
	p := s.path(name)
	fd, err := unix.Open(p, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("framechan: open %s: %w", p, err)
	}
	defer unix.Close(fd)
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("framechan: stat %s: %w", p, err)
	}
	if st.Size != int64(size) {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrLayoutMismatch, p, st.Size, size)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("framechan: mmap %s: %w", p, err)
	}
	return &mmapRegion{data: data}, nil
}

func (s *SharedMemory) Unlink(name string) error {
	err := unix.Unlink(s.path(name))
	if err == unix.ENOENT {
		return nil
	}
	return err
}
