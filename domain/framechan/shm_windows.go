//go:build windows

package framechan

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = kernel32.NewProc("OpenFileMappingW")
)

// SharedMemory is the OS-backed Backend: a pagefile-backed named file
// mapping in the session-local namespace. Windows removes the mapping when
// the last handle closes, so Unlink has nothing to do.
type SharedMemory struct{}

// NewSharedMemory returns the platform shared-memory backend.
func NewSharedMemory() *SharedMemory { return &SharedMemory{} }

type viewRegion struct {
	handle windows.Handle
	addr   uintptr
	data   []byte
}

func (r *viewRegion) Bytes() []byte { return r.data }

func (r *viewRegion) Close() error {
	if r.addr == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(r.addr)
	if cerr := windows.CloseHandle(r.handle); err == nil {
		err = cerr
	}
	r.addr, r.data = 0, nil
	return err
}

func mappingName(name string) (*uint16, error) {
	return windows.UTF16PtrFromString(`Local\` + name)
}

func mapView(h windows.Handle, size int) (*viewRegion, error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("framechan: MapViewOfFile: %w", err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &viewRegion{handle: h, addr: addr, data: data}, nil
}

func (s *SharedMemory) Create(name string, size int) (Region, error) {
	n, err := mappingName(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(size), n)
	if err != nil {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("framechan: CreateFileMapping %q: %w", name, err)
	}
	return mapView(h, size)
}

func (s *SharedMemory) Open(name string, size int) (Region, error) {
	n, err := mappingName(name)
	if err != nil {
		return nil, err
	}
	r, _, callErr := procOpenFileMappingW.Call(uintptr(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE), 0, uintptr(unsafe.Pointer(n)))
	if r == 0 {
		return nil, fmt.Errorf("framechan: OpenFileMapping %q: %w", name, callErr)
	}
	return mapView(windows.Handle(r), size)
}

func (s *SharedMemory) Unlink(string) error { return nil }
