//go:build windows

package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	smCxScreen   = 0
	smCyScreen   = 1
	srccopy      = 0x00CC0020
	dibRGBColors = 0
	biRgb        = 0
	gdiError     = ^uintptr(0)

	// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2, i.e. (HANDLE)-4.
	dpiContextPerMonitorV2 = ^uintptr(3)
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procGetDC                         = user32.NewProc("GetDC")
	procReleaseDC                     = user32.NewProc("ReleaseDC")
	procGetSystemMetrics              = user32.NewProc("GetSystemMetrics")
	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procSetProcessDPIAware            = user32.NewProc("SetProcessDPIAware")
	procCreateCompatibleDC            = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC                      = gdi32.NewProc("DeleteDC")
	procSelectObject                  = gdi32.NewProc("SelectObject")
	procBitBlt                        = gdi32.NewProc("BitBlt")
	procCreateDIBSection              = gdi32.NewProc("CreateDIBSection")
	procDeleteObject                  = gdi32.NewProc("DeleteObject")
)

var (
	dpiOnce sync.Once
	dpiMode DPIMode
	dpiErr  error
)

// EnableDPIAwareness opts the process into physical-pixel coordinates so
// GetSystemMetrics and BitBlt agree with the real screen on scaled displays.
// Per-monitor v2 is tried first, then the Vista-era system-wide call. Only
// the first call does anything; later calls repeat its result.
func EnableDPIAwareness() (DPIMode, error) {
	dpiOnce.Do(func() {
		if procSetProcessDpiAwarenessContext.Find() == nil {
			ok, _, err := procSetProcessDpiAwarenessContext.Call(dpiContextPerMonitorV2)
			// ACCESS_DENIED means a manifest or an earlier call already set it.
			if ok != 0 || errors.Is(err, windows.ERROR_ACCESS_DENIED) {
				dpiMode = DPIPerMonitorV2
				return
			}
		}
		if err := procSetProcessDPIAware.Find(); err != nil {
			dpiErr = fmt.Errorf("capture: dpi awareness unsupported: %w", err)
			return
		}
		if ok, _, err := procSetProcessDPIAware.Call(); ok == 0 {
			dpiErr = fmt.Errorf("capture: SetProcessDPIAware: %w", err)
			return
		}
		dpiMode = DPISystem
	})
	return dpiMode, dpiErr
}

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte
}

// dibTarget is a memory DC with a top-down 32-bit DIB selected into it.
type dibTarget struct {
	w, h int
	dc   uintptr
	bmp  uintptr
	old  uintptr
	bits unsafe.Pointer
}

func newDIBTarget(screenDC uintptr, w, h int) (*dibTarget, error) {
	dc, _, err := procCreateCompatibleDC.Call(screenDC)
	if dc == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC: %w", err)
	}
	bi := bitmapInfo{Header: bitmapInfoHeader{
		BiWidth:       int32(w),
		BiHeight:      -int32(h),
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: biRgb,
		BiSizeImage:   uint32(w * h * 4),
	}}
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	t := &dibTarget{w: w, h: h, dc: dc}
	t.bmp, _, err = procCreateDIBSection.Call(dc, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&t.bits)), 0, 0)
	if t.bmp == 0 {
		procDeleteDC.Call(dc)
		return nil, fmt.Errorf("capture: CreateDIBSection %dx%d: %w", w, h, err)
	}
	t.old, _, err = procSelectObject.Call(dc, t.bmp)
	if t.old == 0 || t.old == gdiError {
		procDeleteObject.Call(t.bmp)
		procDeleteDC.Call(dc)
		return nil, fmt.Errorf("capture: SelectObject: %w", err)
	}
	return t, nil
}

func (t *dibTarget) release() {
	if t == nil {
		return
	}
	procSelectObject.Call(t.dc, t.old)
	procDeleteObject.Call(t.bmp)
	procDeleteDC.Call(t.dc)
}

// rgba copies the DIB's BGRX pixels into a new opaque RGBA image.
func (t *dibTarget) rgba() *image.RGBA {
	n := t.w * t.h * 4
	src := unsafe.Slice((*byte)(t.bits), n)
	dst := image.NewRGBA(image.Rect(0, 0, t.w, t.h))
	for i := 0; i < n; i += 4 {
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = src[i+2], src[i+1], src[i], 0xFF
	}
	return dst
}

// GDIGrabber BitBlts the region into a DIB section that is kept between
// grabs while the region size stays the same. It is safe for concurrent use;
// an abandoned capture worker and its replacement may share one.
type GDIGrabber struct {
	mu     sync.Mutex
	target *dibTarget
}

func (*GDIGrabber) Bounds() (image.Rectangle, error) {
	w := int(getSystemMetric(smCxScreen))
	h := int(getSystemMetric(smCyScreen))
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("capture: invalid screen size w=%d h=%d", w, h)
	}
	return image.Rect(0, 0, w, h), nil
}

func (g *GDIGrabber) Grab(sel image.Rectangle) (*image.RGBA, error) {
	if sel.Empty() {
		return nil, errors.New("capture: empty selection")
	}
	screen, err := g.Bounds()
	if err != nil {
		return nil, err
	}
	r := sel.Intersect(screen)
	if r.Empty() {
		return nil, fmt.Errorf("capture: selection out of bounds sel=%v screen=%v", sel, screen)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	screenDC, _, callErr := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("capture: GetDC: %w", callErr)
	}
	defer procReleaseDC.Call(0, screenDC)

	if g.target == nil || g.target.w != r.Dx() || g.target.h != r.Dy() {
		g.target.release()
		g.target = nil
		t, err := newDIBTarget(screenDC, r.Dx(), r.Dy())
		if err != nil {
			return nil, err
		}
		g.target = t
	}
	ok, _, callErr := procBitBlt.Call(g.target.dc, 0, 0, uintptr(r.Dx()), uintptr(r.Dy()), screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srccopy)
	if ok == 0 {
		return nil, fmt.Errorf("capture: BitBlt %v: %w", r, callErr)
	}
	return g.target.rgba(), nil
}

// NewPlatformGrabber enables DPI awareness and returns the GDI grabber.
func NewPlatformGrabber() Grabber {
	_, _ = EnableDPIAwareness()
	return &GDIGrabber{}
}

func getSystemMetric(idx int) int32 {
	v, _, _ := procGetSystemMetrics.Call(uintptr(idx))
	return int32(v)
}
