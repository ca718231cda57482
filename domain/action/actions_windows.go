//go:build windows

package action

import (
	"golang.org/x/sys/windows"
)

const mouseeventfMove = 0x0001

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procMouseEvent       = user32.NewProc("mouse_event")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

type win32Pointer struct{}

// MoveRelative issues a relative mouse_event move.
func (win32Pointer) MoveRelative(dx, dy int) error {
	if err := procMouseEvent.Find(); err != nil {
		return err
	}
	_, _, _ = procMouseEvent.Call(mouseeventfMove, uintptr(int32(dx)), uintptr(int32(dy)), 0, 0)
	return nil
}

type win32Keys struct{}

// Down reports the high bit of GetAsyncKeyState.
func (win32Keys) Down(vk uint16) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(r)&0x8000 != 0
}

// Platform returns the Win32 pointer actuator and key state.
func Platform() (Actuator, KeyState, error) {
	if err := user32.Load(); err != nil {
		return nil, nil, err
	}
	return win32Pointer{}, win32Keys{}, nil
}
