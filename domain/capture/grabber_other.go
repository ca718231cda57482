//go:build !windows

package capture

// EnableDPIAwareness is a no-op outside Windows; other platforms already
// report physical pixels to the screenshot backend.
func EnableDPIAwareness() (DPIMode, error) { return DPIUnaware, nil }

// NewPlatformGrabber returns the preferred grabber for this OS.
func NewPlatformGrabber() Grabber { return ScreenGrabber{} }
