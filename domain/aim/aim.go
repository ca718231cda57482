// Package aim selects the detection nearest the frame centre and maps the
// offset to a relative pointer movement.
package aim

import (
	"math"
	"time"

	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/domain/framechan"
)

// Box is a detection rectangle in frame pixels.
type Box = framechan.Box

// Settings are the controller parameters snapshotted at spawn.
type Settings struct {
	XPixels, YPixels           float64
	XBaseSpeed, YBaseSpeed     float64
	XSpanDegrees, YSpanDegrees float64
	XTargetOffset              float64
	YTargetOffset              float64
	Cooldown                   time.Duration
	PollInterval               time.Duration
}

// SettingsFromConfig copies the aiming keys out of cfg.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		XPixels:       cfg.XPixels,
		YPixels:       cfg.YPixels,
		XBaseSpeed:    cfg.XBaseSpeed,
		YBaseSpeed:    cfg.YBaseSpeed,
		XSpanDegrees:  cfg.XSpanDegrees,
		YSpanDegrees:  cfg.YSpanDegrees,
		XTargetOffset: cfg.XTargetOffset,
		YTargetOffset: cfg.YTargetOffset,
		Cooldown:      cfg.Cooldown(),
		PollInterval:  cfg.PollInterval(),
	}
}

// SelectNearest returns the box whose centre is closest to (cx, cy) and its
// index. Ties keep the first box in input order. ok is false for no boxes.
func SelectNearest(boxes []Box, cx, cy float64) (best Box, index int, ok bool) {
	bestDist := math.Inf(1)
	index = -1
	for i, b := range boxes {
		bx, by := b.Center()
		d := math.Hypot(bx-cx, by-cy)
		if d < bestDist {
			best, index, bestDist = b, i, d
		}
	}
	return best, index, index >= 0
}

// AimPoint returns the point at fractional offsets inside b; 0.5 is the
// centre and 0 or 1 are the edges.
func AimPoint(b Box, xOffset, yOffset float64) (float64, float64) {
	return float64(b.X1) + float64(b.X2-b.X1)*xOffset,
		float64(b.Y1) + float64(b.Y2-b.Y1)*yOffset
}

// MapDelta converts a pixel displacement to actuator units per axis:
// delta * base_speed * (span_degrees / pixels), rounded half away from zero.
func MapDelta(dx, dy float64, s Settings) (int, int) {
	return int(math.Round(axis(dx, s.XBaseSpeed, s.XSpanDegrees, s.XPixels))),
		int(math.Round(axis(dy, s.YBaseSpeed, s.YSpanDegrees, s.YPixels)))
}

func axis(delta, speed, span, pixels float64) float64 {
	if pixels <= 0 {
		return 0
	}
	return delta * speed * (span / pixels)
}
