package config

import "time"

// Config is the flat key-value configuration shared by every pipeline role.
// The supervisor snapshots it at spawn time; workers only ever see copies.
type Config struct {
	Debug bool `json:"debug"`

	// Motion mapping: pixels per full angular span on each axis.
	XPixels      float64 `json:"x_pixels"`
	YPixels      float64 `json:"y_pixels"`
	XBaseSpeed   float64 `json:"x_base_speed"`
	YBaseSpeed   float64 `json:"y_base_speed"`
	XSpanDegrees float64 `json:"x_span_degrees"`
	YSpanDegrees float64 `json:"y_span_degrees"`

	// Aim point inside the selected box (0.5 = centre, 0/1 = edges).
	XTargetOffset float64 `json:"x_target_offset"`
	YTargetOffset float64 `json:"y_target_offset"`

	Hotkey             string `json:"hotkey"`
	CooldownMillis     int    `json:"cooldown_ms"`
	PollIntervalMillis int    `json:"poll_interval_ms"`
	FallbackMillis     int    `json:"fallback_interval_ms"`

	// Detection parameters
	Confidence float64 `json:"confidence"`
	Classes    []int   `json:"classes"`
	ModelPath  string  `json:"model_path"`

	// Frame channel geometry; must be identical process-wide.
	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`
	MaxBoxes    int `json:"max_boxes"`

	// Bounded retries before a reader settles for a possibly torn sample.
	ReadAttempts int `json:"read_attempts"`

	JoinTimeoutMillis  int `json:"join_timeout_ms"`
	PreviewMillis      int `json:"preview_interval_ms"`
	PreviewCheckFrames int `json:"preview_check_every"`

	Listen string `json:"listen"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:              false,
		XPixels:            3840,
		YPixels:            2440,
		XBaseSpeed:         3.0,
		YBaseSpeed:         3.0,
		XSpanDegrees:       360,
		YSpanDegrees:       180,
		XTargetOffset:      0.5,
		YTargetOffset:      0.1,
		Hotkey:             "x1",
		CooldownMillis:     0,
		PollIntervalMillis: 10,
		FallbackMillis:     1000,
		Confidence:         0.25,
		Classes:            []int{0},
		ModelPath:          "models/target.png",
		FrameWidth:         640,
		FrameHeight:        640,
		MaxBoxes:           256,
		ReadAttempts:       3,
		JoinTimeoutMillis:  3000,
		PreviewMillis:      16,
		PreviewCheckFrames: 60,
		Listen:             "127.0.0.1:8000",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.XPixels <= 0 {
		c.XPixels = d.XPixels
	}
	if c.YPixels <= 0 {
		c.YPixels = d.YPixels
	}
	if c.XBaseSpeed < 0 {
		c.XBaseSpeed = 0
	}
	if c.YBaseSpeed < 0 {
		c.YBaseSpeed = 0
	}
	if c.XSpanDegrees <= 0 {
		c.XSpanDegrees = d.XSpanDegrees
	}
	if c.YSpanDegrees <= 0 {
		c.YSpanDegrees = d.YSpanDegrees
	}
	c.XTargetOffset = clamp01(c.XTargetOffset)
	c.YTargetOffset = clamp01(c.YTargetOffset)
	if c.Hotkey == "" {
		c.Hotkey = d.Hotkey
	}
	if c.CooldownMillis < 0 {
		c.CooldownMillis = 0
	}
	if c.PollIntervalMillis <= 0 {
		c.PollIntervalMillis = d.PollIntervalMillis
	}
	if c.FallbackMillis <= 0 {
		c.FallbackMillis = d.FallbackMillis
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		c.Confidence = d.Confidence
	}
	if c.FrameWidth <= 0 {
		c.FrameWidth = d.FrameWidth
	}
	if c.FrameHeight <= 0 {
		c.FrameHeight = d.FrameHeight
	}
	if c.MaxBoxes <= 0 {
		c.MaxBoxes = d.MaxBoxes
	}
	if c.ReadAttempts <= 0 {
		c.ReadAttempts = d.ReadAttempts
	}
	if c.JoinTimeoutMillis <= 0 {
		c.JoinTimeoutMillis = d.JoinTimeoutMillis
	}
	if c.PreviewMillis <= 0 {
		c.PreviewMillis = d.PreviewMillis
	}
	if c.PreviewCheckFrames <= 0 {
		c.PreviewCheckFrames = d.PreviewCheckFrames
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clone returns a deep copy; Classes is the only reference field.
func (c Config) Clone() Config {
	if c.Classes != nil {
		c.Classes = append([]int(nil), c.Classes...)
	}
	return c
}

func (c Config) Cooldown() time.Duration { return time.Duration(c.CooldownMillis) * time.Millisecond }
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}
func (c Config) FallbackInterval() time.Duration {
	return time.Duration(c.FallbackMillis) * time.Millisecond
}
func (c Config) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutMillis) * time.Millisecond
}
func (c Config) PreviewInterval() time.Duration {
	return time.Duration(c.PreviewMillis) * time.Millisecond
}
